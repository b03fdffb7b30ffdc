package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zatekoja/stayaudit/internal/knowledge"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

// LoadGoldenQueries reads a golden query set from a JSON file and validates it.
func LoadGoldenQueries(path string) ([]GoldenQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden queries file: %w", err)
	}

	var queries []GoldenQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, apperrors.NewValidationError("failed to parse golden queries: " + err.Error())
	}
	if err := ValidateGoldenQueries(queries); err != nil {
		return nil, err
	}
	return queries, nil
}

// ValidateGoldenQueries checks required fields, unique IDs and difficulty labels.
func ValidateGoldenQueries(queries []GoldenQuery) error {
	if len(queries) == 0 {
		return apperrors.NewValidationError("golden query set is empty")
	}
	seen := make(map[string]struct{}, len(queries))

	for i, q := range queries {
		switch {
		case q.ID == "":
			return apperrors.NewValidationError(fmt.Sprintf("query at index %d: missing id", i))
		case q.Pathology == "":
			return apperrors.NewValidationError(fmt.Sprintf("query %q: missing pathology", q.ID))
		case len(q.ExpectedDocs) == 0:
			return apperrors.NewValidationError(fmt.Sprintf("query %q: no expected documents", q.ID))
		case !q.Difficulty.IsValid():
			return apperrors.NewValidationError(fmt.Sprintf("query %q: invalid difficulty %q (must be easy/medium/hard)", q.ID, q.Difficulty))
		}
		if _, dup := seen[q.ID]; dup {
			return apperrors.NewValidationError(fmt.Sprintf("query at index %d: duplicate id %q", i, q.ID))
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// DefaultGoldenQueries expects, for every catalogued pathology, its protocol
// document and, when one exists, its payer rule document.
func DefaultGoldenQueries(kb *knowledge.KnowledgeBase) []GoldenQuery {
	rules := make(map[string]struct{})
	for _, limit := range kb.PayerLimits() {
		rules[limit.Pathology] = struct{}{}
	}

	pathologies := kb.Pathologies()
	queries := make([]GoldenQuery, 0, len(pathologies))
	for _, code := range pathologies {
		q := GoldenQuery{
			ID:           "golden_" + code,
			Pathology:    code,
			ExpectedDocs: []string{"protocolo_" + code},
			Difficulty:   DifficultyEasy,
		}
		if _, ok := rules[code]; ok {
			q.ExpectedDocs = append(q.ExpectedDocs, "regra_"+code)
			q.Difficulty = DifficultyMedium
		}
		queries = append(queries, q)
	}
	return queries
}
