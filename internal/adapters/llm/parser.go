package llm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
	"github.com/zatekoja/stayaudit/pkg/utils"
)

// Canonical section keys of the reply grammar
const (
	keyInitialAnalysis = "analise_inicial"
	keyReasons         = "razoes_alta"
	keyPending         = "pendencias"
	keyRecommendation  = "recomendacao"
	keySources         = "fontes"
	keySourcesLong     = "fontes_informacao"
	keyConfidence      = "confianca"
	keyPriority        = "prioridade"
)

const defaultConfidence = 0.75

var (
	canonicalKeys = map[string]struct{}{
		keyInitialAnalysis: {},
		keyReasons:         {},
		keyPending:         {},
		keyRecommendation:  {},
		keySources:         {},
		keySourcesLong:     {},
		keyConfidence:      {},
	}

	labelPattern      = regexp.MustCompile(`[\p{L}_]+:`)
	boundaryPattern   = regexp.MustCompile(`(?i)\n[ \t]*[a-z_]+:`)
	sectionBullet     = regexp.MustCompile(`(?m)^[ \t]*[*+\-][ \t]*`)
	listBullet        = regexp.MustCompile(`^[ \t]*[*+\-•][ \t]*`)
	confidencePattern = regexp.MustCompile(`(?i)confianca:\s*([0-9.]+)`)
	codeFence         = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// ResponseParser turns model replies into ParsedAnalysis records.
type ResponseParser struct{}

// NewResponseParser creates a parser
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Parse extracts the six reply fields. Blank input is a malformed
// response; anything else yields a best-effort record.
func (p *ResponseParser) Parse(raw string) (entities.ParsedAnalysis, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return entities.ParsedAnalysis{}, apperrors.NewMalformedResponseError("empty model reply")
	}

	body := stripCodeFence(trimmed)
	if strings.HasPrefix(body, "{") {
		if parsed, err := parseJSONReply(body); err == nil {
			parsed.RawText = trimmed
			return parsed, nil
		}
	}

	text := normalizeKeys(body)

	sources := extractList(text, keySources)
	if len(sources) == 0 {
		sources = extractList(text, keySourcesLong)
	}
	recommendation := extractSection(text, keyRecommendation)
	confidence := extractConfidence(text)

	return entities.ParsedAnalysis{
		Priority:        MapRecommendation(recommendation),
		Reasons:         extractList(text, keyReasons),
		Pending:         extractList(text, keyPending),
		Sources:         sources,
		Confidence:      &confidence,
		RawText:         trimmed,
		InitialAnalysis: extractSection(text, keyInitialAnalysis),
		OriginalLabel:   recommendation,
	}, nil
}

// ParseOrFallback never fails; replies that cannot be parsed yield the
// error record.
func (p *ResponseParser) ParseOrFallback(raw string) entities.ParsedAnalysis {
	parsed, err := p.Parse(raw)
	if err != nil {
		return ErrorRecord(raw)
	}
	return parsed
}

// ErrorRecord is the parser's answer to an unusable reply
func ErrorRecord(raw string) entities.ParsedAnalysis {
	confidence := 0.5
	return entities.ParsedAnalysis{
		Priority:        entities.PriorityMedium,
		Reasons:         []string{"Erro/Fallback"},
		Pending:         []string{"Verificar log"},
		Sources:         []string{"Sistema"},
		Confidence:      &confidence,
		RawText:         raw,
		InitialAnalysis: "Erro na análise",
		OriginalLabel:   string(entities.PriorityMaintain),
	}
}

// MapRecommendation maps a recommendation label or paraphrase to a priority.
// Exact tokens win over keyword matches.
func MapRecommendation(label string) entities.Priority {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return entities.PriorityMedium
	}

	switch {
	case strings.Contains(label, string(entities.ReadinessHigh)):
		return entities.PriorityHigh
	case strings.Contains(label, string(entities.ReadinessMedium)):
		return entities.PriorityMedium
	case strings.Contains(label, string(entities.ReadinessLow)):
		return entities.PriorityLow
	case strings.Contains(label, string(entities.ReadinessMaintain)):
		return entities.PriorityMaintain
	case strings.Contains(label, "ALTA") && !strings.Contains(label, "PRIORIDADE"):
		return entities.PriorityHigh
	}
	for _, word := range []string{"CONTINUAR", "MANTER", "PERMANECER"} {
		if strings.Contains(label, word) {
			return entities.PriorityMaintain
		}
	}
	return entities.PriorityMedium
}

// normalizeKeys rewrites upper-case or accented field labels to their
// canonical lower-case form.
func normalizeKeys(text string) string {
	return labelPattern.ReplaceAllStringFunc(text, func(label string) string {
		key := utils.NormalizeLabel(strings.TrimSuffix(label, ":"))
		if _, ok := canonicalKeys[key]; ok {
			return key + ":"
		}
		return label
	})
}

// extractSection returns the text after key: up to the next label line
func extractSection(text, key string) string {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(key) + `:`)
	loc := pattern.FindStringIndex(text)
	if loc == nil {
		return ""
	}

	rest := text[loc[1]:]
	if end := boundaryPattern.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	content := strings.TrimSpace(rest)
	content = sectionBullet.ReplaceAllString(content, "")
	return content
}

func extractList(text, key string) []string {
	content := extractSection(text, key)
	items := []string{}
	if content == "" {
		return items
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(listBullet.ReplaceAllString(line, ""))
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

func extractConfidence(text string) float64 {
	match := confidencePattern.FindStringSubmatch(text)
	if match == nil {
		return defaultConfidence
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return defaultConfidence
	}
	return value
}

func stripCodeFence(text string) string {
	if match := codeFence.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return text
}
