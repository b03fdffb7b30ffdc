package evaluation

import "time"

// Difficulty labels how hard a golden query is expected to be.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid checks if the difficulty is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GoldenQuery is a pathology whose similarity query should surface ExpectedDocs.
type GoldenQuery struct {
	ID           string     `json:"id"`
	Pathology    string     `json:"patologia"`
	ExpectedDocs []string   `json:"documentos_esperados"`
	Difficulty   Difficulty `json:"dificuldade"`
}

// EvalResult holds the outcome for a single query.
type EvalResult struct {
	QueryID      string        `json:"id"`
	Pathology    string        `json:"patologia"`
	Recall       float64       `json:"recall"`
	MRR          float64       `json:"mrr"`
	RetrievedIDs []string      `json:"documentos_recuperados"`
	Latency      time.Duration `json:"latencia_ns"`
	Err          string        `json:"erro,omitempty"`
}

// EvalSummary holds aggregate metrics across all golden queries.
type EvalSummary struct {
	TotalQueries    int                               `json:"total_consultas"`
	K               int                               `json:"k"`
	AvgRecall       float64                           `json:"recall_medio"`
	AvgMRR          float64                           `json:"mrr_medio"`
	AvgLatency      time.Duration                     `json:"latencia_media_ns"`
	QueriesWithHits int                               `json:"consultas_com_acerto"`
	Failed          int                               `json:"consultas_com_erro"`
	ByDifficulty    map[Difficulty]*DifficultySummary `json:"por_dificuldade"`
	Results         []EvalResult                      `json:"resultados"`
}

// DifficultySummary holds metrics grouped by difficulty.
type DifficultySummary struct {
	Count     int     `json:"total"`
	AvgRecall float64 `json:"recall_medio"`
	AvgMRR    float64 `json:"mrr_medio"`
}
