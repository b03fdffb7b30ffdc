package evaluation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// Searcher is the part of the similarity index the runner needs
type Searcher interface {
	Query(ctx context.Context, text string, n int) ([]entities.IndexHit, error)
}

// QueryFunc renders the similarity query for a pathology
type QueryFunc func(pathology string) string

// Runner scores retrieval over a set of golden queries.
type Runner struct {
	index Searcher
	query QueryFunc
	k     int
}

func NewRunner(index Searcher, query QueryFunc, k int) *Runner {
	if k <= 0 {
		k = 3
	}
	return &Runner{index: index, query: query, k: k}
}

// Run evaluates every query. A failing query scores zero and is counted in
// Failed; the run itself only fails when the context is cancelled.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalQueries: len(queries),
		K:            r.k,
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
		Results:      make([]EvalResult, 0, len(queries)),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		hits, err := r.index.Query(ctx, r.query(gq.Pathology), r.k)
		result := EvalResult{
			QueryID:      gq.ID,
			Pathology:    gq.Pathology,
			RetrievedIDs: make([]string, 0, len(hits)),
			Latency:      time.Since(start),
		}
		if err != nil {
			log.Warn().Err(err).Str("query_id", gq.ID).Msg("Golden query failed")
			result.Err = err.Error()
		} else {
			for _, h := range hits {
				result.RetrievedIDs = append(result.RetrievedIDs, h.Document.ID)
			}
			result.Recall = RecallAtK(gq.ExpectedDocs, result.RetrievedIDs, r.k)
			result.MRR = MRRAtK(gq.ExpectedDocs, result.RetrievedIDs, r.k)
		}

		r.updateSummary(summary, gq.Difficulty, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, difficulty Difficulty, res EvalResult) {
	s.Results = append(s.Results, res)
	s.AvgRecall += res.Recall
	s.AvgMRR += res.MRR
	s.AvgLatency += res.Latency
	if res.Err != "" {
		s.Failed++
	}
	if res.MRR > 0 {
		s.QueriesWithHits++
	}

	ds, ok := s.ByDifficulty[difficulty]
	if !ok {
		ds = &DifficultySummary{}
		s.ByDifficulty[difficulty] = ds
	}
	ds.Count++
	ds.AvgRecall += res.Recall
	ds.AvgMRR += res.MRR
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecall /= n
		s.AvgMRR /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ds := range s.ByDifficulty {
		if ds.Count > 0 {
			n := float64(ds.Count)
			ds.AvgRecall /= n
			ds.AvgMRR /= n
		}
	}
}

// Thresholds gate a run on minimum average scores.
type Thresholds struct {
	MinRecall float64
	MinMRR    float64
}

// Passes reports whether s meets both minimums
func (t Thresholds) Passes(s *EvalSummary) bool {
	return s.AvgRecall >= t.MinRecall && s.AvgMRR >= t.MinMRR
}
