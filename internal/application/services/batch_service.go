package services

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/infrastructure/observability"
	"github.com/zatekoja/stayaudit/internal/knowledge"
)

const (
	defaultBatchWorkers    = 4
	topCriticalCases       = 5
	criticalConfidenceFrom = 0.7
	batchFallbackScore     = 0.3
)

// Recommender produces the recommendation of one stay
type Recommender interface {
	AnalyzeDischarge(ctx context.Context, stay entities.StayData) entities.LLMRecommendation
}

// BatchOptions bounds a batch run. A zero Limit processes every stay.
type BatchOptions struct {
	Limit   int
	Workers int
}

// BatchRun holds the rows of a batch in input order. Skipped counts stays
// whose processing failed outright.
type BatchRun struct {
	Results []entities.BatchResult
	Skipped int
}

// BatchService runs the knowledge base assessment and the recommendation
// pipeline over many stays.
type BatchService struct {
	kb          *knowledge.KnowledgeBase
	recommender Recommender
	metrics     *observability.Metrics
	now         func() time.Time
	newRunID    func() string
}

// NewBatchService creates a batch service. metrics may be nil.
func NewBatchService(kb *knowledge.KnowledgeBase, recommender Recommender, metrics *observability.Metrics) *BatchService {
	return &BatchService{
		kb:          kb,
		recommender: recommender,
		metrics:     metrics,
		now:         time.Now,
		newRunID:    func() string { return uuid.New().String() },
	}
}

// Run processes stays with a bounded worker pool
func (s *BatchService) Run(ctx context.Context, stays []entities.StayData, opts BatchOptions) BatchRun {
	if opts.Limit > 0 && len(stays) > opts.Limit {
		stays = stays[:opts.Limit]
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	log.Info().Int("stays", len(stays)).Int("workers", workers).Msg("Starting batch analysis")

	slots := make([]*entities.BatchResult, len(stays))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range stays {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			slots[i] = s.processStay(ctx, i, stays[i])
			if n := done.Add(1); n%10 == 0 {
				log.Info().Int64("processed", n).Int("total", len(stays)).Msg("Batch progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	run := BatchRun{Results: make([]entities.BatchResult, 0, len(stays))}
	for _, slot := range slots {
		if slot == nil {
			run.Skipped++
			continue
		}
		run.Results = append(run.Results, *slot)
	}
	observability.RecordBatchStays(ctx, s.metrics, len(run.Results))

	log.Info().Int("processed", len(run.Results)).Int("skipped", run.Skipped).Msg("Batch analysis finished")
	return run
}

func (s *BatchService) processStay(ctx context.Context, idx int, stay entities.StayData) (result *entities.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Int("row", idx).Str("pathology", stay.Pathology).Msg("Failed to process stay")
			result = nil
		}
	}()

	assessment := s.kb.AssessDischargeReadiness(stay)

	rec, fallback := s.recommend(ctx, stay)
	return &entities.BatchResult{
		StayID:          stay.StayID,
		PatientID:       stay.PatientID,
		PatientName:     stay.PatientName,
		Pathology:       stay.Pathology,
		Age:             stay.Age,
		StayDays:        stay.StayDays,
		ReferenceDays:   stay.ReferenceDays,
		Sector:          stay.Sector,
		Comorbidities:   nonNil(stay.Comorbidities),
		DatasetAlert:    stay.TimeAlert,
		DatasetExcess:   stay.ExcessDays,
		KBScore:         assessment.Score,
		KBLevel:         assessment.Level,
		KBFactors:       nonNil(assessment.Factors),
		Priority:        rec.Priority,
		Reasons:         nonNil(rec.Reasons),
		Pending:         nonNil(rec.Pending),
		Sources:         nonNil(rec.Sources),
		Confidence:      rec.Confidence,
		InitialAnalysis: rec.InitialAnalysis,
		ContextDocs:     rec.ContextUsage.DocumentsFound,
		Fallback:        fallback,
	}
}

// recommend calls the pipeline and substitutes the batch fallback for an
// invalid record or a panic.
func (s *BatchService) recommend(ctx context.Context, stay entities.StayData) (rec entities.LLMRecommendation, fallback bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("pathology", stay.Pathology).Msg("Recommendation failed, using batch fallback")
			rec, fallback = BatchFallback(), true
		}
	}()

	rec = s.recommender.AnalyzeDischarge(ctx, stay)
	if !rec.Priority.Valid() {
		log.Warn().Str("pathology", stay.Pathology).Msg("Invalid recommendation structure, using batch fallback")
		return BatchFallback(), true
	}
	return rec, false
}

// BatchFallback stands in for a recommendation the pipeline could not produce
func BatchFallback() entities.LLMRecommendation {
	return entities.LLMRecommendation{
		Priority:        entities.PriorityMedium,
		Reasons:         []string{"Análise em andamento"},
		Pending:         []string{"Processamento pendente"},
		Sources:         []string{"Sistema de fallback"},
		Confidence:      batchFallbackScore,
		InitialAnalysis: "Análise temporariamente indisponível",
		OriginalLabel:   string(entities.ReadinessMaintain),
	}
}

// BuildReport summarizes batch rows
func (s *BatchService) BuildReport(results []entities.BatchResult) entities.BatchReport {
	report := entities.BatchReport{
		RunID:                s.newRunID(),
		GeneratedAt:          s.now().UTC(),
		Total:                len(results),
		PriorityDistribution: map[entities.Priority]int{},
		TopCritical:          []entities.CriticalCase{},
	}
	if len(results) == 0 {
		return report
	}

	var confidenceSum float64
	agreements := 0
	for _, r := range results {
		report.PriorityDistribution[r.Priority]++
		confidenceSum += r.Confidence
		if r.KBLevel.Priority() == r.Priority {
			agreements++
		}
		if r.Priority == entities.PriorityHigh && r.Confidence > criticalConfidenceFrom {
			report.CriticalCount++
			if len(report.TopCritical) < topCriticalCases {
				report.TopCritical = append(report.TopCritical, entities.CriticalCase{
					PatientName: r.PatientName,
					Pathology:   r.Pathology,
					StayDays:    r.StayDays,
					Priority:    r.Priority,
					Confidence:  r.Confidence,
				})
			}
		}
	}

	total := float64(len(results))
	report.MeanConfidence = round2(confidenceSum / total)
	report.AgreementRate = round2(float64(agreements) / total * 100)
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
