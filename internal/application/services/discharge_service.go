package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	"github.com/zatekoja/stayaudit/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

// Placeholders used when a parsed reply lacks a field
const (
	DefaultConfidence      = 0.5
	DefaultInitialAnalysis = "Análise realizada"
	DefaultOriginalLabel   = string(entities.ReadinessMaintain)
)

// ContextSource supplies the retrieved context of a stay
type ContextSource interface {
	FindRelevantContext(ctx context.Context, stay entities.StayData) entities.RetrievedContext
}

// PromptBuilder renders the analysis prompt of a stay
type PromptBuilder interface {
	Build(stay entities.StayData, rctx entities.RetrievedContext) string
}

// DischargeRecommendationService runs the discharge pipeline for one stay:
// retrieve, build the prompt, analyze, validate and attach context usage.
type DischargeRecommendationService struct {
	retriever ContextSource
	prompts   PromptBuilder
	analyzer  providers.DischargeAnalyzer
	publisher providers.RecommendationPublisher
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewDischargeRecommendationService creates the orchestrator. publisher and
// metrics may be nil.
func NewDischargeRecommendationService(
	retriever ContextSource,
	prompts PromptBuilder,
	analyzer providers.DischargeAnalyzer,
	publisher providers.RecommendationPublisher,
	metrics *observability.Metrics,
) *DischargeRecommendationService {
	return &DischargeRecommendationService{
		retriever: retriever,
		prompts:   prompts,
		analyzer:  analyzer,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

type analysisRun struct {
	stay    entities.StayData
	context entities.RetrievedContext
	prompt  string
	parsed  entities.ParsedAnalysis
	reply   entities.ModelReply
	result  entities.LLMRecommendation
}

type analysisStage struct {
	name string
	run  func(ctx context.Context, run *analysisRun) error
}

func (s *DischargeRecommendationService) stages() []analysisStage {
	return []analysisStage{
		{name: "retrieve", run: s.retrieve},
		{name: "prompt", run: s.buildPrompt},
		{name: "analyze", run: s.analyze},
		{name: "validate", run: s.validate},
		{name: "context_usage", run: s.attachContextUsage},
	}
}

// AnalyzeDischarge returns the validated recommendation of a stay. It never
// fails: a stage error or panic yields ErrorRecommendation.
func (s *DischargeRecommendationService) AnalyzeDischarge(ctx context.Context, stay entities.StayData) entities.LLMRecommendation {
	ctx, span := observability.StartSpan(ctx, "DischargeRecommendationService.AnalyzeDischarge")
	defer span.End()
	span.SetAttributes(
		attribute.String("stay.pathology", stay.Pathology),
		attribute.String("stay.id", stay.StayID),
	)

	start := s.now()
	run, err := s.fold(ctx, stay)
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("pathology", stay.Pathology).
			Str("stay_id", stay.StayID).
			Msg("Discharge analysis failed, returning error record")
		rec := ErrorRecommendation()
		observability.RecordAnalysis(ctx, s.metrics, stay.Pathology, string(rec.Priority), true, time.Since(start))
		return rec
	}

	if run.context.Degraded {
		observability.RecordDegradedContext(ctx, s.metrics, stay.Pathology)
	}
	observability.RecordAnalysis(ctx, s.metrics, stay.Pathology, string(run.result.Priority), run.reply.IsFallback(), time.Since(start))

	observability.LoggerFromContext(ctx).Info().
		Str("pathology", stay.Pathology).
		Str("stay_id", stay.StayID).
		Str("priority", string(run.result.Priority)).
		Str("source", string(run.reply.Source)).
		Int("documents", run.result.ContextUsage.DocumentsFound).
		Msg("Discharge analysis completed")

	s.publish(ctx, stay, run.result)
	return run.result
}

// fold threads one run through every stage, stopping at the first error
func (s *DischargeRecommendationService) fold(ctx context.Context, stay entities.StayData) (run *analysisRun, err error) {
	run = &analysisRun{stay: stay}
	current := "start"
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("stage %s panicked: %v", current, rec), nil)
		}
	}()

	for _, stage := range s.stages() {
		current = stage.name
		if err := stage.run(ctx, run); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.name, err)
		}
	}
	return run, nil
}

func (s *DischargeRecommendationService) retrieve(ctx context.Context, run *analysisRun) error {
	run.context = s.retriever.FindRelevantContext(ctx, run.stay)
	return nil
}

func (s *DischargeRecommendationService) buildPrompt(ctx context.Context, run *analysisRun) error {
	run.prompt = s.prompts.Build(run.stay, run.context)
	if run.prompt == "" {
		return apperrors.NewInternalError("empty prompt", nil)
	}
	return nil
}

func (s *DischargeRecommendationService) analyze(ctx context.Context, run *analysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	run.parsed, run.reply = s.analyzer.AnalyzeStructured(ctx, run.prompt)
	if run.reply.IsFallback() {
		log.Warn().Err(run.reply.Err).Str("pathology", run.stay.Pathology).Msg("Model reply replaced by fallback")
	}
	return nil
}

func (s *DischargeRecommendationService) validate(ctx context.Context, run *analysisRun) error {
	run.result = ValidateRecommendation(run.parsed)
	return nil
}

func (s *DischargeRecommendationService) attachContextUsage(ctx context.Context, run *analysisRun) error {
	run.result.ContextUsage = entities.ContextUsage{
		Protocol:       run.context.Protocol,
		Compliance:     run.context.Compliance,
		DocumentsFound: len(run.context.Entries),
		ReplySource:    run.reply.Source,
		Degraded:       run.context.Degraded,
	}
	return nil
}

func (s *DischargeRecommendationService) publish(ctx context.Context, stay entities.StayData, rec entities.LLMRecommendation) {
	if s.publisher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recommendation publisher panicked")
		}
	}()

	event := &providers.RecommendationEvent{
		ID:             uuid.New().String(),
		StayID:         stay.StayID,
		PatientID:      stay.PatientID,
		Pathology:      stay.Pathology,
		Recommendation: rec,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("stay_id", stay.StayID).Msg("Failed to publish recommendation")
	}
}

// ValidateRecommendation repairs a parsed reply into a record that satisfies
// every output invariant.
func ValidateRecommendation(parsed entities.ParsedAnalysis) entities.LLMRecommendation {
	priority := parsed.Priority
	if !priority.Valid() {
		priority = entities.PriorityMedium
	}

	confidence := DefaultConfidence
	if c := parsed.Confidence; c != nil && !math.IsNaN(*c) && !math.IsInf(*c, 0) && *c >= 0 && *c <= 1 {
		confidence = *c
	}

	initial := parsed.InitialAnalysis
	if initial == "" {
		initial = DefaultInitialAnalysis
	}
	label := parsed.OriginalLabel
	if label == "" {
		label = DefaultOriginalLabel
	}

	return entities.LLMRecommendation{
		Priority:        priority,
		Reasons:         nonNil(parsed.Reasons),
		Pending:         nonNil(parsed.Pending),
		Sources:         nonNil(parsed.Sources),
		Confidence:      confidence,
		RawText:         parsed.RawText,
		InitialAnalysis: initial,
		OriginalLabel:   label,
	}
}

// ErrorRecommendation is returned when the pipeline itself fails
func ErrorRecommendation() entities.LLMRecommendation {
	return entities.LLMRecommendation{
		Priority:        entities.PriorityLow,
		Reasons:         []string{"Erro na análise - avaliação manual necessária"},
		Pending:         []string{"Sistema temporariamente indisponível"},
		Sources:         []string{"Sistema de auditoria"},
		Confidence:      0.0,
		InitialAnalysis: "Erro na análise automatizada",
		OriginalLabel:   string(entities.ReadinessMaintain),
		ContextUsage:    entities.ContextUsage{},
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
