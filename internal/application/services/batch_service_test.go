package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/knowledge"
)

type recommenderFunc func(ctx context.Context, stay entities.StayData) entities.LLMRecommendation

func (f recommenderFunc) AnalyzeDischarge(ctx context.Context, stay entities.StayData) entities.LLMRecommendation {
	return f(ctx, stay)
}

func batchStays(n int) []entities.StayData {
	stays := make([]entities.StayData, n)
	for i := range stays {
		stays[i] = entities.StayData{
			StayID:        fmt.Sprintf("INT-%03d", i),
			PatientName:   fmt.Sprintf("Paciente %d", i),
			Pathology:     "APENDICITE",
			StayDays:      3,
			Sector:        entities.SectorWard,
			Age:           40,
			Comorbidities: []string{entities.NoneMarker},
		}
	}
	return stays
}

func TestBatchRun_PreservesInputOrder(t *testing.T) {
	var calls atomic.Int64
	rec := recommenderFunc(func(ctx context.Context, stay entities.StayData) entities.LLMRecommendation {
		calls.Add(1)
		if stay.StayID == "INT-000" {
			time.Sleep(20 * time.Millisecond)
		}
		return entities.LLMRecommendation{Priority: entities.PriorityHigh, Confidence: 0.9, Reasons: []string{stay.StayID}}
	})
	svc := NewBatchService(knowledge.NewDefault(), rec, nil)

	run := svc.Run(context.Background(), batchStays(12), BatchOptions{Workers: 3})

	require.Len(t, run.Results, 12)
	assert.Zero(t, run.Skipped)
	assert.EqualValues(t, 12, calls.Load())
	for i, r := range run.Results {
		assert.Equal(t, fmt.Sprintf("INT-%03d", i), r.StayID)
		assert.Equal(t, []string{r.StayID}, r.Reasons)
		assert.Equal(t, 100, r.KBScore)
		assert.Equal(t, entities.ReadinessHigh, r.KBLevel)
		assert.NotNil(t, r.Pending)
		assert.False(t, r.Fallback)
	}
}

func TestBatchRun_Limit(t *testing.T) {
	rec := recommenderFunc(func(context.Context, entities.StayData) entities.LLMRecommendation {
		return entities.LLMRecommendation{Priority: entities.PriorityLow}
	})
	svc := NewBatchService(knowledge.NewDefault(), rec, nil)

	run := svc.Run(context.Background(), batchStays(10), BatchOptions{Limit: 4})
	assert.Len(t, run.Results, 4)
	assert.Equal(t, "INT-003", run.Results[3].StayID)
}

func TestBatchRun_FallbackOnInvalidOrPanic(t *testing.T) {
	rec := recommenderFunc(func(ctx context.Context, stay entities.StayData) entities.LLMRecommendation {
		switch stay.StayID {
		case "INT-000":
			panic("model crashed")
		case "INT-001":
			return entities.LLMRecommendation{Priority: "QUALQUER"}
		}
		return entities.LLMRecommendation{Priority: entities.PriorityMaintain, Confidence: 0.6}
	})
	svc := NewBatchService(knowledge.NewDefault(), rec, nil)

	run := svc.Run(context.Background(), batchStays(3), BatchOptions{Workers: 1})

	require.Len(t, run.Results, 3)
	for _, r := range run.Results[:2] {
		assert.True(t, r.Fallback)
		assert.Equal(t, entities.PriorityMedium, r.Priority)
		assert.InDelta(t, 0.3, r.Confidence, 1e-9)
		assert.Equal(t, []string{"Análise em andamento"}, r.Reasons)
		assert.Equal(t, "Análise temporariamente indisponível", r.InitialAnalysis)
	}
	assert.False(t, run.Results[2].Fallback)
	assert.Equal(t, entities.PriorityMaintain, run.Results[2].Priority)
}

func TestBatchRun_SkipsRowsThatCannotBeProcessed(t *testing.T) {
	rec := recommenderFunc(func(context.Context, entities.StayData) entities.LLMRecommendation {
		return entities.LLMRecommendation{Priority: entities.PriorityLow}
	})
	svc := NewBatchService(nil, rec, nil)

	run := svc.Run(context.Background(), batchStays(2), BatchOptions{})
	assert.Empty(t, run.Results)
	assert.Equal(t, 2, run.Skipped)
}

func TestBatchRun_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := recommenderFunc(func(context.Context, entities.StayData) entities.LLMRecommendation {
		return entities.LLMRecommendation{Priority: entities.PriorityLow}
	})
	svc := NewBatchService(knowledge.NewDefault(), rec, nil)

	run := svc.Run(ctx, batchStays(5), BatchOptions{})
	assert.Empty(t, run.Results)
	assert.Equal(t, 5, run.Skipped)
}

func TestBuildReport(t *testing.T) {
	svc := NewBatchService(knowledge.NewDefault(), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }
	svc.newRunID = func() string { return "run-1" }

	var results []entities.BatchResult
	for i := 0; i < 7; i++ {
		results = append(results, entities.BatchResult{
			PatientName: fmt.Sprintf("Paciente %d", i),
			Pathology:   "SEPSE",
			StayDays:    15,
			KBLevel:     entities.ReadinessHigh,
			Priority:    entities.PriorityHigh,
			Confidence:  0.9,
		})
	}
	results = append(results,
		entities.BatchResult{KBLevel: entities.ReadinessLow, Priority: entities.PriorityHigh, Confidence: 0.7},
		entities.BatchResult{KBLevel: entities.ReadinessMaintain, Priority: entities.PriorityMaintain, Confidence: 0.2},
		entities.BatchResult{KBLevel: entities.ReadinessMedium, Priority: entities.PriorityLow, Confidence: 0.1},
	)

	report := svc.BuildReport(results)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, time.Date(2026, 5, 1, 15, 0, 0, 0, time.UTC), report.GeneratedAt)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, map[entities.Priority]int{
		entities.PriorityHigh:     8,
		entities.PriorityMaintain: 1,
		entities.PriorityLow:      1,
	}, report.PriorityDistribution)
	// (7*0.9 + 0.7 + 0.2 + 0.1) / 10
	assert.InDelta(t, 0.73, report.MeanConfidence, 1e-9)
	assert.InDelta(t, 80.0, report.AgreementRate, 1e-9)
	assert.Equal(t, 7, report.CriticalCount)
	require.Len(t, report.TopCritical, 5)
	assert.Equal(t, "Paciente 0", report.TopCritical[0].PatientName)
	assert.Equal(t, "Paciente 4", report.TopCritical[4].PatientName)
}

func TestBuildReport_Empty(t *testing.T) {
	svc := NewBatchService(knowledge.NewDefault(), nil, nil)

	report := svc.BuildReport(nil)

	assert.NotEmpty(t, report.RunID)
	assert.Zero(t, report.Total)
	assert.NotNil(t, report.PriorityDistribution)
	assert.Empty(t, report.PriorityDistribution)
	assert.NotNil(t, report.TopCritical)
	assert.Zero(t, report.MeanConfidence)
	assert.Zero(t, report.AgreementRate)
}
