package services

import (
	"context"
	"errors"
	"sync"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
)

type brokenIndex struct{}

func (brokenIndex) Count(context.Context) (int, error) { return 0, errors.New("index offline") }
func (brokenIndex) Add(context.Context, []entities.IndexedDocument) error {
	return errors.New("index offline")
}
func (brokenIndex) Query(context.Context, string, int) ([]entities.IndexHit, error) {
	return nil, errors.New("index offline")
}
func (brokenIndex) Reset(context.Context) error { return errors.New("index offline") }

type panickingIndex struct{ brokenIndex }

func (panickingIndex) Query(context.Context, string, int) ([]entities.IndexHit, error) {
	panic("corrupted segment")
}

type stubAnalyzer struct {
	parsed entities.ParsedAnalysis
	reply  entities.ModelReply
	panics bool
}

func (s *stubAnalyzer) Analyze(ctx context.Context, prompt string) entities.ModelReply {
	return s.reply
}

func (s *stubAnalyzer) AnalyzeStructured(ctx context.Context, prompt string) (entities.ParsedAnalysis, entities.ModelReply) {
	if s.panics {
		panic("analyzer exploded")
	}
	return s.parsed, s.reply
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*providers.RecommendationEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event *providers.RecommendationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fixedContext struct {
	rctx entities.RetrievedContext
}

func (f fixedContext) FindRelevantContext(context.Context, entities.StayData) entities.RetrievedContext {
	return f.rctx
}

func floatPtr(v float64) *float64 { return &v }

// flakyIndex stores the first keep documents of every Add and then fails
type flakyIndex struct {
	providers.VectorIndex
	keep   int
	resets int
}

func (f *flakyIndex) Add(ctx context.Context, docs []entities.IndexedDocument) error {
	if len(docs) > f.keep {
		if err := f.VectorIndex.Add(ctx, docs[:f.keep]); err != nil {
			return err
		}
		return errors.New("connection reset by peer")
	}
	return f.VectorIndex.Add(ctx, docs)
}

func (f *flakyIndex) Reset(ctx context.Context) error {
	f.resets++
	return f.VectorIndex.Reset(ctx)
}
