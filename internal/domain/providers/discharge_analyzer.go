package providers

import (
	"context"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// DischargeAnalyzer sends a discharge prompt to the model and parses the
// reply. It never fails; failures surface as fallback replies.
type DischargeAnalyzer interface {
	Analyze(ctx context.Context, prompt string) entities.ModelReply
	AnalyzeStructured(ctx context.Context, prompt string) (entities.ParsedAnalysis, entities.ModelReply)
}
