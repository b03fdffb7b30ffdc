package providers

import (
	"context"
	"time"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// RecommendationEvent is published after every successful analysis
type RecommendationEvent struct {
	ID             string                     `json:"id"`
	StayID         string                     `json:"internacao_id"`
	PatientID      string                     `json:"paciente_id"`
	Pathology      string                     `json:"patologia"`
	Recommendation entities.LLMRecommendation `json:"recomendacao"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// RecommendationPublisher notifies the CRUD application of new recommendations
type RecommendationPublisher interface {
	Publish(ctx context.Context, event *RecommendationEvent) error
}
