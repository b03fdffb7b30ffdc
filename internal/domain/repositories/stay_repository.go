package repositories

import (
	"context"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// StayRepository reads stay snapshots published by the CRUD application
type StayRepository interface {
	// GetByStayID retrieves one stay by its admission id
	GetByStayID(ctx context.Context, stayID string) (*entities.StayData, error)

	// List retrieves stays with filters
	List(ctx context.Context, filter StayFilter) ([]entities.StayData, error)
}

// StayFilter defines filters for listing stays
type StayFilter struct {
	Pathology  string
	Sector     string
	OnlyActive bool
	Limit      int
	Offset     int
}
