package providers

import (
	"context"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// VectorIndex is the similarity index holding knowledge documents.
type VectorIndex interface {
	// Count returns the number of stored documents
	Count(ctx context.Context) (int, error)

	// Add stores documents, replacing any with the same ID
	Add(ctx context.Context, docs []entities.IndexedDocument) error

	// Query returns up to n documents closest to text, nearest first
	Query(ctx context.Context, text string, n int) ([]entities.IndexHit, error)

	// Reset drops and recreates the collection
	Reset(ctx context.Context) error
}
