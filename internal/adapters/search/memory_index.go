package search

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
)

type memoryEntry struct {
	doc    entities.IndexedDocument
	vector []float32
}

// MemoryIndex is an in-process brute force cosine index
type MemoryIndex struct {
	embedder providers.Embedder
	mu       sync.RWMutex
	entries  []memoryEntry
	position map[string]int
}

var _ providers.VectorIndex = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index backed by embedder
func NewMemoryIndex(embedder providers.Embedder) *MemoryIndex {
	return &MemoryIndex{
		embedder: embedder,
		position: make(map[string]int),
	}
}

// Count returns the number of stored documents
func (m *MemoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Add embeds and stores documents, replacing entries with the same ID
func (m *MemoryIndex) Add(ctx context.Context, docs []entities.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range docs {
		entry := memoryEntry{
			doc:    entities.IndexedDocument{ID: d.ID, Content: d.Content, Metadata: maps.Clone(d.Metadata)},
			vector: vectors[i],
		}
		if pos, ok := m.position[d.ID]; ok {
			m.entries[pos] = entry
			continue
		}
		m.position[d.ID] = len(m.entries)
		m.entries = append(m.entries, entry)
	}
	return nil
}

// Query returns the n nearest documents by cosine distance
func (m *MemoryIndex) Query(ctx context.Context, text string, n int) ([]entities.IndexHit, error) {
	if n <= 0 {
		return []entities.IndexHit{}, nil
	}
	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	query := vectors[0]

	m.mu.RLock()
	hits := make([]entities.IndexHit, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, entities.IndexHit{
			Document: entities.IndexedDocument{ID: e.doc.ID, Content: e.doc.Content, Metadata: maps.Clone(e.doc.Metadata)},
			Distance: 1 - cosine(query, e.vector),
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// Reset removes every document
func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.position = make(map[string]int)
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
