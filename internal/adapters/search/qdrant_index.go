package search

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
)

const (
	payloadDocID   = "doc_id"
	payloadContent = "content"
)

// QdrantBackend is the part of the Qdrant client the index needs
type QdrantBackend interface {
	Points() qdrant.PointsClient
	EnsureCollection(ctx context.Context, name string, dims int) error
	DropCollection(ctx context.Context, name string) error
}

// QdrantIndex stores knowledge documents as Qdrant points. Vectors come
// from the injected embedder.
type QdrantIndex struct {
	backend    QdrantBackend
	embedder   providers.Embedder
	collection string
}

var _ providers.VectorIndex = (*QdrantIndex)(nil)

// NewQdrantIndex creates the index and ensures its collection exists
func NewQdrantIndex(ctx context.Context, backend QdrantBackend, embedder providers.Embedder, collection string) (*QdrantIndex, error) {
	if err := backend.EnsureCollection(ctx, collection, embedder.Dimensions()); err != nil {
		return nil, err
	}
	return &QdrantIndex{backend: backend, embedder: embedder, collection: collection}, nil
}

// Count returns the exact number of points
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := q.backend.Points().Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Add embeds and upserts documents
func (q *QdrantIndex) Add(ctx context.Context, docs []entities.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := q.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, d := range docs {
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: PointID(d.ID)},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: vectors[i]},
				},
			},
			Payload: toPayload(d),
		})
	}

	wait := true
	_, err = q.backend.Points().Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Query searches by cosine similarity; distance is 1 - score
func (q *QdrantIndex) Query(ctx context.Context, text string, n int) ([]entities.IndexHit, error) {
	if n <= 0 {
		return []entities.IndexHit{}, nil
	}
	vectors, err := q.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	resp, err := q.backend.Points().Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vectors[0],
		Limit:          uint64(n),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	hits := make([]entities.IndexHit, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		hits = append(hits, entities.IndexHit{
			Document: fromPayload(p.GetPayload()),
			Distance: 1 - float64(p.GetScore()),
		})
	}
	return hits, nil
}

// Reset drops and recreates the collection
func (q *QdrantIndex) Reset(ctx context.Context) error {
	if err := q.backend.DropCollection(ctx, q.collection); err != nil {
		return err
	}
	return q.backend.EnsureCollection(ctx, q.collection, q.embedder.Dimensions())
}

// PointID derives a stable point UUID from a document ID
func PointID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(docID)).String()
}

func toPayload(doc entities.IndexedDocument) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(doc.Metadata)+2)
	for key, value := range doc.Metadata {
		switch v := value.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case bool:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case float32:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: float64(v)}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case nil:
			continue
		default:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", v)}}
		}
	}
	payload[payloadDocID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.ID}}
	payload[payloadContent] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: doc.Content}}
	return payload
}

func fromPayload(payload map[string]*qdrant.Value) entities.IndexedDocument {
	doc := entities.IndexedDocument{Metadata: map[string]any{}}
	for key, value := range payload {
		var decoded any
		switch v := value.GetKind().(type) {
		case *qdrant.Value_StringValue:
			decoded = v.StringValue
		case *qdrant.Value_IntegerValue:
			decoded = v.IntegerValue
		case *qdrant.Value_DoubleValue:
			decoded = v.DoubleValue
		case *qdrant.Value_BoolValue:
			decoded = v.BoolValue
		default:
			continue
		}

		switch key {
		case payloadDocID:
			doc.ID, _ = decoded.(string)
		case payloadContent:
			doc.Content, _ = decoded.(string)
		default:
			doc.Metadata[key] = decoded
		}
	}
	return doc
}
