package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	tsclient "github.com/zatekoja/stayaudit/internal/infrastructure/clients/typesense"
)

const embeddingField = "embedding"

// TypesenseIndex stores knowledge documents in a Typesense collection
// with a server-side embedding field.
type TypesenseIndex struct {
	client     *tsclient.Client
	collection string
}

var _ providers.VectorIndex = (*TypesenseIndex)(nil)

// NewTypesenseIndex creates the index and ensures its collection exists
func NewTypesenseIndex(ctx context.Context, client *tsclient.Client, collection string) (*TypesenseIndex, error) {
	idx := &TypesenseIndex{client: client, collection: collection}
	if err := client.EnsureCollection(ctx, collection); err != nil {
		return nil, err
	}
	return idx, nil
}

// Count returns the number of documents in the collection
func (t *TypesenseIndex) Count(ctx context.Context) (int, error) {
	resp, err := t.client.Client().Collection(t.collection).Retrieve(ctx)
	if err != nil {
		if tsclient.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to retrieve collection: %w", err)
	}

	var summary struct {
		NumDocuments int64 `json:"num_documents"`
	}
	if err := remarshal(resp, &summary); err != nil {
		return 0, err
	}
	return int(summary.NumDocuments), nil
}

// Add upserts all documents in one import call. Any rejected document
// fails the call with the IDs Typesense refused.
func (t *TypesenseIndex) Add(ctx context.Context, docs []entities.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		document, err := toTypesenseDocument(doc)
		if err != nil {
			return err
		}
		batch = append(batch, document)
	}

	results, err := t.client.Client().Collection(t.collection).Documents().Import(ctx, batch, &api.ImportDocumentsParams{
		Action:    pointer.String(string(api.Upsert)),
		BatchSize: pointer.Int(len(batch)),
	})
	if err != nil {
		return fmt.Errorf("failed to import %d documents: %w", len(batch), err)
	}
	return importFailures(docs, results)
}

func importFailures(docs []entities.IndexedDocument, results []*api.ImportDocumentResponse) error {
	if len(results) != len(docs) {
		return fmt.Errorf("typesense import returned %d results for %d documents", len(results), len(docs))
	}
	var failed []string
	for i, res := range results {
		if res == nil || !res.Success {
			reason := "no result"
			if res != nil {
				reason = res.Error
			}
			failed = append(failed, docs[i].ID+" ("+reason+")")
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("typesense rejected %d of %d documents: %s", len(failed), len(docs), strings.Join(failed, ", "))
	}
	return nil
}

// Query runs a semantic search on the embedding field
func (t *TypesenseIndex) Query(ctx context.Context, text string, n int) ([]entities.IndexHit, error) {
	if n <= 0 {
		return []entities.IndexHit{}, nil
	}
	params := &api.SearchCollectionParams{
		Q:             pointer.String(text),
		QueryBy:       pointer.String(embeddingField),
		PerPage:       pointer.Int(n),
		ExcludeFields: pointer.String(embeddingField),
	}

	result, err := t.client.Client().Collection(t.collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	if result == nil || result.Hits == nil {
		return []entities.IndexHit{}, nil
	}

	var hits []typesenseHit
	if err := remarshal(result.Hits, &hits); err != nil {
		return nil, err
	}

	out := make([]entities.IndexHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, fromTypesenseHit(h))
	}
	return out, nil
}

// Reset drops and recreates the collection
func (t *TypesenseIndex) Reset(ctx context.Context) error {
	if err := t.client.DropCollection(ctx, t.collection); err != nil {
		return err
	}
	return t.client.EnsureCollection(ctx, t.collection)
}

type typesenseHit struct {
	Document       map[string]any `json:"document"`
	VectorDistance *float64       `json:"vector_distance"`
}

func toTypesenseDocument(doc entities.IndexedDocument) (map[string]any, error) {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata of %s: %w", doc.ID, err)
	}
	document := map[string]any{
		"id":            doc.ID,
		"content":       doc.Content,
		"metadata_json": string(metadata),
	}
	if tipo, ok := doc.Metadata["tipo"].(string); ok {
		document["tipo"] = tipo
	}
	if patologia, ok := doc.Metadata["patologia"].(string); ok {
		document["patologia"] = patologia
	}
	return document, nil
}

func fromTypesenseHit(h typesenseHit) entities.IndexHit {
	doc := entities.IndexedDocument{Metadata: map[string]any{}}
	if id, ok := h.Document["id"].(string); ok {
		doc.ID = id
	}
	if content, ok := h.Document["content"].(string); ok {
		doc.Content = content
	}
	if raw, ok := h.Document["metadata_json"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &doc.Metadata); err != nil {
			log.Debug().Err(err).Str("document_id", doc.ID).Msg("Ignoring undecodable typesense metadata")
			doc.Metadata = map[string]any{}
		}
	}
	for _, key := range []string{"tipo", "patologia"} {
		if _, present := doc.Metadata[key]; present {
			continue
		}
		if v, ok := h.Document[key].(string); ok {
			doc.Metadata[key] = v
		}
	}

	// Hits without a vector distance were matched lexically only
	distance := 1.0
	if h.VectorDistance != nil {
		distance = *h.VectorDistance
	}
	return entities.IndexHit{Document: doc, Distance: distance}
}

func remarshal(src, dst any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to encode typesense response: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode typesense response: %w", err)
	}
	return nil
}
