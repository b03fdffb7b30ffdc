package services

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/providers"
	"github.com/zatekoja/stayaudit/internal/knowledge"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

const (
	contextTopK       = 3
	degradedMaxStay   = 10
	documentIDLayout  = "20060102_150405"
	queryTextTemplate = "Patologia: %s Critérios para alta hospitalar Protocolo de tratamento"
)

// ContextRetriever combines similarity search over the knowledge index with
// exact knowledge base lookups. Reindexing excludes every other operation.
type ContextRetriever struct {
	index providers.VectorIndex
	kb    *knowledge.KnowledgeBase
	topK  int
	now   func() time.Time

	mu sync.RWMutex
}

// NewContextRetriever creates a retriever over index and kb
func NewContextRetriever(index providers.VectorIndex, kb *knowledge.KnowledgeBase) *ContextRetriever {
	return &ContextRetriever{
		index: index,
		kb:    kb,
		topK:  contextTopK,
		now:   time.Now,
	}
}

// SetTopK changes the number of documents returned per query
func (r *ContextRetriever) SetTopK(n int) {
	if n > 0 {
		r.topK = n
	}
}

// IndexKnowledge loads every protocol and payer rule into an empty index.
// It does nothing when the index already holds documents.
func (r *ContextRetriever) IndexKnowledge(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexKnowledge(ctx)
}

// ReindexKnowledge drops the collection and indexes the knowledge base again.
// Documents added through AddDocument are lost.
func (r *ContextRetriever) ReindexKnowledge(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.index.Reset(ctx); err != nil {
		return 0, apperrors.NewIndexUnavailableError("failed to reset knowledge index", err)
	}
	n, err := r.indexKnowledge(ctx)
	if err != nil {
		return 0, err
	}

	log.Info().Int("documents", n).Msg("Knowledge index rebuilt")
	return n, nil
}

func (r *ContextRetriever) indexKnowledge(ctx context.Context) (int, error) {
	count, err := r.index.Count(ctx)
	if err != nil {
		return 0, apperrors.NewIndexUnavailableError("failed to count indexed documents", err)
	}
	if count > 0 {
		log.Debug().Int("documents", count).Msg("Knowledge index already populated")
		return 0, nil
	}

	docs := KnowledgeDocuments(r.kb)
	if len(docs) == 0 {
		return 0, nil
	}
	if err := r.index.Add(ctx, docs); err != nil {
		// a partial load would make the next run see a populated index
		if resetErr := r.index.Reset(ctx); resetErr != nil {
			log.Error().Err(resetErr).Msg("Failed to discard partially indexed knowledge")
		}
		return 0, apperrors.NewIndexUnavailableError("failed to index knowledge documents", err)
	}

	log.Info().Int("documents", len(docs)).Msg("Indexed knowledge base")
	return len(docs), nil
}

// FindRelevantContext returns the documents closest to the stay's pathology
// together with its protocol and payer compliance. Index failures yield the
// degraded default context instead of an error.
func (r *ContextRetriever) FindRelevantContext(ctx context.Context, stay entities.StayData) (result entities.RetrievedContext) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("pathology", stay.Pathology).Msg("Context retrieval panicked")
			result = r.degradedContext()
		}
	}()

	r.mu.RLock()
	hits, err := r.index.Query(ctx, QueryText(stay.Pathology), r.topK)
	r.mu.RUnlock()
	if err != nil {
		log.Warn().Err(err).Str("pathology", stay.Pathology).Msg("Knowledge index query failed, using default context")
		return r.degradedContext()
	}

	protocol, _ := r.kb.Protocol(stay.Pathology)
	return entities.RetrievedContext{
		Entries:           contextEntries(hits),
		Protocol:          protocol,
		Compliance:        r.kb.CheckPayerCompliance(stay.Pathology, stay.StayDays),
		DischargeCriteria: r.kb.DischargeCriteria(),
		Stay:              stay,
	}
}

// AddDocument stores one ad-hoc document. Failures are logged and an empty
// id is returned.
func (r *ContextRetriever) AddDocument(ctx context.Context, text string, metadata map[string]any) string {
	id := fmt.Sprintf("doc_%s_%s", r.now().Format(documentIDLayout), uuid.NewString()[:8])

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := entities.IndexedDocument{ID: id, Content: text, Metadata: maps.Clone(metadata)}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	if err := r.index.Add(ctx, []entities.IndexedDocument{doc}); err != nil {
		log.Error().Err(err).Str("document_id", id).Msg("Failed to add document")
		return ""
	}

	log.Info().Str("document_id", id).Msg("Document added")
	return id
}

// DocumentCount returns the number of indexed documents
func (r *ContextRetriever) DocumentCount(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Count(ctx)
}

func (r *ContextRetriever) degradedContext() entities.RetrievedContext {
	return entities.RetrievedContext{
		Entries:           []entities.ContextEntry{},
		Compliance:        entities.NewComplianceResult(degradedMaxStay, 0),
		DischargeCriteria: r.kb.DischargeCriteria(),
		Degraded:          true,
	}
}

// QueryText is the similarity query issued for a pathology
func QueryText(pathology string) string {
	return fmt.Sprintf(queryTextTemplate, pathology)
}

// KnowledgeDocuments renders one document per protocol and one per
// non-default payer rule.
func KnowledgeDocuments(kb *knowledge.KnowledgeBase) []entities.IndexedDocument {
	var docs []entities.IndexedDocument

	for _, code := range kb.Pathologies() {
		p, _ := kb.Protocol(code)
		content := strings.Join([]string{
			"Patologia: " + code,
			"Descrição: " + p.Description,
			fmt.Sprintf("Tempo médio de internação: %d dias", p.AvgLengthOfStay),
			"Critérios para alta: " + strings.Join(p.DischargeCriteria, ", "),
			"Exames necessários: " + strings.Join(p.RequiredExams, ", "),
			"Fatores de risco: " + strings.Join(p.RiskFactors, ", "),
		}, "\n")
		docs = append(docs, entities.IndexedDocument{
			ID:      "protocolo_" + code,
			Content: content,
			Metadata: map[string]any{
				"tipo":        entities.DocTypeProtocol,
				"patologia":   code,
				"tempo_medio": p.AvgLengthOfStay,
				"descricao":   p.Description,
			},
		})
	}

	for _, limit := range kb.PayerLimits() {
		content := strings.Join([]string{
			fmt.Sprintf("Regra pagador - %s:", limit.Pathology),
			fmt.Sprintf("Tempo máximo de internação: %d dias", limit.MaxStayDays),
			fmt.Sprintf("Alertas: Excesso de %d dias gera glosa", limit.MaxStayDays),
		}, "\n")
		docs = append(docs, entities.IndexedDocument{
			ID:      "regra_" + limit.Pathology,
			Content: content,
			Metadata: map[string]any{
				"tipo":         entities.DocTypePayerRule,
				"patologia":    limit.Pathology,
				"tempo_maximo": limit.MaxStayDays,
			},
		})
	}

	return docs
}

func contextEntries(hits []entities.IndexHit) []entities.ContextEntry {
	entries := make([]entities.ContextEntry, 0, len(hits))
	for _, h := range hits {
		docType, _ := h.Document.Metadata["tipo"].(string)
		if docType == "" {
			docType = entities.DocTypeUnknown
		}
		pathology, _ := h.Document.Metadata["patologia"].(string)
		entries = append(entries, entities.ContextEntry{
			Content:   h.Document.Content,
			Type:      docType,
			Pathology: pathology,
			Relevance: 1 - h.Distance,
			Source:    entities.ContextSourceVectorStore,
		})
	}
	return entries
}
