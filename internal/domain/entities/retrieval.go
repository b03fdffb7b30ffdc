package entities

// Document type tags stored in index metadata
const (
	DocTypeProtocol  = "protocolo"
	DocTypePayerRule = "regra_pagador"
	DocTypeUnknown   = "desconhecido"

	ContextSourceVectorStore = "Vector Store"
)

// IndexedDocument is one document in the similarity index.
type IndexedDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// IndexHit is a query result with its distance (smaller is closer).
type IndexHit struct {
	Document IndexedDocument
	Distance float64
}

// ContextEntry is one retrieved document as shown to the prompt layer.
type ContextEntry struct {
	Content   string  `json:"conteudo"`
	Type      string  `json:"tipo"`
	Pathology string  `json:"patologia"`
	Relevance float64 `json:"relevancia"`
	Source    string  `json:"fonte"`
}

// RetrievedContext is everything the prompt builder needs about a stay.
type RetrievedContext struct {
	Entries           []ContextEntry           `json:"vector_store"`
	Protocol          ProtocolRecord           `json:"protocolo_patologia"`
	Compliance        ComplianceResult         `json:"conformidade_pagador"`
	DischargeCriteria DischargeCriteriaCatalog `json:"criterios_alta"`
	Stay              StayData                 `json:"dados_internacao"`
	Degraded          bool                     `json:"degraded"`
}
