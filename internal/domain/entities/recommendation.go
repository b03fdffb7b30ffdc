package entities

// Priority is the closed set of recommendation priorities
type Priority string

const (
	PriorityHigh     Priority = "ALTA"
	PriorityMedium   Priority = "MEDIA"
	PriorityLow      Priority = "BAIXA"
	PriorityMaintain Priority = "MANTER"
)

// Valid reports membership in the closed priority set
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityMaintain:
		return true
	}
	return false
}

// ParsedAnalysis is the parser's view of one model reply. A nil Confidence
// means the reply carried no usable value.
type ParsedAnalysis struct {
	Priority        Priority `json:"prioridade"`
	Reasons         []string `json:"razoes_alta"`
	Pending         []string `json:"pendencias"`
	Sources         []string `json:"fontes_informacao"`
	Confidence      *float64 `json:"confianca"`
	RawText         string   `json:"resposta_bruta"`
	InitialAnalysis string   `json:"analise_inicial"`
	OriginalLabel   string   `json:"recomendacao_original"`
}

// ContextUsage echoes which knowledge fed a recommendation. ReplySource is
// fallback when the canned reply stood in for the model, and Degraded is set
// when the similarity index could not be used.
type ContextUsage struct {
	Protocol       ProtocolRecord   `json:"protocolo"`
	Compliance     ComplianceResult `json:"conformidade_pagador"`
	DocumentsFound int              `json:"documentos_encontrados"`
	ReplySource    ReplySource      `json:"origem_resposta,omitempty"`
	Degraded       bool             `json:"contexto_degradado"`
}

// LLMRecommendation is the validated record returned to callers.
type LLMRecommendation struct {
	Priority        Priority     `json:"prioridade"`
	Reasons         []string     `json:"razoes_alta"`
	Pending         []string     `json:"pendencias"`
	Sources         []string     `json:"fontes_informacao"`
	Confidence      float64      `json:"confianca"`
	RawText         string       `json:"resposta_bruta"`
	InitialAnalysis string       `json:"analise_inicial"`
	OriginalLabel   string       `json:"recomendacao_original"`
	ContextUsage    ContextUsage `json:"contexto_utilizado"`
}

// ReplySource tells where the text of a ModelReply came from
type ReplySource string

const (
	ReplySourceModel    ReplySource = "model"
	ReplySourceCache    ReplySource = "cache"
	ReplySourceFallback ReplySource = "fallback"
)

// ModelReply is the outcome of one analysis call. Err is set when the
// fallback text replaced a failed remote call.
type ModelReply struct {
	Text   string
	Source ReplySource
	Err    error
}

// IsFallback reports whether the canned reply was used
func (r ModelReply) IsFallback() bool {
	return r.Source == ReplySourceFallback
}
