package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

func sampleContext() entities.RetrievedContext {
	return entities.RetrievedContext{
		Entries: []entities.ContextEntry{
			{Content: "Patologia: PNEUMONIA\nDescrição: Pneumonia adquirida na comunidade", Relevance: 0.8, Source: entities.ContextSourceVectorStore},
			{Content: strings.Repeat("x", 150), Relevance: 0.5, Source: entities.ContextSourceVectorStore},
			{Content: "terceiro", Relevance: 0.1, Source: entities.ContextSourceVectorStore},
		},
		Protocol: entities.ProtocolRecord{
			Description:       "Pneumonia adquirida na comunidade",
			AvgLengthOfStay:   5,
			DischargeCriteria: []string{"a", "b", "c", "d"},
			RequiredExams:     []string{"Raio-X tórax"},
		},
		Compliance: entities.NewComplianceResult(7, 9),
	}
}

func TestBuild_PlainLayout(t *testing.T) {
	stay := entities.StayData{Pathology: "PNEUMONIA", StayDays: 9, ReferenceDays: 5, Sector: entities.SectorWard}

	prompt := NewDischargePromptBuilder().Build(stay, sampleContext())

	assert.True(t, strings.HasPrefix(prompt, "Você é um assistente"))
	assert.Contains(t, prompt, "- Motivo Principal: PNEUMONIA\n")
	assert.Contains(t, prompt, "- Duração da Permanência: 9 dias\n")
	assert.Contains(t, prompt, "- Tempo de Referência: 5 dias\n")
	assert.Contains(t, prompt, "- Setor: ENFERMARIA\n")
	assert.Contains(t, prompt, "- Tempo máximo permitido: 7 dias\n")
	assert.Contains(t, prompt, "- Status conformidade: FORA DO LIMITE\n")
	assert.NotContains(t, prompt, "PROTOCOLO DE REFERÊNCIA")
	assert.True(t, strings.HasSuffix(prompt, "CONFIANCA: [0.0-1.0]\n"))

	order := []string{"DADOS DO CASO:", "INFORMAÇÕES DE REFERÊNCIA:", "ANÁLISE REQUERIDA:", "RESPOSTA (formato exato):"}
	last := -1
	for _, heading := range order {
		idx := strings.Index(prompt, heading)
		assert.Greater(t, idx, last, heading)
		last = idx
	}
}

func TestBuild_DefaultsAndCompliant(t *testing.T) {
	rctx := entities.RetrievedContext{Compliance: entities.NewComplianceResult(10, 2)}

	prompt := NewDischargePromptBuilder().Build(entities.StayData{StayDays: 2}, rctx)

	assert.Contains(t, prompt, "- Motivo Principal: Desconhecida\n")
	assert.Contains(t, prompt, "- Status conformidade: DENTRO DO LIMITE\n")
}

func TestBuild_ReferenceContext(t *testing.T) {
	b := &DischargePromptBuilder{IncludeReferenceContext: true}
	stay := entities.StayData{Pathology: "PNEUMONIA", StayDays: 9}

	prompt := b.Build(stay, sampleContext())

	assert.Contains(t, prompt, "- Tempo médio de processo: 5 dias\n")
	assert.Contains(t, prompt, "- Requisitos de Encerramento: a, b, c ... (+1 mais)\n")
	assert.Contains(t, prompt, "- Documentos/Testes Obrigatórios: Raio-X tórax\n")
	assert.Contains(t, prompt, "- Dias em excesso: 2 dias\n")
	assert.Contains(t, prompt, "- Alerta: SIM\n")
	assert.Contains(t, prompt, "CONTEXTO ADICIONAL (3 fontes):")
	assert.Contains(t, prompt, "- Fonte 1: Patologia: PNEUMONIA Descrição: Pneumonia adquirida na comunidade\n")
	assert.Contains(t, prompt, "- Fonte 2: "+strings.Repeat("x", 100)+"...\n")
	assert.NotContains(t, prompt, "Fonte 3")
	assert.Less(t, strings.Index(prompt, "PROTOCOLO DE REFERÊNCIA"), strings.Index(prompt, "ANÁLISE REQUERIDA:"))
}

func TestBuild_ReferenceContextWithoutProtocol(t *testing.T) {
	b := &DischargePromptBuilder{IncludeReferenceContext: true}

	prompt := b.Build(entities.StayData{Pathology: "OUTRA"}, entities.RetrievedContext{Compliance: entities.NewComplianceResult(10, 1)})

	assert.Contains(t, prompt, "- Protocolo não disponível\n")
	assert.Contains(t, prompt, "- Alerta: NÃO\n")
	assert.NotContains(t, prompt, "CONTEXTO ADICIONAL")
}

func TestBuildValidationPrompt(t *testing.T) {
	rec := entities.LLMRecommendation{
		Priority: entities.PriorityHigh,
		Reasons:  []string{"Tempo excedido", "Sem pendências"},
		Pending:  []string{},
	}

	prompt := NewDischargePromptBuilder().BuildValidationPrompt(rec, "  manter internação  ")

	assert.Contains(t, prompt, "- Prioridade: ALTA\n")
	assert.Contains(t, prompt, "- Razões: [Tempo excedido; Sem pendências]\n")
	assert.Contains(t, prompt, "- Pendências: []\n")
	assert.Contains(t, prompt, "Decisão humana: manter internação\n")
	assert.Contains(t, prompt, "3. Como melhorar futuras recomendações?")

	empty := NewDischargePromptBuilder().BuildValidationPrompt(entities.LLMRecommendation{}, "alta")
	assert.Contains(t, empty, "- Prioridade: N/A\n")
}
