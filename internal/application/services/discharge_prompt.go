package services

import (
	"fmt"
	"strings"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

const responseLabels = `ANALISE_INICIAL: [resumo administrativo]
RAZÕES_ALTA: [lista de razões administrativas/logísticas]
PENDENCIAS: [lista de informações faltantes]
RECOMENDACAO: [ALTA_PRIORIDADE_ALTA | ALTA_PRIORIDADE_MEDIA | ALTA_PRIORIDADE_BAIXA | MANTER_INTERNACAO]
FONTES: [DADOS DA INTERNAÇÃO, INFORMAÇÕES DE REFERÊNCIA]
CONFIANCA: [0.0-1.0]`

const systemPreamble = `Você é um assistente para análise logística e de conformidade financeira de casos em acompanhamento.
Sua função é analisar a permanência do caso e sugerir a prioridade para avaliação de encerramento.

LIMITAÇÕES:
- Você não faz avaliações clínicas ou de saúde.
- Você não avalia o estado do indivíduo, apenas o status do processo.
- Você não prescreve tratamento.
- A análise é apenas logística e de conformidade com regras.

CRITÉRIOS DE ANÁLISE:
1. Duração atual do caso comparada ao tempo de referência.
2. Conformidade com o tempo máximo do pagador.
3. Dados básicos do processo (setor, idade, comorbidades).

FORMATO DE RESPOSTA OBRIGATÓRIO (seis campos):
ANALISE_INICIAL: [resumo baseado apenas nos dados fornecidos]
RAZÕES_ALTA: [razões administrativas para considerar o encerramento]
PENDENCIAS: [informações faltantes para a decisão]
RECOMENDACAO: [ALTA_PRIORIDADE_ALTA | ALTA_PRIORIDADE_MEDIA | ALTA_PRIORIDADE_BAIXA | MANTER_INTERNACAO]
FONTES: [fontes usadas da lista fornecida]
CONFIANCA: [0.0-1.0]`

const (
	referenceCriteriaShown = 3
	referenceEntriesShown  = 2
	referenceEntryMaxRunes = 100
)

// DischargePromptBuilder renders the discharge analysis prompt. With
// IncludeReferenceContext the protocol and retrieved documents are
// summarized after the reference block.
type DischargePromptBuilder struct {
	IncludeReferenceContext bool
}

// NewDischargePromptBuilder creates a builder with the plain layout
func NewDischargePromptBuilder() *DischargePromptBuilder {
	return &DischargePromptBuilder{}
}

// Build composes preamble, case data, payer reference and response template
func (b *DischargePromptBuilder) Build(stay entities.StayData, rctx entities.RetrievedContext) string {
	pathology := stay.Pathology
	if pathology == "" {
		pathology = "Desconhecida"
	}
	status := "FORA DO LIMITE"
	if rctx.Compliance.IsCompliant {
		status = "DENTRO DO LIMITE"
	}

	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\nDADOS DO CASO:\n")
	fmt.Fprintf(&sb, "- Motivo Principal: %s\n", pathology)
	fmt.Fprintf(&sb, "- Duração da Permanência: %d dias\n", stay.StayDays)
	fmt.Fprintf(&sb, "- Tempo de Referência: %d dias\n", stay.ReferenceDays)
	fmt.Fprintf(&sb, "- Setor: %s\n", stay.Sector)

	sb.WriteString("\nINFORMAÇÕES DE REFERÊNCIA:\n")
	fmt.Fprintf(&sb, "- Tempo máximo permitido: %d dias\n", rctx.Compliance.MaxAllowedStay)
	fmt.Fprintf(&sb, "- Status conformidade: %s\n", status)

	if b.IncludeReferenceContext {
		sb.WriteString("\n")
		sb.WriteString(referenceContext(rctx))
	}

	sb.WriteString("\nANÁLISE REQUERIDA:\n")
	sb.WriteString("Com base apenas nos dados acima, avalie a prioridade para avaliação de alta (encerramento logístico/financeiro).\n")
	sb.WriteString("\nRESPOSTA (formato exato):\n")
	sb.WriteString(responseLabels)
	sb.WriteString("\n")
	return sb.String()
}

// BuildValidationPrompt asks the model to explain a divergence between its
// recommendation and the auditor's decision.
func (b *DischargePromptBuilder) BuildValidationPrompt(rec entities.LLMRecommendation, humanDecision string) string {
	priority := string(rec.Priority)
	if priority == "" {
		priority = "N/A"
	}

	var sb strings.Builder
	sb.WriteString("VALIDAÇÃO DE RECOMENDAÇÃO:\n\n")
	sb.WriteString("Recomendação original da IA:\n")
	fmt.Fprintf(&sb, "- Prioridade: %s\n", priority)
	fmt.Fprintf(&sb, "- Razões: %s\n", bracketList(rec.Reasons))
	fmt.Fprintf(&sb, "- Pendências: %s\n", bracketList(rec.Pending))
	fmt.Fprintf(&sb, "\nDecisão humana: %s\n", strings.TrimSpace(humanDecision))
	sb.WriteString("\nAnálise de discrepância:\n")
	sb.WriteString("1. O que a IA considerou que deveria ser diferente?\n")
	sb.WriteString("2. Quais fatores humanos pesaram na decisão?\n")
	sb.WriteString("3. Como melhorar futuras recomendações?\n")
	return sb.String()
}

func referenceContext(rctx entities.RetrievedContext) string {
	var sb strings.Builder
	sb.WriteString("PROTOCOLO DE REFERÊNCIA (Tempo/Documentos):\n")

	p := rctx.Protocol
	if p.Description != "" {
		fmt.Fprintf(&sb, "- Tempo médio de processo: %d dias\n", p.AvgLengthOfStay)
		if n := len(p.DischargeCriteria); n > 0 {
			shown := p.DischargeCriteria[:min(n, referenceCriteriaShown)]
			fmt.Fprintf(&sb, "- Requisitos de Encerramento: %s", strings.Join(shown, ", "))
			if n > referenceCriteriaShown {
				fmt.Fprintf(&sb, " ... (+%d mais)", n-referenceCriteriaShown)
			}
			sb.WriteString("\n")
		}
		if len(p.RequiredExams) > 0 {
			fmt.Fprintf(&sb, "- Documentos/Testes Obrigatórios: %s\n", strings.Join(p.RequiredExams, ", "))
		}
	} else {
		sb.WriteString("- Protocolo não disponível\n")
	}

	c := rctx.Compliance
	sb.WriteString("\nCONFORMIDADE PAGADOR:\n")
	fmt.Fprintf(&sb, "- Tempo máximo permitido: %d dias\n", c.MaxAllowedStay)
	fmt.Fprintf(&sb, "- Dias em excesso: %d dias\n", c.ExcessDays)
	alert := "NÃO"
	if c.AlertTriggered {
		alert = "SIM"
	}
	fmt.Fprintf(&sb, "- Alerta: %s\n", alert)

	if len(rctx.Entries) > 0 {
		fmt.Fprintf(&sb, "\nCONTEXTO ADICIONAL (%d fontes):\n", len(rctx.Entries))
		for i, e := range rctx.Entries[:min(len(rctx.Entries), referenceEntriesShown)] {
			fmt.Fprintf(&sb, "- Fonte %d: %s\n", i+1, truncateRunes(strings.Join(strings.Fields(e.Content), " "), referenceEntryMaxRunes))
		}
	}
	return sb.String()
}

func bracketList(items []string) string {
	return "[" + strings.Join(items, "; ") + "]"
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
