package llm

// MockResponse is returned whenever the model cannot answer. It follows the
// six-field grammar so the parser always has well-formed input.
const MockResponse = `ANALISE_INICIAL: Paciente em avaliação para possível alta.
RAZÕES_ALTA: Tempo de internação adequado, Condições clínicas estáveis
PENDENCIAS: Avaliação médica final pendente
RECOMENDACAO: ALTA_PRIORIDADE_MEDIA
FONTES: Prontuário eletrônico, Protocolos institucionais
CONFIANCA: 0.78`
