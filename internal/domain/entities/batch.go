package entities

import "time"

// BatchResult is one processed stay of a batch run.
type BatchResult struct {
	StayID          string         `json:"internacao_id"`
	PatientID       string         `json:"paciente_id"`
	PatientName     string         `json:"paciente_nome"`
	Pathology       string         `json:"patologia"`
	Age             int            `json:"idade"`
	StayDays        int            `json:"tempo_permanencia"`
	ReferenceDays   int            `json:"tempo_ideal"`
	Sector          string         `json:"setor"`
	Comorbidities   []string       `json:"comorbidades"`
	DatasetAlert    bool           `json:"alerta_tempo_dataset"`
	DatasetExcess   int            `json:"dias_excesso_dataset"`
	KBScore         int            `json:"score_prontidao_kb"`
	KBLevel         ReadinessLevel `json:"nivel_prontidao_kb"`
	KBFactors       []string       `json:"fatores_kb"`
	Priority        Priority       `json:"prioridade_gemini"`
	Reasons         []string       `json:"razoes_alta_gemini"`
	Pending         []string       `json:"pendencias_gemini"`
	Sources         []string       `json:"fontes_gemini"`
	Confidence      float64        `json:"confianca_gemini"`
	InitialAnalysis string         `json:"analise_inicial_gemini"`
	ContextDocs     int            `json:"documentos_contexto"`
	Fallback        bool           `json:"fallback"`
}

// CriticalCase is a high priority, high confidence stay
type CriticalCase struct {
	PatientName string   `json:"paciente_nome"`
	Pathology   string   `json:"patologia"`
	StayDays    int      `json:"tempo_permanencia"`
	Priority    Priority `json:"prioridade_gemini"`
	Confidence  float64  `json:"confianca_gemini"`
}

// BatchReport summarizes a batch run
type BatchReport struct {
	RunID                string           `json:"run_id"`
	GeneratedAt          time.Time        `json:"generated_at"`
	Total                int              `json:"total_analisado"`
	PriorityDistribution map[Priority]int `json:"distribuicao_prioridades"`
	MeanConfidence       float64          `json:"confianca_media"`
	AgreementRate        float64          `json:"taxa_concordancia"`
	CriticalCount        int              `json:"casos_alta_prioridade"`
	TopCritical          []CriticalCase   `json:"top_casos_criticos"`
	Skipped              int              `json:"registros_ignorados"`
}
