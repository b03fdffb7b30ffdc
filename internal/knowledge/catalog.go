package knowledge

import "github.com/zatekoja/stayaudit/internal/domain/entities"

// Catalog is the static reference data a KnowledgeBase is built from.
type Catalog struct {
	Protocols         map[string]entities.ProtocolRecord
	DischargeCriteria entities.DischargeCriteriaCatalog
	PayerRules        entities.PayerRules
}

// DefaultCatalog returns the institutional reference data for the ten
// tracked pathologies.
func DefaultCatalog() Catalog {
	return Catalog{
		Protocols: map[string]entities.ProtocolRecord{
			"APENDICITE": {
				Description:     "Apendicite aguda pós-operatória",
				AvgLengthOfStay: 2,
				DischargeCriteria: []string{
					"Sinais vitais estáveis por 24h",
					"Tolerância à dieta oral estabelecida",
					"Controle adequado da dor com medicação oral",
					"Ausência de febre (>38°C) por 24h",
					"Mobilização adequada",
					"Corte cirúrgico sem sinais de infecção",
				},
				RequiredExams: []string{"Hemograma", "Proteína C reativa"},
				RiskFactors:   []string{"Idade >65 anos", "Comorbidades múltiplas", "Perfuração"},
			},
			"PNEUMONIA": {
				Description:     "Pneumonia adquirida na comunidade",
				AvgLengthOfStay: 5,
				DischargeCriteria: []string{
					"Melhora clínica sustentada",
					"Saturação O2 >92% em ar ambiente",
					"Hidratação oral adequada",
					"Febril há mais de 48h",
					"Troca para antibioticoterapia oral possível",
					"Estabilidade hemodinâmica",
				},
				RequiredExams: []string{"Raio-X tórax", "Hemograma", "Gasometria arterial"},
				RiskFactors:   []string{"Idade >65 anos", "DPOC", "Insuficiência cardíaca", "Diabetes"},
			},
			"FRATURA_FEMUR": {
				Description:     "Fratura de fêmur pós-redução cirúrgica",
				AvgLengthOfStay: 7,
				DischargeCriteria: []string{
					"Controle adequado da dor com medicação oral",
					"Mobilização com auxílio estabelecida",
					"Ausência de complicações tromboembólicas",
					"Condições domiciliares adequadas",
					"Plano de reabilitação definido",
					"Suporte social disponível",
				},
				RequiredExams: []string{"Raio-X controle", "Doppler venoso"},
				RiskFactors:   []string{"Osteoporose", "Idade avançada", "Comorbidades neurológicas"},
			},
			"INSUF_CARDIACA": {
				Description:     "Insuficiência cardíaca descompensada",
				AvgLengthOfStay: 6,
				DischargeCriteria: []string{
					"Estabilidade hemodinâmica",
					"Diurese adequada (>0.5ml/kg/h)",
					"Peso corporal estável ou em redução",
					"Otimização da terapia medicamentosa",
					"Saturação O2 estável em ar ambiente",
					"Plano de cuidados estabelecido",
				},
				RequiredExams: []string{"Ecocardiograma", "Eletrólitos", "Função renal", "BNP"},
				RiskFactors:   []string{"Fração de ejeção <30%", "Comorbidades renais", "Arritmias"},
			},
			"PANCREATITE": {
				Description:     "Pancreatite aguda",
				AvgLengthOfStay: 4,
				DischargeCriteria: []string{
					"Controle adequado da dor com medicação oral",
					"Tolerância à dieta oral estabelecida",
					"Função renal estável",
					"Enzimas pancreáticas em redução",
					"Sem necessidade de suporte nutricional parenteral",
					"Ausência de complicações locais",
				},
				RequiredExams: []string{"Amilase", "Lipase", "Tomografia abdominal", "Função renal"},
				RiskFactors:   []string{"Etiologia biliar", "Consumo alcoólico", "Hipertrigliceridemia"},
			},
			"SEPSE": {
				Description:     "Sepse/Síndrome da resposta inflamatória sistêmica",
				AvgLengthOfStay: 10,
				DischargeCriteria: []string{
					"Estabilidade hemodinâmica sem vasopressores",
					"Resolução da fonte infecciosa",
					"Melhora dos parâmetros inflamatórios",
					"Função renal estável",
					"Troca para antibioticoterapia oral possível",
					"Ausência de disfunção orgânica",
				},
				RequiredExams: []string{"Hemograma serial", "Proteína C reativa", "Cultura", "Função renal"},
				RiskFactors:   []string{"Idade >65 anos", "Imunossupressão", "Comorbidades múltiplas"},
			},
			"DIABETES_DESCOMP": {
				Description:     "Descompensação diabética (Cetoacidose/Estado hiperglicêmico)",
				AvgLengthOfStay: 4,
				DischargeCriteria: []string{
					"Controle glicêmico adequado",
					"Estado de hidratação normalizado",
					"Equilíbrio acidobásico restabelecido",
					"Plano de insulinoterapia estabelecido",
					"Educação em diabetes reforçada",
					"Condições para autocuidado adequadas",
				},
				RequiredExams: []string{"Glicemia capilar", "Gasometria", "Eletrólitos", "Corpos cetônicos"},
				RiskFactors:   []string{"Diabetes tipo 1", "Infecções intercorrentes", "Adesão terapêutica inadequada"},
			},
			"ASMA_GRAVE": {
				Description:     "Crise de asma grave",
				AvgLengthOfStay: 3,
				DischargeCriteria: []string{
					"Saturação O2 >92% em ar ambiente",
					"Melhora significativa da dispneia",
					"Uso de beta-2 agonista <4h",
					"Pico de fluxo expiratório >70% do previsto",
					"Plano de ação para asma estabelecido",
					"Condições para seguimento ambulatorial",
				},
				RequiredExams: []string{"Gasometria", "Raio-X tórax", "Pico de fluxo expiratório"},
				RiskFactors:   []string{"Asma de difícil controle", "Comorbidades respiratórias", "Histórico de intubação"},
			},
			"CIRURGIA_CARDIO": {
				Description:     "Pós-operatório de cirurgia cardíaca",
				AvgLengthOfStay: 5,
				DischargeCriteria: []string{
					"Estabilidade hemodinâmica",
					"Controle adequado da dor",
					"Função renal preservada",
					"Deambulação adequada",
					"Condições da ferida cirúrgica satisfatórias",
					"Plano de anticoagulação estabelecido",
				},
				RequiredExams: []string{"Ecocardiograma", "Eletrólitos", "Coagulograma", "Raio-X tórax"},
				RiskFactors:   []string{"Idade >70 anos", "Disfunção ventricular", "Comorbidades múltiplas"},
			},
			"AVC_ISQUEMICO": {
				Description:     "Acidente Vascular Cerebral Isquêmico",
				AvgLengthOfStay: 8,
				DischargeCriteria: []string{
					"Estabilidade neurológica",
					"Controle de fatores de risco",
					"Função deglutória preservada",
					"Mobilização com auxílio possível",
					"Plano de reabilitação estabelecido",
					"Suporte social adequado",
				},
				RequiredExams: []string{"Tomografia cranial", "Ressonância magnética", "Doppler de carótidas"},
				RiskFactors:   []string{"FA não tratada", "Hipertensão arterial", "Dislipidemia", "Tabagismo"},
			},
		},
		DischargeCriteria: entities.DischargeCriteriaCatalog{
			VitalSignsRanges: map[string]entities.VitalRange{
				"blood_pressure_systolic":  {Min: 90, Max: 160},
				"blood_pressure_diastolic": {Min: 60, Max: 100},
				"heart_rate":               {Min: 50, Max: 100},
				"respiratory_rate":         {Min: 12, Max: 20},
				"temperature":              {Min: 36.0, Max: 37.8},
				"oxygen_saturation":        {Min: 92, Max: 100},
			},
			FunctionalStatus: []string{
				"Consciente e orientado",
				"Via aérea pérvia",
				"Hidratação oral adequada",
				"Controle da dor adequado",
				"Mobilização possível",
				"Alimentação por via oral",
			},
			SocialFactors: []string{
				"Suporte domiciliar adequado",
				"Condições de moradia apropriadas",
				"Acesso a cuidados de follow-up",
				"Transporte disponível",
			},
		},
		PayerRules: entities.PayerRules{
			MaxLengthOfStay: map[string]int{
				"APENDICITE":             3,
				"PNEUMONIA":              7,
				"FRATURA_FEMUR":          10,
				"INSUF_CARDIACA":         8,
				"PANCREATITE":            6,
				"SEPSE":                  14,
				"DIABETES_DESCOMP":       5,
				"ASMA_GRAVE":             4,
				"CIRURGIA_CARDIO":        7,
				"AVC_ISQUEMICO":          12,
				entities.DefaultPayerKey: 10,
			},
			AuditFlags: entities.AuditFlags{
				// 30% above the protocol average
				ExtendedStayThreshold:   0.3,
				HighCostProcedures:      []string{"CIRURGIA_CARDIO", "SEPSE", "AVC_ISQUEMICO"},
				FrequentReadmissionRisk: []string{"INSUF_CARDIACA", "DPOC", "DIABETES_DESCOMP"},
			},
		},
	}
}
