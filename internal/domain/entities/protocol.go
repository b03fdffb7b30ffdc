package entities

// ProtocolRecord is the reference protocol of one pathology.
type ProtocolRecord struct {
	Description       string   `json:"description"`
	AvgLengthOfStay   int      `json:"avg_length_of_stay"`
	DischargeCriteria []string `json:"discharge_criteria"`
	RequiredExams     []string `json:"required_exams"`
	RiskFactors       []string `json:"risk_factors"`
}

// IsZero reports the empty record returned for unknown pathologies
func (p ProtocolRecord) IsZero() bool {
	return p.Description == "" && p.AvgLengthOfStay == 0 &&
		len(p.DischargeCriteria) == 0 && len(p.RequiredExams) == 0 && len(p.RiskFactors) == 0
}

// DefaultPayerKey is the payer rule applied to pathologies without their own limit.
const DefaultPayerKey = "DEFAULT"

// AuditFlags are the payer's audit triggers
type AuditFlags struct {
	ExtendedStayThreshold   float64  `json:"extended_stay_threshold"`
	HighCostProcedures      []string `json:"high_cost_procedures"`
	FrequentReadmissionRisk []string `json:"frequent_readmission_risk"`
}

// PayerRules holds the maximum length of stay per pathology.
type PayerRules struct {
	MaxLengthOfStay map[string]int `json:"max_length_of_stay"`
	AuditFlags      AuditFlags     `json:"audit_flags"`
}

// VitalRange is an inclusive [Min, Max] interval.
type VitalRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DischargeCriteriaCatalog lists the general discharge safety criteria.
type DischargeCriteriaCatalog struct {
	VitalSignsRanges map[string]VitalRange `json:"vital_signs_ranges"`
	FunctionalStatus []string              `json:"functional_status"`
	SocialFactors    []string              `json:"social_factors"`
}

// PayerLimit is one non-default payer rule.
type PayerLimit struct {
	Pathology   string `json:"patologia"`
	MaxStayDays int    `json:"tempo_maximo"`
}
