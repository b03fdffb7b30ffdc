package entities

// Compliance levels
const (
	ComplianceCompliant    = "COMPLIANT"
	ComplianceNonCompliant = "NON_COMPLIANT"
)

// ComplianceResult compares the elapsed stay with the payer limit.
type ComplianceResult struct {
	MaxAllowedStay  int    `json:"max_allowed_stay"`
	CurrentStay     int    `json:"current_stay"`
	ExcessDays      int    `json:"excess_days"`
	IsCompliant     bool   `json:"is_compliant"`
	AlertTriggered  bool   `json:"alert_triggered"`
	ComplianceLevel string `json:"compliance_level"`
}

// NewComplianceResult derives every field from the limit and the elapsed days.
func NewComplianceResult(maxAllowed, current int) ComplianceResult {
	excess := current - maxAllowed
	if excess < 0 {
		excess = 0
	}
	compliant := current <= maxAllowed
	level := ComplianceCompliant
	if !compliant {
		level = ComplianceNonCompliant
	}
	return ComplianceResult{
		MaxAllowedStay:  maxAllowed,
		CurrentStay:     current,
		ExcessDays:      excess,
		IsCompliant:     compliant,
		AlertTriggered:  !compliant,
		ComplianceLevel: level,
	}
}

// ReadinessLevel is the knowledge base's discharge tier
type ReadinessLevel string

const (
	ReadinessHigh     ReadinessLevel = "ALTA_PRIORIDADE_ALTA"
	ReadinessMedium   ReadinessLevel = "ALTA_PRIORIDADE_MEDIA"
	ReadinessLow      ReadinessLevel = "ALTA_PRIORIDADE_BAIXA"
	ReadinessMaintain ReadinessLevel = "MANTER_INTERNACAO"
)

// Priority maps a readiness tier to the recommendation priority set.
func (l ReadinessLevel) Priority() Priority {
	switch l {
	case ReadinessHigh:
		return PriorityHigh
	case ReadinessMedium:
		return PriorityMedium
	case ReadinessLow:
		return PriorityLow
	default:
		return PriorityMaintain
	}
}

// Audit flag tags raised by AuditFlagsFor
const (
	AuditFlagExtendedStay    = "EXTENDED_STAY"
	AuditFlagHighCost        = "HIGH_COST"
	AuditFlagReadmissionRisk = "READMISSION_RISK"
)

// ReadinessAssessment is the deterministic readiness score of a stay.
type ReadinessAssessment struct {
	Score          int              `json:"readiness_score"`
	Level          ReadinessLevel   `json:"readiness_level"`
	Factors        []string         `json:"factors"`
	Protocol       ProtocolRecord   `json:"protocol_reference"`
	Compliance     ComplianceResult `json:"payer_status"`
	Recommendation string           `json:"recommendation"`
	AuditFlags     []string         `json:"audit_flags"`
}
