package knowledge

import (
	"fmt"
	"slices"
	"sort"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

const (
	defaultAvgStay     = 5
	defaultMaxStayDays = 10
)

// KnowledgeBase answers protocol, payer compliance and readiness questions
// from an immutable Catalog. It is safe for concurrent use.
type KnowledgeBase struct {
	catalog Catalog
}

// New builds a KnowledgeBase from a private copy of catalog.
func New(catalog Catalog) *KnowledgeBase {
	protocols := make(map[string]entities.ProtocolRecord, len(catalog.Protocols))
	for code, p := range catalog.Protocols {
		protocols[code] = cloneProtocol(p)
	}

	limits := make(map[string]int, len(catalog.PayerRules.MaxLengthOfStay)+1)
	for code, days := range catalog.PayerRules.MaxLengthOfStay {
		limits[code] = days
	}
	if _, ok := limits[entities.DefaultPayerKey]; !ok {
		limits[entities.DefaultPayerKey] = defaultMaxStayDays
	}

	vitals := make(map[string]entities.VitalRange, len(catalog.DischargeCriteria.VitalSignsRanges))
	for k, v := range catalog.DischargeCriteria.VitalSignsRanges {
		vitals[k] = v
	}

	return &KnowledgeBase{catalog: Catalog{
		Protocols: protocols,
		DischargeCriteria: entities.DischargeCriteriaCatalog{
			VitalSignsRanges: vitals,
			FunctionalStatus: slices.Clone(catalog.DischargeCriteria.FunctionalStatus),
			SocialFactors:    slices.Clone(catalog.DischargeCriteria.SocialFactors),
		},
		PayerRules: entities.PayerRules{
			MaxLengthOfStay: limits,
			AuditFlags: entities.AuditFlags{
				ExtendedStayThreshold:   catalog.PayerRules.AuditFlags.ExtendedStayThreshold,
				HighCostProcedures:      slices.Clone(catalog.PayerRules.AuditFlags.HighCostProcedures),
				FrequentReadmissionRisk: slices.Clone(catalog.PayerRules.AuditFlags.FrequentReadmissionRisk),
			},
		},
	}}
}

// NewDefault builds a KnowledgeBase from DefaultCatalog
func NewDefault() *KnowledgeBase {
	return New(DefaultCatalog())
}

// Protocol returns the protocol of a pathology, or the zero record.
func (kb *KnowledgeBase) Protocol(code string) (entities.ProtocolRecord, bool) {
	p, ok := kb.catalog.Protocols[code]
	if !ok {
		return entities.ProtocolRecord{}, false
	}
	return cloneProtocol(p), true
}

// MaxStay returns the payer limit for a pathology, falling back to DEFAULT.
func (kb *KnowledgeBase) MaxStay(code string) int {
	if days, ok := kb.catalog.PayerRules.MaxLengthOfStay[code]; ok {
		return days
	}
	return kb.catalog.PayerRules.MaxLengthOfStay[entities.DefaultPayerKey]
}

// CheckPayerCompliance compares the elapsed days with the payer limit.
func (kb *KnowledgeBase) CheckPayerCompliance(code string, stayDays int) entities.ComplianceResult {
	return entities.NewComplianceResult(kb.MaxStay(code), stayDays)
}

// AssessDischargeReadiness scores a stay additively and maps the score to a tier.
func (kb *KnowledgeBase) AssessDischargeReadiness(stay entities.StayData) entities.ReadinessAssessment {
	protocol, _ := kb.Protocol(stay.Pathology)
	compliance := kb.CheckPayerCompliance(stay.Pathology, stay.StayDays)

	score := 0
	factors := make([]string, 0, 5)

	avgStay := protocol.AvgLengthOfStay
	if protocol.IsZero() {
		avgStay = defaultAvgStay
	}
	if stay.StayDays >= avgStay {
		score += 25
		factors = append(factors, fmt.Sprintf("Tempo de internação adequado (%d/%d dias)", stay.StayDays, avgStay))
	}

	if compliance.IsCompliant {
		score += 25
		factors = append(factors, "Dentro dos limites do pagador")
	}

	switch {
	case stay.Age < 65:
		score += 20
		factors = append(factors, "Idade <65 anos - menor risco")
	case stay.Age > 80:
		score -= 10
		factors = append(factors, "Idade >80 anos - maior risco")
	}

	switch {
	case stay.HasNoComorbidities():
		score += 20
		factors = append(factors, "Sem comorbidades significativas")
	case len(stay.Comorbidities) >= 3:
		score -= 15
		factors = append(factors, "Múltiplas comorbidades - maior risco")
	}

	if stay.Sector != entities.SectorICU {
		score += 10
		factors = append(factors, "Paciente fora da UTI")
	}

	score = max(0, min(100, score))

	return entities.ReadinessAssessment{
		Score:          score,
		Level:          readinessLevel(score),
		Factors:        factors,
		Protocol:       protocol,
		Compliance:     compliance,
		Recommendation: recommendationSentence(score, stay.Pathology),
		AuditFlags:     kb.AuditFlagsFor(stay.Pathology, stay.StayDays),
	}
}

// DischargeCriteria returns a copy of the general discharge criteria.
func (kb *KnowledgeBase) DischargeCriteria() entities.DischargeCriteriaCatalog {
	src := kb.catalog.DischargeCriteria
	vitals := make(map[string]entities.VitalRange, len(src.VitalSignsRanges))
	for k, v := range src.VitalSignsRanges {
		vitals[k] = v
	}
	return entities.DischargeCriteriaCatalog{
		VitalSignsRanges: vitals,
		FunctionalStatus: slices.Clone(src.FunctionalStatus),
		SocialFactors:    slices.Clone(src.SocialFactors),
	}
}

// Pathologies returns the protocol codes in ascending order.
func (kb *KnowledgeBase) Pathologies() []string {
	codes := make([]string, 0, len(kb.catalog.Protocols))
	for code := range kb.catalog.Protocols {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// PayerLimits returns every non-default payer rule, sorted by pathology.
func (kb *KnowledgeBase) PayerLimits() []entities.PayerLimit {
	limits := make([]entities.PayerLimit, 0, len(kb.catalog.PayerRules.MaxLengthOfStay))
	for code, days := range kb.catalog.PayerRules.MaxLengthOfStay {
		if code == entities.DefaultPayerKey {
			continue
		}
		limits = append(limits, entities.PayerLimit{Pathology: code, MaxStayDays: days})
	}
	sort.Slice(limits, func(i, j int) bool { return limits[i].Pathology < limits[j].Pathology })
	return limits
}

// AuditFlagsFor returns the payer audit triggers a stay raises.
func (kb *KnowledgeBase) AuditFlagsFor(code string, stayDays int) []string {
	flags := []string{}
	rules := kb.catalog.PayerRules.AuditFlags

	if p, ok := kb.catalog.Protocols[code]; ok && p.AvgLengthOfStay > 0 {
		limit := float64(p.AvgLengthOfStay) * (1 + rules.ExtendedStayThreshold)
		if float64(stayDays) > limit+1e-9 {
			flags = append(flags, entities.AuditFlagExtendedStay)
		}
	}
	if slices.Contains(rules.HighCostProcedures, code) {
		flags = append(flags, entities.AuditFlagHighCost)
	}
	if slices.Contains(rules.FrequentReadmissionRisk, code) {
		flags = append(flags, entities.AuditFlagReadmissionRisk)
	}
	return flags
}

func readinessLevel(score int) entities.ReadinessLevel {
	switch {
	case score >= 80:
		return entities.ReadinessHigh
	case score >= 60:
		return entities.ReadinessMedium
	case score >= 40:
		return entities.ReadinessLow
	default:
		return entities.ReadinessMaintain
	}
}

func recommendationSentence(score int, pathology string) string {
	switch {
	case score >= 80:
		return fmt.Sprintf("Paciente com %s apresenta alta probabilidade de alta segura. Recomendação: Alta Prioridade Alta.", pathology)
	case score >= 60:
		return fmt.Sprintf("Paciente com %s pode ser considerado para alta. Recomendação: Avaliação clínica para confirmação.", pathology)
	case score >= 40:
		return fmt.Sprintf("Paciente com %s necessita de mais avaliação. Recomendação: Revisar em 24-48h.", pathology)
	default:
		return fmt.Sprintf("Paciente com %s deve manter internação. Recomendação: Continuar tratamento.", pathology)
	}
}

func cloneProtocol(p entities.ProtocolRecord) entities.ProtocolRecord {
	return entities.ProtocolRecord{
		Description:       p.Description,
		AvgLengthOfStay:   p.AvgLengthOfStay,
		DischargeCriteria: slices.Clone(p.DischargeCriteria),
		RequiredExams:     slices.Clone(p.RequiredExams),
		RiskFactors:       slices.Clone(p.RiskFactors),
	}
}
