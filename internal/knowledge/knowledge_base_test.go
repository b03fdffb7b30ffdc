package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

func TestCheckPayerCompliance(t *testing.T) {
	kb := NewDefault()

	tests := []struct {
		name      string
		pathology string
		days      int
		want      entities.ComplianceResult
	}{
		{
			name:      "within limit",
			pathology: "APENDICITE",
			days:      2,
			want:      entities.ComplianceResult{MaxAllowedStay: 3, CurrentStay: 2, ExcessDays: 0, IsCompliant: true, AlertTriggered: false, ComplianceLevel: "COMPLIANT"},
		},
		{
			name:      "at the limit",
			pathology: "APENDICITE",
			days:      3,
			want:      entities.ComplianceResult{MaxAllowedStay: 3, CurrentStay: 3, ExcessDays: 0, IsCompliant: true, AlertTriggered: false, ComplianceLevel: "COMPLIANT"},
		},
		{
			name:      "over the limit",
			pathology: "APENDICITE",
			days:      5,
			want:      entities.ComplianceResult{MaxAllowedStay: 3, CurrentStay: 5, ExcessDays: 2, IsCompliant: false, AlertTriggered: true, ComplianceLevel: "NON_COMPLIANT"},
		},
		{
			name:      "unknown pathology uses default",
			pathology: "GRIPE",
			days:      11,
			want:      entities.ComplianceResult{MaxAllowedStay: 10, CurrentStay: 11, ExcessDays: 1, IsCompliant: false, AlertTriggered: true, ComplianceLevel: "NON_COMPLIANT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kb.CheckPayerCompliance(tt.pathology, tt.days)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !got.IsCompliant, got.AlertTriggered)
		})
	}
}

func TestAssessDischargeReadiness_MaximumScore(t *testing.T) {
	kb := NewDefault()

	got := kb.AssessDischargeReadiness(entities.StayData{
		Pathology:     "OUTRA",
		StayDays:      10,
		Age:           40,
		Comorbidities: []string{},
		Sector:        "ENFERMARIA",
	})

	assert.Equal(t, 100, got.Score)
	assert.Equal(t, entities.ReadinessHigh, got.Level)
	assert.Equal(t, []string{
		"Tempo de internação adequado (10/5 dias)",
		"Dentro dos limites do pagador",
		"Idade <65 anos - menor risco",
		"Sem comorbidades significativas",
		"Paciente fora da UTI",
	}, got.Factors)
	assert.True(t, got.Protocol.IsZero())
	assert.Equal(t, "Paciente com OUTRA apresenta alta probabilidade de alta segura. Recomendação: Alta Prioridade Alta.", got.Recommendation)
}

func TestAssessDischargeReadiness_ScoreIsClampedAtZero(t *testing.T) {
	kb := NewDefault()

	got := kb.AssessDischargeReadiness(entities.StayData{
		Pathology:     "SEPSE",
		StayDays:      20,
		Age:           90,
		Comorbidities: []string{"DPOC", "DIABETES", "HAS"},
		Sector:        "UTI",
	})

	// 25 (stay >= avg) - 10 (age) - 15 (comorbidities)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, entities.ReadinessMaintain, got.Level)
	assert.Equal(t, []string{
		"Tempo de internação adequado (20/10 dias)",
		"Idade >80 anos - maior risco",
		"Múltiplas comorbidades - maior risco",
	}, got.Factors)
	assert.Contains(t, got.Recommendation, "deve manter internação")
	assert.Equal(t, []string{entities.AuditFlagExtendedStay, entities.AuditFlagHighCost}, got.AuditFlags)
}

func TestAssessDischargeReadiness_Tiers(t *testing.T) {
	kb := NewDefault()

	tests := []struct {
		name      string
		stay      entities.StayData
		wantScore int
		wantLevel entities.ReadinessLevel
	}{
		{
			name:      "none marker counts as no comorbidities",
			stay:      entities.StayData{Pathology: "APENDICITE", StayDays: 1, Age: 70, Comorbidities: []string{"NENHUMA"}, Sector: "ENFERMARIA"},
			wantScore: 55,
			wantLevel: entities.ReadinessLow,
		},
		{
			name:      "medium tier",
			stay:      entities.StayData{Pathology: "PNEUMONIA", StayDays: 5, Age: 70, Comorbidities: []string{"DPOC"}, Sector: "ENFERMARIA"},
			wantScore: 60,
			wantLevel: entities.ReadinessMedium,
		},
		{
			name:      "icu with two comorbidities",
			stay:      entities.StayData{Pathology: "PNEUMONIA", StayDays: 2, Age: 66, Comorbidities: []string{"DPOC", "HAS"}, Sector: "UTI"},
			wantScore: 25,
			wantLevel: entities.ReadinessMaintain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kb.AssessDischargeReadiness(tt.stay)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantLevel, got.Level)
		})
	}
}

func TestProtocol(t *testing.T) {
	kb := NewDefault()

	p, ok := kb.Protocol("APENDICITE")
	require.True(t, ok)
	assert.Equal(t, 2, p.AvgLengthOfStay)
	assert.Len(t, p.DischargeCriteria, 6)

	p.DischargeCriteria[0] = "mutated"
	again, _ := kb.Protocol("APENDICITE")
	assert.Equal(t, "Sinais vitais estáveis por 24h", again.DischargeCriteria[0])

	missing, ok := kb.Protocol("INEXISTENTE")
	assert.False(t, ok)
	assert.True(t, missing.IsZero())
}

func TestCatalogQueries(t *testing.T) {
	kb := NewDefault()

	pathologies := kb.Pathologies()
	assert.Len(t, pathologies, 10)
	assert.Equal(t, "APENDICITE", pathologies[0])
	assert.IsIncreasing(t, pathologies)

	limits := kb.PayerLimits()
	assert.Len(t, limits, 10)
	for _, l := range limits {
		assert.NotEqual(t, entities.DefaultPayerKey, l.Pathology)
	}

	criteria := kb.DischargeCriteria()
	assert.Equal(t, entities.VitalRange{Min: 92, Max: 100}, criteria.VitalSignsRanges["oxygen_saturation"])
	assert.Len(t, criteria.FunctionalStatus, 6)
	assert.Len(t, criteria.SocialFactors, 4)
}

func TestAuditFlagsFor(t *testing.T) {
	kb := NewDefault()

	// INSUF_CARDIACA: avg 6, threshold 7.8 days
	assert.Equal(t, []string{entities.AuditFlagReadmissionRisk}, kb.AuditFlagsFor("INSUF_CARDIACA", 7))
	assert.Equal(t, []string{entities.AuditFlagExtendedStay, entities.AuditFlagReadmissionRisk}, kb.AuditFlagsFor("INSUF_CARDIACA", 8))
	assert.Empty(t, kb.AuditFlagsFor("DESCONHECIDA", 30))
}

func TestNew_CopiesCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	kb := New(catalog)

	catalog.PayerRules.MaxLengthOfStay["APENDICITE"] = 99
	delete(catalog.Protocols, "SEPSE")

	assert.Equal(t, 3, kb.MaxStay("APENDICITE"))
	_, ok := kb.Protocol("SEPSE")
	assert.True(t, ok)
}

func TestNew_AddsDefaultLimitWhenMissing(t *testing.T) {
	kb := New(Catalog{PayerRules: entities.PayerRules{MaxLengthOfStay: map[string]int{"X": 2}}})
	assert.Equal(t, 10, kb.MaxStay("Y"))
	assert.Equal(t, 2, kb.MaxStay("X"))
}
