package entities

// Sector labels used by the scoring rules
const (
	SectorICU   = "UTI"
	SectorWard  = "ENFERMARIA"
	NoneMarker  = "NENHUMA"
	UnknownCode = "DESCONHECIDA"
)

// StayData is one hospital stay as supplied by the CRUD application.
type StayData struct {
	Pathology     string   `json:"patologia" db:"patologia"`
	StayDays      int      `json:"tempo_permanencia" db:"tempo_permanencia"`
	Sector        string   `json:"setor" db:"setor"`
	Age           int      `json:"idade" db:"idade"`
	Comorbidities []string `json:"comorbidades" db:"comorbidades"`
	ReferenceDays int      `json:"tempo_ideal_patologia" db:"tempo_ideal_patologia"`
	PatientID     string   `json:"paciente_id,omitempty" db:"paciente_id"`
	StayID        string   `json:"internacao_id,omitempty" db:"internacao_id"`
	PatientName   string   `json:"paciente_nome,omitempty" db:"paciente_nome"`
	TimeAlert     bool     `json:"alerta_tempo,omitempty" db:"alerta_tempo"`
	ExcessDays    int      `json:"dias_excesso,omitempty" db:"dias_excesso"`
}

// HasNoComorbidities reports an empty list or the explicit ["NENHUMA"] marker.
func (s StayData) HasNoComorbidities() bool {
	if len(s.Comorbidities) == 0 {
		return true
	}
	return len(s.Comorbidities) == 1 && s.Comorbidities[0] == NoneMarker
}
