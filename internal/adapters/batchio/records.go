// Package batchio reads stay datasets and writes batch results as CSV or
// XLSX files.
package batchio

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

// Format is a supported file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	defaultReferenceDays = 5
	listSeparator        = "; "
)

// ResultHeader is the column order of written result files
var ResultHeader = []string{
	"internacao_id", "paciente_id", "paciente_nome", "patologia", "idade",
	"tempo_permanencia", "tempo_ideal", "setor", "comorbidades",
	"alerta_tempo_dataset", "dias_excesso_dataset", "score_prontidao_kb",
	"nivel_prontidao_kb", "fatores_kb", "prioridade_gemini", "razoes_alta_gemini",
	"pendencias_gemini", "fontes_gemini", "confianca_gemini", "analise_inicial_gemini",
	"documentos_contexto", "fallback",
}

// FormatOf picks the format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unsupported batch file %q, expected .csv or .xlsx", path))
}

// ParseComorbidities accepts list literals like "['DPOC', 'HAS']" as well as
// plain comma separated values.
func ParseComorbidities(raw string) []string {
	raw = strings.Trim(strings.TrimSpace(raw), "[]")
	raw = strings.NewReplacer("'", "", `"`, "").Replace(raw)

	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// stayFromRow maps one header-keyed row onto a stay. Missing columns take
// the dataset defaults.
func stayFromRow(line int, row map[string]string) (entities.StayData, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(row[key]); v != "" {
			return v
		}
		return fallback
	}

	var errs []string
	num := func(key string, fallback int) int {
		v := get(key, "")
		if v == "" {
			return fallback
		}
		n, err := parseInt(v)
		if err != nil {
			errs = append(errs, key)
			return fallback
		}
		return n
	}

	stay := entities.StayData{
		Pathology:     get("patologia", entities.UnknownCode),
		StayDays:      num("tempo_permanencia", 0),
		Sector:        get("setor", entities.SectorWard),
		Age:           num("idade", 0),
		Comorbidities: ParseComorbidities(row["comorbidades"]),
		ReferenceDays: num("tempo_ideal_patologia", defaultReferenceDays),
		PatientID:     get("paciente_id", ""),
		StayID:        get("internacao_id", ""),
		PatientName:   get("paciente_nome", ""),
		ExcessDays:    num("dias_excesso", 0),
	}

	if v := get("alerta_tempo", ""); v != "" {
		alert, err := parseBool(v)
		if err != nil {
			errs = append(errs, "alerta_tempo")
		}
		stay.TimeAlert = alert
	}

	if len(errs) > 0 {
		return entities.StayData{}, apperrors.NewValidationError(
			fmt.Sprintf("line %d: invalid value in %s", line, strings.Join(errs, ", ")))
	}
	return stay, nil
}

func parseInt(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "sim", "s", "yes":
		return true, nil
	case "nao", "não", "n", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}

// Dataset is a parsed stays file. Rows with unparseable cells are left out
// of Stays and listed in Rejected.
type Dataset struct {
	Stays    []entities.StayData
	Rejected []RejectedRow
}

// RejectedRow is a data line that could not be turned into a stay
type RejectedRow struct {
	Line   int    `json:"linha"`
	Reason string `json:"motivo"`
}

func rowsToStays(rows [][]string) *Dataset {
	ds := &Dataset{Stays: []entities.StayData{}, Rejected: []RejectedRow{}}
	if len(rows) == 0 {
		return ds
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		row := make(map[string]string, len(header))
		for col, key := range header {
			if col < len(cells) {
				row[key] = cells[col]
			}
		}
		stay, err := stayFromRow(i+2, row)
		if err != nil {
			log.Warn().Err(err).Int("line", i+2).Msg("Skipping unparseable stay row")
			ds.Rejected = append(ds.Rejected, RejectedRow{Line: i + 2, Reason: err.Error()})
			continue
		}
		ds.Stays = append(ds.Stays, stay)
	}
	return ds
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// resultRow renders a result in ResultHeader order
func resultRow(r entities.BatchResult) []string {
	return []string{
		r.StayID,
		r.PatientID,
		r.PatientName,
		r.Pathology,
		strconv.Itoa(r.Age),
		strconv.Itoa(r.StayDays),
		strconv.Itoa(r.ReferenceDays),
		r.Sector,
		strings.Join(r.Comorbidities, listSeparator),
		strconv.FormatBool(r.DatasetAlert),
		strconv.Itoa(r.DatasetExcess),
		strconv.Itoa(r.KBScore),
		string(r.KBLevel),
		strings.Join(r.KBFactors, listSeparator),
		string(r.Priority),
		strings.Join(r.Reasons, listSeparator),
		strings.Join(r.Pending, listSeparator),
		strings.Join(r.Sources, listSeparator),
		strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		r.InitialAnalysis,
		strconv.Itoa(r.ContextDocs),
		strconv.FormatBool(r.Fallback),
	}
}
