package batchio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// ReadStaysCSV reads a header-first CSV dataset
func ReadStaysCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsToStays(rows), nil
}

// WriteResultsCSV writes results with ResultHeader as the first row
func WriteResultsCSV(w io.Writer, results []entities.BatchResult) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ResultHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write(resultRow(r)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
