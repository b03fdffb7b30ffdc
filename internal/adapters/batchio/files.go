package batchio

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// ReadStays opens a CSV or XLSX dataset by extension
func ReadStays(path string) (*Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var ds *Dataset
	switch format {
	case FormatXLSX:
		ds, err = ReadStaysXLSX(f)
	default:
		ds, err = ReadStaysCSV(f)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Int("records", len(ds.Stays)).Int("rejected", len(ds.Rejected)).Msg("Dataset loaded")
	return ds, nil
}

// WriteResults writes results as CSV or XLSX by extension
func WriteResults(path string, results []entities.BatchResult) (err error) {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch format {
	case FormatXLSX:
		err = WriteResultsXLSX(f, results)
	default:
		err = WriteResultsCSV(f, results)
	}
	if err != nil {
		return err
	}

	log.Info().Str("path", path).Int("records", len(results)).Msg("Results saved")
	return nil
}
