package providers

import (
	"context"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
)

// ReportArchive stores batch reports and returns the object location.
type ReportArchive interface {
	ArchiveReport(ctx context.Context, report *entities.BatchReport, results []entities.BatchResult) (string, error)
}
