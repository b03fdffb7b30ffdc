package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/zatekoja/stayaudit/internal/domain/entities"
	"github.com/zatekoja/stayaudit/internal/domain/repositories"
	"github.com/zatekoja/stayaudit/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/stayaudit/pkg/errors"
)

// StaySnapshotView is the read model the CRUD application maintains
const StaySnapshotView = "stay_snapshots"

var stayColumns = []any{
	"internacao_id", "paciente_id", "paciente_nome", "patologia", "tempo_permanencia",
	"setor", "idade", "comorbidades", "tempo_ideal_patologia", "alerta_tempo", "dias_excesso",
}

// StayAdapter implements StayRepository over the snapshot view
type StayAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewStayAdapter creates a new stay adapter
func NewStayAdapter(client *postgres.Client) repositories.StayRepository {
	return &StayAdapter{
		client: client,
		db:     client.Builder(),
	}
}

// GetByStayID retrieves one stay by its admission id
func (a *StayAdapter) GetByStayID(ctx context.Context, stayID string) (*entities.StayData, error) {
	query, args, err := a.db.From(StaySnapshotView).
		Prepared(true).
		Select(stayColumns...).
		Where(goqu.Ex{"internacao_id": stayID}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	stay, err := scanStay(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("stay " + stayID + " not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get stay", err)
	}
	return stay, nil
}

// List retrieves stays with filters, ordered by admission id
func (a *StayAdapter) List(ctx context.Context, filter repositories.StayFilter) ([]entities.StayData, error) {
	ds := a.db.From(StaySnapshotView).Prepared(true).Select(stayColumns...)

	where := goqu.Ex{}
	if filter.Pathology != "" {
		where["patologia"] = filter.Pathology
	}
	if filter.Sector != "" {
		where["setor"] = filter.Sector
	}
	if filter.OnlyActive {
		where["ativo"] = true
	}
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	ds = ds.Order(goqu.I("internacao_id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list stays", err)
	}
	defer rows.Close()

	stays := []entities.StayData{}
	for rows.Next() {
		stay, err := scanStay(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan stay", err)
		}
		stays = append(stays, *stay)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate stays", err)
	}
	return stays, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStay(row rowScanner) (*entities.StayData, error) {
	var (
		stay                           entities.StayData
		patientID, patientName, sector sql.NullString
		referenceDays, excessDays, age sql.NullInt64
		timeAlert                      sql.NullBool
		comorbidities                  pq.StringArray
	)
	err := row.Scan(
		&stay.StayID,
		&patientID,
		&patientName,
		&stay.Pathology,
		&stay.StayDays,
		&sector,
		&age,
		&comorbidities,
		&referenceDays,
		&timeAlert,
		&excessDays,
	)
	if err != nil {
		return nil, err
	}

	stay.PatientID = patientID.String
	stay.PatientName = patientName.String
	stay.Sector = sector.String
	if stay.Sector == "" {
		stay.Sector = entities.SectorWard
	}
	stay.Age = int(age.Int64)
	stay.Comorbidities = []string(comorbidities)
	if stay.Comorbidities == nil {
		stay.Comorbidities = []string{}
	}
	stay.ReferenceDays = int(referenceDays.Int64)
	stay.TimeAlert = timeAlert.Bool
	stay.ExcessDays = int(excessDays.Int64)
	return &stay, nil
}
