package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type shiftDefinitionRepository struct {
	db *database.DB
}

func NewShiftDefinitionRepository(db *database.DB) shift.DefinitionRepository {
	return &shiftDefinitionRepository{db: db}
}

const shiftDefinitionColumns = `id, name, start_time::text, end_time::text, break_minutes, tolerance_minutes, is_working_day, created_at, updated_at`

func scanShiftDefinition(row pgx.Row) (shift.Definition, error) {
	var (
		def        shift.Definition
		start, end string
	)
	if err := row.Scan(&def.ID, &def.Name, &start, &end, &def.BreakMinutes, &def.ToleranceMinutes,
		&def.IsWorkingDay, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return shift.Definition{}, err
	}

	var err error
	if def.StartTime, err = timeutil.ParseClock(start); err != nil {
		return shift.Definition{}, err
	}
	if def.EndTime, err = timeutil.ParseClock(end); err != nil {
		return shift.Definition{}, err
	}
	return def, nil
}

// Create implements shift.DefinitionRepository.
func (r *shiftDefinitionRepository) Create(ctx context.Context, def shift.Definition) (shift.Definition, error) {
	q := GetQuerier(ctx, r.db)

	if def.ID == "" {
		def.ID = uuid.Must(uuid.NewV7()).String()
	}

	query := `
		INSERT INTO shift_definitions (
			id, name, start_time, end_time, break_minutes, tolerance_minutes, is_working_day
		) VALUES ($1, $2, $3::time, $4::time, $5, $6, $7)
		RETURNING ` + shiftDefinitionColumns

	created, err := scanShiftDefinition(q.QueryRow(ctx, query,
		def.ID, def.Name, def.StartTime.String(), def.EndTime.String(),
		def.BreakMinutes, def.ToleranceMinutes, def.IsWorkingDay,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return shift.Definition{}, shift.ErrShiftNameExists
		}
		return shift.Definition{}, fmt.Errorf("failed to create shift definition: %w", err)
	}
	return created, nil
}

// GetByID implements shift.DefinitionRepository.
func (r *shiftDefinitionRepository) GetByID(ctx context.Context, id string) (shift.Definition, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftDefinitionColumns + ` FROM shift_definitions WHERE id = $1`

	def, err := scanShiftDefinition(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Definition{}, shift.ErrShiftNotFound
		}
		return shift.Definition{}, fmt.Errorf("failed to get shift definition %s: %w", id, err)
	}
	return def, nil
}

// List implements shift.DefinitionRepository.
func (r *shiftDefinitionRepository) List(ctx context.Context) ([]shift.Definition, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+shiftDefinitionColumns+` FROM shift_definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shift definitions: %w", err)
	}
	defer rows.Close()

	var defs []shift.Definition
	for rows.Next() {
		def, err := scanShiftDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}
