package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/jackc/pgx/v5"
)

type shiftDayRepository struct {
	db *database.DB
}

func NewShiftDayRepository(db *database.DB) shift.DayRepository {
	return &shiftDayRepository{db: db}
}

const shiftDayColumns = `id, employee_id, date, shift_id, is_day_off, location_id, substitute_employee_id, change_reason, source, created_at, updated_at`

func scanShiftDay(row pgx.Row) (shift.Day, error) {
	var (
		d    shift.Day
		date time.Time
	)
	if err := row.Scan(&d.ID, &d.EmployeeID, &date, &d.ShiftID, &d.IsDayOff, &d.LocationID,
		&d.SubstituteEmployeeID, &d.ChangeReason, &d.Source, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return shift.Day{}, err
	}
	d.Date = fromDB(date)
	return d, nil
}

func collectShiftDays(rows pgx.Rows) ([]shift.Day, error) {
	defer rows.Close()

	var out []shift.Day
	for rows.Next() {
		d, err := scanShiftDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Insert implements shift.DayRepository.
func (r *shiftDayRepository) Insert(ctx context.Context, day shift.Day) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		INSERT INTO shift_days (
			id, employee_id, date, shift_id, is_day_off, location_id,
			substitute_employee_id, change_reason, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (employee_id, date) DO NOTHING
	`, day.ID, day.EmployeeID, dateArg(day.Date), day.ShiftID, day.IsDayOff, day.LocationID,
		day.SubstituteEmployeeID, day.ChangeReason, day.Source)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, shift.ErrShiftNotFound
		}
		return false, fmt.Errorf("failed to insert shift day %s: %w", day.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByEmployeeDate implements shift.DayRepository.
func (r *shiftDayRepository) GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (shift.Day, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftDayColumns + ` FROM shift_days WHERE employee_id = $1 AND date = $2`

	d, err := scanShiftDay(q.QueryRow(ctx, query, employeeID, dateArg(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Day{}, shift.ErrShiftDayNotFound
		}
		return shift.Day{}, fmt.Errorf("failed to get shift day for %s on %s: %w", employeeID, date, err)
	}
	return d, nil
}

// ListByEmployee implements shift.DayRepository.
func (r *shiftDayRepository) ListByEmployee(ctx context.Context, employeeID string, from, to timeutil.Date) ([]shift.Day, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+shiftDayColumns+`
		FROM shift_days
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date
	`, employeeID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list shift days for %s: %w", employeeID, err)
	}
	return collectShiftDays(rows)
}

// ListByDate implements shift.DayRepository.
func (r *shiftDayRepository) ListByDate(ctx context.Context, date timeutil.Date) ([]shift.Day, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+shiftDayColumns+`
		FROM shift_days
		WHERE date = $1
		ORDER BY employee_id
	`, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("failed to list shift days on %s: %w", date, err)
	}
	return collectShiftDays(rows)
}

// DeleteRange implements shift.DayRepository.
func (r *shiftDayRepository) DeleteRange(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		DELETE FROM shift_days
		WHERE employee_id = $1 AND date BETWEEN $2 AND $3
	`, employeeID, dateArg(from), dateArg(to))
	if err != nil {
		return 0, fmt.Errorf("failed to delete shift days for %s: %w", employeeID, err)
	}
	return tag.RowsAffected(), nil
}
