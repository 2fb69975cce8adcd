package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type shiftAssignmentRepository struct {
	db *database.DB
}

func NewShiftAssignmentRepository(db *database.DB) shift.AssignmentRepository {
	return &shiftAssignmentRepository{db: db}
}

const shiftAssignmentColumns = `id, employee_id, shift_id, rotation_group_id, offset_days, start_date, end_date, is_active, created_at, updated_at`

func scanShiftAssignment(row pgx.Row) (shift.Assignment, error) {
	var (
		a     shift.Assignment
		start time.Time
		end   *time.Time
	)
	if err := row.Scan(&a.ID, &a.EmployeeID, &a.ShiftID, &a.RotationGroupID, &a.OffsetDays,
		&start, &end, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return shift.Assignment{}, err
	}
	a.StartDate = fromDB(start)
	a.EndDate = optFromDB(end)
	return a, nil
}

func collectShiftAssignments(rows pgx.Rows) ([]shift.Assignment, error) {
	defer rows.Close()

	var out []shift.Assignment
	for rows.Next() {
		a, err := scanShiftAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) Create(ctx context.Context, a shift.Assignment) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	if a.ID == "" {
		a.ID = uuid.Must(uuid.NewV7()).String()
	}

	query := `
		INSERT INTO employee_shift_assignments (
			id, employee_id, shift_id, rotation_group_id, offset_days, start_date, end_date, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + shiftAssignmentColumns

	created, err := scanShiftAssignment(q.QueryRow(ctx, query,
		a.ID, a.EmployeeID, a.ShiftID, a.RotationGroupID, a.OffsetDays,
		dateArg(a.StartDate), optDateArg(a.EndDate), a.IsActive,
	))
	if err != nil {
		if isForeignKeyViolation(err) {
			if a.ShiftID != nil {
				return shift.Assignment{}, shift.ErrShiftNotFound
			}
			return shift.Assignment{}, shift.ErrRotationGroupNotFound
		}
		return shift.Assignment{}, fmt.Errorf("failed to create shift assignment: %w", err)
	}
	return created, nil
}

// GetByID implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) GetByID(ctx context.Context, id string) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + shiftAssignmentColumns + ` FROM employee_shift_assignments WHERE id = $1`

	a, err := scanShiftAssignment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrAssignmentNotFound
		}
		return shift.Assignment{}, fmt.Errorf("failed to get shift assignment %s: %w", id, err)
	}
	return a, nil
}

// GetActive implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) GetActive(ctx context.Context, employeeID string, date timeutil.Date) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + shiftAssignmentColumns + `
		FROM employee_shift_assignments
		WHERE employee_id = $1
		  AND is_active
		  AND start_date <= $2
		  AND COALESCE(end_date, '9999-12-31'::date) >= $2
		ORDER BY start_date DESC
		LIMIT 1
	`

	a, err := scanShiftAssignment(q.QueryRow(ctx, query, employeeID, dateArg(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrNoActiveAssignment
		}
		return shift.Assignment{}, fmt.Errorf("failed to get active assignment for %s on %s: %w", employeeID, date, err)
	}
	return a, nil
}

// ListActiveOverlapping implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) ListActiveOverlapping(ctx context.Context, employeeID string, start timeutil.Date, end *timeutil.Date) ([]shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + shiftAssignmentColumns + `
		FROM employee_shift_assignments
		WHERE employee_id = $1
		  AND is_active
		  AND start_date <= COALESCE($3::date, '9999-12-31'::date)
		  AND COALESCE(end_date, '9999-12-31'::date) >= $2
		ORDER BY start_date
		FOR UPDATE
	`

	rows, err := q.Query(ctx, query, employeeID, dateArg(start), optDateArg(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list overlapping assignments for %s: %w", employeeID, err)
	}
	return collectShiftAssignments(rows)
}

// ListAssignedEmployees implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) ListAssignedEmployees(ctx context.Context, from, to timeutil.Date) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT employee_id
		FROM employee_shift_assignments
		WHERE is_active
		  AND start_date <= $2
		  AND COALESCE(end_date, '9999-12-31'::date) >= $1
		ORDER BY employee_id
	`, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned employees: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan assigned employees: %w", err)
	}
	return ids, nil
}

// Deactivate implements shift.AssignmentRepository.
func (r *shiftAssignmentRepository) Deactivate(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE employee_shift_assignments
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate shift assignment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shift.ErrAssignmentNotFound
	}
	return nil
}
