package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type rawAttendanceLogRepository struct {
	db *database.DB
}

func NewRawAttendanceLogRepository(db *database.DB) attendance.RawLogRepository {
	return &rawAttendanceLogRepository{db: db}
}

const rawLogColumns = `id, employee_id, logged_at, location_id, event_type, channel, validation_status, created_at`

func collectRawLogs(rows pgx.Rows) ([]attendance.RawLog, error) {
	defer rows.Close()

	var out []attendance.RawLog
	for rows.Next() {
		var l attendance.RawLog
		if err := rows.Scan(&l.ID, &l.EmployeeID, &l.Timestamp, &l.LocationID, &l.EventType,
			&l.Channel, &l.Validation, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Create implements attendance.RawLogRepository.
func (r *rawAttendanceLogRepository) Create(ctx context.Context, log attendance.RawLog) (attendance.RawLog, error) {
	q := GetQuerier(ctx, r.db)

	if log.ID == "" {
		log.ID = uuid.Must(uuid.NewV7()).String()
	}
	if log.Validation == "" {
		log.Validation = attendance.ValidationValid
	}

	err := q.QueryRow(ctx, `
		INSERT INTO raw_attendance_logs (
			id, employee_id, logged_at, location_id, event_type, channel, validation_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, log.ID, log.EmployeeID, log.Timestamp, log.LocationID, log.EventType, log.Channel, log.Validation).Scan(&log.CreatedAt)
	if err != nil {
		return attendance.RawLog{}, fmt.Errorf("failed to create attendance log: %w", err)
	}
	return log, nil
}

// ListBetween implements attendance.RawLogRepository.
func (r *rawAttendanceLogRepository) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.RawLog, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+rawLogColumns+`
		FROM raw_attendance_logs
		WHERE logged_at >= $1 AND logged_at < $2
		ORDER BY logged_at, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance logs: %w", err)
	}
	return collectRawLogs(rows)
}

// ListByEmployeeBetween implements attendance.RawLogRepository.
func (r *rawAttendanceLogRepository) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.RawLog, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+rawLogColumns+`
		FROM raw_attendance_logs
		WHERE employee_id = $1 AND logged_at >= $2 AND logged_at < $3
		ORDER BY logged_at, id
	`, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance logs for %s: %w", employeeID, err)
	}
	return collectRawLogs(rows)
}
