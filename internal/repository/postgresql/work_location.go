package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/jackc/pgx/v5"
)

type workLocationRepository struct {
	db *database.DB
}

func NewWorkLocationRepository(db *database.DB) shift.LocationRepository {
	return &workLocationRepository{db: db}
}

// GetWorkLocation implements shift.LocationRepository.
func (r *workLocationRepository) GetWorkLocation(ctx context.Context, employeeID string, date timeutil.Date) (*string, error) {
	q := GetQuerier(ctx, r.db)

	var locationID string
	err := q.QueryRow(ctx, `
		SELECT location_id
		FROM employee_work_locations
		WHERE employee_id = $1
		  AND start_date <= $2
		  AND COALESCE(end_date, '9999-12-31'::date) >= $2
		ORDER BY start_date DESC
		LIMIT 1
	`, employeeID, dateArg(date)).Scan(&locationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get work location for %s on %s: %w", employeeID, date, err)
	}
	return &locationID, nil
}
