package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type rotationGroupRepository struct {
	db *database.DB
}

func NewRotationGroupRepository(db *database.DB) shift.RotationGroupRepository {
	return &rotationGroupRepository{db: db}
}

// Create implements shift.RotationGroupRepository. The group row and its
// entries are written in one batch, so callers should run it inside a
// transaction.
func (r *rotationGroupRepository) Create(ctx context.Context, group shift.RotationGroup) (shift.RotationGroup, error) {
	q := GetQuerier(ctx, r.db)

	if group.ID == "" {
		group.ID = uuid.Must(uuid.NewV7()).String()
	}

	err := q.QueryRow(ctx, `
		INSERT INTO rotation_groups (id, name, cycle_length)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, group.ID, group.Name, group.CycleLength).Scan(&group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return shift.RotationGroup{}, fmt.Errorf("failed to create rotation group: %w", err)
	}

	for _, e := range group.Entries {
		_, err := q.Exec(ctx, `
			INSERT INTO rotation_group_entries (rotation_group_id, position, shift_id)
			VALUES ($1, $2, $3)
		`, group.ID, e.Position, e.ShiftID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return shift.RotationGroup{}, fmt.Errorf("position %d: %w", e.Position, shift.ErrShiftNotFound)
			}
			return shift.RotationGroup{}, fmt.Errorf("failed to create rotation entry %d: %w", e.Position, err)
		}
	}

	return group, nil
}

// GetByID implements shift.RotationGroupRepository.
func (r *rotationGroupRepository) GetByID(ctx context.Context, id string) (shift.RotationGroup, error) {
	q := GetQuerier(ctx, r.db)

	var group shift.RotationGroup
	err := q.QueryRow(ctx, `
		SELECT id, name, cycle_length, created_at, updated_at
		FROM rotation_groups
		WHERE id = $1
	`, id).Scan(&group.ID, &group.Name, &group.CycleLength, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.RotationGroup{}, shift.ErrRotationGroupNotFound
		}
		return shift.RotationGroup{}, fmt.Errorf("failed to get rotation group %s: %w", id, err)
	}

	rows, err := q.Query(ctx, `
		SELECT position, shift_id
		FROM rotation_group_entries
		WHERE rotation_group_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return shift.RotationGroup{}, fmt.Errorf("failed to get rotation entries for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e shift.RotationEntry
		if err := rows.Scan(&e.Position, &e.ShiftID); err != nil {
			return shift.RotationGroup{}, fmt.Errorf("failed to scan rotation entry: %w", err)
		}
		group.Entries = append(group.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return shift.RotationGroup{}, err
	}

	return group, nil
}
