package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/google/uuid"
)

type auditLogRepository struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) audit.Sink {
	return &auditLogRepository{db: db}
}

// Record implements audit.Sink.
func (r *auditLogRepository) Record(ctx context.Context, e audit.Entry) error {
	q := GetQuerier(ctx, r.db)

	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now()
	}

	before, err := marshalSnapshot(e.Before)
	if err != nil {
		return fmt.Errorf("marshal audit before: %w", err)
	}
	after, err := marshalSnapshot(e.After)
	if err != nil {
		return fmt.Errorf("marshal audit after: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (id, table_name, record_id, action, before, after, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.Table, e.RecordID, e.Action, before, after, e.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to write audit log for %s/%s: %w", e.Table, e.RecordID, err)
	}
	return nil
}

func marshalSnapshot(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
