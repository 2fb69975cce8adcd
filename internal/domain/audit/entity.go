// Package audit describes the before/after trail written alongside every
// engine mutation.
package audit

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

type Entry struct {
	ID        string
	Table     string
	RecordID  string
	Action    Action
	Before    any
	After     any
	ChangedAt time.Time
}

// Sink records audit entries. Implementations write inside the caller's
// transaction when ctx carries one.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}
