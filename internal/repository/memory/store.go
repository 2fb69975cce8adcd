// Package memory provides in-memory implementations of every engine
// repository. It backs the service tests and the APP_STORE_DRIVER=memory
// mode.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/overtime"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/google/uuid"
)

type dayKey struct {
	employeeID string
	date       timeutil.Date
}

type monthKey struct {
	employeeID string
	month      timeutil.Date
}

type workLocation struct {
	employeeID string
	locationID string
	start      timeutil.Date
	end        *timeutil.Date
}

type Store struct {
	// txMu is held exclusively by a top-level transaction and shared by
	// calls made outside one.
	txMu sync.RWMutex
	mu   sync.RWMutex

	definitions map[string]shift.Definition
	groups      map[string]shift.RotationGroup
	assignments map[string]shift.Assignment
	days        map[dayKey]shift.Day
	locations   []workLocation
	rawLogs     []attendance.RawLog
	records     map[dayKey]attendance.DailyRecord
	summaries   map[monthKey]overtime.Summary
	auditLog    []audit.Entry

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		definitions: make(map[string]shift.Definition),
		groups:      make(map[string]shift.RotationGroup),
		assignments: make(map[string]shift.Assignment),
		days:        make(map[dayKey]shift.Day),
		records:     make(map[dayKey]attendance.DailyRecord),
		summaries:   make(map[monthKey]overtime.Summary),
		now:         time.Now,
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type txKey struct{}

// memTx collects undo steps for the writes made under it. Rolling back
// replays them newest first.
type memTx struct {
	mu   sync.Mutex
	undo []func()
}

func (t *memTx) push(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

func (t *memTx) steps() []func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.undo
}

// Transactor implements database.Transactor over a Store. Top-level
// transactions run one at a time, and repository calls outside a
// transaction wait for the open one to finish, so readers never see
// uncommitted writes. Nested transactions are savepoints.
type Transactor struct {
	s *Store
}

func (s *Store) Transactor() *Transactor {
	return &Transactor{s: s}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, fn)
}

func (t *Transactor) WithinSerializableTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.run(ctx, fn)
}

func (t *Transactor) run(ctx context.Context, fn func(ctx context.Context) error) error {
	parent, _ := ctx.Value(txKey{}).(*memTx)
	tx := &memTx{}

	if parent == nil {
		t.s.txMu.Lock()
		defer t.s.txMu.Unlock()
	}

	defer func() {
		if p := recover(); p != nil {
			t.s.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		t.s.rollback(tx)
		return err
	}
	if err := ctx.Err(); err != nil {
		t.s.rollback(tx)
		return fmt.Errorf("commit transaction: %w", err)
	}

	if parent != nil {
		for _, step := range tx.steps() {
			parent.push(step)
		}
	}
	return nil
}

func (s *Store) rollback(tx *memTx) {
	steps := tx.steps()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// view blocks while another goroutine's transaction is open. Calls made
// inside a transaction already hold the store.
func (s *Store) view(ctx context.Context) func() {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return func() {}
	}
	s.txMu.RLock()
	return s.txMu.RUnlock
}

// onRollback registers fn to run if the transaction in ctx rolls back.
// Outside a transaction writes are final. Callers hold s.mu.
func onRollback(ctx context.Context, fn func()) {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		tx.push(fn)
	}
}

// =============================================================================
// SEEDING
// =============================================================================

// AddWorkLocation assigns an employee to a location from start to end.
func (s *Store) AddWorkLocation(employeeID, locationID string, start timeutil.Date, end *timeutil.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, workLocation{employeeID: employeeID, locationID: locationID, start: start, end: end})
}

// AuditEntries returns every recorded audit entry in write order.
func (s *Store) AuditEntries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.auditLog))
	copy(out, s.auditLog)
	return out
}

// Record implements audit.Sink.
func (s *Store) Record(ctx context.Context, e audit.Entry) error {
	defer s.view(ctx)()
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = newID()
	}
	if e.ChangedAt.IsZero() {
		e.ChangedAt = s.now()
	}
	s.auditLog = append(s.auditLog, e)
	onRollback(ctx, func() {
		s.auditLog = slices.DeleteFunc(s.auditLog, func(x audit.Entry) bool { return x.ID == e.ID })
	})
	return nil
}
