package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

// =============================================================================
// RAW LOGS
// =============================================================================

type rawLogRepository struct{ s *Store }

func (s *Store) RawLogs() attendance.RawLogRepository { return &rawLogRepository{s: s} }

func (r *rawLogRepository) Create(ctx context.Context, log attendance.RawLog) (attendance.RawLog, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if log.ID == "" {
		log.ID = newID()
	}
	if log.Validation == "" {
		log.Validation = attendance.ValidationValid
	}
	log.CreatedAt = r.s.now()
	r.s.rawLogs = append(r.s.rawLogs, log)
	onRollback(ctx, func() {
		for i := range r.s.rawLogs {
			if r.s.rawLogs[i].ID == log.ID {
				r.s.rawLogs = append(r.s.rawLogs[:i], r.s.rawLogs[i+1:]...)
				return
			}
		}
	})
	return log, nil
}

func (r *rawLogRepository) ListBetween(ctx context.Context, from, to time.Time) ([]attendance.RawLog, error) {
	defer r.s.view(ctx)()
	return r.list(func(l attendance.RawLog) bool { return inWindow(l.Timestamp, from, to) }), nil
}

func (r *rawLogRepository) ListByEmployeeBetween(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.RawLog, error) {
	defer r.s.view(ctx)()
	return r.list(func(l attendance.RawLog) bool {
		return l.EmployeeID == employeeID && inWindow(l.Timestamp, from, to)
	}), nil
}

func (r *rawLogRepository) list(keep func(attendance.RawLog) bool) []attendance.RawLog {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []attendance.RawLog
	for _, l := range r.s.rawLogs {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

type dailyRecordRepository struct{ s *Store }

func (s *Store) DailyRecords() attendance.DailyRecordRepository { return &dailyRecordRepository{s: s} }

func (r *dailyRecordRepository) GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (attendance.DailyRecord, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.records[dayKey{employeeID: employeeID, date: date}]
	if !ok {
		return attendance.DailyRecord{}, attendance.ErrDailyRecordNotFound
	}
	return rec, nil
}

func (r *dailyRecordRepository) Upsert(ctx context.Context, rec attendance.DailyRecord) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := dayKey{employeeID: rec.EmployeeID, date: rec.Date}
	prev, existed := r.s.records[k]
	if existed && prev.IsFinal {
		return attendance.ErrRecordFinalized
	}
	now := r.s.now()
	if existed {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	r.s.records[k] = rec

	onRollback(ctx, func() {
		if existed {
			r.s.records[k] = prev
		} else {
			delete(r.s.records, k)
		}
	})
	return nil
}

func (r *dailyRecordRepository) ListBetween(ctx context.Context, from, to timeutil.Date) ([]attendance.DailyRecord, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []attendance.DailyRecord
	for k, rec := range r.s.records {
		if !k.date.Before(from) && !k.date.After(to) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *dailyRecordRepository) SetFinal(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for d := from; !d.After(to); d = d.AddDays(1) {
		k := dayKey{employeeID: employeeID, date: d}
		rec, ok := r.s.records[k]
		if !ok || rec.IsFinal {
			continue
		}
		prev := rec
		rec.IsFinal = true
		rec.UpdatedAt = r.s.now()
		r.s.records[k] = rec
		onRollback(ctx, func() { r.s.records[k] = prev })
		n++
	}
	return n, nil
}
