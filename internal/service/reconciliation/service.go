package reconciliation

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"golang.org/x/sync/errgroup"
)

const tableDailyRecords = "daily_attendance_records"

type Options struct {
	Location      *time.Location
	CheckoutGrace time.Duration
	Workers       int
}

type ServiceImpl struct {
	tx          database.Transactor
	rawLogs     attendance.RawLogRepository
	records     attendance.DailyRecordRepository
	days        shift.DayRepository
	definitions shift.DefinitionRepository
	audit       audit.Sink
	locker      lock.Locker
	publisher   events.Publisher
	opts        Options
}

func NewAttendanceService(
	tx database.Transactor,
	rawLogRepo attendance.RawLogRepository,
	recordRepo attendance.DailyRecordRepository,
	dayRepo shift.DayRepository,
	definitionRepo shift.DefinitionRepository,
	auditSink audit.Sink,
	locker lock.Locker,
	publisher events.Publisher,
	opts Options,
) *ServiceImpl {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &ServiceImpl{
		tx:          tx,
		rawLogs:     rawLogRepo,
		records:     recordRepo,
		days:        dayRepo,
		definitions: definitionRepo,
		audit:       auditSink,
		locker:      locker,
		publisher:   publisher,
		opts:        opts,
	}
}

// unit is one employee's share of a reconciliation run.
type unit struct {
	employeeID string
	day        *shift.Day
	def        *shift.Definition
	logs       []attendance.RawLog
	// claimedUntil is the end of the previous day's overnight check-out
	// window; earlier check-outs close that shift, not this date.
	claimedUntil time.Time
}

// ReconcileDay implements attendance.Service.
func (s *ServiceImpl) ReconcileDay(ctx context.Context, req attendance.ReconcileDayRequest) (attendance.ReconcileResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ReconcileResult{}, err
	}

	from, to := s.loadRange(req.Date)
	logs, err := s.rawLogs.ListBetween(ctx, from, to)
	if err != nil {
		return attendance.ReconcileResult{}, batch.Persistence("list raw attendance logs", err)
	}
	days, err := s.days.ListByDate(ctx, req.Date)
	if err != nil {
		return attendance.ReconcileResult{}, batch.Persistence("list shift days", err)
	}
	prevDays, err := s.days.ListByDate(ctx, req.Date.AddDays(-1))
	if err != nil {
		return attendance.ReconcileResult{}, batch.Persistence("list previous shift days", err)
	}

	units, err := s.buildUnits(ctx, req.Date, logs, days, prevDays)
	if err != nil {
		return attendance.ReconcileResult{}, err
	}

	slog.Info("Reconciliation started", "date", req.Date.String(), "employees", len(units))
	result, err := s.run(ctx, req.Date, units)
	if err != nil {
		return result, err
	}
	slog.Info("Reconciliation finished",
		"date", req.Date.String(),
		"written", result.RecordsWritten,
		"unchanged", result.RecordsUnchanged,
		"errors", len(result.Errors),
	)

	events.PublishQuietly(ctx, s.publisher, events.NewEvent(events.TypeDayReconciled, result))
	return result, nil
}

// ReconcileEmployee implements attendance.Service.
func (s *ServiceImpl) ReconcileEmployee(ctx context.Context, req attendance.ReconcileEmployeeRequest) (attendance.ReconcileResult, error) {
	if err := req.Validate(); err != nil {
		return attendance.ReconcileResult{}, err
	}

	from, to := s.loadRange(req.Date)
	logs, err := s.rawLogs.ListByEmployeeBetween(ctx, req.EmployeeID, from, to)
	if err != nil {
		return attendance.ReconcileResult{}, batch.Persistence("list raw attendance logs", err)
	}

	days, err := s.employeeDays(ctx, req.EmployeeID, req.Date)
	if err != nil {
		return attendance.ReconcileResult{}, err
	}
	prevDays, err := s.employeeDays(ctx, req.EmployeeID, req.Date.AddDays(-1))
	if err != nil {
		return attendance.ReconcileResult{}, err
	}

	units, err := s.buildUnits(ctx, req.Date, logs, days, prevDays)
	if err != nil {
		return attendance.ReconcileResult{}, err
	}
	return s.run(ctx, req.Date, units)
}

func (s *ServiceImpl) employeeDays(ctx context.Context, employeeID string, date timeutil.Date) ([]shift.Day, error) {
	day, err := s.days.GetByEmployeeDate(ctx, employeeID, date)
	switch {
	case err == nil:
		return []shift.Day{day}, nil
	case errors.Is(err, shift.ErrShiftDayNotFound):
		return nil, nil
	default:
		return nil, batch.Persistence("get shift day", err)
	}
}

// loadRange covers the widest window any shift on date can use.
func (s *ServiceImpl) loadRange(date timeutil.Date) (time.Time, time.Time) {
	return date.Midnight(s.opts.Location), date.AddDays(2).Midnight(s.opts.Location).Add(s.opts.CheckoutGrace)
}

// buildUnits picks the employees to reconcile for date: everyone with a
// punch on the day itself, plus everyone scheduled on a working shift.
// Check-outs that close the previous day's overnight shift are not punches.
func (s *ServiceImpl) buildUnits(ctx context.Context, date timeutil.Date, logs []attendance.RawLog, days, prevDays []shift.Day) ([]unit, error) {
	dayStart := date.Midnight(s.opts.Location)
	dayEnd := date.AddDays(1).Midnight(s.opts.Location)

	defs := make(map[string]*shift.Definition)
	definition := func(id string) (*shift.Definition, error) {
		if def, ok := defs[id]; ok {
			return def, nil
		}
		def, err := s.definitions.GetByID(ctx, id)
		if err != nil {
			return nil, batch.Persistence("get shift definition "+id, err)
		}
		defs[id] = &def
		return &def, nil
	}

	claimed := make(map[string]time.Time)
	for _, d := range prevDays {
		def, err := definition(d.ShiftID)
		if err != nil {
			return nil, err
		}
		if !def.IsOvernight() {
			continue
		}
		_, _, checkOutTo := Window(Input{
			Date:          d.Date,
			Location:      s.opts.Location,
			Shift:         def,
			CheckoutGrace: s.opts.CheckoutGrace,
		})
		claimed[d.EmployeeID] = checkOutTo
	}

	byEmployee := make(map[string][]attendance.RawLog)
	punched := make(map[string]bool)
	for _, l := range logs {
		byEmployee[l.EmployeeID] = append(byEmployee[l.EmployeeID], l)
		if l.Timestamp.Before(dayStart) || !l.Timestamp.Before(dayEnd) {
			continue
		}
		if l.EventType == attendance.EventCheckOut && l.Timestamp.Before(claimed[l.EmployeeID]) {
			continue
		}
		punched[l.EmployeeID] = true
	}

	dayOf := make(map[string]*shift.Day)
	for i := range days {
		d := &days[i]
		dayOf[d.EmployeeID] = d
		if _, err := definition(d.ShiftID); err != nil {
			return nil, err
		}
	}

	var employees []string
	for id := range punched {
		employees = append(employees, id)
	}
	for id, d := range dayOf {
		if punched[id] {
			continue
		}
		if !d.IsDayOff && defs[d.ShiftID].IsWorkingDay {
			employees = append(employees, id)
		}
	}
	slices.Sort(employees)

	units := make([]unit, 0, len(employees))
	for _, id := range employees {
		u := unit{employeeID: id, logs: byEmployee[id], claimedUntil: claimed[id]}
		if d, ok := dayOf[id]; ok {
			u.day = d
			def := *defs[d.ShiftID]
			if d.IsDayOff {
				def.IsWorkingDay = false
			}
			u.def = &def
		}
		units = append(units, u)
	}
	return units, nil
}

func (s *ServiceImpl) run(ctx context.Context, date timeutil.Date, units []unit) (attendance.ReconcileResult, error) {
	var (
		errs      batch.Collector
		written   atomic.Int64
		unchanged atomic.Int64
		processed atomic.Int64
	)

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for _, u := range units {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			processed.Add(1)

			changed, err := s.reconcileOne(ctx, date, u)
			switch {
			case err != nil:
				slog.Error("Failed to reconcile employee", "employee_id", u.employeeID, "date", date.String(), "error", err)
				errs.AddErr(u.employeeID, err)
			case changed:
				written.Add(1)
			default:
				unchanged.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := attendance.ReconcileResult{
		Date:               date,
		EmployeesProcessed: int(processed.Load()),
		RecordsWritten:     int(written.Load()),
		RecordsUnchanged:   int(unchanged.Load()),
		Errors:             errs.Errors(),
	}
	slices.SortFunc(result.Errors, func(a, b batch.UnitError) int {
		return cmp.Compare(a.EmployeeID, b.EmployeeID)
	})
	result.Success = len(result.Errors) == 0

	if err := ctx.Err(); err != nil {
		result.Success = false
		return result, fmt.Errorf("reconciliation of %s interrupted: %w", date, err)
	}
	return result, nil
}

// reconcileOne writes one employee's record and reports whether it changed.
func (s *ServiceImpl) reconcileOne(ctx context.Context, date timeutil.Date, u unit) (bool, error) {
	release, err := s.locker.Lock(ctx, lock.EmployeeDateKey(u.employeeID, date.String()))
	if err != nil {
		return false, batch.Persistence("lock daily record", err)
	}
	defer release()

	out := Calculate(Input{
		Date:          date,
		Location:      s.opts.Location,
		Shift:         u.def,
		Logs:          u.logs,
		CheckoutGrace: s.opts.CheckoutGrace,
		ClaimedUntil:  u.claimedUntil,
	})

	rec := attendance.DailyRecord{
		ID:                attendance.RecordID(u.employeeID, date),
		EmployeeID:        u.employeeID,
		Date:              date,
		CheckIn:           out.CheckIn,
		CheckOut:          out.CheckOut,
		LateMinutes:       out.LateMinutes,
		EarlyLeaveMinutes: out.EarlyLeaveMinutes,
		EffectiveMinutes:  out.EffectiveMinutes,
		OvertimeMinutes:   out.OvertimeMinutes,
		Status:            out.Status,
		Notes:             out.Notes,
	}
	if u.day != nil {
		shiftID := u.day.ShiftID
		rec.ShiftID = &shiftID
	}

	changed := false
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.records.GetByEmployeeDate(ctx, u.employeeID, date)
		found := err == nil
		if err != nil && !errors.Is(err, attendance.ErrDailyRecordNotFound) {
			return batch.Persistence("get daily record", err)
		}
		if found && existing.IsFinal {
			return attendance.ErrRecordFinalized
		}
		if found && existing.SameOutcome(rec) {
			return nil
		}

		if err := s.records.Upsert(ctx, rec); err != nil {
			if errors.Is(err, attendance.ErrRecordFinalized) {
				return err
			}
			return batch.Persistence("upsert daily record", err)
		}

		entry := audit.Entry{Table: tableDailyRecords, RecordID: rec.ID, Action: audit.ActionCreate, After: rec}
		if found {
			entry.Action = audit.ActionUpdate
			entry.Before = existing
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			return batch.Persistence("record audit", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// GetDailyRecord implements attendance.Service.
func (s *ServiceImpl) GetDailyRecord(ctx context.Context, employeeID string, date timeutil.Date) (attendance.DailyRecordResponse, error) {
	rec, err := s.records.GetByEmployeeDate(ctx, employeeID, date)
	if err != nil {
		if errors.Is(err, attendance.ErrDailyRecordNotFound) {
			return attendance.DailyRecordResponse{}, err
		}
		return attendance.DailyRecordResponse{}, batch.Persistence("get daily record", err)
	}
	return attendance.ToDailyRecordResponse(rec), nil
}

// FinalizeRecords implements attendance.Service.
func (s *ServiceImpl) FinalizeRecords(ctx context.Context, req attendance.FinalizeRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	var n int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.records.SetFinal(ctx, req.EmployeeID, req.StartDate, req.EndDate)
		if err != nil {
			return batch.Persistence("finalize daily records", err)
		}
		err = s.audit.Record(ctx, audit.Entry{
			Table:    tableDailyRecords,
			RecordID: fmt.Sprintf("%s:%s..%s", req.EmployeeID, req.StartDate, req.EndDate),
			Action:   audit.ActionUpdate,
			After:    map[string]any{"is_final": true, "rows": n},
		})
		return batch.Persistence("record audit", err)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RecordRawLog implements attendance.Service.
func (s *ServiceImpl) RecordRawLog(ctx context.Context, req attendance.RecordRawLogRequest) (attendance.RawLogResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RawLogResponse{}, err
	}

	log, err := s.rawLogs.Create(ctx, attendance.RawLog{
		EmployeeID: req.EmployeeID,
		Timestamp:  req.Timestamp,
		EventType:  req.EventType,
		LocationID: req.LocationID,
		Channel:    req.Channel,
		Validation: attendance.ValidationValid,
	})
	if err != nil {
		return attendance.RawLogResponse{}, batch.Persistence("create raw attendance log", err)
	}
	return attendance.ToRawLogResponse(log), nil
}

var _ attendance.Service = (*ServiceImpl)(nil)
