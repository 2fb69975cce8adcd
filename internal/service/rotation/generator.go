package rotation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// plan holds the rows one employee should have over a range.
type plan struct {
	employeeID     string
	days           []shift.Day
	uncovered      int
	firstUncovered timeutil.Date
}

// resolver turns assignments into concrete shifts. It caches patterns and
// definitions for the duration of one call.
type resolver struct {
	s        *ServiceImpl
	epoch    timeutil.Date
	patterns map[string]shift.RotationPattern
	defs     map[string]shift.Definition
}

func (s *ServiceImpl) newResolver(epoch timeutil.Date) *resolver {
	return &resolver{
		s:        s,
		epoch:    epoch,
		patterns: make(map[string]shift.RotationPattern),
		defs:     make(map[string]shift.Definition),
	}
}

// ShiftFor returns the shift an assignment puts the employee on for date.
func ShiftFor(a shift.Assignment, pattern *shift.RotationPattern, epoch, date timeutil.Date) string {
	if a.ShiftID != nil {
		return *a.ShiftID
	}
	return pattern.ShiftAt(timeutil.DaysBetween(epoch, date), a.OffsetDays)
}

func (r *resolver) pattern(ctx context.Context, groupID string) (*shift.RotationPattern, error) {
	if p, ok := r.patterns[groupID]; ok {
		return &p, nil
	}
	group, err := r.s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, batch.Persistence("get rotation group", err)
	}
	p, err := shift.NewRotationPattern(group)
	if err != nil {
		return nil, err
	}
	r.patterns[groupID] = p
	return &p, nil
}

func (r *resolver) definition(ctx context.Context, id string) (shift.Definition, error) {
	if d, ok := r.defs[id]; ok {
		return d, nil
	}
	d, err := r.s.definitions.GetByID(ctx, id)
	if err != nil {
		return shift.Definition{}, batch.Persistence("get shift definition", err)
	}
	r.defs[id] = d
	return d, nil
}

func (r *resolver) plan(ctx context.Context, employeeID string, start, end timeutil.Date) (plan, error) {
	p := plan{employeeID: employeeID}

	var current *shift.Assignment
	for _, d := range timeutil.DaysInRange(start, end) {
		if current == nil || !current.Covers(d) {
			a, err := r.s.assignments.GetActive(ctx, employeeID, d)
			if errors.Is(err, shift.ErrNoActiveAssignment) {
				if p.uncovered == 0 {
					p.firstUncovered = d
				}
				p.uncovered++
				current = nil
				continue
			}
			if err != nil {
				return plan{}, batch.Persistence("get active assignment", err)
			}
			current = &a
		}

		var pattern *shift.RotationPattern
		if current.RotationGroupID != nil {
			var err error
			if pattern, err = r.pattern(ctx, *current.RotationGroupID); err != nil {
				return plan{}, err
			}
		}
		shiftID := ShiftFor(*current, pattern, r.epoch, d)

		def, err := r.definition(ctx, shiftID)
		if err != nil {
			return plan{}, err
		}
		location, err := r.s.locations.GetWorkLocation(ctx, employeeID, d)
		if err != nil {
			return plan{}, batch.Persistence("get work location", err)
		}

		p.days = append(p.days, shift.Day{
			ID:         shift.DayID(employeeID, d),
			EmployeeID: employeeID,
			Date:       d,
			ShiftID:    shiftID,
			IsDayOff:   !def.IsWorkingDay,
			LocationID: location,
			Source:     shift.SourceGenerated,
		})
	}
	return p, nil
}

func (s *ServiceImpl) checkRange(start, end timeutil.Date) error {
	if n := timeutil.DaysBetween(start, end) + 1; n > s.opts.MaxGenerateDays {
		return validator.ValidationErrors{{
			Field:   "end_date",
			Message: fmt.Sprintf("range of %d days exceeds the limit of %d", n, s.opts.MaxGenerateDays),
		}}
	}
	return nil
}

// GenerateShiftDays implements shift.Service.
func (s *ServiceImpl) GenerateShiftDays(ctx context.Context, req shift.GenerateShiftDaysRequest) (shift.GenerateShiftDaysResult, error) {
	if err := req.Validate(); err != nil {
		return shift.GenerateShiftDaysResult{}, err
	}
	if err := s.checkRange(req.StartDate, req.EndDate); err != nil {
		return shift.GenerateShiftDaysResult{}, err
	}

	epoch := s.opts.Epoch
	if req.Epoch != nil {
		epoch = *req.Epoch
	}

	var employees []string
	if req.EmployeeID != nil {
		employees = []string{*req.EmployeeID}
	} else {
		var err error
		employees, err = s.assignments.ListAssignedEmployees(ctx, req.StartDate, req.EndDate)
		if err != nil {
			return shift.GenerateShiftDaysResult{}, batch.Persistence("list assigned employees", err)
		}
	}

	slog.Info("Shift day generation started",
		"start_date", req.StartDate.String(),
		"end_date", req.EndDate.String(),
		"mode", req.Mode,
		"employees", len(employees),
	)

	var (
		errs   batch.Collector
		result = shift.GenerateShiftDaysResult{EmployeesProcessed: len(employees)}
		res    = s.newResolver(epoch)
		plans  = make([]plan, 0, len(employees))
	)

	finish := func() shift.GenerateShiftDaysResult {
		result.Errors = errs.Errors()
		result.Success = len(result.Errors) == 0
		return result
	}

	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		p, err := res.plan(ctx, emp, req.StartDate, req.EndDate)
		if err != nil {
			errs.AddErr(emp, err)
			continue
		}
		if p.uncovered > 0 {
			errs.Add(emp, batch.KindNotFound, fmt.Sprintf("%s from %s (%d of %d dates uncovered)",
				shift.ErrNoActiveAssignment, p.firstUncovered, p.uncovered, p.uncovered+len(p.days)))
		}
		if len(p.days) > 0 {
			plans = append(plans, p)
		}
	}

	if req.Mode == shift.ModeError {
		if conflicts := s.findCollisions(ctx, plans, req.StartDate, req.EndDate, &errs); conflicts {
			slog.Warn("Shift day generation aborted on existing rows", "start_date", req.StartDate.String())
			return finish(), nil
		}
	}

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		created, skipped, replaced, err := s.writePlan(ctx, p, req.Mode, req.StartDate, req.EndDate)
		if err != nil {
			slog.Error("Failed to write shift days", "employee_id", p.employeeID, "error", err)
			errs.AddErr(p.employeeID, err)
			continue
		}
		result.RowsCreated += created
		result.RowsSkipped += skipped
		result.RowsReplaced += replaced
	}

	out := finish()
	slog.Info("Shift day generation finished",
		"created", out.RowsCreated,
		"skipped", out.RowsSkipped,
		"replaced", out.RowsReplaced,
		"errors", len(out.Errors),
	)
	events.PublishQuietly(ctx, s.publisher, events.NewEvent(events.TypeShiftDaysGenerated, out))
	return out, nil
}

// findCollisions records a Conflict for every employee that already has a
// row on a planned date. No rows are written when it reports true.
func (s *ServiceImpl) findCollisions(ctx context.Context, plans []plan, start, end timeutil.Date, errs *batch.Collector) bool {
	found := false
	for _, p := range plans {
		existing, err := s.days.ListByEmployee(ctx, p.employeeID, start, end)
		if err != nil {
			errs.AddErr(p.employeeID, batch.Persistence("list shift days", err))
			found = true
			continue
		}
		taken := make(map[timeutil.Date]bool, len(existing))
		for _, d := range existing {
			taken[d.Date] = true
		}
		n := 0
		for _, d := range p.days {
			if taken[d.Date] {
				n++
			}
		}
		if n > 0 {
			errs.Add(p.employeeID, batch.KindConflict, fmt.Sprintf("%s: %d of %d dates", shift.ErrShiftDayExists, n, len(p.days)))
			found = true
		}
	}
	return found
}

// writePlan stores one employee's rows in a single transaction.
func (s *ServiceImpl) writePlan(ctx context.Context, p plan, mode shift.CollisionMode, start, end timeutil.Date) (created, skipped, replaced int, err error) {
	release, err := s.locker.Lock(ctx, lock.ShiftDayKey(p.employeeID))
	if err != nil {
		return 0, 0, 0, batch.Persistence("lock employee schedule", err)
	}
	defer release()

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		created, skipped, replaced = 0, 0, 0

		if mode == shift.ModeOverwrite {
			previous, err := s.days.ListByEmployee(ctx, p.employeeID, start, end)
			if err != nil {
				return batch.Persistence("list shift days", err)
			}
			n, err := s.days.DeleteRange(ctx, p.employeeID, start, end)
			if err != nil {
				return batch.Persistence("delete shift days", err)
			}
			replaced = int(n)
			if n > 0 {
				if err := s.record(ctx, tableShiftDays, rangeID(p.employeeID, start, end), audit.ActionDelete, previous, nil); err != nil {
					return err
				}
			}
		}

		for _, d := range p.days {
			ok, err := s.days.Insert(ctx, d)
			if err != nil {
				return batch.Persistence("insert shift day", err)
			}
			if !ok {
				skipped++
				continue
			}
			if err := s.record(ctx, tableShiftDays, d.ID, audit.ActionCreate, nil, d); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, 0, 0, err
	}
	return created, skipped, replaced, nil
}

// OverrideShiftDays implements shift.Service.
func (s *ServiceImpl) OverrideShiftDays(ctx context.Context, req shift.OverrideShiftDaysRequest) (shift.OverrideShiftDaysResult, error) {
	if err := req.Validate(); err != nil {
		return shift.OverrideShiftDaysResult{}, err
	}
	if err := s.checkRange(req.StartDate, req.EndDate); err != nil {
		return shift.OverrideShiftDaysResult{}, err
	}

	def, err := s.definitions.GetByID(ctx, req.ShiftID)
	if err != nil {
		return shift.OverrideShiftDaysResult{}, batch.Persistence("get shift definition", err)
	}

	release, err := s.locker.Lock(ctx, lock.ShiftDayKey(req.EmployeeID))
	if err != nil {
		return shift.OverrideShiftDaysResult{}, batch.Persistence("lock employee schedule", err)
	}
	defer release()

	var result shift.OverrideShiftDaysResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		result = shift.OverrideShiftDaysResult{}

		for _, d := range timeutil.DaysInRange(req.StartDate, req.EndDate) {
			location := req.LocationID
			if location == nil {
				var err error
				if location, err = s.locations.GetWorkLocation(ctx, req.EmployeeID, d); err != nil {
					return batch.Persistence("get work location", err)
				}
			}
			day := shift.Day{
				ID:                   shift.DayID(req.EmployeeID, d),
				EmployeeID:           req.EmployeeID,
				Date:                 d,
				ShiftID:              def.ID,
				IsDayOff:             !def.IsWorkingDay,
				LocationID:           location,
				SubstituteEmployeeID: req.SubstituteEmployeeID,
				ChangeReason:         req.Reason,
				Source:               shift.SourceManual,
			}

			existing, err := s.days.GetByEmployeeDate(ctx, req.EmployeeID, d)
			switch {
			case err == nil:
				if !req.OverwriteExisting {
					result.RowsSkipped++
					continue
				}
				if _, err := s.days.DeleteRange(ctx, req.EmployeeID, d, d); err != nil {
					return batch.Persistence("delete shift day", err)
				}
				if _, err := s.days.Insert(ctx, day); err != nil {
					return batch.Persistence("insert shift day", err)
				}
				if err := s.record(ctx, tableShiftDays, day.ID, audit.ActionUpdate, existing, day); err != nil {
					return err
				}
				result.RowsReplaced++
			case errors.Is(err, shift.ErrShiftDayNotFound):
				if _, err := s.days.Insert(ctx, day); err != nil {
					return batch.Persistence("insert shift day", err)
				}
				if err := s.record(ctx, tableShiftDays, day.ID, audit.ActionCreate, nil, day); err != nil {
					return err
				}
				result.RowsCreated++
			default:
				return batch.Persistence("get shift day", err)
			}
		}
		return nil
	})
	if err != nil {
		return shift.OverrideShiftDaysResult{}, err
	}
	return result, nil
}

// DeleteShiftDays implements shift.Service.
func (s *ServiceImpl) DeleteShiftDays(ctx context.Context, req shift.ShiftDayRangeRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	release, err := s.locker.Lock(ctx, lock.ShiftDayKey(req.EmployeeID))
	if err != nil {
		return 0, batch.Persistence("lock employee schedule", err)
	}
	defer release()

	var deleted int64
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		previous, err := s.days.ListByEmployee(ctx, req.EmployeeID, req.StartDate, req.EndDate)
		if err != nil {
			return batch.Persistence("list shift days", err)
		}
		if deleted, err = s.days.DeleteRange(ctx, req.EmployeeID, req.StartDate, req.EndDate); err != nil {
			return batch.Persistence("delete shift days", err)
		}
		if deleted == 0 {
			return nil
		}
		return s.record(ctx, tableShiftDays, rangeID(req.EmployeeID, req.StartDate, req.EndDate), audit.ActionDelete, previous, nil)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListShiftDays implements shift.Service.
func (s *ServiceImpl) ListShiftDays(ctx context.Context, req shift.ShiftDayRangeRequest) ([]shift.DayResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	days, err := s.days.ListByEmployee(ctx, req.EmployeeID, req.StartDate, req.EndDate)
	if err != nil {
		return nil, batch.Persistence("list shift days", err)
	}
	out := make([]shift.DayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, shift.ToDayResponse(d))
	}
	return out, nil
}

func rangeID(employeeID string, start, end timeutil.Date) string {
	return fmt.Sprintf("%s:%s..%s", employeeID, start, end)
}
