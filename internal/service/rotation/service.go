package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

const (
	tableDefinitions   = "shift_definitions"
	tableRotationGroup = "rotation_groups"
	tableAssignments   = "employee_shift_assignments"
	tableShiftDays     = "shift_days"
)

type Options struct {
	// Epoch is day index 0 of every rotation cycle.
	Epoch           timeutil.Date
	MaxGenerateDays int
}

type ServiceImpl struct {
	tx          database.Transactor
	definitions shift.DefinitionRepository
	groups      shift.RotationGroupRepository
	assignments shift.AssignmentRepository
	days        shift.DayRepository
	locations   shift.LocationRepository
	audit       audit.Sink
	locker      lock.Locker
	publisher   events.Publisher
	opts        Options
}

func NewShiftService(
	tx database.Transactor,
	definitionRepo shift.DefinitionRepository,
	groupRepo shift.RotationGroupRepository,
	assignmentRepo shift.AssignmentRepository,
	dayRepo shift.DayRepository,
	locationRepo shift.LocationRepository,
	auditSink audit.Sink,
	locker lock.Locker,
	publisher events.Publisher,
	opts Options,
) *ServiceImpl {
	if opts.Epoch.IsZero() {
		opts.Epoch = timeutil.NewDate(2024, time.January, 1)
	}
	if opts.MaxGenerateDays < 1 {
		opts.MaxGenerateDays = 366
	}
	return &ServiceImpl{
		tx:          tx,
		definitions: definitionRepo,
		groups:      groupRepo,
		assignments: assignmentRepo,
		days:        dayRepo,
		locations:   locationRepo,
		audit:       auditSink,
		locker:      locker,
		publisher:   publisher,
		opts:        opts,
	}
}

// CreateDefinition implements shift.Service.
func (s *ServiceImpl) CreateDefinition(ctx context.Context, req shift.CreateDefinitionRequest) (shift.DefinitionResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.DefinitionResponse{}, err
	}

	def := shift.Definition{
		Name:             strings.TrimSpace(req.Name),
		StartTime:        *req.StartTime,
		EndTime:          *req.EndTime,
		BreakMinutes:     req.BreakMinutes,
		ToleranceMinutes: req.ToleranceMinutes,
		IsWorkingDay:     true,
	}
	if req.IsWorkingDay != nil {
		def.IsWorkingDay = *req.IsWorkingDay
	}

	var created shift.Definition
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.definitions.Create(ctx, def)
		if err != nil {
			return batch.Persistence("create shift definition", err)
		}
		return s.record(ctx, tableDefinitions, created.ID, audit.ActionCreate, nil, created)
	})
	if err != nil {
		return shift.DefinitionResponse{}, err
	}
	return shift.ToDefinitionResponse(created), nil
}

// ListDefinitions implements shift.Service.
func (s *ServiceImpl) ListDefinitions(ctx context.Context) ([]shift.DefinitionResponse, error) {
	defs, err := s.definitions.List(ctx)
	if err != nil {
		return nil, batch.Persistence("list shift definitions", err)
	}
	out := make([]shift.DefinitionResponse, 0, len(defs))
	for _, d := range defs {
		out = append(out, shift.ToDefinitionResponse(d))
	}
	return out, nil
}

// CreateRotationGroup implements shift.Service.
func (s *ServiceImpl) CreateRotationGroup(ctx context.Context, req shift.CreateRotationGroupRequest) (shift.RotationGroupResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.RotationGroupResponse{}, err
	}

	group := shift.RotationGroup{
		Name:        strings.TrimSpace(req.Name),
		CycleLength: req.CycleLength,
		Entries:     make([]shift.RotationEntry, 0, len(req.Entries)),
	}
	for _, e := range req.Entries {
		group.Entries = append(group.Entries, shift.RotationEntry{Position: e.Position, ShiftID: e.ShiftID})
	}
	if _, err := shift.NewRotationPattern(group); err != nil {
		return shift.RotationGroupResponse{}, err
	}

	var created shift.RotationGroup
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, e := range group.Entries {
			if _, err := s.definitions.GetByID(ctx, e.ShiftID); err != nil {
				return batch.Persistence("get shift definition", err)
			}
		}

		var err error
		created, err = s.groups.Create(ctx, group)
		if err != nil {
			return batch.Persistence("create rotation group", err)
		}
		return s.record(ctx, tableRotationGroup, created.ID, audit.ActionCreate, nil, created)
	})
	if err != nil {
		return shift.RotationGroupResponse{}, err
	}
	return shift.ToRotationGroupResponse(created), nil
}

// AssignShift implements shift.Service.
func (s *ServiceImpl) AssignShift(ctx context.Context, req shift.AssignShiftRequest) (shift.AssignShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.AssignShiftResponse{}, err
	}

	release, err := s.locker.Lock(ctx, lock.ShiftDayKey(req.EmployeeID))
	if err != nil {
		return shift.AssignShiftResponse{}, batch.Persistence("lock employee schedule", err)
	}
	defer release()

	a := shift.Assignment{
		EmployeeID:      req.EmployeeID,
		ShiftID:         req.ShiftID,
		RotationGroupID: req.RotationGroupID,
		OffsetDays:      req.OffsetDays,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		IsActive:        true,
	}
	if err := a.CheckTarget(); err != nil {
		return shift.AssignShiftResponse{}, err
	}

	resp := shift.AssignShiftResponse{Deactivated: []string{}}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkTarget(ctx, a); err != nil {
			return err
		}

		overlapping, err := s.assignments.ListActiveOverlapping(ctx, a.EmployeeID, a.StartDate, a.EndDate)
		if err != nil {
			return batch.Persistence("list overlapping assignments", err)
		}
		if len(overlapping) > 0 && req.Mode == shift.AssignModeReject {
			ids := make([]string, 0, len(overlapping))
			for _, o := range overlapping {
				ids = append(ids, o.ID)
			}
			return fmt.Errorf("%w: %s", shift.ErrOverlappingAssignment, strings.Join(ids, ", "))
		}

		for _, o := range overlapping {
			if err := s.assignments.Deactivate(ctx, o.ID); err != nil {
				return batch.Persistence("deactivate assignment", err)
			}
			after := o
			after.IsActive = false
			if err := s.record(ctx, tableAssignments, o.ID, audit.ActionUpdate, o, after); err != nil {
				return err
			}
			resp.Deactivated = append(resp.Deactivated, o.ID)
		}

		created, err := s.assignments.Create(ctx, a)
		if err != nil {
			return batch.Persistence("create assignment", err)
		}
		resp.Assignment = shift.ToAssignmentResponse(created)
		return s.record(ctx, tableAssignments, created.ID, audit.ActionCreate, nil, created)
	})
	if err != nil {
		return shift.AssignShiftResponse{}, err
	}

	if len(resp.Deactivated) > 0 {
		slog.Info("Deactivated overlapping assignments", "employee_id", req.EmployeeID, "ids", resp.Deactivated)
	}
	return resp, nil
}

// checkTarget makes sure the referenced shift or a complete rotation group exists.
func (s *ServiceImpl) checkTarget(ctx context.Context, a shift.Assignment) error {
	if a.ShiftID != nil {
		if _, err := s.definitions.GetByID(ctx, *a.ShiftID); err != nil {
			return batch.Persistence("get shift definition", err)
		}
		return nil
	}

	group, err := s.groups.GetByID(ctx, *a.RotationGroupID)
	if err != nil {
		return batch.Persistence("get rotation group", err)
	}
	_, err = shift.NewRotationPattern(group)
	return err
}

func (s *ServiceImpl) record(ctx context.Context, table, id string, action audit.Action, before, after any) error {
	err := s.audit.Record(ctx, audit.Entry{Table: table, RecordID: id, Action: action, Before: before, After: after})
	return batch.Persistence("record audit", err)
}

var _ shift.Service = (*ServiceImpl)(nil)
