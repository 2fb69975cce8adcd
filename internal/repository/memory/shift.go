package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/shift"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

// =============================================================================
// SHIFT DEFINITIONS
// =============================================================================

type definitionRepository struct{ s *Store }

func (s *Store) ShiftDefinitions() shift.DefinitionRepository { return &definitionRepository{s: s} }

func (r *definitionRepository) Create(ctx context.Context, def shift.Definition) (shift.Definition, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.definitions {
		if strings.EqualFold(existing.Name, def.Name) {
			return shift.Definition{}, shift.ErrShiftNameExists
		}
	}
	if def.ID == "" {
		def.ID = newID()
	}
	def.CreatedAt = r.s.now()
	def.UpdatedAt = def.CreatedAt
	r.s.definitions[def.ID] = def
	onRollback(ctx, func() { delete(r.s.definitions, def.ID) })
	return def, nil
}

func (r *definitionRepository) GetByID(ctx context.Context, id string) (shift.Definition, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	def, ok := r.s.definitions[id]
	if !ok {
		return shift.Definition{}, shift.ErrShiftNotFound
	}
	return def, nil
}

func (r *definitionRepository) List(ctx context.Context) ([]shift.Definition, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]shift.Definition, 0, len(r.s.definitions))
	for _, def := range r.s.definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// ROTATION GROUPS
// =============================================================================

type rotationGroupRepository struct{ s *Store }

func (s *Store) RotationGroups() shift.RotationGroupRepository { return &rotationGroupRepository{s: s} }

func (r *rotationGroupRepository) Create(ctx context.Context, group shift.RotationGroup) (shift.RotationGroup, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range group.Entries {
		if _, ok := r.s.definitions[e.ShiftID]; !ok {
			return shift.RotationGroup{}, shift.ErrShiftNotFound
		}
	}
	if group.ID == "" {
		group.ID = newID()
	}
	group.Entries = slices.Clone(group.Entries)
	group.CreatedAt = r.s.now()
	group.UpdatedAt = group.CreatedAt
	r.s.groups[group.ID] = group
	onRollback(ctx, func() { delete(r.s.groups, group.ID) })
	return group, nil
}

func (r *rotationGroupRepository) GetByID(ctx context.Context, id string) (shift.RotationGroup, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	group, ok := r.s.groups[id]
	if !ok {
		return shift.RotationGroup{}, shift.ErrRotationGroupNotFound
	}
	group.Entries = slices.Clone(group.Entries)
	return group, nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type assignmentRepository struct{ s *Store }

func (s *Store) ShiftAssignments() shift.AssignmentRepository { return &assignmentRepository{s: s} }

func (r *assignmentRepository) Create(ctx context.Context, a shift.Assignment) (shift.Assignment, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ShiftID != nil {
		if _, ok := r.s.definitions[*a.ShiftID]; !ok {
			return shift.Assignment{}, shift.ErrShiftNotFound
		}
	}
	if a.RotationGroupID != nil {
		if _, ok := r.s.groups[*a.RotationGroupID]; !ok {
			return shift.Assignment{}, shift.ErrRotationGroupNotFound
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = r.s.now()
	a.UpdatedAt = a.CreatedAt
	r.s.assignments[a.ID] = a
	onRollback(ctx, func() { delete(r.s.assignments, a.ID) })
	return a, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (shift.Assignment, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.assignments[id]
	if !ok {
		return shift.Assignment{}, shift.ErrAssignmentNotFound
	}
	return a, nil
}

func (r *assignmentRepository) GetActive(ctx context.Context, employeeID string, date timeutil.Date) (shift.Assignment, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *shift.Assignment
	for _, a := range r.s.assignments {
		if a.EmployeeID != employeeID || !a.IsActive || !a.Covers(date) {
			continue
		}
		if found == nil || a.StartDate.After(found.StartDate) {
			found = &a
		}
	}
	if found == nil {
		return shift.Assignment{}, shift.ErrNoActiveAssignment
	}
	return *found, nil
}

func (r *assignmentRepository) ListActiveOverlapping(ctx context.Context, employeeID string, start timeutil.Date, end *timeutil.Date) ([]shift.Assignment, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []shift.Assignment
	for _, a := range r.s.assignments {
		if a.EmployeeID == employeeID && a.IsActive && a.Overlaps(start, end) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *assignmentRepository) ListAssignedEmployees(ctx context.Context, from, to timeutil.Date) ([]string, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, a := range r.s.assignments {
		if a.IsActive && a.Overlaps(from, &to) && !seen[a.EmployeeID] {
			seen[a.EmployeeID] = true
			out = append(out, a.EmployeeID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, id string) error {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.assignments[id]
	if !ok {
		return shift.ErrAssignmentNotFound
	}
	before := a
	a.IsActive = false
	a.UpdatedAt = r.s.now()
	r.s.assignments[id] = a
	onRollback(ctx, func() { r.s.assignments[id] = before })
	return nil
}

// =============================================================================
// SHIFT DAYS
// =============================================================================

type dayRepository struct{ s *Store }

func (s *Store) ShiftDays() shift.DayRepository { return &dayRepository{s: s} }

func (r *dayRepository) Insert(ctx context.Context, day shift.Day) (bool, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	k := dayKey{employeeID: day.EmployeeID, date: day.Date}
	if _, exists := r.s.days[k]; exists {
		return false, nil
	}
	if _, ok := r.s.definitions[day.ShiftID]; !ok {
		return false, shift.ErrShiftNotFound
	}
	day.CreatedAt = r.s.now()
	day.UpdatedAt = day.CreatedAt
	r.s.days[k] = day
	onRollback(ctx, func() { delete(r.s.days, k) })
	return true, nil
}

func (r *dayRepository) GetByEmployeeDate(ctx context.Context, employeeID string, date timeutil.Date) (shift.Day, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	day, ok := r.s.days[dayKey{employeeID: employeeID, date: date}]
	if !ok {
		return shift.Day{}, shift.ErrShiftDayNotFound
	}
	return day, nil
}

func (r *dayRepository) ListByEmployee(ctx context.Context, employeeID string, from, to timeutil.Date) ([]shift.Day, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []shift.Day
	for d := from; !d.After(to); d = d.AddDays(1) {
		if day, ok := r.s.days[dayKey{employeeID: employeeID, date: d}]; ok {
			out = append(out, day)
		}
	}
	return out, nil
}

func (r *dayRepository) ListByDate(ctx context.Context, date timeutil.Date) ([]shift.Day, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []shift.Day
	for k, day := range r.s.days {
		if k.date == date {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *dayRepository) DeleteRange(ctx context.Context, employeeID string, from, to timeutil.Date) (int64, error) {
	defer r.s.view(ctx)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var deleted int64
	for d := from; !d.After(to); d = d.AddDays(1) {
		k := dayKey{employeeID: employeeID, date: d}
		day, ok := r.s.days[k]
		if !ok {
			continue
		}
		delete(r.s.days, k)
		onRollback(ctx, func() { r.s.days[k] = day })
		deleted++
	}
	return deleted, nil
}

// =============================================================================
// WORK LOCATIONS
// =============================================================================

type locationRepository struct{ s *Store }

func (s *Store) WorkLocations() shift.LocationRepository { return &locationRepository{s: s} }

func (r *locationRepository) GetWorkLocation(ctx context.Context, employeeID string, date timeutil.Date) (*string, error) {
	defer r.s.view(ctx)()
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *workLocation
	for i := range r.s.locations {
		loc := &r.s.locations[i]
		if loc.employeeID != employeeID || !timeutil.Overlaps(loc.start, loc.end, date, &date) {
			continue
		}
		if found == nil || loc.start.After(found.start) {
			found = loc
		}
	}
	if found == nil {
		return nil, nil
	}
	id := found.locationID
	return &id, nil
}
