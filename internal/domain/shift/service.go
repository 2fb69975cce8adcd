package shift

import "context"

type Service interface {
	// Catalog
	CreateDefinition(ctx context.Context, req CreateDefinitionRequest) (DefinitionResponse, error)
	ListDefinitions(ctx context.Context) ([]DefinitionResponse, error)
	CreateRotationGroup(ctx context.Context, req CreateRotationGroupRequest) (RotationGroupResponse, error)

	// Assignment
	AssignShift(ctx context.Context, req AssignShiftRequest) (AssignShiftResponse, error)

	// Shift Days
	GenerateShiftDays(ctx context.Context, req GenerateShiftDaysRequest) (GenerateShiftDaysResult, error)
	OverrideShiftDays(ctx context.Context, req OverrideShiftDaysRequest) (OverrideShiftDaysResult, error)
	DeleteShiftDays(ctx context.Context, req ShiftDayRangeRequest) (int64, error)
	ListShiftDays(ctx context.Context, req ShiftDayRangeRequest) ([]DayResponse, error)
}
