package validator

import (
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmployeeID(t *testing.T) {
	valid := []string{"EMP001", "EMP-001", "peg.17", "A_1"}
	invalid := []string{"", "emp 1", "x/../y"}
	for _, id := range valid {
		if !IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = true, want false", id)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	modes := []string{"skip", "overwrite", "error"}
	if !IsInSlice("overwrite", modes) {
		t.Errorf("IsInSlice(overwrite) = false, want true")
	}
	if IsInSlice("merge", modes) {
		t.Errorf("IsInSlice(merge) = true, want false")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "start_date", Message: "start_date is required"},
		{Field: "mode", Message: "mode is invalid"},
	}
	want := "start_date: start_date is required; mode: mode is invalid"
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
	m := errs.ToMap()
	if m["mode"] != "mode is invalid" {
		t.Errorf("ToMap()[mode] = %q", m["mode"])
	}
}

func TestValidationErrors_ClassifiedAsValidation(t *testing.T) {
	err := error(ValidationErrors{{Field: "date", Message: "date is required"}})
	if got := batch.Classify(err); got != batch.KindValidation {
		t.Errorf("Classify() = %q, want %q", got, batch.KindValidation)
	}
}
