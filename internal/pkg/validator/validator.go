package validator

import (
	"regexp"
	"slices"
	"strings"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/batch"
)

type ValidationError struct {
	Field   string
	Message string
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

// Kind reports validation errors as such in batch results.
func (v ValidationErrors) Kind() batch.ErrorKind { return batch.KindValidation }

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Employee IDs are embedded in composite record keys such as ABS-{id}-{date}.
var employeeIDRegex = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

func IsValidEmployeeID(id string) bool {
	return employeeIDRegex.MatchString(id)
}

// Slice contains check
func IsInSlice(value string, slice []string) bool {
	return slices.Contains(slice, value)
}
