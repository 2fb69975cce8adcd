// Package batch holds the result accumulator shared by the per-employee
// batch operations.
package batch

import (
	"errors"
	"fmt"
	"sync"
)

type ErrorKind string

const (
	KindValidation              ErrorKind = "validation"
	KindNotFound                ErrorKind = "not_found"
	KindConflict                ErrorKind = "conflict"
	KindFinalizedRecordConflict ErrorKind = "finalized_record_conflict"
	KindPersistence             ErrorKind = "persistence"
)

var (
	// ErrPersistence marks a collaborator failure. Callers may retry.
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
)

// Persistence wraps err so errors.Is(err, ErrPersistence) holds. Errors
// that already classify as a domain kind are returned unchanged.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) || Classify(err) != KindPersistence {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// UnitError describes one employee's failure inside a batch.
type UnitError struct {
	EmployeeID string    `json:"employee_id"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
}

func (e UnitError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.EmployeeID, e.Kind, e.Message)
}

// Collector gathers unit errors from concurrent workers.
type Collector struct {
	mu     sync.Mutex
	errors []UnitError
}

func (c *Collector) Add(employeeID string, kind ErrorKind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, UnitError{EmployeeID: employeeID, Kind: kind, Message: message})
}

// AddErr classifies err with Classify and records it.
func (c *Collector) AddErr(employeeID string, err error) {
	c.Add(employeeID, Classify(err), err.Error())
}

func (c *Collector) Errors() []UnitError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UnitError, len(c.errors))
	copy(out, c.errors)
	return out
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}

// Classifier lets domain errors report their own kind.
type Classifier interface {
	Kind() ErrorKind
}

// Classify maps an error to the kind reported in batch results.
func Classify(err error) ErrorKind {
	var c Classifier
	switch {
	case errors.As(err, &c):
		return c.Kind()
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindPersistence
	}
}

type kindError struct {
	kind ErrorKind
	msg  string
}

func (e *kindError) Error() string   { return e.msg }
func (e *kindError) Kind() ErrorKind { return e.kind }

// NewError returns a sentinel error that classifies as kind.
func NewError(kind ErrorKind, msg string) error {
	return &kindError{kind: kind, msg: msg}
}
