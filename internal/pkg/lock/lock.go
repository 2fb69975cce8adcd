// Package lock serializes work on a key, such as one employee's attendance
// for one date.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker acquires an exclusive lock on key. The returned release function
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Keys used by the engine.
func EmployeeDateKey(employeeID, date string) string {
	return "attendance:" + employeeID + ":" + date
}

func MonthKey(month string) string {
	return "overtime:" + month
}

func ShiftDayKey(employeeID string) string {
	return "shiftday:" + employeeID
}
