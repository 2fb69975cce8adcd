package timeutil

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day. It is stored at UTC
// midnight so arithmetic never crosses a DST boundary.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current date in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int                 { return d.t.Year() }
func (d Date) Month() time.Month         { return d.t.Month() }
func (d Date) Day() int                  { return d.t.Day() }
func (d Date) Weekday() time.Weekday     { return d.t.Weekday() }
func (d Date) IsZero() bool              { return d.t.IsZero() }
func (d Date) AddDays(n int) Date        { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date      { return Date{t: d.t.AddDate(0, n, 0)} }
func (d Date) Before(u Date) bool        { return d.t.Before(u.t) }
func (d Date) After(u Date) bool         { return d.t.After(u.t) }
func (d Date) Equal(u Date) bool         { return d.t.Equal(u.t) }
func (d Date) String() string            { return d.t.Format(dateLayout) }
func (d Date) Compact() string           { return d.t.Format("20060102") }
func (d Date) MonthKey() string          { return d.t.Format("200601") }
func (d Date) BeforeOrEqual(u Date) bool { return !d.After(u) }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Midnight returns the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// Time returns d as a UTC midnight timestamp, suitable for DATE columns.
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// FloorMod returns a mod n in [0, n) for any sign of a. n must be positive.
func FloorMod(a, n int) int {
	return ((a % n) + n) % n
}

func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

func EndOfMonth(d Date) Date {
	return StartOfMonth(d).AddMonths(1).AddDays(-1)
}

// DaysInRange returns every date from start to end, both inclusive.
func DaysInRange(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}
	days := make([]Date, 0, DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] share a date.
// A nil end is open-ended.
func Overlaps(aStart Date, aEnd *Date, bStart Date, bEnd *Date) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}

// UnmarshalText lets dates be read from environment variables.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
