package timeutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const MinutesPerDay = 24 * 60

// ClockTime is a wall-clock time of day, in seconds since midnight.
type ClockTime int

func Clock(hour, minute int) ClockTime {
	return ClockTime(hour*3600 + minute*60)
}

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		// Postgres renders fractional seconds for TIME columns
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		values[i] = n
	}

	return ClockTime(values[0]*3600 + values[1]*60 + values[2]), nil
}

func MustParseClock(s string) ClockTime {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the whole minutes since midnight.
func (c ClockTime) Minutes() int {
	return int(c) / 60
}

func (c ClockTime) String() string {
	s := int(c)
	if s%60 == 0 {
		return fmt.Sprintf("%02d:%02d", s/3600, (s%3600)/60)
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// On returns the instant c falls on for date d in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	return d.Midnight(loc).Add(time.Duration(c) * time.Second)
}

// IsOvernight reports whether a shift from start to end wraps past midnight.
func IsOvernight(start, end ClockTime) bool {
	return end < start
}

// ShiftEndMinutes returns the end of a shift in minutes from the start day's
// midnight, adding a day when the shift wraps.
func ShiftEndMinutes(start, end ClockTime) int {
	m := end.Minutes()
	if IsOvernight(start, end) {
		m += MinutesPerDay
	}
	return m
}

// MinutesFrom returns the whole minutes elapsed from ref to t, rounded
// toward negative infinity.
func MinutesFrom(ref, t time.Time) int {
	d := t.Sub(ref)
	m := int(d / time.Minute)
	if d < 0 && d%time.Minute != 0 {
		m--
	}
	return m
}
