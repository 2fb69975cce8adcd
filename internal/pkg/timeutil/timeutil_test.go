package timeutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ClockTime
		wantErr bool
	}{
		{name: "hour and minute", input: "08:30", want: Clock(8, 30)},
		{name: "with seconds", input: "22:00:15", want: Clock(22, 0) + 15},
		{name: "postgres fractional seconds", input: "06:00:00.000000", want: Clock(6, 0)},
		{name: "midnight", input: "00:00", want: 0},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "missing minute", input: "10", wantErr: true},
		{name: "garbage", input: "ab:cd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockTime_String(t *testing.T) {
	assert.Equal(t, "08:05", Clock(8, 5).String())
	assert.Equal(t, "23:59:30", (Clock(23, 59) + 30).String())
}

func TestShiftEndMinutes(t *testing.T) {
	assert.Equal(t, 17*60, ShiftEndMinutes(Clock(8, 0), Clock(17, 0)))
	assert.Equal(t, 1440+6*60, ShiftEndMinutes(Clock(22, 0), Clock(6, 0)))
	assert.False(t, IsOvernight(Clock(8, 0), Clock(8, 0)))
}

func TestMinutesFrom(t *testing.T) {
	ref := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 90, MinutesFrom(ref, ref.Add(90*time.Minute+59*time.Second)))
	assert.Equal(t, -1, MinutesFrom(ref, ref.Add(-30*time.Second)))
	assert.Equal(t, 1440+360, MinutesFrom(ref, ref.Add(30*time.Hour)))
}

func TestDaysBetweenAndFloorMod(t *testing.T) {
	epoch := NewDate(2024, time.January, 1)

	assert.Equal(t, 0, DaysBetween(epoch, epoch))
	assert.Equal(t, 31, DaysBetween(epoch, NewDate(2024, time.February, 1)))
	assert.Equal(t, -1, DaysBetween(epoch, NewDate(2023, time.December, 31)))

	assert.Equal(t, 6, FloorMod(-1, 7))
	assert.Equal(t, 0, FloorMod(14, 7))
	assert.Equal(t, 3, FloorMod(10, 7))
}

func TestMonthBounds(t *testing.T) {
	d := NewDate(2024, time.February, 17)

	assert.Equal(t, NewDate(2024, time.February, 1), StartOfMonth(d))
	assert.Equal(t, NewDate(2024, time.February, 29), EndOfMonth(d))
	assert.Equal(t, NewDate(2023, time.December, 31), EndOfMonth(NewDate(2023, time.December, 1)))
}

func TestDaysInRange(t *testing.T) {
	days := DaysInRange(NewDate(2024, time.February, 27), NewDate(2024, time.March, 2))
	require.Len(t, days, 5)
	assert.Equal(t, "2024-02-29", days[2].String())

	assert.Empty(t, DaysInRange(NewDate(2024, time.March, 2), NewDate(2024, time.March, 1)))
}

func TestOverlaps(t *testing.T) {
	jan1 := NewDate(2024, time.January, 1)
	jan31 := NewDate(2024, time.January, 31)
	feb1 := NewDate(2024, time.February, 1)

	assert.True(t, Overlaps(jan1, nil, feb1, nil))
	assert.True(t, Overlaps(jan1, &jan31, jan31, nil))
	assert.False(t, Overlaps(jan1, &jan31, feb1, nil))
	assert.False(t, Overlaps(feb1, nil, jan1, &jan31))
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.May, 9)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-09"`, string(b))

	var parsed Date
	require.NoError(t, json.Unmarshal(b, &parsed))
	assert.Equal(t, d, parsed)

	assert.Error(t, json.Unmarshal([]byte(`"2024-13-01"`), &parsed))
}

func TestDate_Midnight(t *testing.T) {
	loc := time.FixedZone("WITA", 8*3600)
	m := NewDate(2024, time.May, 9).Midnight(loc)

	assert.Equal(t, "2024-05-08T16:00:00Z", m.UTC().Format(time.RFC3339))
	assert.Equal(t, NewDate(2024, time.May, 9), DateOf(m))
}
