package postgresql

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/timeutil"
)

func dateArg(d timeutil.Date) time.Time {
	return d.Time()
}

func optDateArg(d *timeutil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

func fromDB(t time.Time) timeutil.Date {
	return timeutil.DateOf(t.UTC())
}

func optFromDB(t *time.Time) *timeutil.Date {
	if t == nil {
		return nil
	}
	d := fromDB(*t)
	return &d
}
