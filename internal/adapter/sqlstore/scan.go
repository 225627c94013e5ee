package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/prasad758/timesheet-version-sub000/internal/week"
)

// storedTimeLayout is fixed-width so timestamps stored as text sort correctly.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

var timeLayouts = []string{
	storedTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	week.DateLayout,
}

// timeValue scans DATETIME/DATE columns from either driver: time.Time when the
// driver parses them, text otherwise. NULL leaves Valid false.
type timeValue struct {
	Time  time.Time
	Valid bool
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		v.Time, v.Valid = time.Time{}, false
		return nil
	case time.Time:
		v.Time, v.Valid = s.UTC(), true
		return nil
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	}
	return fmt.Errorf("sqlstore: cannot scan %T into time", src)
}

func (v *timeValue) parse(s string) error {
	t, err := parseStored(s)
	if err != nil {
		return err
	}
	v.Time, v.Valid = t.UTC(), true
	return nil
}

func parseStored(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("sqlstore: unrecognised time %q", s)
}

func (v timeValue) ptr() *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// dateValue is a calendar date; its time is midnight UTC. The day is read in
// the zone the driver reports it in, never converted: MySQL with loc=Local
// returns DATE '2024-01-15' as local midnight, which is still 2024-01-14 in UTC
// east of Greenwich.
type dateValue struct{ timeValue }

func (d *dateValue) Scan(src any) error {
	var t time.Time
	switch s := src.(type) {
	case nil:
		d.Time, d.Valid = time.Time{}, false
		return nil
	case time.Time:
		t = s
	case []byte:
		p, err := parseStored(string(s))
		if err != nil {
			return err
		}
		t = p
	case string:
		p, err := parseStored(s)
		if err != nil {
			return err
		}
		t = p
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into date", src)
	}
	y, m, day := t.Date()
	d.Time, d.Valid = time.Date(y, m, day, 0, 0, 0, 0, time.UTC), true
	return nil
}

func (d dateValue) date() time.Time { return week.Midnight(d.Time) }

// dateArg renders a calendar date parameter. Both dialects accept the ISO text
// form for DATE comparisons.
func dateArg(t time.Time) driver.Value { return week.FormatDate(t) }
