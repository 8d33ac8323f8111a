package localdate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the only text representation used for civil dates.
const ISOLayout = "2006-01-02"

// Date is a civil calendar date without a time-of-day or zone.
// The zero value is not a valid date; use IsZero to detect it.
type Date struct {
	t time.Time
}

// New builds a Date from year/month/day, normalising overflow the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime takes the calendar date of t as observed in loc.
func FromTime(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return New(t.Year(), t.Month(), t.Day())
}

// Parse reads an ISO "YYYY-MM-DD" string.
func Parse(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(ISOLayout) {
		// tolerate timestamps coming back from DATE columns rendered as text
		raw = raw[:len(ISOLayout)]
	}
	t, err := time.Parse(ISOLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse local date %q: %w", raw, err)
	}
	return Date{t: t}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) Date {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month.
func (d Date) Month() time.Month { return d.t.Month() }

// Day returns the day of month.
func (d Date) Day() int { return d.t.Day() }

// Weekday returns the day of week.
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether both dates fall on the same day.
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.t.Before(other.t):
		return -1
	case d.t.After(other.t):
		return 1
	default:
		return 0
	}
}

// DaysUntil returns the signed number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	// both sides are UTC midnights, so the hour difference is always a multiple of 24
	return int(other.t.Sub(d.t).Hours() / 24)
}

// String renders the ISO form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(ISOLayout)
}

// Time returns midnight UTC of the date, for drivers that need a time.Time.
func (d Date) Time() time.Time { return d.t }

// Value stores the date as an ISO string.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan accepts DATE columns (time.Time) or ISO text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = New(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("localdate: unsupported Scan type %T", src)
	}
}

func (d *Date) scanString(raw string) error {
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON renders the ISO form, or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON parses the ISO form.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return d.scanString(raw)
}

// MarshalText lets Date be used as a map key in encoders.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (d *Date) UnmarshalText(b []byte) error {
	return d.scanString(string(b))
}
