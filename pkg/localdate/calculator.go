package localdate

import (
	"time"
)

// DefaultZone is used when no zone is configured or the configured one cannot be loaded.
const DefaultZone = "America/Sao_Paulo"

// Calculator performs all civil-date arithmetic in a single fixed zone.
type Calculator struct {
	loc *time.Location
	now func() time.Time
}

// NewCalculator builds a calculator for the named IANA zone. Unknown zones fall back to UTC.
func NewCalculator(zone string) (*Calculator, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return &Calculator{loc: time.UTC, now: time.Now}, err
	}
	return &Calculator{loc: loc, now: time.Now}, nil
}

// NewFixedCalculator returns a calculator whose Today is pinned, for tests and offline runs.
func NewFixedCalculator(today Date) *Calculator {
	return &Calculator{
		loc: time.UTC,
		now: func() time.Time { return today.Time().Add(12 * time.Hour) },
	}
}

// Location exposes the configured zone.
func (c *Calculator) Location() *time.Location { return c.loc }

// Today returns the current civil date in the configured zone.
func (c *Calculator) Today() Date {
	return FromTime(c.now(), c.loc)
}

// AddDays shifts date by n days.
func (c *Calculator) AddDays(date Date, n int) Date {
	return date.AddDays(n)
}

// IsWeekday reports Monday through Friday.
func (c *Calculator) IsWeekday(date Date) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsSaturday reports whether the date is a Saturday.
func (c *Calculator) IsSaturday(date Date) bool {
	return date.Weekday() == time.Saturday
}

// FormatISO renders YYYY-MM-DD.
func (c *Calculator) FormatISO(date Date) string {
	return date.String()
}

// DaysBetween returns b - a in whole days.
func (c *Calculator) DaysBetween(a, b Date) int {
	return a.DaysUntil(b)
}

// NextSaturday returns the first Saturday on or after date.
func (c *Calculator) NextSaturday(date Date) Date {
	offset := (int(time.Saturday) - int(date.Weekday()) + 7) % 7
	return date.AddDays(offset)
}
