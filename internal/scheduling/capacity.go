package scheduling

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// MaxHorizonDays bounds the calendar walk so a far-away exam date is reported instead of iterated.
const MaxHorizonDays = 3 * 366

// CapacityDay is a study day with a positive session budget.
type CapacityDay struct {
	Date        localdate.Date `json:"date"`
	Weekday     time.Weekday   `json:"weekday"`
	MaxSessions int            `json:"max_sessions"`
}

// CapacityRequest is the input tuple of the planner; it doubles as the cache key.
type CapacityRequest struct {
	Start           localdate.Date
	End             localdate.Date
	HoursPerWeekday models.WeeklyHours
	SessionMinutes  int
	WeekdaysOnly    bool
}

func (r CapacityRequest) key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%t", r.Start, r.End, r.SessionMinutes, r.WeekdaysOnly)
	days := make([]int, 0, len(r.HoursPerWeekday))
	for day := range r.HoursPerWeekday {
		days = append(days, int(day))
	}
	sort.Ints(days)
	for _, day := range days {
		fmt.Fprintf(&b, "|%d=%g", day, r.HoursPerWeekday[time.Weekday(day)])
	}
	return b.String()
}

// MaxSessionsFor converts daily hours into whole sessions.
func MaxSessionsFor(hours float64, sessionMinutes int) int {
	if hours <= 0 || sessionMinutes <= 0 {
		return 0
	}
	// the epsilon keeps 1.5h/30min from flooring to 2 because of float noise
	return int(math.Floor(hours*60/float64(sessionMinutes) + 1e-9))
}

// TotalCapacity sums the session budget of the given days.
func TotalCapacity(days []CapacityDay) int {
	total := 0
	for _, day := range days {
		total += day.MaxSessions
	}
	return total
}

// CapacityPlanner derives study days for a date range. A planner belongs to one generation run;
// its cache key carries no plan id, so it must never be shared between runs.
type CapacityPlanner struct {
	calc  *localdate.Calculator
	cache map[string][]CapacityDay
	hits  int
}

// NewCapacityPlanner returns a planner with an empty cache.
func NewCapacityPlanner(calc *localdate.Calculator) *CapacityPlanner {
	return &CapacityPlanner{calc: calc, cache: make(map[string][]CapacityDay)}
}

// CacheHits reports how many Plan calls were served from the cache.
func (p *CapacityPlanner) CacheHits() int { return p.hits }

// Plan returns the chronological capacity days in [Start, End] with MaxSessions > 0.
func (p *CapacityPlanner) Plan(req CapacityRequest) ([]CapacityDay, error) {
	if req.SessionMinutes <= 0 {
		return nil, &ConfigError{Field: "session_duration_minutes", Reason: "must be positive"}
	}
	if req.End.Before(req.Start) {
		return nil, &ConfigError{Field: "exam_date", Reason: fmt.Sprintf("range %s..%s is empty", req.Start, req.End)}
	}
	span := p.calc.DaysBetween(req.Start, req.End)
	if span > MaxHorizonDays {
		return nil, &ConfigError{Field: "exam_date", Reason: fmt.Sprintf("horizon of %d days exceeds the supported %d", span, MaxHorizonDays)}
	}

	key := req.key()
	if cached, ok := p.cache[key]; ok {
		p.hits++
		return cloneDays(cached), nil
	}

	days := make([]CapacityDay, 0, span+1)
	for offset := 0; offset <= span; offset++ {
		date := p.calc.AddDays(req.Start, offset)
		if req.WeekdaysOnly && !p.calc.IsWeekday(date) {
			continue
		}
		limit := MaxSessionsFor(req.HoursPerWeekday.HoursFor(date.Weekday()), req.SessionMinutes)
		if limit <= 0 {
			continue
		}
		days = append(days, CapacityDay{Date: date, Weekday: date.Weekday(), MaxSessions: limit})
	}
	if TotalCapacity(days) == 0 {
		return nil, &ConfigError{
			Field:  "study_hours_per_weekday",
			Reason: fmt.Sprintf("no study capacity between %s and %s", req.Start, req.End),
		}
	}

	p.cache[key] = days
	return cloneDays(days), nil
}

func cloneDays(days []CapacityDay) []CapacityDay {
	out := make([]CapacityDay, len(days))
	copy(out, days)
	return out
}

// CapacityCalendar answers per-date capacity lookups for an Agenda.
type CapacityCalendar struct {
	days  []CapacityDay
	index map[localdate.Date]int
}

// NewCapacityCalendar indexes the provided days.
func NewCapacityCalendar(days []CapacityDay) *CapacityCalendar {
	cal := &CapacityCalendar{days: cloneDays(days), index: make(map[localdate.Date]int, len(days))}
	for i, day := range cal.days {
		cal.index[day.Date] = i
	}
	return cal
}

// MaxSessions returns the budget for date, zero for non-study days.
func (c *CapacityCalendar) MaxSessions(date localdate.Date) int {
	if c == nil {
		return 0
	}
	if i, ok := c.index[date]; ok {
		return c.days[i].MaxSessions
	}
	return 0
}

// Days returns the indexed days in order.
func (c *CapacityCalendar) Days() []CapacityDay {
	return cloneDays(c.days)
}
