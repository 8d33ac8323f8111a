package scheduling

import (
	"fmt"
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// Default audit thresholds.
const (
	DefaultGapWarningDays       = 7
	DefaultGapCriticalDays      = 14
	DefaultRelocationWindowDays = 30
)

// AuditOptions carries the thresholds the auditor checks a persisted calendar against.
type AuditOptions struct {
	SessionMinutes  int
	HoursPerWeekday models.WeeklyHours
	// DailyCeilingMinutes overrides the per-weekday ceiling when positive.
	DailyCeilingMinutes int
	GapWarningDays      int
	GapCriticalDays     int
}

// AuditOptionsFor derives thresholds from a plan configuration.
func AuditOptionsFor(cfg models.StudyPlanConfig, ceilingMinutes, gapWarning, gapCritical int) AuditOptions {
	return AuditOptions{
		SessionMinutes:      cfg.SessionDurationMinutes,
		HoursPerWeekday:     cfg.StudyHoursPerWeekday,
		DailyCeilingMinutes: ceilingMinutes,
		GapWarningDays:      gapWarning,
		GapCriticalDays:     gapCritical,
	}
}

func (o AuditOptions) normalized() AuditOptions {
	if o.GapWarningDays <= 0 {
		o.GapWarningDays = DefaultGapWarningDays
	}
	if o.GapCriticalDays <= 0 {
		o.GapCriticalDays = DefaultGapCriticalDays
	}
	if o.GapCriticalDays < o.GapWarningDays {
		o.GapCriticalDays = o.GapWarningDays
	}
	return o
}

// CeilingFor returns the daily minute ceiling for date. Rest days stay at zero
// even when a ceiling override is set.
func (o AuditOptions) CeilingFor(date localdate.Date) int {
	if o.HoursPerWeekday.HoursFor(date.Weekday()) <= 0 {
		return 0
	}
	if o.DailyCeilingMinutes > 0 {
		return o.DailyCeilingMinutes
	}
	return int(o.HoursPerWeekday.HoursFor(date.Weekday())*60 + 1e-9)
}

// SlotsFor converts the ceiling of date to whole sessions.
func (o AuditOptions) SlotsFor(date localdate.Date) int {
	if o.SessionMinutes <= 0 {
		return 0
	}
	return o.CeilingFor(date) / o.SessionMinutes
}

// Auditor inspects persisted sessions for overloads, gaps and duplicates.
type Auditor struct {
	calc *localdate.Calculator
}

// NewAuditor binds an auditor to a date calculator.
func NewAuditor(calc *localdate.Calculator) *Auditor {
	return &Auditor{calc: calc}
}

// Detect returns overloads by date, then gaps by date, then duplicates by topic id.
func (a *Auditor) Detect(sessions []models.StudySession, opts AuditOptions) []models.ScheduleConflict {
	opts = opts.normalized()
	byDate := groupByDate(sessions)
	dates := sortedDates(byDate)

	conflicts := make([]models.ScheduleConflict, 0)
	conflicts = append(conflicts, a.overloads(byDate, dates, opts)...)
	conflicts = append(conflicts, a.gaps(dates, opts)...)
	conflicts = append(conflicts, duplicates(sessions)...)
	return conflicts
}

// Summarize fills the counters of report from its conflicts.
func Summarize(report *models.ConflictAuditReport) {
	report.Overloaded, report.Gaps, report.Duplicates, report.CriticalCount = 0, 0, 0, 0
	for _, c := range report.Conflicts {
		switch c.Type {
		case models.ConflictDateOverload:
			report.Overloaded++
		case models.ConflictLargeGap:
			report.Gaps++
		case models.ConflictDuplicateTopic:
			report.Duplicates++
		}
		if c.Severity == models.SeverityCritical {
			report.CriticalCount++
		}
	}
}

func (a *Auditor) overloads(byDate map[localdate.Date][]models.StudySession, dates []localdate.Date, opts AuditOptions) []models.ScheduleConflict {
	out := make([]models.ScheduleConflict, 0)
	for _, date := range dates {
		items := byDate[date]
		minutes := len(items) * opts.SessionMinutes
		ceiling := opts.CeilingFor(date)
		if minutes <= ceiling {
			continue
		}
		severity := models.SeverityWarning
		// critical above 1.5x the ceiling
		if ceiling == 0 || minutes*2 > ceiling*3 {
			severity = models.SeverityCritical
		}
		d := date
		out = append(out, models.ScheduleConflict{
			Type:           models.ConflictDateOverload,
			Severity:       severity,
			Date:           &d,
			SessionIDs:     sessionIDs(sortByDateThenID(items)),
			TotalMinutes:   minutes,
			CeilingMinutes: ceiling,
			Message:        fmt.Sprintf("%s holds %d minutes of study against a %d minute ceiling", a.calc.FormatISO(date), minutes, ceiling),
		})
	}
	return out
}

func (a *Auditor) gaps(dates []localdate.Date, opts AuditOptions) []models.ScheduleConflict {
	out := make([]models.ScheduleConflict, 0)
	for i := 1; i < len(dates); i++ {
		prev, next := dates[i-1], dates[i]
		gap := a.calc.DaysBetween(prev, next)
		if gap <= opts.GapWarningDays {
			continue
		}
		severity := models.SeverityWarning
		if gap > opts.GapCriticalDays {
			severity = models.SeverityCritical
		}
		start, end := prev, next
		out = append(out, models.ScheduleConflict{
			Type:     models.ConflictLargeGap,
			Severity: severity,
			Date:     &start,
			EndDate:  &end,
			GapDays:  gap,
			Message:  fmt.Sprintf("no sessions for %d days between %s and %s", gap, a.calc.FormatISO(prev), a.calc.FormatISO(next)),
		})
	}
	return out
}

func duplicates(sessions []models.StudySession) []models.ScheduleConflict {
	byTopic := make(map[string][]models.StudySession)
	for _, s := range sessions {
		if s.SessionType != models.SessionTypeNewTopic || s.TopicID == nil {
			continue
		}
		byTopic[*s.TopicID] = append(byTopic[*s.TopicID], s)
	}
	topics := make([]string, 0, len(byTopic))
	for id, items := range byTopic {
		if len(items) > 1 {
			topics = append(topics, id)
		}
	}
	sort.Strings(topics)

	out := make([]models.ScheduleConflict, 0, len(topics))
	for _, id := range topics {
		items := sortByDateThenID(byTopic[id])
		first := items[0].SessionDate
		out = append(out, models.ScheduleConflict{
			Type:       models.ConflictDuplicateTopic,
			Severity:   models.SeverityWarning,
			Date:       &first,
			TopicID:    id,
			SessionIDs: sessionIDs(items),
			Message:    fmt.Sprintf("topic %s has %d new-topic sessions", id, len(items)),
		})
	}
	return out
}

func groupByDate(sessions []models.StudySession) map[localdate.Date][]models.StudySession {
	out := make(map[localdate.Date][]models.StudySession)
	for _, s := range sessions {
		out[s.SessionDate] = append(out[s.SessionDate], s)
	}
	return out
}

func sortedDates[T any](byDate map[localdate.Date]T) []localdate.Date {
	dates := make([]localdate.Date, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func sortByDateThenID(items []models.StudySession) []models.StudySession {
	out := make([]models.StudySession, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].SessionDate.Compare(out[j].SessionDate); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sessionIDs(items []models.StudySession) []string {
	ids := make([]string, 0, len(items))
	for _, s := range items {
		ids = append(ids, s.ID)
	}
	return ids
}
