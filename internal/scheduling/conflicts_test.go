package scheduling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

func auditFixture() []models.StudySession {
	return []models.StudySession{
		pendingSession("s1", "t1", "2025-01-06", models.SessionTypeNewTopic),
		pendingSession("s2", "t2", "2025-01-06", models.SessionTypeNewTopic),
		pendingSession("s3", "t3", "2025-01-06", models.SessionTypeReview7D),
		pendingSession("s4", "t4", "2025-01-14", models.SessionTypeNewTopic),
		pendingSession("s5", "t5", "2025-01-14", models.SessionTypeNewTopic),
		pendingSession("s6", "t6", "2025-01-14", models.SessionTypeNewTopic),
		pendingSession("s9", "t1", "2025-01-14", models.SessionTypeNewTopic),
		pendingSession("s7", "t7", "2025-01-30", models.SessionTypeNewTopic),
		completedSession("s8", "t2", "2025-01-30", models.SessionTypeReview7D),
	}
}

func TestAuditorDetect(t *testing.T) {
	auditor := NewAuditor(localdate.NewFixedCalculator(day("2025-01-06")))
	conflicts := auditor.Detect(auditFixture(), AuditOptions{SessionMinutes: 60, HoursPerWeekday: everyDay(2)})
	require.Len(t, conflicts, 5)

	assert.Equal(t, models.ConflictDateOverload, conflicts[0].Type)
	assert.Equal(t, models.SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, "2025-01-06", conflicts[0].Date.String())
	assert.Equal(t, 180, conflicts[0].TotalMinutes)
	assert.Equal(t, 120, conflicts[0].CeilingMinutes)
	assert.Equal(t, []string{"s1", "s2", "s3"}, conflicts[0].SessionIDs)

	assert.Equal(t, models.ConflictDateOverload, conflicts[1].Type)
	assert.Equal(t, models.SeverityCritical, conflicts[1].Severity)
	assert.Equal(t, 240, conflicts[1].TotalMinutes)

	assert.Equal(t, models.ConflictLargeGap, conflicts[2].Type)
	assert.Equal(t, models.SeverityWarning, conflicts[2].Severity)
	assert.Equal(t, 8, conflicts[2].GapDays)
	assert.Equal(t, "2025-01-14", conflicts[2].EndDate.String())

	assert.Equal(t, models.ConflictLargeGap, conflicts[3].Type)
	assert.Equal(t, models.SeverityCritical, conflicts[3].Severity)
	assert.Equal(t, 16, conflicts[3].GapDays)

	assert.Equal(t, models.ConflictDuplicateTopic, conflicts[4].Type)
	assert.Equal(t, "t1", conflicts[4].TopicID)
	assert.Equal(t, []string{"s1", "s9"}, conflicts[4].SessionIDs)

	report := &models.ConflictAuditReport{Conflicts: conflicts}
	Summarize(report)
	assert.Equal(t, 2, report.Overloaded)
	assert.Equal(t, 2, report.Gaps)
	assert.Equal(t, 1, report.Duplicates)
	assert.Equal(t, 2, report.CriticalCount)
	assert.True(t, report.HasConflicts())
}

func TestAuditorDetectHonoursCeilingOverride(t *testing.T) {
	auditor := NewAuditor(localdate.NewFixedCalculator(day("2025-01-06")))
	conflicts := auditor.Detect(auditFixture(), AuditOptions{
		SessionMinutes:      60,
		HoursPerWeekday:     everyDay(2),
		DailyCeilingMinutes: 300,
		GapWarningDays:      20,
		GapCriticalDays:     30,
	})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictDuplicateTopic, conflicts[0].Type)
}

func TestAuditorDetectFlagsSessionsOnRestDays(t *testing.T) {
	auditor := NewAuditor(localdate.NewFixedCalculator(day("2025-01-06")))
	conflicts := auditor.Detect([]models.StudySession{
		pendingSession("s1", "t1", "2025-01-12", models.SessionTypeNewTopic),
	}, AuditOptions{SessionMinutes: 30, HoursPerWeekday: weekdays(2)})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, 0, conflicts[0].CeilingMinutes)
}

func TestAuditorDetectCeilingOverrideKeepsRestDaysClosed(t *testing.T) {
	auditor := NewAuditor(localdate.NewFixedCalculator(day("2025-01-06")))
	opts := AuditOptions{SessionMinutes: 30, HoursPerWeekday: weekdays(2), DailyCeilingMinutes: 240}
	assert.Equal(t, 240, opts.CeilingFor(day("2025-01-10")))
	assert.Equal(t, 0, opts.SlotsFor(day("2025-01-11")))

	conflicts := auditor.Detect([]models.StudySession{
		pendingSession("s1", "t1", "2025-01-11", models.SessionTypeNewTopic),
	}, opts)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictDateOverload, conflicts[0].Type)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
}

func TestAuditorDetectCleanCalendar(t *testing.T) {
	auditor := NewAuditor(localdate.NewFixedCalculator(day("2025-01-06")))
	report := &models.ConflictAuditReport{Conflicts: auditor.Detect([]models.StudySession{
		pendingSession("s1", "t1", "2025-01-06", models.SessionTypeNewTopic),
		pendingSession("s2", "t2", "2025-01-08", models.SessionTypeNewTopic),
		pendingSession("s3", "", "2025-01-08", models.SessionTypeNewTopic),
	}, AuditOptions{SessionMinutes: 60, HoursPerWeekday: everyDay(2)})}
	Summarize(report)
	assert.False(t, report.HasConflicts())
	assert.Zero(t, report.CriticalCount)
}
