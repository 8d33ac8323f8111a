package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

func saturdayAgenda(t *testing.T, calc *localdate.Calculator, start, end string) *Agenda {
	t.Helper()
	days, err := NewCapacityPlanner(calc).Plan(CapacityRequest{
		Start:           day(start),
		End:             day(end),
		HoursPerWeekday: models.WeeklyHours{time.Saturday: 2},
		SessionMinutes:  60,
	})
	require.NoError(t, err)
	return NewAgenda(NewCapacityCalendar(days))
}

func scheduledDates(outcomes []ReviewOutcome) map[models.SessionType]string {
	out := make(map[models.SessionType]string)
	for _, o := range outcomes {
		if o.ScheduledOn != nil {
			out[o.Type] = o.ScheduledOn.String()
		} else {
			out[o.Type] = "skipped: " + o.Reason
		}
	}
	return out
}

func TestReviewSchedulerPlacesOnNextSaturday(t *testing.T) {
	calc := localdate.NewFixedCalculator(day("2025-01-02"))
	agenda := saturdayAgenda(t, calc, "2025-01-02", "2025-03-01")
	topic := completedTopic("c1", "Historia", "2025-01-01")

	outcomes := NewReviewScheduler(calc).Schedule(agenda, []models.Topic{topic}, nil, calc.Today(), day("2025-03-01"))
	require.Len(t, outcomes, 3)

	assert.Equal(t, "2025-01-08", outcomes[0].TargetDate.String())
	assert.Equal(t, "2025-01-15", outcomes[1].TargetDate.String())
	assert.Equal(t, "2025-01-29", outcomes[2].TargetDate.String())
	assert.Equal(t, map[models.SessionType]string{
		models.SessionTypeReview7D:  "2025-01-11",
		models.SessionTypeReview14D: "2025-01-18",
		models.SessionTypeReview28D: "2025-02-01",
	}, scheduledDates(outcomes))

	for i, o := range outcomes {
		require.NotNil(t, o.ScheduledOn)
		assert.True(t, calc.IsSaturday(*o.ScheduledOn))
		assert.False(t, o.ScheduledOn.Before(calc.AddDays(day("2025-01-01"), ReviewIntervals[i].Days)))
	}

	sessions := agenda.Sessions()
	require.Len(t, sessions, 3)
	for _, s := range sessions {
		assert.Equal(t, "c1", s.TopicID)
		require.NotNil(t, s.CompletionDate)
		assert.Equal(t, "2025-01-01", s.CompletionDate.String())
	}
}

func TestReviewSchedulerSkipsWhenSaturdaysAreFull(t *testing.T) {
	calc := localdate.NewFixedCalculator(day("2025-01-02"))
	agenda := saturdayAgenda(t, calc, "2025-01-02", "2025-03-01")
	agenda.Reserve(day("2025-01-11"), 2)
	agenda.Reserve(day("2025-01-18"), 2)

	outcomes := NewReviewScheduler(calc).Schedule(agenda, []models.Topic{completedTopic("c1", "Historia", "2025-01-01")}, nil, calc.Today(), day("2025-03-01"))
	dates := scheduledDates(outcomes)
	assert.Equal(t, "skipped: "+ReasonNoSaturdaySlot, dates[models.SessionTypeReview7D])
	// the 14-day search from 01-15 reaches 01-25
	assert.Equal(t, "2025-01-25", dates[models.SessionTypeReview14D])
	assert.Equal(t, "2025-02-01", dates[models.SessionTypeReview28D])
}

func TestReviewSchedulerSkipsOutsideHorizon(t *testing.T) {
	calc := localdate.NewFixedCalculator(day("2025-01-20"))
	agenda := saturdayAgenda(t, calc, "2025-01-20", "2025-03-01")
	outcomes := NewReviewScheduler(calc).Schedule(agenda, []models.Topic{completedTopic("c1", "Historia", "2025-01-01")}, nil, calc.Today(), day("2025-03-01"))
	dates := scheduledDates(outcomes)
	assert.Equal(t, "skipped: "+ReasonBeforeToday, dates[models.SessionTypeReview7D])
	assert.Equal(t, "skipped: "+ReasonBeforeToday, dates[models.SessionTypeReview14D])
	assert.Equal(t, "2025-02-01", dates[models.SessionTypeReview28D])

	calc = localdate.NewFixedCalculator(day("2025-01-02"))
	agenda = saturdayAgenda(t, calc, "2025-01-02", "2025-01-20")
	outcomes = NewReviewScheduler(calc).Schedule(agenda, []models.Topic{completedTopic("c1", "Historia", "2025-01-01")}, nil, calc.Today(), day("2025-01-20"))
	dates = scheduledDates(outcomes)
	assert.Equal(t, "2025-01-11", dates[models.SessionTypeReview7D])
	assert.Equal(t, "2025-01-18", dates[models.SessionTypeReview14D])
	assert.Equal(t, "skipped: "+ReasonAfterExam, dates[models.SessionTypeReview28D])
}

func TestReviewSchedulerStopsSearchAtExamDate(t *testing.T) {
	calc := localdate.NewFixedCalculator(day("2025-01-04"))
	agenda := saturdayAgenda(t, calc, "2025-01-04", "2025-01-31")
	outcomes := NewReviewScheduler(calc).Schedule(agenda, []models.Topic{completedTopic("c1", "Historia", "2025-01-03")}, nil, calc.Today(), day("2025-01-31"))
	dates := scheduledDates(outcomes)
	// 01-31 is a Friday; the following Saturday is past the exam
	assert.Equal(t, "skipped: "+ReasonNoSaturdaySlot, dates[models.SessionTypeReview28D])
	assert.Equal(t, "2025-01-11", dates[models.SessionTypeReview7D])
}

func TestReviewSchedulerSkipsAlreadyReviewedAndInvalidCompletion(t *testing.T) {
	calc := localdate.NewFixedCalculator(day("2025-01-02"))
	agenda := saturdayAgenda(t, calc, "2025-01-02", "2025-03-01")
	future := completedTopic("c2", "Historia", "2025-01-10")
	missing := completedTopic("c3", "Historia", "2025-01-01")
	missing.CompletionDate = nil

	reviewed := map[string]map[models.SessionType]bool{
		"c1": {models.SessionTypeReview7D: true},
	}
	outcomes := NewReviewScheduler(calc).Schedule(agenda,
		[]models.Topic{completedTopic("c1", "Historia", "2025-01-01"), future, missing},
		reviewed, calc.Today(), day("2025-03-01"))
	require.Len(t, outcomes, 9)

	byTopic := make(map[string][]ReviewOutcome)
	for _, o := range outcomes {
		byTopic[o.TopicID] = append(byTopic[o.TopicID], o)
	}
	assert.Equal(t, ReasonAlreadyReviewed, byTopic["c1"][0].Reason)
	assert.NotNil(t, byTopic["c1"][1].ScheduledOn)
	for _, o := range append(byTopic["c2"], byTopic["c3"]...) {
		assert.True(t, o.Skipped)
		assert.Equal(t, ReasonInvalidCompletion, o.Reason)
	}
}
