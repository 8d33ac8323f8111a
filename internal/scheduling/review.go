package scheduling

import (
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// ReviewInterval pairs a post-completion offset with the session type it produces.
type ReviewInterval struct {
	Days int
	Type models.SessionType
}

// ReviewIntervals are fixed for every completed topic regardless of subject.
var ReviewIntervals = []ReviewInterval{
	{Days: 7, Type: models.SessionTypeReview7D},
	{Days: 14, Type: models.SessionTypeReview14D},
	{Days: 28, Type: models.SessionTypeReview28D},
}

// SaturdaySearchDays bounds the forward search for a Saturday slot, target date included.
const SaturdaySearchDays = 14

// Skip reasons reported for reviews that were not scheduled.
const (
	ReasonBeforeToday       = "target date before today"
	ReasonAfterExam         = "target date after exam date"
	ReasonNoSaturdaySlot    = "no Saturday slot"
	ReasonAlreadyReviewed   = "already reviewed"
	ReasonInvalidCompletion = "completion date missing or in the future"
)

// ReviewOutcome records what happened to one review target.
type ReviewOutcome struct {
	TopicID        string             `json:"topic_id"`
	SubjectName    string             `json:"subject_name"`
	Type           models.SessionType `json:"type"`
	CompletionDate localdate.Date     `json:"completion_date"`
	TargetDate     localdate.Date     `json:"target_date"`
	ScheduledOn    *localdate.Date    `json:"scheduled_on,omitempty"`
	Skipped        bool               `json:"skipped"`
	Reason         string             `json:"reason,omitempty"`
}

// ReviewScheduler inserts spaced-repetition reviews into an agenda.
type ReviewScheduler struct {
	calc *localdate.Calculator
}

// NewReviewScheduler binds the scheduler to a date calculator.
func NewReviewScheduler(calc *localdate.Calculator) *ReviewScheduler {
	return &ReviewScheduler{calc: calc}
}

// Schedule computes the +7/+14/+28 reviews of every completed topic and places each on the first
// Saturday with spare capacity within SaturdaySearchDays of its target. reviewed lists review types
// already completed per topic id; those are skipped.
func (r *ReviewScheduler) Schedule(
	agenda *Agenda,
	completed []models.Topic,
	reviewed map[string]map[models.SessionType]bool,
	today, examDate localdate.Date,
) []ReviewOutcome {
	topics := make([]models.Topic, len(completed))
	copy(topics, completed)
	sort.SliceStable(topics, func(i, j int) bool {
		ci, cj := completionOf(topics[i]), completionOf(topics[j])
		if c := ci.Compare(cj); c != 0 {
			return c < 0
		}
		return topics[i].ID < topics[j].ID
	})

	outcomes := make([]ReviewOutcome, 0, len(topics)*len(ReviewIntervals))
	for _, topic := range topics {
		completion := completionOf(topic)
		for _, interval := range ReviewIntervals {
			outcome := ReviewOutcome{
				TopicID:        topic.ID,
				SubjectName:    topic.SubjectName,
				Type:           interval.Type,
				CompletionDate: completion,
			}
			if completion.IsZero() || completion.After(today) {
				outcome.Skipped = true
				outcome.Reason = ReasonInvalidCompletion
				outcomes = append(outcomes, outcome)
				continue
			}
			target := r.calc.AddDays(completion, interval.Days)
			outcome.TargetDate = target

			switch {
			case reviewed[topic.ID][interval.Type]:
				outcome.Skipped, outcome.Reason = true, ReasonAlreadyReviewed
			case target.Before(today):
				outcome.Skipped, outcome.Reason = true, ReasonBeforeToday
			case target.After(examDate):
				outcome.Skipped, outcome.Reason = true, ReasonAfterExam
			default:
				slot, ok := r.findSaturday(agenda, target, examDate)
				if !ok {
					outcome.Skipped, outcome.Reason = true, ReasonNoSaturdaySlot
					break
				}
				session := Session{
					TopicID:          topic.ID,
					SubjectID:        topic.SubjectID,
					SubjectName:      topic.SubjectName,
					TopicDescription: topic.Description,
					Date:             slot,
					Type:             interval.Type,
					CombinedPriority: CombinedPriority(topic),
					CompletionDate:   &completion,
				}
				if err := agenda.Add(session); err != nil {
					outcome.Skipped, outcome.Reason = true, ReasonNoSaturdaySlot
					break
				}
				scheduled := slot
				outcome.ScheduledOn = &scheduled
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

func (r *ReviewScheduler) findSaturday(agenda *Agenda, target, examDate localdate.Date) (localdate.Date, bool) {
	for offset := 0; offset < SaturdaySearchDays; offset++ {
		candidate := r.calc.AddDays(target, offset)
		if candidate.After(examDate) {
			return localdate.Date{}, false
		}
		if r.calc.IsSaturday(candidate) && agenda.HasRoom(candidate) {
			return candidate, true
		}
	}
	return localdate.Date{}, false
}

func completionOf(topic models.Topic) localdate.Date {
	if topic.CompletionDate == nil {
		return localdate.Date{}
	}
	return *topic.CompletionDate
}
