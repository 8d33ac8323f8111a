package scheduling

import (
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// DistributeTopics places one NewTopic session per topic, in order, on the first capacity day at
// or after the cursor with spare room. The cursor only moves forward. Running out of days returns a
// *DistributionError carrying what was placed so far.
func DistributeTopics(agenda *Agenda, topics []models.Topic, days []CapacityDay, start localdate.Date) (int, error) {
	cursor := 0
	for cursor < len(days) && days[cursor].Date.Before(start) {
		cursor++
	}

	placed := 0
	for i, topic := range topics {
		for cursor < len(days) && !dayHasRoom(agenda, days[cursor]) {
			cursor++
		}
		if cursor >= len(days) {
			return placed, &DistributionError{Placed: placed, Remaining: len(topics) - i, Horizon: horizonOf(days, start)}
		}
		err := agenda.Add(Session{
			TopicID:          topic.ID,
			SubjectID:        topic.SubjectID,
			SubjectName:      topic.SubjectName,
			TopicDescription: topic.Description,
			Date:             days[cursor].Date,
			Type:             models.SessionTypeNewTopic,
			CombinedPriority: CombinedPriority(topic),
		})
		if err != nil {
			return placed, &DistributionError{Placed: placed, Remaining: len(topics) - i, Horizon: horizonOf(days, start)}
		}
		placed++
	}
	return placed, nil
}

// a day is usable only when both its own budget and the agenda lookup agree there is room
func dayHasRoom(agenda *Agenda, day CapacityDay) bool {
	return agenda.Count(day.Date) < day.MaxSessions && agenda.HasRoom(day.Date)
}

func horizonOf(days []CapacityDay, fallback localdate.Date) localdate.Date {
	if len(days) == 0 {
		return fallback
	}
	return days[len(days)-1].Date
}
