package scheduling

import (
	"fmt"
	"time"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

func day(raw string) localdate.Date { return localdate.MustParse(raw) }

func pendingTopic(id, subject string, subjectWeight, weight int) models.Topic {
	return models.Topic{
		ID:             id,
		SubjectID:      "subj-" + subject,
		SubjectName:    subject,
		SubjectWeight:  subjectWeight,
		Description:    "topic " + id,
		PriorityWeight: weight,
		Status:         models.TopicStatusPending,
	}
}

func completedTopic(id, subject string, completion string) models.Topic {
	t := pendingTopic(id, subject, 1, 3)
	t.Status = models.TopicStatusCompleted
	d := day(completion)
	t.CompletionDate = &d
	return t
}

// fortyTopics builds 20 topics for a weight-2 subject and 20 for a weight-1 subject with varying
// topic weights.
func fortyTopics() []models.Topic {
	topics := make([]models.Topic, 0, 40)
	for i := 0; i < 20; i++ {
		topics = append(topics, pendingTopic(fmt.Sprintf("mat-%02d", i), "Matematica", 2, i%5+1))
		topics = append(topics, pendingTopic(fmt.Sprintf("por-%02d", i), "Portugues", 1, i%5+1))
	}
	return topics
}

func everyDay(hours float64) models.WeeklyHours {
	w := models.WeeklyHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		w[d] = hours
	}
	return w
}

func weekdays(hours float64) models.WeeklyHours {
	w := models.WeeklyHours{}
	for d := time.Monday; d <= time.Friday; d++ {
		w[d] = hours
	}
	return w
}

func pendingSession(id, topicID, date string, typ models.SessionType) models.StudySession {
	s := models.StudySession{
		ID:          id,
		PlanID:      "plan-1",
		SubjectName: "Matematica",
		SessionDate: day(date),
		SessionType: typ,
		Status:      models.SessionStatusPending,
	}
	if topicID != "" {
		tid := topicID
		s.TopicID = &tid
	}
	return s
}

func completedSession(id, topicID, date string, typ models.SessionType) models.StudySession {
	s := pendingSession(id, topicID, date, typ)
	s.Status = models.SessionStatusCompleted
	return s
}
