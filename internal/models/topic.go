package models

import (
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// TopicStatus tracks whether a topic still needs a first study session.
type TopicStatus string

const (
	TopicStatusPending   TopicStatus = "PENDING"
	TopicStatusCompleted TopicStatus = "COMPLETED"
)

// DefaultTopicPriorityWeight applies when a topic has no explicit weight.
const DefaultTopicPriorityWeight = 3

// Topic is a unit of study joined with the subject fields the engine needs.
type Topic struct {
	ID             string          `db:"id" json:"id"`
	PlanID         string          `db:"plan_id" json:"plan_id"`
	SubjectID      string          `db:"subject_id" json:"subject_id"`
	SubjectName    string          `db:"subject_name" json:"subject_name"`
	SubjectWeight  int             `db:"subject_priority_weight" json:"subject_priority_weight"`
	Description    string          `db:"description" json:"description"`
	PriorityWeight int             `db:"priority_weight" json:"priority_weight"`
	Status         TopicStatus     `db:"status" json:"status"`
	CompletionDate *localdate.Date `db:"completion_date" json:"completion_date,omitempty"`
}

// EffectiveWeight returns the topic weight, applying the default for unset values.
func (t Topic) EffectiveWeight() int {
	if t.PriorityWeight <= 0 {
		return DefaultTopicPriorityWeight
	}
	return t.PriorityWeight
}

// IsCompleted reports whether the topic was finished and carries a completion date.
func (t Topic) IsCompleted() bool {
	return t.Status == TopicStatusCompleted && t.CompletionDate != nil && !t.CompletionDate.IsZero()
}
