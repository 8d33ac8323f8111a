package models

import (
	"time"

	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// SessionType identifies why a session exists.
type SessionType string

const (
	SessionTypeNewTopic  SessionType = "NEW_TOPIC"
	SessionTypeReview7D  SessionType = "REVIEW_7D"
	SessionTypeReview14D SessionType = "REVIEW_14D"
	SessionTypeReview28D SessionType = "REVIEW_28D"
)

// IsReview reports whether the type is one of the spaced-repetition reviews.
func (t SessionType) IsReview() bool {
	return t == SessionTypeReview7D || t == SessionTypeReview14D || t == SessionTypeReview28D
}

// Valid reports whether the type is known.
func (t SessionType) Valid() bool {
	return t == SessionTypeNewTopic || t.IsReview()
}

// SessionStatus tracks user progress on a session.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "PENDING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
)

// StudySession is a persisted row of the study calendar. Subject and topic text are snapshots.
type StudySession struct {
	ID               string         `db:"id" json:"id"`
	PlanID           string         `db:"plan_id" json:"plan_id"`
	TopicID          *string        `db:"topic_id" json:"topic_id"`
	SubjectName      string         `db:"subject_name" json:"subject_name"`
	TopicDescription string         `db:"topic_description" json:"topic_description"`
	SessionDate      localdate.Date `db:"session_date" json:"session_date"`
	SessionType      SessionType    `db:"session_type" json:"session_type"`
	Status           SessionStatus  `db:"status" json:"status"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// TopicRef returns the topic id or an empty string for detached sessions.
func (s StudySession) TopicRef() string {
	if s.TopicID == nil {
		return ""
	}
	return *s.TopicID
}

// StudySessionFilter narrows session listings.
type StudySessionFilter struct {
	PlanID string
	From   *localdate.Date
	To     *localdate.Date
	Type   SessionType
	Status SessionStatus
}
