package dto

import "time"

// SessionQuery filters persisted sessions of a plan.
type SessionQuery struct {
	From   string `form:"from" validate:"omitempty,datetime=2006-01-02"`
	To     string `form:"to" validate:"omitempty,datetime=2006-01-02"`
	Type   string `form:"type" validate:"omitempty,oneof=NEW_TOPIC REVIEW_7D REVIEW_14D REVIEW_28D"`
	Status string `form:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
}

// ExportQuery selects the agenda export format.
type ExportQuery struct {
	SessionQuery
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}

// ReviewOutcomeView reports one spaced-repetition attempt.
type ReviewOutcomeView struct {
	TopicID        string  `json:"topicId"`
	SubjectName    string  `json:"subjectName"`
	Type           string  `json:"type"`
	CompletionDate string  `json:"completionDate"`
	TargetDate     string  `json:"targetDate"`
	ScheduledOn    *string `json:"scheduledOn,omitempty"`
	Skipped        bool    `json:"skipped"`
	Reason         string  `json:"reason,omitempty"`
}

// ExclusionView is a topic left out by Reta Final mode.
type ExclusionView struct {
	TopicID          string `json:"topicId"`
	SubjectName      string `json:"subjectName,omitempty"`
	Description      string `json:"description,omitempty"`
	CombinedPriority int    `json:"combinedPriority"`
	Reason           string `json:"reason"`
}

// SessionView is one agenda entry.
type SessionView struct {
	ID               string  `json:"id,omitempty"`
	Date             string  `json:"date"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	SubjectName      string  `json:"subjectName"`
	TopicID          *string `json:"topicId"`
	TopicDescription string  `json:"topicDescription"`
}

// GenerationSummary is the outcome of a generation run.
type GenerationSummary struct {
	PlanID                 string              `json:"planId"`
	GeneratedAt            time.Time           `json:"generatedAt"`
	Persisted              bool                `json:"persisted"`
	Today                  string              `json:"today"`
	ExamDate               string              `json:"examDate"`
	PendingTopics          int                 `json:"pendingTopics"`
	CompletedTopics        int                 `json:"completedTopics"`
	NewTopicCapacity       int                 `json:"newTopicCapacity"`
	SessionsCreated        int                 `json:"sessionsCreated"`
	NewTopicSessions       int                 `json:"newTopicSessions"`
	ReviewSessions         int                 `json:"reviewSessions"`
	ExclusionsCreated      int                 `json:"exclusionsCreated"`
	SessionsBySubject      map[string]int      `json:"sessionsBySubject"`
	RetaFinalApplied       bool                `json:"retaFinalApplied"`
	KeptSubjects           []string            `json:"keptSubjects"`
	Exclusions             []ExclusionView     `json:"exclusions"`
	Reviews                []ReviewOutcomeView `json:"reviews"`
	NulledTopicIDs         []string            `json:"nulledTopicIds,omitempty"`
	PendingSessionsRemoved int64               `json:"pendingSessionsRemoved"`
	RoundRobinBoundReached bool                `json:"roundRobinBoundReached"`
}

// SchedulePreview is a generation run that was not persisted.
type SchedulePreview struct {
	Summary  GenerationSummary `json:"summary"`
	Sessions []SessionView     `json:"sessions"`
}

// AuditJobAccepted acknowledges an asynchronous audit.
type AuditJobAccepted struct {
	JobID  string `json:"jobId"`
	PlanID string `json:"planId"`
}

// PageQuery optionally pages a listing. Zero values return everything.
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
