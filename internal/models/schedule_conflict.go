package models

import (
	"time"

	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// ConflictType classifies a problem found in a persisted calendar.
type ConflictType string

const (
	ConflictDateOverload   ConflictType = "DATE_OVERLOAD"
	ConflictLargeGap       ConflictType = "LARGE_GAP"
	ConflictDuplicateTopic ConflictType = "DUPLICATE_TOPIC"
)

// ConflictSeverity ranks conflicts.
type ConflictSeverity string

const (
	SeverityWarning  ConflictSeverity = "WARNING"
	SeverityCritical ConflictSeverity = "CRITICAL"
)

// ScheduleConflict describes one finding of the audit.
type ScheduleConflict struct {
	Type           ConflictType     `json:"type"`
	Severity       ConflictSeverity `json:"severity"`
	Date           *localdate.Date  `json:"date,omitempty"`
	EndDate        *localdate.Date  `json:"end_date,omitempty"`
	TopicID        string           `json:"topic_id,omitempty"`
	SessionIDs     []string         `json:"session_ids,omitempty"`
	TotalMinutes   int              `json:"total_minutes,omitempty"`
	CeilingMinutes int              `json:"ceiling_minutes,omitempty"`
	GapDays        int              `json:"gap_days,omitempty"`
	Message        string           `json:"message"`
}

// ConflictAuditReport aggregates the findings for one plan.
type ConflictAuditReport struct {
	PlanID        string             `json:"plan_id"`
	GeneratedAt   time.Time          `json:"generated_at"`
	SessionsSeen  int                `json:"sessions_seen"`
	Conflicts     []ScheduleConflict `json:"conflicts"`
	Overloaded    int                `json:"overloaded"`
	Gaps          int                `json:"gaps"`
	Duplicates    int                `json:"duplicates"`
	CriticalCount int                `json:"critical_count"`
}

// HasConflicts reports whether anything was found.
func (r *ConflictAuditReport) HasConflicts() bool {
	return r != nil && len(r.Conflicts) > 0
}

// ResolutionActionType names a repair step.
type ResolutionActionType string

const (
	ActionRemoveDuplicate ResolutionActionType = "REMOVE_DUPLICATE"
	ActionRelocate        ResolutionActionType = "RELOCATE"
)

// ResolutionStatus tells whether a repair step was applied.
type ResolutionStatus string

const (
	ResolutionResolved ResolutionStatus = "RESOLVED"
	ResolutionFailed   ResolutionStatus = "FAILED"
)

// ResolutionAction is a single repair attempt on one session.
type ResolutionAction struct {
	Type      ResolutionActionType `json:"type"`
	Conflict  ConflictType         `json:"conflict"`
	SessionID string               `json:"session_id"`
	TopicID   string               `json:"topic_id,omitempty"`
	From      localdate.Date       `json:"from"`
	To        *localdate.Date      `json:"to,omitempty"`
	Status    ResolutionStatus     `json:"status"`
	Reason    string               `json:"reason,omitempty"`
}

// ResolutionReport lists every attempted action and what is left afterwards.
type ResolutionReport struct {
	PlanID    string             `json:"plan_id"`
	Actions   []ResolutionAction `json:"actions"`
	Resolved  int                `json:"resolved"`
	Failed    int                `json:"failed"`
	Remaining []ScheduleConflict `json:"remaining"`
}
