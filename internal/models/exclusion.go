package models

import "time"

// Exclusion records a pending topic dropped by Reta Final mode.
type Exclusion struct {
	ID               string    `db:"id" json:"id"`
	PlanID           string    `db:"plan_id" json:"plan_id"`
	TopicID          string    `db:"topic_id" json:"topic_id"`
	CombinedPriority int       `db:"combined_priority" json:"combined_priority"`
	Reason           string    `db:"reason" json:"reason"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
