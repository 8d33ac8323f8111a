package scheduling

import (
	"errors"
	"fmt"

	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// ErrDayFull is returned by Agenda.Add when the date has no spare capacity.
var ErrDayFull = errors.New("scheduling: day has no spare capacity")

// ConfigError reports a plan configuration that cannot produce a calendar.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// InfeasibleError reports demand above capacity with Reta Final mode disabled.
type InfeasibleError struct {
	PendingTopics int
	CapacitySlots int
}

// Deficit is the number of topics that do not fit.
func (e *InfeasibleError) Deficit() int {
	if e == nil {
		return 0
	}
	return e.PendingTopics - e.CapacitySlots
}

func (e *InfeasibleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("schedule infeasible: %d pending topics for %d slots (deficit %d); enable Reta Final mode to exclude lowest-priority topics",
		e.PendingTopics, e.CapacitySlots, e.Deficit())
}

// DistributionError means the distributor ran out of dates before placing every topic.
// Capacity planning and overflow resolution should make this unreachable.
type DistributionError struct {
	Placed    int
	Remaining int
	Horizon   localdate.Date
}

func (e *DistributionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("session distribution exhausted capacity before %s: placed %d, %d topics left without a slot",
		e.Horizon, e.Placed, e.Remaining)
}
