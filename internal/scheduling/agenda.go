package scheduling

import (
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// CapacityLookup tells the agenda how many sessions a date may hold.
type CapacityLookup interface {
	MaxSessions(date localdate.Date) int
}

// Session is an in-memory calendar entry produced by one generation run.
type Session struct {
	TopicID          string             `json:"topic_id"`
	SubjectID        string             `json:"subject_id"`
	SubjectName      string             `json:"subject_name"`
	TopicDescription string             `json:"topic_description"`
	Date             localdate.Date     `json:"date"`
	Type             models.SessionType `json:"type"`
	CombinedPriority int                `json:"combined_priority,omitempty"`
	CompletionDate   *localdate.Date    `json:"completion_date,omitempty"`
}

// Agenda is a date-ordered collection of sessions bounded by a capacity lookup.
type Agenda struct {
	capacity CapacityLookup
	dates    []localdate.Date
	sessions map[localdate.Date][]Session
	reserved map[localdate.Date]int
}

// NewAgenda returns an empty agenda backed by capacity.
func NewAgenda(capacity CapacityLookup) *Agenda {
	return &Agenda{
		capacity: capacity,
		sessions: make(map[localdate.Date][]Session),
		reserved: make(map[localdate.Date]int),
	}
}

// Reserve marks n slots on date as taken by sessions that are not part of this run
// (completed history). Reserved slots count toward capacity but are never emitted.
func (a *Agenda) Reserve(date localdate.Date, n int) {
	if n <= 0 {
		return
	}
	a.reserved[date] += n
}

// Reserved returns the preserved occupancy of date.
func (a *Agenda) Reserved(date localdate.Date) int {
	return a.reserved[date]
}

// Count returns the occupancy of date, reserved slots included.
func (a *Agenda) Count(date localdate.Date) int {
	return a.reserved[date] + len(a.sessions[date])
}

// Capacity returns the maximum number of sessions for date.
func (a *Agenda) Capacity(date localdate.Date) int {
	if a.capacity == nil {
		return 0
	}
	return a.capacity.MaxSessions(date)
}

// HasRoom reports whether one more session fits on date.
func (a *Agenda) HasRoom(date localdate.Date) bool {
	return a.Count(date) < a.Capacity(date)
}

// Spare returns the free slots on date.
func (a *Agenda) Spare(date localdate.Date) int {
	spare := a.Capacity(date) - a.Count(date)
	if spare < 0 {
		return 0
	}
	return spare
}

// Add appends a session to its date, refusing to exceed capacity.
func (a *Agenda) Add(session Session) error {
	if !a.HasRoom(session.Date) {
		return ErrDayFull
	}
	if _, ok := a.sessions[session.Date]; !ok {
		idx := sort.Search(len(a.dates), func(i int) bool { return !a.dates[i].Before(session.Date) })
		a.dates = append(a.dates, localdate.Date{})
		copy(a.dates[idx+1:], a.dates[idx:])
		a.dates[idx] = session.Date
	}
	a.sessions[session.Date] = append(a.sessions[session.Date], session)
	return nil
}

// Dates returns the dates holding at least one generated session, ascending.
func (a *Agenda) Dates() []localdate.Date {
	out := make([]localdate.Date, len(a.dates))
	copy(out, a.dates)
	return out
}

// SessionsOn returns the sessions generated for date in insertion order.
func (a *Agenda) SessionsOn(date localdate.Date) []Session {
	items := a.sessions[date]
	out := make([]Session, len(items))
	copy(out, items)
	return out
}

// Sessions flattens the agenda in date order.
func (a *Agenda) Sessions() []Session {
	out := make([]Session, 0, a.Len())
	for _, date := range a.dates {
		out = append(out, a.sessions[date]...)
	}
	return out
}

// Len returns the number of generated sessions.
func (a *Agenda) Len() int {
	total := 0
	for _, items := range a.sessions {
		total += len(items)
	}
	return total
}

// CountBySubject returns generated sessions per subject name.
func (a *Agenda) CountBySubject() map[string]int {
	out := make(map[string]int)
	for _, items := range a.sessions {
		for _, s := range items {
			out[s.SubjectName]++
		}
	}
	return out
}

// CountByType returns generated sessions per session type.
func (a *Agenda) CountByType() map[models.SessionType]int {
	out := make(map[models.SessionType]int)
	for _, items := range a.sessions {
		for _, s := range items {
			out[s.Type]++
		}
	}
	return out
}
