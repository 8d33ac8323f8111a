package scheduling

import (
	"fmt"
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// Failure reasons for resolution actions that cannot be applied.
const (
	ReasonCompletedUntouchable = "completed sessions are never modified"
	ReasonNoRelocationSlot     = "no date with spare capacity inside the relocation window"
	ReasonOnlyCompletedLeft    = "remaining overload consists of completed sessions"
)

// ResolutionOptions bounds the repair pass.
type ResolutionOptions struct {
	AuditOptions
	WindowDays int
	Today      localdate.Date
	ExamDate   localdate.Date
}

// PlanResolutions decides, without side effects, how duplicate and overloaded days are repaired.
// Duplicates are handled first so that their removal frees capacity before relocation. Actions
// returned with status RESOLVED still have to be applied by the caller; FAILED actions cannot be.
func (a *Auditor) PlanResolutions(sessions []models.StudySession, opts ResolutionOptions) []models.ResolutionAction {
	opts.AuditOptions = opts.AuditOptions.normalized()
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultRelocationWindowDays
	}

	removed := make(map[string]bool)
	occupancy := make(map[localdate.Date]int)
	for _, s := range sessions {
		occupancy[s.SessionDate]++
	}

	actions := make([]models.ResolutionAction, 0)
	for _, conflict := range duplicates(sessions) {
		items := sessionsByID(sessions, conflict.SessionIDs)
		for _, extra := range items[1:] {
			action := models.ResolutionAction{
				Type:      models.ActionRemoveDuplicate,
				Conflict:  models.ConflictDuplicateTopic,
				SessionID: extra.ID,
				TopicID:   conflict.TopicID,
				From:      extra.SessionDate,
			}
			if extra.Status == models.SessionStatusCompleted {
				action.Status, action.Reason = models.ResolutionFailed, ReasonCompletedUntouchable
			} else {
				action.Status = models.ResolutionResolved
				removed[extra.ID] = true
				occupancy[extra.SessionDate]--
			}
			actions = append(actions, action)
		}
	}

	byDate := make(map[localdate.Date][]models.StudySession)
	for _, s := range sessions {
		if !removed[s.ID] {
			byDate[s.SessionDate] = append(byDate[s.SessionDate], s)
		}
	}
	for _, date := range sortedDates(byDate) {
		slots := opts.SlotsFor(date)
		excess := occupancy[date] - slots
		if excess <= 0 {
			continue
		}
		candidates := relocationCandidates(byDate[date])
		for i := 0; i < excess; i++ {
			if i >= len(candidates) {
				actions = append(actions, models.ResolutionAction{
					Type:     models.ActionRelocate,
					Conflict: models.ConflictDateOverload,
					From:     date,
					Status:   models.ResolutionFailed,
					Reason:   ReasonOnlyCompletedLeft,
				})
				break
			}
			session := candidates[i]
			action := models.ResolutionAction{
				Type:      models.ActionRelocate,
				Conflict:  models.ConflictDateOverload,
				SessionID: session.ID,
				TopicID:   session.TopicRef(),
				From:      date,
			}
			target, ok := a.findRelocation(date, occupancy, opts)
			if !ok {
				action.Status = models.ResolutionFailed
				action.Reason = fmt.Sprintf("%s (%d days)", ReasonNoRelocationSlot, opts.WindowDays)
				actions = append(actions, action)
				continue
			}
			occupancy[date]--
			occupancy[target]++
			to := target
			action.To = &to
			action.Status = models.ResolutionResolved
			actions = append(actions, action)
		}
	}
	return actions
}

func (a *Auditor) findRelocation(from localdate.Date, occupancy map[localdate.Date]int, opts ResolutionOptions) (localdate.Date, bool) {
	start := a.calc.AddDays(from, 1)
	if !opts.Today.IsZero() && start.Before(opts.Today) {
		start = opts.Today
	}
	for offset := 0; offset < opts.WindowDays; offset++ {
		candidate := a.calc.AddDays(start, offset)
		if !opts.ExamDate.IsZero() && candidate.After(opts.ExamDate) {
			break
		}
		if occupancy[candidate] < opts.SlotsFor(candidate) {
			return candidate, true
		}
	}
	return localdate.Date{}, false
}

// relocationCandidates returns the pending sessions of one day, new-topic sessions first and
// later ids before earlier ones.
func relocationCandidates(items []models.StudySession) []models.StudySession {
	out := make([]models.StudySession, 0, len(items))
	for _, s := range items {
		if s.Status != models.SessionStatusCompleted {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni := out[i].SessionType == models.SessionTypeNewTopic
		nj := out[j].SessionType == models.SessionTypeNewTopic
		if ni != nj {
			return ni
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func sessionsByID(sessions []models.StudySession, ids []string) []models.StudySession {
	index := make(map[string]models.StudySession, len(sessions))
	for _, s := range sessions {
		index[s.ID] = s
	}
	out := make([]models.StudySession, 0, len(ids))
	for _, id := range ids {
		if s, ok := index[id]; ok {
			out = append(out, s)
		}
	}
	return out
}
