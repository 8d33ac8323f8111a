package scheduling

import (
	"fmt"
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// ExcludedTopic is a pending topic left out by Reta Final mode.
type ExcludedTopic struct {
	Topic            models.Topic `json:"topic"`
	CombinedPriority int          `json:"combined_priority"`
	Reason           string       `json:"reason"`
}

// OverflowDecision splits pending topics into scheduled and excluded sets.
type OverflowDecision struct {
	Scheduled    []models.Topic  `json:"scheduled"`
	Excluded     []ExcludedTopic `json:"excluded"`
	KeptSubjects []string        `json:"kept_subjects"`
	Applied      bool            `json:"applied"`
}

// ResolveOverflow decides which prioritized topics fit into capacity slots.
// When everything fits the input is returned unchanged with no exclusions. Otherwise, with
// Reta Final disabled an *InfeasibleError is returned; with it enabled the full set is ranked by
// combined priority and only the top `capacity` topics are kept, in their interleaved order.
func ResolveOverflow(prioritized []models.Topic, capacity int, retaFinal bool) (OverflowDecision, error) {
	if capacity < 0 {
		capacity = 0
	}
	if len(prioritized) <= capacity {
		return OverflowDecision{
			Scheduled:    prioritized,
			Excluded:     []ExcludedTopic{},
			KeptSubjects: subjectNames(prioritized),
		}, nil
	}
	if !retaFinal {
		return OverflowDecision{}, &InfeasibleError{PendingTopics: len(prioritized), CapacitySlots: capacity}
	}

	ranked := rankByCombinedPriority(prioritized)
	keep := make(map[string]struct{}, capacity)
	for _, topic := range ranked[:capacity] {
		keep[topic.ID] = struct{}{}
	}

	scheduled := make([]models.Topic, 0, capacity)
	for _, topic := range prioritized {
		if _, ok := keep[topic.ID]; ok {
			scheduled = append(scheduled, topic)
		}
	}

	excluded := make([]ExcludedTopic, 0, len(ranked)-capacity)
	for _, topic := range ranked[capacity:] {
		score := CombinedPriority(topic)
		excluded = append(excluded, ExcludedTopic{
			Topic:            topic,
			CombinedPriority: score,
			Reason:           exclusionReason(score, len(prioritized), capacity),
		})
	}

	return OverflowDecision{
		Scheduled:    scheduled,
		Excluded:     excluded,
		KeptSubjects: subjectNames(scheduled),
		Applied:      true,
	}, nil
}

func exclusionReason(score, pending, capacity int) string {
	return fmt.Sprintf("Reta Final: combined priority %d below cutoff (%d pending topics, %d available slots)", score, pending, capacity)
}

func subjectNames(topics []models.Topic) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, topic := range topics {
		if _, ok := seen[topic.SubjectName]; ok {
			continue
		}
		seen[topic.SubjectName] = struct{}{}
		names = append(names, topic.SubjectName)
	}
	sort.Strings(names)
	return names
}
