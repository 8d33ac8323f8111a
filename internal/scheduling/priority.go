package scheduling

import (
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// CombinedPriority ranks a topic for exclusion and within-subject ordering.
// Higher is more important.
func CombinedPriority(topic models.Topic) int {
	return topic.SubjectWeight*10 + topic.EffectiveWeight()
}

// subjectCreditPool sizes a subject queue in the round-robin interleave. Only the subject
// weight matters at this level, so the topic term is the default weight for every subject.
func subjectCreditPool(subjectWeight int) int {
	pool := (subjectWeight * 10) + models.DefaultTopicPriorityWeight
	if pool < 1 {
		pool = 1
	}
	return pool
}

// rankByCombinedPriority returns a copy sorted by combined priority descending, topic id ascending.
func rankByCombinedPriority(topics []models.Topic) []models.Topic {
	ranked := make([]models.Topic, len(topics))
	copy(ranked, topics)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := CombinedPriority(ranked[i]), CombinedPriority(ranked[j])
		if pi != pj {
			return pi > pj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
