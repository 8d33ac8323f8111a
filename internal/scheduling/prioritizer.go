package scheduling

import (
	"sort"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// PrioritizeResult is the interleaved ordering of pending topics.
type PrioritizeResult struct {
	Ordered      []models.Topic
	Iterations   int
	BoundReached bool
}

type subjectQueue struct {
	key     string
	pool    int
	credits int
	topics  []models.Topic
}

// PrioritizeTopics interleaves pending topics across subjects with a weighted round-robin.
// Each subject queue is ordered by combined priority (desc) then topic id (asc); queues are
// scanned by credit pool (desc) then subject key (asc). A scan pops one topic from every queue
// that still has credit; when no queue can spend, non-empty queues are refilled. The loop stops
// after 2*len(topics) scans; anything still queued at that point is appended in queue order.
func PrioritizeTopics(topics []models.Topic) PrioritizeResult {
	if len(topics) == 0 {
		return PrioritizeResult{Ordered: []models.Topic{}}
	}

	queues := buildSubjectQueues(topics)
	ordered := make([]models.Topic, 0, len(topics))
	limit := 2 * len(topics)
	iterations := 0

	for remaining(queues) > 0 && iterations < limit {
		iterations++
		popped := false
		for _, q := range queues {
			if q.credits < 1 || len(q.topics) == 0 {
				continue
			}
			ordered = append(ordered, q.topics[0])
			q.topics = q.topics[1:]
			q.credits--
			popped = true
		}
		if !popped {
			for _, q := range queues {
				if len(q.topics) > 0 {
					q.credits = q.pool
				}
			}
		}
	}

	result := PrioritizeResult{Iterations: iterations}
	if remaining(queues) > 0 {
		result.BoundReached = true
		for _, q := range queues {
			ordered = append(ordered, q.topics...)
			q.topics = nil
		}
	}
	result.Ordered = ordered
	return result
}

func buildSubjectQueues(topics []models.Topic) []*subjectQueue {
	byKey := make(map[string]*subjectQueue)
	for _, topic := range topics {
		key := topic.SubjectID
		if key == "" {
			key = topic.SubjectName
		}
		q, ok := byKey[key]
		if !ok {
			pool := subjectCreditPool(topic.SubjectWeight)
			q = &subjectQueue{key: key, pool: pool, credits: pool}
			byKey[key] = q
		}
		q.topics = append(q.topics, topic)
	}

	queues := make([]*subjectQueue, 0, len(byKey))
	for _, q := range byKey {
		q.topics = rankByCombinedPriority(q.topics)
		queues = append(queues, q)
	}
	sort.Slice(queues, func(i, j int) bool {
		if queues[i].pool != queues[j].pool {
			return queues[i].pool > queues[j].pool
		}
		return queues[i].key < queues[j].key
	})
	return queues
}

func remaining(queues []*subjectQueue) int {
	total := 0
	for _, q := range queues {
		total += len(q.topics)
	}
	return total
}
