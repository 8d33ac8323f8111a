package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// TopicRepository reads topics joined with their subject weight.
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository constructs the repository.
func NewTopicRepository(db *sqlx.DB) *TopicRepository {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByPlan returns every topic of a plan, pending and completed, ordered by id.
func (r *TopicRepository) ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Topic, error) {
	const query = `SELECT t.id, t.plan_id, t.subject_id, s.name AS subject_name, s.priority_weight AS subject_priority_weight,
t.description, t.priority_weight, t.status, t.completion_date
FROM topics t JOIN subjects s ON s.id = t.subject_id
WHERE t.plan_id = $1 ORDER BY t.id ASC`
	var topics []models.Topic
	if err := sqlx.SelectContext(ctx, r.exec(exec), &topics, query, planID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// ExistingIDs returns the subset of ids that still exist for the plan.
func (r *TopicRepository) ExistingIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	const query = `SELECT id FROM topics WHERE plan_id = $1 AND id = ANY($2)`
	var existing []string
	if err := sqlx.SelectContext(ctx, r.exec(exec), &existing, query, planID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("check topic ids: %w", err)
	}
	for _, id := range existing {
		found[id] = struct{}{}
	}
	return found, nil
}
