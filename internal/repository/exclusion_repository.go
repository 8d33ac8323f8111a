package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
)

// ExclusionRepository stores the topics left out by Reta Final mode.
type ExclusionRepository struct {
	db *sqlx.DB
}

// NewExclusionRepository constructs the repository.
func NewExclusionRepository(db *sqlx.DB) *ExclusionRepository {
	return &ExclusionRepository{db: db}
}

func (r *ExclusionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteByPlan clears the exclusion set of a plan.
func (r *ExclusionRepository) DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	res, err := r.exec(exec).ExecContext(ctx, `DELETE FROM exclusions WHERE plan_id = $1`, planID)
	if err != nil {
		return 0, fmt.Errorf("delete exclusions: %w", err)
	}
	return res.RowsAffected()
}

// InsertBatch writes exclusions in chunks.
func (r *ExclusionRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Exclusion, chunkSize int) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
	}

	const query = `INSERT INTO exclusions (id, plan_id, topic_id, combined_priority, reason, created_at)
VALUES (:id, :plan_id, :topic_id, :combined_priority, :reason, :created_at)`
	for _, window := range chunks(len(items), chunkSize) {
		if _, err := sqlx.NamedExecContext(ctx, target, query, items[window[0]:window[1]]); err != nil {
			return fmt.Errorf("insert exclusions %d-%d: %w", window[0], window[1], err)
		}
	}
	return nil
}

// ListByPlan returns exclusions, highest combined priority first.
func (r *ExclusionRepository) ListByPlan(ctx context.Context, planID string) ([]models.Exclusion, error) {
	const query = `SELECT id, plan_id, topic_id, combined_priority, reason, created_at
FROM exclusions WHERE plan_id = $1 ORDER BY combined_priority DESC, topic_id ASC`
	var items []models.Exclusion
	if err := r.db.SelectContext(ctx, &items, query, planID); err != nil {
		return nil, fmt.Errorf("list exclusions: %w", err)
	}
	return items, nil
}
