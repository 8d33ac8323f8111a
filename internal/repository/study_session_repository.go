package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

const studySessionColumns = `id, plan_id, topic_id, subject_name, topic_description, session_date, session_type, status, created_at`

// StudySessionRepository persists the study calendar.
type StudySessionRepository struct {
	db *sqlx.DB
}

// NewStudySessionRepository constructs the repository.
func NewStudySessionRepository(db *sqlx.DB) *StudySessionRepository {
	return &StudySessionRepository{db: db}
}

func (r *StudySessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns sessions matching filter ordered by date then id.
func (r *StudySessionRepository) List(ctx context.Context, exec sqlx.ExtContext, filter models.StudySessionFilter) ([]models.StudySession, error) {
	conditions := []string{"plan_id = $1"}
	args := []interface{}{filter.PlanID}

	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("session_type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf("SELECT %s FROM study_sessions WHERE %s ORDER BY session_date ASC, id ASC",
		studySessionColumns, strings.Join(conditions, " AND "))
	var sessions []models.StudySession
	if err := sqlx.SelectContext(ctx, r.exec(exec), &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	return sessions, nil
}

// DeletePendingByPlan removes every pending session of a plan. Completed sessions are history.
func (r *StudySessionRepository) DeletePendingByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	const query = `DELETE FROM study_sessions WHERE plan_id = $1 AND status = 'PENDING'`
	res, err := r.exec(exec).ExecContext(ctx, query, planID)
	if err != nil {
		return 0, fmt.Errorf("delete pending study sessions: %w", err)
	}
	return res.RowsAffected()
}

// InsertBatch writes sessions in multi-row INSERTs of at most chunkSize rows.
func (r *StudySessionRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudySession, chunkSize int) error {
	if len(sessions) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		if sessions[i].Status == "" {
			sessions[i].Status = models.SessionStatusPending
		}
		if sessions[i].CreatedAt.IsZero() {
			sessions[i].CreatedAt = now
		}
	}

	const query = `INSERT INTO study_sessions (` + studySessionColumns + `)
VALUES (:id, :plan_id, :topic_id, :subject_name, :topic_description, :session_date, :session_type, :status, :created_at)`
	for _, window := range chunks(len(sessions), chunkSize) {
		if _, err := sqlx.NamedExecContext(ctx, target, query, sessions[window[0]:window[1]]); err != nil {
			return fmt.Errorf("insert study sessions %d-%d: %w", window[0], window[1], err)
		}
	}
	return nil
}

// DeletePending removes one pending session. It reports false when the row is missing or completed.
func (r *StudySessionRepository) DeletePending(ctx context.Context, exec sqlx.ExtContext, planID, id string) (bool, error) {
	const query = `DELETE FROM study_sessions WHERE plan_id = $1 AND id = $2 AND status = 'PENDING'`
	res, err := r.exec(exec).ExecContext(ctx, query, planID, id)
	if err != nil {
		return false, fmt.Errorf("delete study session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Reschedule moves one pending session to date. It reports false when nothing was updated.
func (r *StudySessionRepository) Reschedule(ctx context.Context, exec sqlx.ExtContext, planID, id string, date localdate.Date) (bool, error) {
	const query = `UPDATE study_sessions SET session_date = $3 WHERE plan_id = $1 AND id = $2 AND status = 'PENDING'`
	res, err := r.exec(exec).ExecContext(ctx, query, planID, id, date)
	if err != nil {
		return false, fmt.Errorf("reschedule study session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
