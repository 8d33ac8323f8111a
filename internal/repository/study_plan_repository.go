package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studyplan-api/internal/models"
)

const studyPlanColumns = `id, user_id, name, exam_date, study_hours_per_weekday, session_duration_minutes,
reta_final_mode_enabled, weekdays_only, created_at, updated_at`

// StudyPlanRepository reads study plans. Plans are written by the CRUD layer.
type StudyPlanRepository struct {
	db *sqlx.DB
}

// NewStudyPlanRepository constructs the repository.
func NewStudyPlanRepository(db *sqlx.DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

func (r *StudyPlanRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns a plan or sql.ErrNoRows.
func (r *StudyPlanRepository) FindByID(ctx context.Context, id string) (*models.StudyPlan, error) {
	const query = `SELECT ` + studyPlanColumns + ` FROM study_plans WHERE id = $1`
	var plan models.StudyPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindForUpdate loads the plan row and locks it until the surrounding transaction ends, which
// serializes regeneration and repair runs of the same plan across processes.
func (r *StudyPlanRepository) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudyPlan, error) {
	const query = `SELECT ` + studyPlanColumns + ` FROM study_plans WHERE id = $1 FOR UPDATE`
	var plan models.StudyPlan
	if err := sqlx.GetContext(ctx, r.exec(exec), &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}
