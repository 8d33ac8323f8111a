package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

func newStudyRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func strPtr(v string) *string { return &v }

func anyArgs(n int) []driver.Value {
	out := make([]driver.Value, n)
	for i := range out {
		out[i] = sqlmock.AnyArg()
	}
	return out
}

var planColumns = []string{"id", "user_id", "name", "exam_date", "study_hours_per_weekday", "session_duration_minutes",
	"reta_final_mode_enabled", "weekdays_only", "created_at", "updated_at"}

func TestStudyPlanRepositoryFindForUpdate(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyPlanRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM study_plans WHERE id = \$1 FOR UPDATE`).
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows(planColumns).
			AddRow("plan-1", "user-1", "ENEM", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), []byte(`{"1":2,"6":1.5}`), 30, true, false, now, now))

	plan, err := repo.FindForUpdate(context.Background(), nil, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", plan.UserID)
	assert.Equal(t, localdate.New(2025, time.March, 1), plan.ExamDate)
	assert.Equal(t, 2.0, plan.StudyHoursPerWeekday.HoursFor(time.Monday))
	assert.Equal(t, 1.5, plan.StudyHoursPerWeekday.HoursFor(time.Saturday))
	assert.True(t, plan.RetaFinalModeEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudyPlanRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudyPlanRepository(db)

	mock.ExpectQuery(`FROM study_plans WHERE id = \$1$`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTopicRepositoryListByPlan(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	rows := sqlmock.NewRows([]string{"id", "plan_id", "subject_id", "subject_name", "subject_priority_weight",
		"description", "priority_weight", "status", "completion_date"}).
		AddRow("t1", "plan-1", "s1", "Matemática", 3, "Funções", 5, "PENDING", nil).
		AddRow("t2", "plan-1", "s1", "Matemática", 3, "Logaritmos", 2, "COMPLETED", "2025-01-01")
	mock.ExpectQuery(regexp.QuoteMeta("FROM topics t JOIN subjects s ON s.id = t.subject_id")).
		WithArgs("plan-1").
		WillReturnRows(rows)

	topics, err := repo.ListByPlan(context.Background(), nil, "plan-1")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, 3, topics[0].SubjectWeight)
	assert.Nil(t, topics[0].CompletionDate)
	require.NotNil(t, topics[1].CompletionDate)
	assert.True(t, topics[1].IsCompleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicRepositoryExistingIDs(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM topics WHERE plan_id = $1 AND id = ANY($2)")).
		WithArgs("plan-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("t1"))

	found, err := repo.ExistingIDs(context.Background(), nil, "plan-1", []string{"t1", "gone"})
	require.NoError(t, err)
	assert.Contains(t, found, "t1")
	assert.NotContains(t, found, "gone")

	empty, err := repo.ExistingIDs(context.Background(), nil, "plan-1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	from := localdate.New(2025, time.January, 6)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE plan_id = $1 AND session_date >= $2 AND session_type = $3 ORDER BY session_date ASC, id ASC")).
		WithArgs("plan-1", "2025-01-06", "REVIEW_7D").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "topic_id", "subject_name", "topic_description",
			"session_date", "session_type", "status", "created_at"}).
			AddRow("s1", "plan-1", "t1", "Matemática", "Funções", "2025-01-11", "REVIEW_7D", "PENDING", time.Now()).
			AddRow("s2", "plan-1", nil, "Física", "Cinemática", "2025-01-11", "REVIEW_7D", "PENDING", time.Now()))

	sessions, err := repo.List(context.Background(), nil, models.StudySessionFilter{
		PlanID: "plan-1",
		From:   &from,
		Type:   models.SessionTypeReview7D,
	})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "t1", sessions[0].TopicRef())
	assert.Nil(t, sessions[1].TopicID)
	assert.Equal(t, localdate.New(2025, time.January, 11), sessions[1].SessionDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryInsertBatchChunks(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	day := localdate.New(2025, time.January, 6)
	sessions := []models.StudySession{
		{PlanID: "plan-1", TopicID: strPtr("t1"), SubjectName: "A", TopicDescription: "a", SessionDate: day, SessionType: models.SessionTypeNewTopic},
		{PlanID: "plan-1", TopicID: strPtr("t2"), SubjectName: "A", TopicDescription: "b", SessionDate: day, SessionType: models.SessionTypeNewTopic},
		{PlanID: "plan-1", TopicID: nil, SubjectName: "B", TopicDescription: "c", SessionDate: day, SessionType: models.SessionTypeNewTopic},
	}

	mock.ExpectExec(`INSERT INTO study_sessions`).
		WithArgs(anyArgs(18)...).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO study_sessions`).
		WithArgs(anyArgs(9)...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.InsertBatch(context.Background(), nil, sessions, 2))
	for _, s := range sessions {
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, models.SessionStatusPending, s.Status)
		assert.False(t, s.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryDeletePendingByPlan(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_sessions WHERE plan_id = $1 AND status = 'PENDING'")).
		WithArgs("plan-1").
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeletePendingByPlan(context.Background(), nil, "plan-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestStudySessionRepositoryRescheduleOnlyPending(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	target := localdate.New(2025, time.January, 8)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE study_sessions SET session_date = $3 WHERE plan_id = $1 AND id = $2 AND status = 'PENDING'")).
		WithArgs("plan-1", "s1", "2025-01-08").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE study_sessions SET session_date = $3")).
		WithArgs("plan-1", "done", "2025-01-08").
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err := repo.Reschedule(context.Background(), nil, "plan-1", "s1", target)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repo.Reschedule(context.Background(), nil, "plan-1", "done", target)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudySessionRepositoryDeletePending(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewStudySessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM study_sessions WHERE plan_id = $1 AND id = $2 AND status = 'PENDING'")).
		WithArgs("plan-1", "s9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.DeletePending(context.Background(), nil, "plan-1", "s9")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExclusionRepositoryReplaceInTransaction(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewExclusionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM exclusions WHERE plan_id = $1")).
		WithArgs("plan-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO exclusions")).
		WithArgs(sqlmock.AnyArg(), "plan-1", "t9", 13, "combined priority 13", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	_, err = repo.DeleteByPlan(context.Background(), tx, "plan-1")
	require.NoError(t, err)
	items := []models.Exclusion{{PlanID: "plan-1", TopicID: "t9", CombinedPriority: 13, Reason: "combined priority 13"}}
	require.NoError(t, repo.InsertBatch(context.Background(), tx, items, 100))
	require.NoError(t, tx.Commit())
	assert.NotEmpty(t, items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExclusionRepositoryListByPlan(t *testing.T) {
	db, mock, cleanup := newStudyRepoMock(t)
	defer cleanup()
	repo := NewExclusionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY combined_priority DESC, topic_id ASC")).
		WithArgs("plan-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "plan_id", "topic_id", "combined_priority", "reason", "created_at"}).
			AddRow("e1", "plan-1", "t3", 23, "combined priority 23", time.Now()))

	items, err := repo.ListByPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 23, items[0].CombinedPriority)
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, chunks(5, 2))
	assert.Equal(t, [][2]int{{0, 5}}, chunks(5, 0))
	assert.Empty(t, chunks(0, 10))
}
