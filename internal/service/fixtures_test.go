package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func day(month time.Month, d int) localdate.Date { return localdate.New(2025, month, d) }

func strPtr(v string) *string { return &v }

func student(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleStudent}
}

type stubPlanStore struct {
	plan          *models.StudyPlan
	err           error
	forUpdateHits int
}

func (s *stubPlanStore) FindByID(ctx context.Context, id string) (*models.StudyPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.plan == nil || s.plan.ID != id {
		return nil, sql.ErrNoRows
	}
	clone := *s.plan
	return &clone, nil
}

func (s *stubPlanStore) FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudyPlan, error) {
	s.forUpdateHits++
	return s.FindByID(ctx, id)
}

type stubTopicStore struct {
	topics  []models.Topic
	missing map[string]bool
}

func (s *stubTopicStore) ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Topic, error) {
	return s.topics, nil
}

func (s *stubTopicStore) ExistingIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, id := range ids {
		if !s.missing[id] {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type stubSessionStore struct {
	mu         sync.Mutex
	rows       []models.StudySession
	insertErr  error
	refuseIDs  map[string]bool
	chunkSizes []int
	listCalls  int
}

func (s *stubSessionStore) List(ctx context.Context, exec sqlx.ExtContext, filter models.StudySessionFilter) ([]models.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	out := make([]models.StudySession, 0, len(s.rows))
	for _, row := range s.rows {
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		if filter.Type != "" && row.SessionType != filter.Type {
			continue
		}
		if filter.From != nil && row.SessionDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.SessionDate.After(*filter.To) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.Before(out[j].SessionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *stubSessionStore) DeletePendingByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	var removed int64
	for _, row := range s.rows {
		if row.Status == models.SessionStatusPending {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return removed, nil
}

func (s *stubSessionStore) InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudySession, chunkSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkSizes = append(s.chunkSizes, chunkSize)
	if s.insertErr != nil {
		return s.insertErr
	}
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = fmt.Sprintf("gen-%03d", len(s.rows)+1)
		}
		s.rows = append(s.rows, sessions[i])
	}
	return nil
}

func (s *stubSessionStore) DeletePending(ctx context.Context, exec sqlx.ExtContext, planID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuseIDs[id] {
		return false, nil
	}
	for i, row := range s.rows {
		if row.ID == id && row.Status == models.SessionStatusPending {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSessionStore) Reschedule(ctx context.Context, exec sqlx.ExtContext, planID, id string, date localdate.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuseIDs[id] {
		return false, nil
	}
	for i, row := range s.rows {
		if row.ID == id && row.Status == models.SessionStatusPending {
			s.rows[i].SessionDate = date
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSessionStore) pending() []models.StudySession {
	out, _ := s.List(context.Background(), nil, models.StudySessionFilter{Status: models.SessionStatusPending})
	return out
}

type stubExclusionStore struct {
	rows []models.Exclusion
}

func (s *stubExclusionStore) DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error) {
	n := int64(len(s.rows))
	s.rows = nil
	return n, nil
}

func (s *stubExclusionStore) InsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Exclusion, chunkSize int) error {
	s.rows = append(s.rows, items...)
	return nil
}

func (s *stubExclusionStore) ListByPlan(ctx context.Context, planID string) ([]models.Exclusion, error) {
	return s.rows, nil
}

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

func weekdayHours(h float64) models.WeeklyHours {
	return models.WeeklyHours{time.Monday: h, time.Tuesday: h, time.Wednesday: h, time.Thursday: h, time.Friday: h}
}

// fortyTopics splits 40 pending topics between a weight-2 and a weight-1 subject.
func fortyTopics() []models.Topic {
	topics := make([]models.Topic, 0, 40)
	for i := 1; i <= 20; i++ {
		topics = append(topics,
			models.Topic{ID: fmt.Sprintf("mat-%02d", i), PlanID: "plan-1", SubjectID: "subj-mat", SubjectName: "Matematica", SubjectWeight: 2,
				Description: fmt.Sprintf("Matematica %d", i), PriorityWeight: i%5 + 1, Status: models.TopicStatusPending},
			models.Topic{ID: fmt.Sprintf("por-%02d", i), PlanID: "plan-1", SubjectID: "subj-por", SubjectName: "Portugues", SubjectWeight: 1,
				Description: fmt.Sprintf("Portugues %d", i), PriorityWeight: i%5 + 1, Status: models.TopicStatusPending},
		)
	}
	return topics
}
