package service

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/scheduling"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

type topicIDChecker interface {
	ExistingIDs(ctx context.Context, exec sqlx.ExtContext, planID string, ids []string) (map[string]struct{}, error)
}

type sessionWriter interface {
	DeletePendingByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, sessions []models.StudySession, chunkSize int) error
}

type exclusionWriter interface {
	DeleteByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) (int64, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, items []models.Exclusion, chunkSize int) error
}

// PersistOutcome reports what a flush changed.
type PersistOutcome struct {
	PendingRemoved    int64
	ExclusionsRemoved int64
	SessionsWritten   int
	ExclusionsWritten int
	NulledTopicIDs    []string
}

// SchedulePersister flushes an engine result inside the caller's transaction.
type SchedulePersister struct {
	topics     topicIDChecker
	sessions   sessionWriter
	exclusions exclusionWriter
	chunkSize  int
	logger     *zap.Logger
}

// NewSchedulePersister wires the persister.
func NewSchedulePersister(topics topicIDChecker, sessions sessionWriter, exclusions exclusionWriter, chunkSize int, logger *zap.Logger) *SchedulePersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulePersister{topics: topics, sessions: sessions, exclusions: exclusions, chunkSize: chunkSize, logger: logger}
}

// Persist replaces the pending sessions and the exclusion set of the plan with result.
// Any error leaves the transaction for the caller to roll back.
func (p *SchedulePersister) Persist(ctx context.Context, exec sqlx.ExtContext, result *scheduling.Result) (*PersistOutcome, error) {
	rows := SessionRows(result)
	outcome := &PersistOutcome{}

	nulled, err := p.detachDanglingTopics(ctx, exec, result.PlanID, rows)
	if err != nil {
		return nil, err
	}
	outcome.NulledTopicIDs = nulled

	if outcome.PendingRemoved, err = p.sessions.DeletePendingByPlan(ctx, exec, result.PlanID); err != nil {
		return nil, persistenceError(err, "failed to clear pending sessions")
	}
	if outcome.ExclusionsRemoved, err = p.exclusions.DeleteByPlan(ctx, exec, result.PlanID); err != nil {
		return nil, persistenceError(err, "failed to clear exclusions")
	}
	if err = p.sessions.InsertBatch(ctx, exec, rows, p.chunkSize); err != nil {
		return nil, persistenceError(err, "failed to write study sessions")
	}
	outcome.SessionsWritten = len(rows)

	exclusions := ExclusionRows(result)
	if err = p.exclusions.InsertBatch(ctx, exec, exclusions, p.chunkSize); err != nil {
		return nil, persistenceError(err, "failed to write exclusions")
	}
	outcome.ExclusionsWritten = len(exclusions)
	return outcome, nil
}

func (p *SchedulePersister) detachDanglingTopics(ctx context.Context, exec sqlx.ExtContext, planID string, rows []models.StudySession) ([]string, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, row := range rows {
		if row.TopicID == nil {
			continue
		}
		if _, ok := seen[*row.TopicID]; ok {
			continue
		}
		seen[*row.TopicID] = struct{}{}
		ids = append(ids, *row.TopicID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	existing, err := p.topics.ExistingIDs(ctx, exec, planID, ids)
	if err != nil {
		return nil, persistenceError(err, "failed to verify topic references")
	}

	var nulled []string
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			nulled = append(nulled, id)
		}
	}
	if len(nulled) == 0 {
		return nil, nil
	}
	dangling := make(map[string]struct{}, len(nulled))
	for _, id := range nulled {
		dangling[id] = struct{}{}
	}
	for i := range rows {
		if rows[i].TopicID == nil {
			continue
		}
		if _, ok := dangling[*rows[i].TopicID]; ok {
			p.logger.Warn("topic reference no longer exists; session kept without topic",
				zap.String("plan_id", planID),
				zap.String("topic_id", *rows[i].TopicID),
				zap.String("session_date", rows[i].SessionDate.String()),
				zap.String("session_type", string(rows[i].SessionType)),
			)
			rows[i].TopicID = nil
		}
	}
	return nulled, nil
}

// SessionRows converts the agenda of result into pending study_sessions rows in date order.
func SessionRows(result *scheduling.Result) []models.StudySession {
	if result == nil || result.Agenda == nil {
		return nil
	}
	sessions := result.Agenda.Sessions()
	rows := make([]models.StudySession, 0, len(sessions))
	for _, s := range sessions {
		var topicID *string
		if s.TopicID != "" {
			id := s.TopicID
			topicID = &id
		}
		rows = append(rows, models.StudySession{
			PlanID:           result.PlanID,
			TopicID:          topicID,
			SubjectName:      s.SubjectName,
			TopicDescription: s.TopicDescription,
			SessionDate:      s.Date,
			SessionType:      s.Type,
			Status:           models.SessionStatusPending,
		})
	}
	return rows
}

// ExclusionRows converts the Reta Final exclusions of result into rows.
func ExclusionRows(result *scheduling.Result) []models.Exclusion {
	if result == nil {
		return nil
	}
	rows := make([]models.Exclusion, 0, len(result.Overflow.Excluded))
	for _, ex := range result.Overflow.Excluded {
		rows = append(rows, models.Exclusion{
			PlanID:           result.PlanID,
			TopicID:          ex.Topic.ID,
			CombinedPriority: ex.CombinedPriority,
			Reason:           ex.Reason,
		})
	}
	return rows
}

func persistenceError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, message)
}
