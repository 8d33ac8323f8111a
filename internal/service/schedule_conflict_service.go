package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/scheduling"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/jobs"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
	"github.com/noah-isme/studyplan-api/pkg/observability"
)

// AuditJobType tags queued conflict audits.
const AuditJobType = "conflict_audit"

const resolutionSavepoint = "resolution_action"

type conflictSessionStore interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.StudySessionFilter) ([]models.StudySession, error)
	DeletePending(ctx context.Context, exec sqlx.ExtContext, planID, id string) (bool, error)
	Reschedule(ctx context.Context, exec sqlx.ExtContext, planID, id string, date localdate.Date) (bool, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) (string, error)
}

// ScheduleConflictConfig carries audit thresholds.
type ScheduleConflictConfig struct {
	DailyCeilingMinutes  int
	GapWarningDays       int
	GapCriticalDays      int
	RelocationWindowDays int
	CacheTTL             time.Duration
}

// ScheduleConflictService audits persisted calendars and repairs what it can.
type ScheduleConflictService struct {
	plans    studyPlanReader
	sessions conflictSessionStore
	auditor  *scheduling.Auditor
	calc     *localdate.Calculator
	tx       txProvider
	cache    *CacheService
	metrics  *MetricsService
	queue    jobEnqueuer
	logger   *zap.Logger
	cfg      ScheduleConflictConfig
}

// NewScheduleConflictService wires the conflict service.
func NewScheduleConflictService(
	plans studyPlanReader,
	sessions conflictSessionStore,
	calc *localdate.Calculator,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ScheduleConflictConfig,
) *ScheduleConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RelocationWindowDays <= 0 {
		cfg.RelocationWindowDays = scheduling.DefaultRelocationWindowDays
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &ScheduleConflictService{
		plans:    plans,
		sessions: sessions,
		auditor:  scheduling.NewAuditor(calc),
		calc:     calc,
		tx:       tx,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// UseQueue enables asynchronous audits.
func (s *ScheduleConflictService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Audit inspects the persisted calendar of a plan and caches the report.
func (s *ScheduleConflictService) Audit(ctx context.Context, planID string, actor *models.JWTClaims) (report *models.ConflictAuditReport, err error) {
	ctx, span := observability.StartSpan(ctx, "schedule.audit", planID)
	defer func() { observability.EndSpan(span, err) }()

	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, planLookupError(err)
	}
	if err = authorizePlan(actor, plan); err != nil {
		return nil, err
	}
	sessions, err := s.listSessions(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.audit(ctx, plan, sessions), nil
}

// AuditAsync queues an audit and returns the job id. The report lands in the cache.
func (s *ScheduleConflictService) AuditAsync(ctx context.Context, planID string, actor *models.JWTClaims) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrServiceUnavailable, "asynchronous audits are disabled")
	}
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return "", planLookupError(err)
	}
	if err := authorizePlan(actor, plan); err != nil {
		return "", err
	}
	jobID, err := s.queue.TryEnqueue(jobs.Job{Type: AuditJobType, Payload: planID})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "audit queue is full")
	}
	s.logger.Info("conflict audit queued", zap.String("plan_id", planID), zap.String("job_id", jobID))
	return jobID, nil
}

// HandleAuditJob is the queue handler for AuditJobType.
func (s *ScheduleConflictService) HandleAuditJob(ctx context.Context, job jobs.Job) error {
	planID, ok := job.Payload.(string)
	if !ok || planID == "" {
		return fmt.Errorf("conflict audit job %s: unexpected payload %T", job.ID, job.Payload)
	}
	plan, sessions, err := s.loadSnapshot(ctx, planID)
	if err != nil {
		return err
	}
	report := s.audit(ctx, plan, sessions)
	s.logger.Info("conflict audit finished",
		zap.String("plan_id", planID),
		zap.String("job_id", job.ID),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	return nil
}

// LatestAudit returns the last cached report.
func (s *ScheduleConflictService) LatestAudit(ctx context.Context, planID string, actor *models.JWTClaims) (*models.ConflictAuditReport, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, planLookupError(err)
	}
	if err := authorizePlan(actor, plan); err != nil {
		return nil, err
	}
	var report models.ConflictAuditReport
	hit, err := s.cache.Get(ctx, AuditCacheKey(planID), &report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "audit cache unavailable")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no audit report available for plan")
	}
	return &report, nil
}

// Resolve applies duplicate removals and relocations under the plan lock. Each action runs
// inside its own savepoint: a failing action is reported and the rest still commit.
func (s *ScheduleConflictService) Resolve(ctx context.Context, planID string, actor *models.JWTClaims) (report *models.ResolutionReport, err error) {
	ctx, span := observability.StartSpan(ctx, "schedule.resolve", planID)
	defer func() { observability.EndSpan(span, err) }()

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, persistenceError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	plan, err := s.plans.FindForUpdate(ctx, tx, planID)
	if err != nil {
		err = planLookupError(err)
		return nil, err
	}
	if err = authorizePlan(actor, plan); err != nil {
		return nil, err
	}

	sessions, err := s.sessions.List(ctx, tx, models.StudySessionFilter{PlanID: planID})
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study sessions")
		return nil, err
	}

	opts := scheduling.ResolutionOptions{
		AuditOptions: s.auditOptions(plan),
		WindowDays:   s.cfg.RelocationWindowDays,
		Today:        s.calc.Today(),
		ExamDate:     plan.ExamDate,
	}
	actions := s.auditor.PlanResolutions(sessions, opts)

	report = &models.ResolutionReport{PlanID: planID, Actions: make([]models.ResolutionAction, 0, len(actions))}
	for _, action := range actions {
		if action.Status == models.ResolutionResolved {
			if err = s.apply(ctx, tx, planID, &action); err != nil {
				return nil, err
			}
		}
		if action.Status == models.ResolutionFailed {
			report.Failed++
			s.logger.Warn("conflict resolution action failed",
				zap.String("plan_id", planID),
				zap.String("action", string(action.Type)),
				zap.String("session_id", action.SessionID),
				zap.String("topic_id", action.TopicID),
				zap.String("reason", action.Reason),
			)
		} else {
			report.Resolved++
		}
		report.Actions = append(report.Actions, action)
	}

	after, err := s.sessions.List(ctx, tx, models.StudySessionFilter{PlanID: planID})
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload study sessions")
		return nil, err
	}
	report.Remaining = s.auditor.Detect(after, opts.AuditOptions)

	if err = tx.Commit(); err != nil {
		err = persistenceError(err, "failed to commit conflict resolution")
		return nil, err
	}

	s.metrics.RecordResolution(report.Actions)
	remaining := &models.ConflictAuditReport{
		PlanID:       planID,
		GeneratedAt:  time.Now().UTC(),
		SessionsSeen: len(after),
		Conflicts:    report.Remaining,
	}
	scheduling.Summarize(remaining)
	_ = s.cache.Set(ctx, AuditCacheKey(planID), remaining, s.cfg.CacheTTL)

	s.logger.Info("conflict resolution finished",
		zap.String("plan_id", planID),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed),
		zap.Int("remaining", len(report.Remaining)),
	)
	return report, nil
}

// apply runs one planned action under a savepoint. Only savepoint bookkeeping errors abort the run.
func (s *ScheduleConflictService) apply(ctx context.Context, tx *sqlx.Tx, planID string, action *models.ResolutionAction) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+resolutionSavepoint); err != nil {
		return persistenceError(err, "failed to open savepoint")
	}

	var (
		changed bool
		err     error
	)
	switch action.Type {
	case models.ActionRemoveDuplicate:
		changed, err = s.sessions.DeletePending(ctx, tx, planID, action.SessionID)
	case models.ActionRelocate:
		changed, err = s.sessions.Reschedule(ctx, tx, planID, action.SessionID, *action.To)
	default:
		err = fmt.Errorf("unknown resolution action %q", action.Type)
	}

	if err != nil || !changed {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+resolutionSavepoint); rbErr != nil {
			return persistenceError(rbErr, "failed to roll back savepoint")
		}
		action.Status = models.ResolutionFailed
		if err != nil {
			action.Reason = err.Error()
		} else {
			action.Reason = "session is no longer pending"
		}
		action.To = nil
		return nil
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+resolutionSavepoint); err != nil {
		return persistenceError(err, "failed to release savepoint")
	}
	return nil
}

func (s *ScheduleConflictService) listSessions(ctx context.Context, planID string) ([]models.StudySession, error) {
	items, err := s.sessions.List(ctx, nil, models.StudySessionFilter{PlanID: planID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study sessions")
	}
	return items, nil
}

// loadSnapshot reads the plan and its sessions concurrently. Only queued jobs use it;
// they were authorized when enqueued.
func (s *ScheduleConflictService) loadSnapshot(ctx context.Context, planID string) (*models.StudyPlan, []models.StudySession, error) {
	var (
		plan     *models.StudyPlan
		sessions []models.StudySession
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.plans.FindByID(gctx, planID)
		if err != nil {
			return planLookupError(err)
		}
		plan = p
		return nil
	})
	g.Go(func() error {
		items, err := s.listSessions(gctx, planID)
		if err != nil {
			return err
		}
		sessions = items
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return plan, sessions, nil
}

func (s *ScheduleConflictService) audit(ctx context.Context, plan *models.StudyPlan, sessions []models.StudySession) *models.ConflictAuditReport {
	report := &models.ConflictAuditReport{
		PlanID:       plan.ID,
		GeneratedAt:  time.Now().UTC(),
		SessionsSeen: len(sessions),
		Conflicts:    s.auditor.Detect(sessions, s.auditOptions(plan)),
	}
	scheduling.Summarize(report)
	s.metrics.RecordConflicts(report.Conflicts)
	_ = s.cache.Set(ctx, AuditCacheKey(plan.ID), report, s.cfg.CacheTTL)
	return report
}

func (s *ScheduleConflictService) auditOptions(plan *models.StudyPlan) scheduling.AuditOptions {
	return scheduling.AuditOptionsFor(plan.StudyPlanConfig, s.cfg.DailyCeilingMinutes, s.cfg.GapWarningDays, s.cfg.GapCriticalDays)
}
