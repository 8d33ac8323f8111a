package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/scheduling"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
	"github.com/noah-isme/studyplan-api/pkg/observability"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type studyPlanReader interface {
	FindByID(ctx context.Context, id string) (*models.StudyPlan, error)
	FindForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudyPlan, error)
}

type topicReader interface {
	ListByPlan(ctx context.Context, exec sqlx.ExtContext, planID string) ([]models.Topic, error)
}

type sessionReader interface {
	List(ctx context.Context, exec sqlx.ExtContext, filter models.StudySessionFilter) ([]models.StudySession, error)
}

type exclusionReader interface {
	ListByPlan(ctx context.Context, planID string) ([]models.Exclusion, error)
}

type schedulePersister interface {
	Persist(ctx context.Context, exec sqlx.ExtContext, result *scheduling.Result) (*PersistOutcome, error)
}

// StudyScheduleConfig tunes the generation service.
type StudyScheduleConfig struct {
	SummaryTTL time.Duration
}

// StudyScheduleService runs the generation engine against persisted plans.
type StudyScheduleService struct {
	plans      studyPlanReader
	topics     topicReader
	sessions   sessionReader
	exclusions exclusionReader
	persister  schedulePersister
	engine     *scheduling.Engine
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        StudyScheduleConfig
}

// NewStudyScheduleService wires the generation service.
func NewStudyScheduleService(
	plans studyPlanReader,
	topics topicReader,
	sessions sessionReader,
	exclusions exclusionReader,
	persister schedulePersister,
	engine *scheduling.Engine,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudyScheduleConfig,
) *StudyScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = 24 * time.Hour
	}
	return &StudyScheduleService{
		plans:      plans,
		topics:     topics,
		sessions:   sessions,
		exclusions: exclusions,
		persister:  persister,
		engine:     engine,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate regenerates the plan's calendar. The plan row stays locked from the snapshot read
// until commit so concurrent runs of the same plan never interleave their delete/insert phases.
func (s *StudyScheduleService) Generate(ctx context.Context, planID string, actor *models.JWTClaims) (summary *dto.GenerationSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "schedule.generate", planID)
	started := time.Now()
	defer func() {
		s.metrics.ObserveGeneration(generationOutcome(err, OutcomeSuccess), time.Since(started))
		observability.EndSpan(span, err)
	}()

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

	loadStart := time.Now()
	input, err := s.loadInput(ctx, tx, plan)
	s.metrics.ObserveDBQuery("load_snapshot", time.Since(loadStart))
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Generate(input)
	if err != nil {
		err = mapEngineError(err)
		return nil, err
	}

	persistStart := time.Now()
	outcome, err := s.persister.Persist(ctx, tx, result)
	s.metrics.ObserveDBQuery("persist_schedule", time.Since(persistStart))
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = persistenceError(err, "failed to commit study schedule")
		return nil, err
	}

	built := buildSummary(result, outcome, true)
	s.metrics.RecordSchedule(result.Agenda.CountByType(), len(result.Overflow.Excluded), skippedReviewsByReason(result.Reviews), len(outcome.NulledTopicIDs))
	_ = s.cache.Set(ctx, SummaryCacheKey(planID), built, s.cfg.SummaryTTL)
	_ = s.cache.Invalidate(ctx, AuditCacheKey(planID))

	s.logger.Info("study schedule generated",
		zap.String("plan_id", planID),
		zap.Int("sessions", built.SessionsCreated),
		zap.Int("exclusions", built.ExclusionsCreated),
		zap.Int64("pending_removed", built.PendingSessionsRemoved),
		zap.Duration("elapsed", time.Since(started)),
	)
	return &built, nil
}

// Preview runs the engine on the current snapshot without writing anything.
func (s *StudyScheduleService) Preview(ctx context.Context, planID string, actor *models.JWTClaims) (preview *dto.SchedulePreview, err error) {
	ctx, span := observability.StartSpan(ctx, "schedule.preview", planID)
	started := time.Now()
	defer func() {
		s.metrics.ObserveGeneration(generationOutcome(err, OutcomePreview), time.Since(started))
		observability.EndSpan(span, err)
	}()

	plan, err := s.authorizedPlan(ctx, planID, actor)
	if err != nil {
		return nil, err
	}
	input, err := s.loadInput(ctx, nil, plan)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Generate(input)
	if err != nil {
		err = mapEngineError(err)
		return nil, err
	}

	rows := SessionRows(result)
	views := make([]dto.SessionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, sessionView(row))
	}
	return &dto.SchedulePreview{
		Summary:  buildSummary(result, &PersistOutcome{}, false),
		Sessions: views,
	}, nil
}

// ListSessions returns persisted sessions in date order.
func (s *StudyScheduleService) ListSessions(ctx context.Context, planID string, actor *models.JWTClaims, query dto.SessionQuery) ([]dto.SessionView, error) {
	filter, err := s.sessionFilter(planID, query)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}
	rows, err := s.sessions.List(ctx, nil, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list study sessions")
	}
	views := make([]dto.SessionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, sessionView(row))
	}
	return views, nil
}

// ListExclusions returns the persisted Reta Final exclusions.
func (s *StudyScheduleService) ListExclusions(ctx context.Context, planID string, actor *models.JWTClaims) ([]dto.ExclusionView, error) {
	if _, err := s.authorizedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}
	items, err := s.exclusions.ListByPlan(ctx, planID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exclusions")
	}
	views := make([]dto.ExclusionView, 0, len(items))
	for _, item := range items {
		views = append(views, dto.ExclusionView{
			TopicID:          item.TopicID,
			CombinedPriority: item.CombinedPriority,
			Reason:           item.Reason,
		})
	}
	return views, nil
}

// Summary returns the cached summary of the last persisted run.
func (s *StudyScheduleService) Summary(ctx context.Context, planID string, actor *models.JWTClaims) (*dto.GenerationSummary, error) {
	if _, err := s.authorizedPlan(ctx, planID, actor); err != nil {
		return nil, err
	}
	var summary dto.GenerationSummary
	hit, err := s.cache.Get(ctx, SummaryCacheKey(planID), &summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "summary cache unavailable")
	}
	if !hit {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no generation summary available for plan")
	}
	return &summary, nil
}

func (s *StudyScheduleService) authorizedPlan(ctx context.Context, planID string, actor *models.JWTClaims) (*models.StudyPlan, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, planLookupError(err)
	}
	if err := authorizePlan(actor, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *StudyScheduleService) loadInput(ctx context.Context, exec sqlx.ExtContext, plan *models.StudyPlan) (scheduling.Input, error) {
	topics, err := s.topics.ListByPlan(ctx, exec, plan.ID)
	if err != nil {
		return scheduling.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topics")
	}
	history, err := s.sessions.List(ctx, exec, models.StudySessionFilter{PlanID: plan.ID, Status: models.SessionStatusCompleted})
	if err != nil {
		return scheduling.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed sessions")
	}
	return scheduling.Input{
		PlanID:  plan.ID,
		Config:  plan.StudyPlanConfig,
		Topics:  topics,
		History: history,
	}, nil
}

func (s *StudyScheduleService) sessionFilter(planID string, query dto.SessionQuery) (models.StudySessionFilter, error) {
	if err := s.validator.Struct(query); err != nil {
		return models.StudySessionFilter{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session query")
	}
	filter := models.StudySessionFilter{
		PlanID: planID,
		Type:   models.SessionType(query.Type),
		Status: models.SessionStatus(query.Status),
	}
	if query.From != "" {
		from := localdate.MustParse(query.From)
		filter.From = &from
	}
	if query.To != "" {
		to := localdate.MustParse(query.To)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return models.StudySessionFilter{}, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return filter, nil
}

func planLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "study plan not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plan")
}

// mapEngineError keeps the typed engine error reachable through errors.As.
func mapEngineError(err error) error {
	var cfgErr *scheduling.ConfigError
	var infeasible *scheduling.InfeasibleError
	var distribution *scheduling.DistributionError
	switch {
	case errors.As(err, &cfgErr):
		return appErrors.Wrap(err, appErrors.ErrInvalidConfiguration.Code, appErrors.ErrInvalidConfiguration.Status, cfgErr.Error()).
			WithDetails(map[string]any{"field": cfgErr.Field})
	case errors.As(err, &infeasible):
		return appErrors.Wrap(err, appErrors.ErrScheduleInfeasible.Code, appErrors.ErrScheduleInfeasible.Status, infeasible.Error()).
			WithDetails(map[string]any{
				"pendingTopics": infeasible.PendingTopics,
				"capacity":      infeasible.CapacitySlots,
				"deficit":       infeasible.Deficit(),
			})
	case errors.As(err, &distribution):
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "session distribution failed").
			WithDetails(map[string]any{"placed": distribution.Placed, "remaining": distribution.Remaining})
	default:
		return appErrors.FromError(err)
	}
}

func generationOutcome(err error, success string) string {
	if err == nil {
		return success
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrInvalidConfiguration.Code:
		return OutcomeInvalid
	case appErrors.ErrScheduleInfeasible.Code:
		return OutcomeInfeasible
	default:
		return OutcomeFailure
	}
}

func buildSummary(result *scheduling.Result, outcome *PersistOutcome, persisted bool) dto.GenerationSummary {
	byType := result.Agenda.CountByType()
	summary := dto.GenerationSummary{
		PlanID:                 result.PlanID,
		GeneratedAt:            time.Now().UTC(),
		Persisted:              persisted,
		Today:                  result.Today.String(),
		ExamDate:               result.ExamDate.String(),
		PendingTopics:          result.PendingCount,
		CompletedTopics:        result.CompletedCount,
		NewTopicCapacity:       result.NewTopicCapacity,
		SessionsCreated:        result.Agenda.Len(),
		NewTopicSessions:       byType[models.SessionTypeNewTopic],
		ReviewSessions:         result.ReviewsScheduled(),
		ExclusionsCreated:      len(result.Overflow.Excluded),
		SessionsBySubject:      result.SessionsBySubject(),
		RetaFinalApplied:       result.Overflow.Applied,
		KeptSubjects:           result.Overflow.KeptSubjects,
		Exclusions:             make([]dto.ExclusionView, 0, len(result.Overflow.Excluded)),
		Reviews:                make([]dto.ReviewOutcomeView, 0, len(result.Reviews)),
		NulledTopicIDs:         outcome.NulledTopicIDs,
		PendingSessionsRemoved: outcome.PendingRemoved,
		RoundRobinBoundReached: result.RoundRobinBound,
	}
	for _, ex := range result.Overflow.Excluded {
		summary.Exclusions = append(summary.Exclusions, dto.ExclusionView{
			TopicID:          ex.Topic.ID,
			SubjectName:      ex.Topic.SubjectName,
			Description:      ex.Topic.Description,
			CombinedPriority: ex.CombinedPriority,
			Reason:           ex.Reason,
		})
	}
	for _, review := range result.Reviews {
		view := dto.ReviewOutcomeView{
			TopicID:        review.TopicID,
			SubjectName:    review.SubjectName,
			Type:           string(review.Type),
			CompletionDate: review.CompletionDate.String(),
			TargetDate:     review.TargetDate.String(),
			Skipped:        review.Skipped,
			Reason:         review.Reason,
		}
		if review.ScheduledOn != nil {
			on := review.ScheduledOn.String()
			view.ScheduledOn = &on
		}
		summary.Reviews = append(summary.Reviews, view)
	}
	return summary
}

func skippedReviewsByReason(outcomes []scheduling.ReviewOutcome) map[string]int {
	out := make(map[string]int)
	for _, o := range outcomes {
		if o.Skipped {
			out[o.Reason]++
		}
	}
	return out
}

func sessionView(row models.StudySession) dto.SessionView {
	return dto.SessionView{
		ID:               row.ID,
		Date:             row.SessionDate.String(),
		Type:             string(row.SessionType),
		Status:           string(row.Status),
		SubjectName:      row.SubjectName,
		TopicID:          row.TopicID,
		TopicDescription: row.TopicDescription,
	}
}
