package scheduling

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// Session duration bounds accepted by the planner.
const (
	MinSessionMinutes = 10
	MaxSessionMinutes = 240
)

// Input is everything one generation run reads.
type Input struct {
	PlanID string
	Config models.StudyPlanConfig
	// Topics holds both pending and completed topics with subject weights joined in.
	Topics []models.Topic
	// History holds completed sessions of earlier runs; they occupy capacity and are never rewritten.
	History []models.StudySession
}

// Result is the in-memory outcome of one generation run.
type Result struct {
	PlanID           string           `json:"plan_id"`
	Today            localdate.Date   `json:"today"`
	ExamDate         localdate.Date   `json:"exam_date"`
	Agenda           *Agenda          `json:"-"`
	CapacityDays     []CapacityDay    `json:"capacity_days"`
	NewTopicCapacity int              `json:"new_topic_capacity"`
	PendingCount     int              `json:"pending_count"`
	CompletedCount   int              `json:"completed_count"`
	Prioritized      []models.Topic   `json:"-"`
	Overflow         OverflowDecision `json:"overflow"`
	Reviews          []ReviewOutcome  `json:"reviews"`
	RoundRobinBound  bool             `json:"round_robin_bound_reached"`
	CapacityHits     int              `json:"-"`
}

// SessionsBySubject returns generated sessions per subject name.
func (r *Result) SessionsBySubject() map[string]int {
	if r == nil || r.Agenda == nil {
		return map[string]int{}
	}
	return r.Agenda.CountBySubject()
}

// ReviewsScheduled counts reviews that found a slot.
func (r *Result) ReviewsScheduled() int {
	n := 0
	for _, outcome := range r.Reviews {
		if !outcome.Skipped {
			n++
		}
	}
	return n
}

// Engine runs the generation pipeline:
// capacity -> prioritize -> overflow -> distribute -> reviews.
type Engine struct {
	calc    *localdate.Calculator
	reviews *ReviewScheduler
	logger  *zap.Logger
}

// NewEngine wires the pipeline around a date calculator.
func NewEngine(calc *localdate.Calculator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{calc: calc, reviews: NewReviewScheduler(calc), logger: logger}
}

// Calculator exposes the engine's date calculator.
func (e *Engine) Calculator() *localdate.Calculator { return e.calc }

// ValidateConfig reports configuration errors before any capacity is derived.
func ValidateConfig(cfg models.StudyPlanConfig, today localdate.Date) error {
	if cfg.ExamDate.IsZero() {
		return &ConfigError{Field: "exam_date", Reason: "is required"}
	}
	if !cfg.ExamDate.After(today) {
		return &ConfigError{Field: "exam_date", Reason: fmt.Sprintf("%s must be after today (%s)", cfg.ExamDate, today)}
	}
	if cfg.SessionDurationMinutes < MinSessionMinutes || cfg.SessionDurationMinutes > MaxSessionMinutes {
		return &ConfigError{
			Field:  "session_duration_minutes",
			Reason: fmt.Sprintf("%d is outside %d-%d", cfg.SessionDurationMinutes, MinSessionMinutes, MaxSessionMinutes),
		}
	}
	positive := false
	for day, hours := range cfg.StudyHoursPerWeekday {
		if day < 0 || day > 6 {
			return &ConfigError{Field: "study_hours_per_weekday", Reason: fmt.Sprintf("weekday %d out of range", day)}
		}
		if hours < 0 {
			return &ConfigError{Field: "study_hours_per_weekday", Reason: fmt.Sprintf("negative hours for weekday %d", day)}
		}
		if hours > 24 {
			return &ConfigError{Field: "study_hours_per_weekday", Reason: fmt.Sprintf("more than 24 hours for weekday %d", day)}
		}
		if hours > 0 {
			positive = true
		}
	}
	if !positive {
		return &ConfigError{Field: "study_hours_per_weekday", Reason: "total weekly hours is zero"}
	}
	return nil
}

// Generate builds a fresh agenda. The capacity cache lives only for this call.
func (e *Engine) Generate(in Input) (*Result, error) {
	today := e.calc.Today()
	cfg := in.Config
	if err := ValidateConfig(cfg, today); err != nil {
		return nil, err
	}

	planner := NewCapacityPlanner(e.calc)
	newTopicDays, err := planner.Plan(CapacityRequest{
		Start:           today,
		End:             cfg.ExamDate,
		HoursPerWeekday: cfg.StudyHoursPerWeekday,
		SessionMinutes:  cfg.SessionDurationMinutes,
		WeekdaysOnly:    cfg.WeekdaysOnly,
	})
	if err != nil {
		return nil, err
	}
	allDays, err := planner.Plan(CapacityRequest{
		Start:           today,
		End:             cfg.ExamDate,
		HoursPerWeekday: cfg.StudyHoursPerWeekday,
		SessionMinutes:  cfg.SessionDurationMinutes,
	})
	if err != nil {
		return nil, err
	}

	agenda := NewAgenda(NewCapacityCalendar(allDays))
	reviewed := make(map[string]map[models.SessionType]bool)
	for _, past := range in.History {
		if past.Status != models.SessionStatusCompleted {
			continue
		}
		if !past.SessionDate.Before(today) && !past.SessionDate.After(cfg.ExamDate) {
			agenda.Reserve(past.SessionDate, 1)
		}
		if past.SessionType.IsReview() && past.TopicID != nil {
			if reviewed[*past.TopicID] == nil {
				reviewed[*past.TopicID] = make(map[models.SessionType]bool)
			}
			reviewed[*past.TopicID][past.SessionType] = true
		}
	}

	pending, completed := splitTopics(in.Topics)

	prioritized := PrioritizeTopics(pending)
	if prioritized.BoundReached {
		e.logger.Warn("round-robin iteration bound reached; appending leftover topics in queue order",
			zap.String("plan_id", in.PlanID),
			zap.Int("iterations", prioritized.Iterations),
			zap.Int("topics", len(pending)),
		)
	}

	slots := 0
	for _, day := range newTopicDays {
		slots += agenda.Spare(day.Date)
	}

	decision, err := ResolveOverflow(prioritized.Ordered, slots, cfg.RetaFinalModeEnabled)
	if err != nil {
		return nil, err
	}
	if decision.Applied {
		e.logger.Info("reta final applied",
			zap.String("plan_id", in.PlanID),
			zap.Int("scheduled", len(decision.Scheduled)),
			zap.Int("excluded", len(decision.Excluded)),
		)
	}

	if _, err := DistributeTopics(agenda, decision.Scheduled, newTopicDays, today); err != nil {
		e.logger.Error("session distribution contract violated",
			zap.String("plan_id", in.PlanID),
			zap.Error(err),
		)
		return nil, err
	}

	outcomes := e.reviews.Schedule(agenda, completed, reviewed, today, cfg.ExamDate)
	for _, outcome := range outcomes {
		if outcome.Skipped {
			e.logger.Debug("review skipped",
				zap.String("plan_id", in.PlanID),
				zap.String("topic_id", outcome.TopicID),
				zap.String("type", string(outcome.Type)),
				zap.String("target", outcome.TargetDate.String()),
				zap.String("reason", outcome.Reason),
			)
		}
	}

	return &Result{
		PlanID:           in.PlanID,
		Today:            today,
		ExamDate:         cfg.ExamDate,
		Agenda:           agenda,
		CapacityDays:     newTopicDays,
		NewTopicCapacity: slots,
		PendingCount:     len(pending),
		CompletedCount:   len(completed),
		Prioritized:      prioritized.Ordered,
		Overflow:         decision,
		Reviews:          outcomes,
		RoundRobinBound:  prioritized.BoundReached,
		CapacityHits:     planner.CacheHits(),
	}, nil
}

func splitTopics(topics []models.Topic) (pending, completed []models.Topic) {
	pending = make([]models.Topic, 0, len(topics))
	completed = make([]models.Topic, 0)
	for _, topic := range topics {
		switch topic.Status {
		case models.TopicStatusCompleted:
			completed = append(completed, topic)
		default:
			pending = append(pending, topic)
		}
	}
	return pending, completed
}
