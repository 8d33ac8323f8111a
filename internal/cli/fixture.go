package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// Fixture is a study plan snapshot read from YAML.
type Fixture struct {
	PlanID   string           `yaml:"plan_id"`
	Today    string           `yaml:"today"`
	Timezone string           `yaml:"timezone"`
	Config   FixtureConfig    `yaml:"config"`
	Topics   []FixtureTopic   `yaml:"topics"`
	Sessions []FixtureSession `yaml:"sessions"`
}

// FixtureConfig mirrors the plan configuration.
type FixtureConfig struct {
	ExamDate               string          `yaml:"exam_date"`
	StudyHoursPerWeekday   map[int]float64 `yaml:"study_hours_per_weekday"`
	SessionDurationMinutes int             `yaml:"session_duration_minutes"`
	RetaFinalModeEnabled   bool            `yaml:"reta_final_mode_enabled"`
	WeekdaysOnly           bool            `yaml:"weekdays_only"`
}

// FixtureTopic is a topic with its subject inlined.
type FixtureTopic struct {
	ID             string `yaml:"id"`
	Subject        string `yaml:"subject"`
	SubjectWeight  int    `yaml:"subject_weight"`
	Description    string `yaml:"description"`
	PriorityWeight int    `yaml:"priority_weight"`
	Status         string `yaml:"status"`
	CompletionDate string `yaml:"completion_date"`
}

// FixtureSession is a persisted session, used by audit and as completed history.
type FixtureSession struct {
	ID      string `yaml:"id"`
	TopicID string `yaml:"topic_id"`
	Subject string `yaml:"subject"`
	Topic   string `yaml:"topic"`
	Date    string `yaml:"date"`
	Type    string `yaml:"type"`
	Status  string `yaml:"status"`
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return ParseFixture(f)
}

// ParseFixture decodes a fixture document.
func ParseFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if fx.PlanID == "" {
		fx.PlanID = "fixture"
	}
	return &fx, nil
}

// Calculator pins today when the fixture sets it, otherwise uses the wall clock in Timezone.
func (fx *Fixture) Calculator() (*localdate.Calculator, error) {
	if fx.Today != "" {
		today, err := localdate.Parse(fx.Today)
		if err != nil {
			return nil, fmt.Errorf("today: %w", err)
		}
		return localdate.NewFixedCalculator(today), nil
	}
	calc, err := localdate.NewCalculator(fx.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return calc, nil
}

// PlanConfig converts the config block.
func (fx *Fixture) PlanConfig() (models.StudyPlanConfig, error) {
	cfg := models.StudyPlanConfig{
		SessionDurationMinutes: fx.Config.SessionDurationMinutes,
		RetaFinalModeEnabled:   fx.Config.RetaFinalModeEnabled,
		WeekdaysOnly:           fx.Config.WeekdaysOnly,
		StudyHoursPerWeekday:   make(models.WeeklyHours, len(fx.Config.StudyHoursPerWeekday)),
	}
	if fx.Config.ExamDate != "" {
		exam, err := localdate.Parse(fx.Config.ExamDate)
		if err != nil {
			return cfg, fmt.Errorf("exam_date: %w", err)
		}
		cfg.ExamDate = exam
	}
	for day, hours := range fx.Config.StudyHoursPerWeekday {
		cfg.StudyHoursPerWeekday[time.Weekday(day)] = hours
	}
	return cfg, nil
}

// PlanTopics converts the topic list.
func (fx *Fixture) PlanTopics() ([]models.Topic, error) {
	topics := make([]models.Topic, 0, len(fx.Topics))
	for i, t := range fx.Topics {
		id := t.ID
		if id == "" {
			id = fmt.Sprintf("t%d", i+1)
		}
		status := models.TopicStatus(t.Status)
		if status == "" {
			status = models.TopicStatusPending
		}
		topic := models.Topic{
			ID:             id,
			PlanID:         fx.PlanID,
			SubjectID:      t.Subject,
			SubjectName:    t.Subject,
			SubjectWeight:  t.SubjectWeight,
			Description:    t.Description,
			PriorityWeight: t.PriorityWeight,
			Status:         status,
		}
		if t.CompletionDate != "" {
			done, err := localdate.Parse(t.CompletionDate)
			if err != nil {
				return nil, fmt.Errorf("topic %s completion_date: %w", id, err)
			}
			topic.CompletionDate = &done
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

// PlanSessions converts the session list.
func (fx *Fixture) PlanSessions() ([]models.StudySession, error) {
	sessions := make([]models.StudySession, 0, len(fx.Sessions))
	for i, s := range fx.Sessions {
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("s%d", i+1)
		}
		date, err := localdate.Parse(s.Date)
		if err != nil {
			return nil, fmt.Errorf("session %s date: %w", id, err)
		}
		sessionType := models.SessionType(s.Type)
		if sessionType == "" {
			sessionType = models.SessionTypeNewTopic
		}
		if !sessionType.Valid() {
			return nil, fmt.Errorf("session %s: unknown type %q", id, s.Type)
		}
		status := models.SessionStatus(s.Status)
		if status == "" {
			status = models.SessionStatusPending
		}
		var topicID *string
		if s.TopicID != "" {
			ref := s.TopicID
			topicID = &ref
		}
		sessions = append(sessions, models.StudySession{
			ID:               id,
			PlanID:           fx.PlanID,
			TopicID:          topicID,
			SubjectName:      s.Subject,
			TopicDescription: s.Topic,
			SessionDate:      date,
			SessionType:      sessionType,
			Status:           status,
		})
	}
	return sessions, nil
}

// CompletedHistory returns the completed sessions of the fixture.
func (fx *Fixture) CompletedHistory() ([]models.StudySession, error) {
	sessions, err := fx.PlanSessions()
	if err != nil {
		return nil, err
	}
	out := sessions[:0]
	for _, s := range sessions {
		if s.Status == models.SessionStatusCompleted {
			out = append(out, s)
		}
	}
	return out, nil
}
