package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/studyplan-api/pkg/localdate"
)

// WeeklyHours maps a weekday (0 = Sunday ... 6 = Saturday) to study hours.
type WeeklyHours map[time.Weekday]float64

// HoursFor returns the configured hours for a weekday, zero when absent.
func (w WeeklyHours) HoursFor(day time.Weekday) float64 {
	if w == nil {
		return 0
	}
	return w[day]
}

// Total sums the configured weekly hours.
func (w WeeklyHours) Total() float64 {
	var total float64
	for _, h := range w {
		total += h
	}
	return total
}

// Value stores the mapping as a JSON object keyed by weekday number.
func (w WeeklyHours) Value() (driver.Value, error) {
	if w == nil {
		return []byte(`{}`), nil
	}
	payload := make(map[string]float64, len(w))
	for day, hours := range w {
		payload[fmt.Sprintf("%d", int(day))] = hours
	}
	return json.Marshal(payload)
}

// Scan reads the JSON object written by Value.
func (w *WeeklyHours) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*w = WeeklyHours{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("weekly hours: unsupported Scan type %T", src)
	}
	return json.Unmarshal(raw, w)
}

// UnmarshalJSON accepts {"1": 2.5, ...} keyed by weekday number.
func (w *WeeklyHours) UnmarshalJSON(b []byte) error {
	var payload map[string]float64
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	out := make(WeeklyHours, len(payload))
	for key, hours := range payload {
		var day int
		if _, err := fmt.Sscanf(key, "%d", &day); err != nil || day < 0 || day > 6 {
			return fmt.Errorf("weekly hours: invalid weekday key %q", key)
		}
		out[time.Weekday(day)] = hours
	}
	*w = out
	return nil
}

// MarshalJSON mirrors UnmarshalJSON.
func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	payload := make(map[string]float64, len(w))
	for day, hours := range w {
		payload[fmt.Sprintf("%d", int(day))] = hours
	}
	return json.Marshal(payload)
}

// StudyPlanConfig drives capacity and feasibility for a generation run.
type StudyPlanConfig struct {
	ExamDate               localdate.Date `db:"exam_date" json:"exam_date"`
	StudyHoursPerWeekday   WeeklyHours    `db:"study_hours_per_weekday" json:"study_hours_per_weekday"`
	SessionDurationMinutes int            `db:"session_duration_minutes" json:"session_duration_minutes"`
	RetaFinalModeEnabled   bool           `db:"reta_final_mode_enabled" json:"reta_final_mode_enabled"`
	WeekdaysOnly           bool           `db:"weekdays_only" json:"weekdays_only"`
}

// StudyPlan is the owner of subjects, topics, sessions and exclusions.
type StudyPlan struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	Name   string `db:"name" json:"name"`
	StudyPlanConfig
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
