package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	PacingAhead   = "ahead"
	PacingOnTrack = "on_track"
	PacingBehind  = "behind"
)

// WeeklyForecast is an immutable history record; one row per recomputation,
// including unchanged ones, so the drift series has no gaps. Degraded marks
// rows where the forecaster fell back to the previous value.
type WeeklyForecast struct {
	ID                       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID                uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	WeekNumber               int       `gorm:"column:week_number;not null;default:1" json:"week_number"`
	SelectedTimelineWeeks    int       `gorm:"column:selected_timeline_weeks;not null" json:"selected_timeline_weeks"`
	RecommendedTimelineWeeks int       `gorm:"column:recommended_timeline_weeks;not null" json:"recommended_timeline_weeks"`
	CurrentForecastWeeks     int       `gorm:"column:current_forecast_weeks;not null" json:"current_forecast_weeks"`
	TimelineDeltaWeeks       int       `gorm:"column:timeline_delta_weeks;not null;default:0" json:"timeline_delta_weeks"`
	PacingStatus             string    `gorm:"column:pacing_status;not null;default:'on_track'" json:"pacing_status"`
	Degraded                 bool      `gorm:"column:degraded;not null;default:false" json:"degraded"`
	Reason                   string    `gorm:"column:reason;not null;default:'initial_forecast'" json:"reason"`
	GeneratedAt              time.Time `gorm:"column:generated_at;not null" json:"generated_at"`
}

func (WeeklyForecast) TableName() string { return "weekly_forecast" }
