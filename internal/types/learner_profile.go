package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearnerProfile is the per-learner planning snapshot. SelectedTimelineWeeks
// is fixed at onboarding (14..28); only CurrentForecastWeeks adapts as the
// pace forecaster runs.
type LearnerProfile struct {
	ID                       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID                uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`
	Learner                  *Learner       `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`
	Ability                  float64        `gorm:"column:ability;not null;default:0" json:"ability"`
	CognitiveDepth           float64        `gorm:"column:cognitive_depth;not null;default:0.5" json:"cognitive_depth"`
	SelectedTimelineWeeks    int            `gorm:"column:selected_timeline_weeks;not null;default:14" json:"selected_timeline_weeks"`
	RecommendedTimelineWeeks int            `gorm:"column:recommended_timeline_weeks;not null;default:14" json:"recommended_timeline_weeks"`
	CurrentForecastWeeks     int            `gorm:"column:current_forecast_weeks;not null;default:14" json:"current_forecast_weeks"`
	TimelineDeltaWeeks       int            `gorm:"column:timeline_delta_weeks;not null;default:0" json:"timeline_delta_weeks"`
	EngagementMinutes        int            `gorm:"column:engagement_minutes;not null;default:0" json:"engagement_minutes"`
	LoginStreakDays          int            `gorm:"column:login_streak_days;not null;default:0" json:"login_streak_days"`
	Metadata                 datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`
	CreatedAt                time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time      `gorm:"not null" json:"updated_at"`
}

func (LearnerProfile) TableName() string { return "learner_profile" }
