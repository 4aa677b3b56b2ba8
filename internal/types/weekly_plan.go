package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
)

// WeeklyPlan is the current materialized plan. PlanPayload holds the draft
// forecast weeks only; the committed week is represented by locked Task rows
// and is never collapsed into the draft structure.
type WeeklyPlan struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	Status      string         `gorm:"column:status;not null;default:'active'" json:"status"`
	CurrentWeek int            `gorm:"column:current_week;not null;default:1" json:"current_week"`
	TotalWeeks  int            `gorm:"column:total_weeks;not null;default:14" json:"total_weeks"`
	PlanPayload datatypes.JSON `gorm:"type:jsonb;column:plan_payload" json:"plan_payload"`
	GeneratedAt time.Time      `gorm:"column:generated_at;not null" json:"generated_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (WeeklyPlan) TableName() string { return "weekly_plan" }
