package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PlanReasonOnboardingInitial = "onboarding_initial"
	PlanReasonThresholdPass     = "threshold_pass"
	PlanReasonThresholdRetry    = "threshold_retry"
	PlanReasonForcedAdvance     = "forced_advance"
	PlanReasonPaceExtend        = "pace_extend"
	PlanReasonPaceCompress      = "pace_compress"
	PlanReasonWeeklyTick        = "weekly_tick"
)

// WeeklyPlanVersion is the append-only recomputation log. Rows are never
// updated after creation.
type WeeklyPlanVersion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	WeeklyPlanID  uuid.UUID      `gorm:"type:uuid;not null;index:idx_plan_version,unique" json:"weekly_plan_id"`
	LearnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	VersionNumber int            `gorm:"column:version_number;not null;index:idx_plan_version,unique" json:"version_number"`
	CurrentWeek   int            `gorm:"column:current_week;not null;default:1" json:"current_week"`
	PlanPayload   datatypes.JSON `gorm:"type:jsonb;column:plan_payload" json:"plan_payload"`
	Reason        string         `gorm:"column:reason;not null;default:'generated'" json:"reason"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (WeeklyPlanVersion) TableName() string { return "weekly_plan_version" }
