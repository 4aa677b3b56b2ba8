package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TaskAttempt is the evidence record the evaluator consumes. Score is the
// normalized [0,1] grade supplied by the external grading collaborator.
type TaskAttempt struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"task_id"`
	Task             *Task          `gorm:"constraint:OnDelete:CASCADE;foreignKey:TaskID;references:ID" json:"task,omitempty"`
	LearnerID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	ProofPayload     datatypes.JSON `gorm:"type:jsonb;column:proof_payload" json:"proof_payload"`
	Score            *float64       `gorm:"column:score" json:"score,omitempty"`
	TimeSpentSeconds int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	Accepted         bool           `gorm:"column:accepted;not null;default:false" json:"accepted"`
	Reason           string         `gorm:"column:reason;not null;default:'proof_required'" json:"reason"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
}

func (TaskAttempt) TableName() string { return "task_attempt" }
