package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RevisionPolicyState tracks the three-pass revision sweep. ActivePass only
// advances once every queue item of the current pass is resolved.
type RevisionPolicyState struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"learner_id"`
	ActivePass       int            `gorm:"column:active_pass;not null;default:1" json:"active_pass"`
	Pass1CompletedAt *time.Time     `gorm:"column:pass1_completed_at" json:"pass1_completed_at,omitempty"`
	Pass2CompletedAt *time.Time     `gorm:"column:pass2_completed_at" json:"pass2_completed_at,omitempty"`
	Pass3CompletedAt *time.Time     `gorm:"column:pass3_completed_at" json:"pass3_completed_at,omitempty"`
	PassScores       datatypes.JSON `gorm:"type:jsonb;column:pass_scores" json:"pass_scores"`
	NextActions      datatypes.JSON `gorm:"type:jsonb;column:next_actions" json:"next_actions"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (RevisionPolicyState) TableName() string { return "revision_policy_state" }
