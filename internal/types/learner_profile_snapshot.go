package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearnerProfileSnapshot is append-only; one row per superseding event
// (week completion, forecast change).
type LearnerProfileSnapshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	Reason    string         `gorm:"column:reason;not null" json:"reason"`
	Payload   datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (LearnerProfileSnapshot) TableName() string { return "learner_profile_snapshot" }
