package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RevisionStatusQueued     = "queued"
	RevisionStatusInProgress = "in_progress"
	RevisionStatusResolved   = "resolved"
)

const (
	RevisionReasonRepeatedLowScore = "repeated_low_score"
	RevisionReasonBelowMasteredBar = "below_mastered_bar"
	RevisionReasonWeakZone         = "weak_zone"
	RevisionReasonRetentionDecay   = "retention_decay"
)

// Priority is a derived rank (lower = sooner): lowest mastery first, ties
// broken by earliest chapter order. Clients never set it.
type RevisionQueueItem struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID     `gorm:"type:uuid;not null;index:idx_revision_learner_status" json:"learner_id"`
	UnitID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit      *SyllabusUnit `gorm:"foreignKey:UnitID;references:ID" json:"unit,omitempty"`
	Pass      int           `gorm:"column:pass;not null;default:1" json:"pass"`
	Reason    string        `gorm:"column:reason;not null" json:"reason"`
	Priority  int           `gorm:"column:priority;not null;default:1;index" json:"priority"`
	Status    string        `gorm:"column:status;not null;default:'queued';index:idx_revision_learner_status" json:"status"`
	CreatedAt time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null" json:"updated_at"`
}

func (RevisionQueueItem) TableName() string { return "revision_queue" }
