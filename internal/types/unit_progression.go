package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProgressionStatusNotStarted = "not_started"
	ProgressionStatusInProgress = "in_progress"
	ProgressionStatusCompleted  = "completed"
)

// UnitProgression is mutated only by the progression evaluator. AttemptCount
// never decreases; status moves forward except for explicit revision
// re-entry, which is tagged via RevisionQueued instead of rewinding Status.
type UnitProgression struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID         uuid.UUID     `gorm:"type:uuid;not null;index:idx_learner_unit,unique" json:"learner_id"`
	UnitID            uuid.UUID     `gorm:"type:uuid;not null;index:idx_learner_unit,unique" json:"unit_id"`
	Unit              *SyllabusUnit `gorm:"foreignKey:UnitID;references:ID" json:"unit,omitempty"`
	Status            string        `gorm:"column:status;not null;default:'not_started'" json:"status"`
	MasteryScore      float64       `gorm:"column:mastery_score;not null;default:0" json:"mastery_score"`
	BestScore         float64       `gorm:"column:best_score;not null;default:0" json:"best_score"`
	AttemptCount      int           `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	TimedOut          bool          `gorm:"column:timed_out;not null;default:false" json:"timed_out"`
	RevisionQueued    bool          `gorm:"column:revision_queued;not null;default:false" json:"revision_queued"`
	LastPracticedWeek int           `gorm:"column:last_practiced_week;not null;default:0" json:"last_practiced_week"`
	CreatedAt         time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null" json:"updated_at"`
}

func (UnitProgression) TableName() string { return "unit_progression" }
