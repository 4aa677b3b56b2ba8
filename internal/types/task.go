package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TaskTypeRead     = "read"
	TaskTypeTest     = "test"
	TaskTypeRevision = "revision"

	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task rows exist only for the committed week. Once IsLocked is set the row's
// content never changes; completion happens solely through an accepted
// TaskAttempt.
type Task struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_task_learner_week" json:"learner_id"`
	WeekNumber    int            `gorm:"column:week_number;not null;default:1;index:idx_task_learner_week" json:"week_number"`
	UnitID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit          *SyllabusUnit  `gorm:"foreignKey:UnitID;references:ID" json:"unit,omitempty"`
	TaskType      string         `gorm:"column:task_type;not null;default:'read'" json:"task_type"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	SortOrder     int            `gorm:"column:sort_order;not null;default:1" json:"sort_order"`
	Status        string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	IsLocked      bool           `gorm:"column:is_locked;not null;default:true" json:"is_locked"`
	ProofPolicy   datatypes.JSON `gorm:"type:jsonb;column:proof_policy" json:"proof_policy"`
	ContentPolicy datatypes.JSON `gorm:"type:jsonb;column:content_policy" json:"content_policy"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	CompletedAt   *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Task) TableName() string { return "task" }
