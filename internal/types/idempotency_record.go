package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// IdempotencyRecord stores the result of a completed orchestrator run keyed
// by its idempotency key. A repeated trigger with the same key returns the
// stored result instead of re-running.
type IdempotencyRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"learner_id"`
	Key       string         `gorm:"column:key;not null;uniqueIndex" json:"key"`
	Result    datatypes.JSON `gorm:"type:jsonb;column:result" json:"result"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_record" }
