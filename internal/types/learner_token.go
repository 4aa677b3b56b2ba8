package types

import (
	"time"

	"github.com/google/uuid"
)

type LearnerToken struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LearnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"learner_id"`
	Learner      *Learner  `gorm:"constraint:OnDelete:CASCADE;foreignKey:LearnerID;references:ID" json:"learner,omitempty"`
	RefreshToken string    `gorm:"column:refresh_token;not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (LearnerToken) TableName() string { return "learner_token" }
