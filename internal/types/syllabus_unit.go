package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	UnitKindChapter = "chapter"
	UnitKindSection = "section"
)

// SyllabusUnit is a read-only row supplied by the ingestion process.
// Ordering is (chapter_number, sort_order); the engine never mutates these
// within a course run.
type SyllabusUnit struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Subject       string     `gorm:"column:subject;not null;index:idx_syllabus_subject_order" json:"subject"`
	Kind          string     `gorm:"column:kind;not null;default:'chapter'" json:"kind"`
	ParentUnitID  *uuid.UUID `gorm:"type:uuid;column:parent_unit_id;index" json:"parent_unit_id,omitempty"`
	ChapterNumber int        `gorm:"column:chapter_number;not null;index:idx_syllabus_subject_order" json:"chapter_number"`
	SortOrder     int        `gorm:"column:sort_order;not null;index:idx_syllabus_subject_order" json:"sort_order"`
	UnitKey       string     `gorm:"column:unit_key;not null" json:"unit_key"`
	Title         string     `gorm:"column:title;not null" json:"title"`
	IngestedAt    time.Time  `gorm:"column:ingested_at;not null" json:"ingested_at"`
}

func (SyllabusUnit) TableName() string { return "syllabus_unit" }
