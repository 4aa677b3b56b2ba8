package repos

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type SyllabusUnitRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.SyllabusUnit) ([]*types.SyllabusUnit, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyllabusUnit, error)
	ListBySubject(dbc dbctx.Context, subject string) ([]*types.SyllabusUnit, error)
	CountBySubject(dbc dbctx.Context, subject string) (int64, error)
}

type syllabusUnitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyllabusUnitRepo(db *gorm.DB, baseLog *logger.Logger) SyllabusUnitRepo {
	return &syllabusUnitRepo{db: db, log: baseLog.With("repo", "SyllabusUnitRepo")}
}

func (r *syllabusUnitRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *syllabusUnitRepo) CreateBatch(dbc dbctx.Context, rows []*types.SyllabusUnit) ([]*types.SyllabusUnit, error) {
	if len(rows) == 0 {
		return []*types.SyllabusUnit{}, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *syllabusUnitRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SyllabusUnit, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.SyllabusUnit
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBySubject returns units in canonical hierarchy order.
func (r *syllabusUnitRepo) ListBySubject(dbc dbctx.Context, subject string) ([]*types.SyllabusUnit, error) {
	subject = strings.TrimSpace(subject)
	var results []*types.SyllabusUnit
	if subject == "" {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("subject = ?", subject).
		Order("chapter_number ASC, sort_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *syllabusUnitRepo) CountBySubject(dbc dbctx.Context, subject string) (int64, error) {
	var count int64
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.SyllabusUnit{}).
		Where("subject = ?", strings.TrimSpace(subject)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
