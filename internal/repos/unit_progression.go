package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type UnitProgressionRepo interface {
	Create(dbc dbctx.Context, row *types.UnitProgression) (*types.UnitProgression, error)
	GetByLearnerAndUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID) (*types.UnitProgression, error)
	ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.UnitProgression, error)
	Save(dbc dbctx.Context, row *types.UnitProgression) error
	CountByStatus(dbc dbctx.Context, learnerID uuid.UUID, status string) (int64, error)
}

type unitProgressionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUnitProgressionRepo(db *gorm.DB, baseLog *logger.Logger) UnitProgressionRepo {
	return &unitProgressionRepo{db: db, log: baseLog.With("repo", "UnitProgressionRepo")}
}

func (r *unitProgressionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *unitProgressionRepo) Create(dbc dbctx.Context, row *types.UnitProgression) (*types.UnitProgression, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *unitProgressionRepo) GetByLearnerAndUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID) (*types.UnitProgression, error) {
	if learnerID == uuid.Nil || unitID == uuid.Nil {
		return nil, nil
	}
	var out types.UnitProgression
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND unit_id = ?", learnerID, unitID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *unitProgressionRepo) ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.UnitProgression, error) {
	var results []*types.UnitProgression
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *unitProgressionRepo) Save(dbc dbctx.Context, row *types.UnitProgression) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).Save(row).Error
}

func (r *unitProgressionRepo) CountByStatus(dbc dbctx.Context, learnerID uuid.UUID, status string) (int64, error) {
	var count int64
	if learnerID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.UnitProgression{}).
		Where("learner_id = ? AND status = ?", learnerID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
