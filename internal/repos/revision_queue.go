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

type RevisionQueueRepo interface {
	Create(dbc dbctx.Context, row *types.RevisionQueueItem) (*types.RevisionQueueItem, error)
	ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error)
	ListOpenByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error)
	GetOpenByLearnerAndUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID) (*types.RevisionQueueItem, error)
	ListByLearnerAndPass(dbc dbctx.Context, learnerID uuid.UUID, pass int) ([]*types.RevisionQueueItem, error)
	CountOpenByPass(dbc dbctx.Context, learnerID uuid.UUID, pass int) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
}

type revisionQueueRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionQueueRepo(db *gorm.DB, baseLog *logger.Logger) RevisionQueueRepo {
	return &revisionQueueRepo{db: db, log: baseLog.With("repo", "RevisionQueueRepo")}
}

func (r *revisionQueueRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *revisionQueueRepo) Create(dbc dbctx.Context, row *types.RevisionQueueItem) (*types.RevisionQueueItem, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *revisionQueueRepo) ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error) {
	var results []*types.RevisionQueueItem
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Order("priority ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *revisionQueueRepo) ListOpenByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error) {
	var results []*types.RevisionQueueItem
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND status <> ?", learnerID, types.RevisionStatusResolved).
		Order("priority ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *revisionQueueRepo) GetOpenByLearnerAndUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID) (*types.RevisionQueueItem, error) {
	if learnerID == uuid.Nil || unitID == uuid.Nil {
		return nil, nil
	}
	var out types.RevisionQueueItem
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND unit_id = ? AND status <> ?", learnerID, unitID, types.RevisionStatusResolved).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *revisionQueueRepo) ListByLearnerAndPass(dbc dbctx.Context, learnerID uuid.UUID, pass int) ([]*types.RevisionQueueItem, error) {
	var results []*types.RevisionQueueItem
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND pass = ?", learnerID, pass).
		Order("priority ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *revisionQueueRepo) CountOpenByPass(dbc dbctx.Context, learnerID uuid.UUID, pass int) (int64, error) {
	var count int64
	if learnerID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.RevisionQueueItem{}).
		Where("learner_id = ? AND pass = ? AND status <> ?", learnerID, pass, types.RevisionStatusResolved).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *revisionQueueRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	if id == uuid.Nil || len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.RevisionQueueItem{}).
		Where("id = ?", id).
		Updates(fields).Error
}
