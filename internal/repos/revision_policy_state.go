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

type RevisionPolicyStateRepo interface {
	GetByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.RevisionPolicyState, error)
	Create(dbc dbctx.Context, row *types.RevisionPolicyState) (*types.RevisionPolicyState, error)
	Save(dbc dbctx.Context, row *types.RevisionPolicyState) error
}

type revisionPolicyStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRevisionPolicyStateRepo(db *gorm.DB, baseLog *logger.Logger) RevisionPolicyStateRepo {
	return &revisionPolicyStateRepo{db: db, log: baseLog.With("repo", "RevisionPolicyStateRepo")}
}

func (r *revisionPolicyStateRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *revisionPolicyStateRepo) GetByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.RevisionPolicyState, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var out types.RevisionPolicyState
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *revisionPolicyStateRepo) Create(dbc dbctx.Context, row *types.RevisionPolicyState) (*types.RevisionPolicyState, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *revisionPolicyStateRepo) Save(dbc dbctx.Context, row *types.RevisionPolicyState) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).Save(row).Error
}
