package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type LearnerTokenRepo interface {
	Create(dbc dbctx.Context, row *types.LearnerToken) (*types.LearnerToken, error)
	GetByRefreshToken(dbc dbctx.Context, token string) (*types.LearnerToken, error)
	DeleteByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) error
}

type learnerTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerTokenRepo(db *gorm.DB, baseLog *logger.Logger) LearnerTokenRepo {
	return &learnerTokenRepo{db: db, log: baseLog.With("repo", "LearnerTokenRepo")}
}

func (r *learnerTokenRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *learnerTokenRepo) Create(dbc dbctx.Context, row *types.LearnerToken) (*types.LearnerToken, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *learnerTokenRepo) GetByRefreshToken(dbc dbctx.Context, token string) (*types.LearnerToken, error) {
	if token == "" {
		return nil, nil
	}
	var out types.LearnerToken
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("refresh_token = ?", token).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerTokenRepo) DeleteByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) error {
	if learnerID == uuid.Nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Delete(&types.LearnerToken{}).Error
}
