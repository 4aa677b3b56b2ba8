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

type LearnerRepo interface {
	Create(dbc dbctx.Context, row *types.Learner) (*types.Learner, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Learner, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Learner, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
}

type learnerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerRepo(db *gorm.DB, baseLog *logger.Logger) LearnerRepo {
	return &learnerRepo{db: db, log: baseLog.With("repo", "LearnerRepo")}
}

func (r *learnerRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *learnerRepo) Create(dbc dbctx.Context, row *types.Learner) (*types.Learner, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *learnerRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Learner, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Learner
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Learner, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var out types.Learner
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("email = ?", email).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	row, err := r.GetByEmail(dbc, email)
	if err != nil {
		return false, err
	}
	return row != nil, nil
}

func (r *learnerRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Learner{}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
