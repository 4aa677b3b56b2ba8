package repos

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type IdempotencyRepo interface {
	GetByKey(dbc dbctx.Context, key string) (*types.IdempotencyRecord, error)
	Create(dbc dbctx.Context, row *types.IdempotencyRecord) (*types.IdempotencyRecord, error)
}

type idempotencyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdempotencyRepo(db *gorm.DB, baseLog *logger.Logger) IdempotencyRepo {
	return &idempotencyRepo{db: db, log: baseLog.With("repo", "IdempotencyRepo")}
}

func (r *idempotencyRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *idempotencyRepo) GetByKey(dbc dbctx.Context, key string) (*types.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var out types.IdempotencyRecord
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("key = ?", key).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *idempotencyRepo) Create(dbc dbctx.Context, row *types.IdempotencyRecord) (*types.IdempotencyRecord, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}
