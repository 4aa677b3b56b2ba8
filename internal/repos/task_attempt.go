package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type TaskAttemptRepo interface {
	Create(dbc dbctx.Context, row *types.TaskAttempt) (*types.TaskAttempt, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TaskAttempt, error)
	ListByTaskID(dbc dbctx.Context, taskID uuid.UUID) ([]*types.TaskAttempt, error)
}

type taskAttemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskAttemptRepo(db *gorm.DB, baseLog *logger.Logger) TaskAttemptRepo {
	return &taskAttemptRepo{db: db, log: baseLog.With("repo", "TaskAttemptRepo")}
}

func (r *taskAttemptRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *taskAttemptRepo) Create(dbc dbctx.Context, row *types.TaskAttempt) (*types.TaskAttempt, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *taskAttemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.TaskAttempt, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.TaskAttempt
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *taskAttemptRepo) ListByTaskID(dbc dbctx.Context, taskID uuid.UUID) ([]*types.TaskAttempt, error) {
	var results []*types.TaskAttempt
	if taskID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
