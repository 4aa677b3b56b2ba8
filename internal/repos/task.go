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

type TaskRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Task) ([]*types.Task, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error)
	ListByLearnerAndWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) ([]*types.Task, error)
	CountPendingByWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) (int64, error)
	MarkCompleted(dbc dbctx.Context, id uuid.UUID, completedAt time.Time) error
	DeleteUnlockedByWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) error
}

type taskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepo(db *gorm.DB, baseLog *logger.Logger) TaskRepo {
	return &taskRepo{db: db, log: baseLog.With("repo", "TaskRepo")}
}

func (r *taskRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *taskRepo) CreateBatch(dbc dbctx.Context, rows []*types.Task) ([]*types.Task, error) {
	if len(rows) == 0 {
		return []*types.Task{}, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *taskRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Task, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Task
	err := r.dbx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *taskRepo) ListByLearnerAndWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) ([]*types.Task, error) {
	var results []*types.Task
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND week_number = ?", learnerID, weekNumber).
		Order("sort_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *taskRepo) CountPendingByWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) (int64, error) {
	var count int64
	if learnerID == uuid.Nil {
		return 0, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("learner_id = ? AND week_number = ? AND status <> ?", learnerID, weekNumber, types.TaskStatusCompleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkCompleted only touches status/completed_at; locked task content is
// immutable by contract.
func (r *taskRepo) MarkCompleted(dbc dbctx.Context, id uuid.UUID, completedAt time.Time) error {
	if id == uuid.Nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       types.TaskStatusCompleted,
			"completed_at": completedAt,
		}).Error
}

func (r *taskRepo) DeleteUnlockedByWeek(dbc dbctx.Context, learnerID uuid.UUID, weekNumber int) error {
	if learnerID == uuid.Nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND week_number = ? AND is_locked = ?", learnerID, weekNumber, false).
		Delete(&types.Task{}).Error
}
