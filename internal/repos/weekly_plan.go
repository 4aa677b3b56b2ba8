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

type WeeklyPlanRepo interface {
	Create(dbc dbctx.Context, row *types.WeeklyPlan) (*types.WeeklyPlan, error)
	GetActiveByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyPlan, error)
	Save(dbc dbctx.Context, row *types.WeeklyPlan) error
}

type weeklyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklyPlanRepo(db *gorm.DB, baseLog *logger.Logger) WeeklyPlanRepo {
	return &weeklyPlanRepo{db: db, log: baseLog.With("repo", "WeeklyPlanRepo")}
}

func (r *weeklyPlanRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *weeklyPlanRepo) Create(dbc dbctx.Context, row *types.WeeklyPlan) (*types.WeeklyPlan, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *weeklyPlanRepo) GetActiveByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyPlan, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var out types.WeeklyPlan
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ? AND status = ?", learnerID, types.PlanStatusActive).
		Order("generated_at DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *weeklyPlanRepo) Save(dbc dbctx.Context, row *types.WeeklyPlan) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	row.UpdatedAt = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).Save(row).Error
}
