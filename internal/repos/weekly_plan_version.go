package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type WeeklyPlanVersionRepo interface {
	Create(dbc dbctx.Context, row *types.WeeklyPlanVersion) (*types.WeeklyPlanVersion, error)
	MaxVersionNumber(dbc dbctx.Context, planID uuid.UUID) (int, error)
	ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.WeeklyPlanVersion, error)
}

type weeklyPlanVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklyPlanVersionRepo(db *gorm.DB, baseLog *logger.Logger) WeeklyPlanVersionRepo {
	return &weeklyPlanVersionRepo{db: db, log: baseLog.With("repo", "WeeklyPlanVersionRepo")}
}

func (r *weeklyPlanVersionRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *weeklyPlanVersionRepo) Create(dbc dbctx.Context, row *types.WeeklyPlanVersion) (*types.WeeklyPlanVersion, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *weeklyPlanVersionRepo) MaxVersionNumber(dbc dbctx.Context, planID uuid.UUID) (int, error) {
	if planID == uuid.Nil {
		return 0, nil
	}
	var max *int
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.WeeklyPlanVersion{}).
		Where("weekly_plan_id = ?", planID).
		Select("MAX(version_number)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *weeklyPlanVersionRepo) ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.WeeklyPlanVersion, error) {
	var results []*types.WeeklyPlanVersion
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
