package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type WeeklyForecastRepo interface {
	Create(dbc dbctx.Context, row *types.WeeklyForecast) (*types.WeeklyForecast, error)
	ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.WeeklyForecast, error)
	GetLatestByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyForecast, error)
}

type weeklyForecastRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeeklyForecastRepo(db *gorm.DB, baseLog *logger.Logger) WeeklyForecastRepo {
	return &weeklyForecastRepo{db: db, log: baseLog.With("repo", "WeeklyForecastRepo")}
}

func (r *weeklyForecastRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *weeklyForecastRepo) Create(dbc dbctx.Context, row *types.WeeklyForecast) (*types.WeeklyForecast, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *weeklyForecastRepo) ListByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.WeeklyForecast, error) {
	var results []*types.WeeklyForecast
	if learnerID == uuid.Nil {
		return results, nil
	}
	if err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		Order("week_number ASC, generated_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *weeklyForecastRepo) GetLatestByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyForecast, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var out types.WeeklyForecast
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
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
