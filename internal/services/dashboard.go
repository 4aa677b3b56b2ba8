package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

const dashboardCacheTTL = 60 * time.Second

// PlanView is the read-model for the current plan: the locked committed-week
// tasks plus the draft forecast payload and the latest pacing readout.
type PlanView struct {
	Plan             *types.WeeklyPlan     `json:"plan"`
	CommittedTasks   []*types.Task         `json:"committed_tasks"`
	PendingTaskCount int64                 `json:"pending_task_count"`
	LatestForecast   *types.WeeklyForecast `json:"latest_forecast,omitempty"`
}

type ProgressionView struct {
	Units          []*types.UnitProgression `json:"units"`
	CompletedCount int                      `json:"completed_count"`
	TotalCount     int                      `json:"total_count"`
}

// DashboardService serves learner-facing reads. Views are cached briefly in
// Redis and invalidated after every orchestrator run, so a learner sees their
// new plan immediately after a submission.
type DashboardService interface {
	GetCurrentPlan(ctx context.Context, learnerID uuid.UUID) (*PlanView, error)
	GetProgressionStatus(ctx context.Context, learnerID uuid.UUID) (*ProgressionView, error)
	GetForecastHistory(ctx context.Context, learnerID uuid.UUID) ([]*types.WeeklyForecast, error)
	GetRevisionQueue(ctx context.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error)
	Invalidate(ctx context.Context, learnerID uuid.UUID)
}

type dashboardService struct {
	db           *gorm.DB
	log          *logger.Logger
	rdb          *goredis.Client
	plans        repos.WeeklyPlanRepo
	tasks        repos.TaskRepo
	progressions repos.UnitProgressionRepo
	forecasts    repos.WeeklyForecastRepo
	revisions    repos.RevisionQueueRepo
	syllabus     SyllabusService
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	rdb *goredis.Client,
	plans repos.WeeklyPlanRepo,
	tasks repos.TaskRepo,
	progressions repos.UnitProgressionRepo,
	forecasts repos.WeeklyForecastRepo,
	revisions repos.RevisionQueueRepo,
	syllabus SyllabusService,
) DashboardService {
	return &dashboardService{
		db:           db,
		log:          baseLog.With("service", "DashboardService"),
		rdb:          rdb,
		plans:        plans,
		tasks:        tasks,
		progressions: progressions,
		forecasts:    forecasts,
		revisions:    revisions,
		syllabus:     syllabus,
	}
}

func dashboardKey(view string, learnerID uuid.UUID) string {
	return fmt.Sprintf("dashboard:%s:%s", view, learnerID)
}

func (s *dashboardService) GetCurrentPlan(ctx context.Context, learnerID uuid.UUID) (*PlanView, error) {
	var view PlanView
	if s.cacheGet(ctx, dashboardKey("plan", learnerID), &view) {
		return &view, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	plan, err := s.plans.GetActiveByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if plan == nil {
		return nil, apierr.NotFound(fmt.Errorf("no active plan for learner %s", learnerID))
	}
	committed, err := s.tasks.ListByLearnerAndWeek(dbc, learnerID, plan.CurrentWeek)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	pending, err := s.tasks.CountPendingByWeek(dbc, learnerID, plan.CurrentWeek)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	latest, err := s.forecasts.GetLatestByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	view = PlanView{
		Plan:             plan,
		CommittedTasks:   committed,
		PendingTaskCount: pending,
		LatestForecast:   latest,
	}
	s.cacheSet(ctx, dashboardKey("plan", learnerID), view)
	return &view, nil
}

func (s *dashboardService) GetProgressionStatus(ctx context.Context, learnerID uuid.UUID) (*ProgressionView, error) {
	var view ProgressionView
	if s.cacheGet(ctx, dashboardKey("progression", learnerID), &view) {
		return &view, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.progressions.ListByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	units, err := s.syllabus.OrderedUnits(ctx, DefaultSubject)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	completed := 0
	for _, row := range rows {
		if row.Status == types.ProgressionStatusCompleted {
			completed++
		}
	}

	view = ProgressionView{Units: rows, CompletedCount: completed, TotalCount: len(units)}
	s.cacheSet(ctx, dashboardKey("progression", learnerID), view)
	return &view, nil
}

func (s *dashboardService) GetForecastHistory(ctx context.Context, learnerID uuid.UUID) ([]*types.WeeklyForecast, error) {
	rows, err := s.forecasts.ListByLearnerID(dbctx.Context{Ctx: ctx}, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return rows, nil
}

func (s *dashboardService) GetRevisionQueue(ctx context.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error) {
	rows, err := s.revisions.ListOpenByLearnerID(dbctx.Context{Ctx: ctx}, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return rows, nil
}

func (s *dashboardService) Invalidate(ctx context.Context, learnerID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	keys := []string{
		dashboardKey("plan", learnerID),
		dashboardKey("progression", learnerID),
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn("Dashboard cache invalidation failed", "learner_id", learnerID.String(), "error", err)
	}
}

func (s *dashboardService) cacheGet(ctx context.Context, key string, out interface{}) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (s *dashboardService) cacheSet(ctx context.Context, key string, val interface{}) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, dashboardCacheTTL).Err(); err != nil {
		s.log.Warn("Dashboard cache write failed", "error", err)
	}
}
