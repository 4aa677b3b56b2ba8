package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
)

const tickConcurrency = 8

// SchedulerService drives the weekly tick across all learners. One learner's
// failure never blocks another's tick; conflicts with in-flight score
// submissions are skipped and retried on the next cycle.
type SchedulerService interface {
	Run(ctx context.Context, interval time.Duration) error
	TickAll(ctx context.Context) error
}

type schedulerService struct {
	db           *gorm.DB
	log          *logger.Logger
	learners     repos.LearnerRepo
	orchestrator OrchestratorService
}

func NewSchedulerService(db *gorm.DB, baseLog *logger.Logger, learners repos.LearnerRepo, orchestrator OrchestratorService) SchedulerService {
	return &schedulerService{
		db:           db,
		log:          baseLog.With("service", "SchedulerService"),
		learners:     learners,
		orchestrator: orchestrator,
	}
}

// Run blocks until ctx is cancelled, firing TickAll on each interval.
func (s *schedulerService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 7 * 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("Weekly tick scheduler started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Weekly tick scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.TickAll(ctx); err != nil {
				s.log.Error("Weekly tick cycle failed", "error", err)
			}
		}
	}
}

func (s *schedulerService) TickAll(ctx context.Context) error {
	ids, err := s.learners.ListIDs(dbctx.Context{Ctx: ctx})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tickConcurrency)
	for _, id := range ids {
		learnerID := id
		g.Go(func() error {
			s.tickOne(gctx, learnerID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.log.Info("Weekly tick cycle complete", "learners", len(ids))
	return nil
}

func (s *schedulerService) tickOne(ctx context.Context, learnerID uuid.UUID) {
	_, err := s.orchestrator.HandleWeeklyTick(ctx, learnerID)
	if err == nil {
		return
	}
	switch apierr.CodeOf(err) {
	case apierr.CodeConcurrentConflict:
		s.log.Debug("Tick skipped, learner run in flight", "learner_id", learnerID.String())
	case apierr.CodeNotFound:
		// Learner has no active plan yet; nothing to tick.
	default:
		s.log.Error("Weekly tick failed", "learner_id", learnerID.String(), "error", err)
	}
}
