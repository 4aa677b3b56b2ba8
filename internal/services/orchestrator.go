package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/locks"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

const lockTTL = 15 * time.Second

// PlanCacheInvalidator drops any cached dashboard view after a run commits.
// Invalidation is best-effort; a failure never rolls back the run.
type PlanCacheInvalidator interface {
	Invalidate(ctx context.Context, learnerID uuid.UUID)
}

// OrchestratorResult is the durable outcome of one engine run. It is stored
// as the idempotency record payload, so a replayed trigger returns exactly
// this shape with Replayed set.
type OrchestratorResult struct {
	Trigger       string  `json:"trigger"`
	Outcome       string  `json:"outcome,omitempty"`
	UnlockedUnit  string  `json:"unlocked_unit,omitempty"`
	RevisionCount int     `json:"revision_count"`
	ActivePass    int     `json:"active_pass"`
	CurrentWeek   int     `json:"current_week"`
	ForecastWeeks int     `json:"forecast_weeks"`
	PacingStatus  string  `json:"pacing_status"`
	PlanReason    string  `json:"plan_reason"`
	Score         float64 `json:"score,omitempty"`
	Replayed      bool    `json:"-"`
}

// OrchestratorService serializes all engine writes for a learner. Each
// trigger takes the per-learner lock, replays from the idempotency store
// when the key is already recorded, and otherwise runs evaluate, revision
// maintenance, pace recompute, and plan rebuild in one transaction.
type OrchestratorService interface {
	SubmitScore(ctx context.Context, learnerID uuid.UUID, sub ScoreSubmission) (*OrchestratorResult, error)
	HandleScoreSubmission(ctx context.Context, learnerID, taskAttemptID uuid.UUID) (*OrchestratorResult, error)
	HandleWeeklyTick(ctx context.Context, learnerID uuid.UUID) (*OrchestratorResult, error)
	HandleOnboarding(ctx context.Context, learnerID uuid.UUID) (*OrchestratorResult, error)
}

// ScoreSubmission is the raw client payload for a graded task. Proof is
// validated against the task's proof policy before an attempt is recorded.
type ScoreSubmission struct {
	TaskID           uuid.UUID       `json:"task_id"`
	Score            float64         `json:"score"`
	ProofPayload     json.RawMessage `json:"proof_payload"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
}

type orchestratorService struct {
	db          *gorm.DB
	log         *logger.Logger
	policy      ProgressionPolicy
	locker      locks.LearnerLocker
	evaluator   EvaluatorService
	revision    RevisionService
	pace        PaceService
	plan        PlanService
	tasks       repos.TaskRepo
	attempts    repos.TaskAttemptRepo
	plans       repos.WeeklyPlanRepo
	idempotency repos.IdempotencyRepo
	cache       PlanCacheInvalidator
}

func NewOrchestratorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	locker locks.LearnerLocker,
	evaluator EvaluatorService,
	revision RevisionService,
	pace PaceService,
	plan PlanService,
	tasks repos.TaskRepo,
	attempts repos.TaskAttemptRepo,
	plans repos.WeeklyPlanRepo,
	idempotency repos.IdempotencyRepo,
	cache PlanCacheInvalidator,
) OrchestratorService {
	return &orchestratorService{
		db:          db,
		log:         baseLog.With("service", "OrchestratorService"),
		policy:      policy,
		locker:      locker,
		evaluator:   evaluator,
		revision:    revision,
		pace:        pace,
		plan:        plan,
		tasks:       tasks,
		attempts:    attempts,
		plans:       plans,
		idempotency: idempotency,
		cache:       cache,
	}
}

// SubmitScore records a TaskAttempt for the submission and runs the engine
// on it. The attempt insert is intentionally outside the idempotent run: the
// attempt ID becomes part of the idempotency key.
func (s *orchestratorService) SubmitScore(ctx context.Context, learnerID uuid.UUID, sub ScoreSubmission) (*OrchestratorResult, error) {
	if sub.Score < 0 || sub.Score > 1 {
		return nil, apierr.InvalidScore(fmt.Errorf("score out of range [0,1]: %v", sub.Score))
	}
	dbc := dbctx.Context{Ctx: ctx}
	task, err := s.tasks.GetByID(dbc, sub.TaskID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if task == nil || task.LearnerID != learnerID {
		return nil, apierr.NotFound(fmt.Errorf("task %s not found", sub.TaskID))
	}
	if reason, ok := proofSatisfied(task, sub); !ok {
		return nil, apierr.InvalidRequest(fmt.Errorf("proof rejected: %s", reason))
	}

	score := sub.Score
	attempt, err := s.attempts.Create(dbc, &types.TaskAttempt{
		ID:               uuid.New(),
		TaskID:           task.ID,
		LearnerID:        learnerID,
		ProofPayload:     datatypes.JSON(sub.ProofPayload),
		Score:            &score,
		TimeSpentSeconds: sub.TimeSpentSeconds,
		Accepted:         true,
		Reason:           "proof_accepted",
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return s.HandleScoreSubmission(ctx, learnerID, attempt.ID)
}

// proofSatisfied checks the submission against the task's proof policy.
func proofSatisfied(task *types.Task, sub ScoreSubmission) (string, bool) {
	var policy struct {
		Kind          string `json:"kind"`
		MinSeconds    int    `json:"min_seconds"`
		RequiresScore bool   `json:"requires_score"`
	}
	if len(task.ProofPolicy) == 0 {
		return "", true
	}
	if err := json.Unmarshal(task.ProofPolicy, &policy); err != nil {
		return "", true
	}
	switch policy.Kind {
	case "time_spent":
		if sub.TimeSpentSeconds < policy.MinSeconds {
			return fmt.Sprintf("requires at least %d seconds of work", policy.MinSeconds), false
		}
	case "scored_submission":
		if len(sub.ProofPayload) == 0 {
			return "requires a work submission", false
		}
	}
	return "", true
}

func (s *orchestratorService) HandleScoreSubmission(ctx context.Context, learnerID, taskAttemptID uuid.UUID) (*OrchestratorResult, error) {
	key := fmt.Sprintf("score:%s:%s", learnerID, taskAttemptID)
	return s.run(ctx, learnerID, key, func(dbc dbctx.Context) (*OrchestratorResult, error) {
		return s.runScoreSubmission(dbc, learnerID, taskAttemptID)
	})
}

func (s *orchestratorService) HandleWeeklyTick(ctx context.Context, learnerID uuid.UUID) (*OrchestratorResult, error) {
	plan, err := s.plans.GetActiveByLearnerID(dbctx.Context{Ctx: ctx}, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if plan == nil {
		return nil, apierr.NotFound(fmt.Errorf("no active plan for learner %s", learnerID))
	}
	// Keyed on the week being closed, so concurrent ticks for the same week
	// collapse into one advance.
	key := fmt.Sprintf("tick:%s:week:%d", learnerID, plan.CurrentWeek)
	return s.run(ctx, learnerID, key, func(dbc dbctx.Context) (*OrchestratorResult, error) {
		return s.runWeeklyTick(dbc, learnerID)
	})
}

func (s *orchestratorService) HandleOnboarding(ctx context.Context, learnerID uuid.UUID) (*OrchestratorResult, error) {
	key := fmt.Sprintf("onboard:%s", learnerID)
	return s.run(ctx, learnerID, key, func(dbc dbctx.Context) (*OrchestratorResult, error) {
		return s.runOnboarding(dbc, learnerID)
	})
}

func (s *orchestratorService) run(ctx context.Context, learnerID uuid.UUID, key string, fn func(dbc dbctx.Context) (*OrchestratorResult, error)) (*OrchestratorResult, error) {
	release, err := s.locker.Acquire(ctx, learnerID, lockTTL)
	if err != nil {
		if errors.Is(err, locks.ErrHeld) {
			return nil, apierr.ConcurrentConflict(fmt.Errorf("another run is in flight for learner %s", learnerID))
		}
		return nil, apierr.PersistenceFailure(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.policy.RunBudget())
	defer cancel()

	if replay, err := s.replay(ctx, key); err != nil || replay != nil {
		return replay, err
	}

	var result *OrchestratorResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		// A racing run may have recorded the key after our pre-check.
		if replay, err := s.replayIn(dbc, key); err != nil {
			return err
		} else if replay != nil {
			result = replay
			return nil
		}

		res, err := fn(dbc)
		if err != nil {
			return err
		}
		if err := s.record(dbc, learnerID, key, res); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apierr.PersistenceFailure(err)
	}

	if s.cache != nil && !result.Replayed {
		s.cache.Invalidate(context.WithoutCancel(ctx), learnerID)
	}
	return result, nil
}

func (s *orchestratorService) runScoreSubmission(dbc dbctx.Context, learnerID, taskAttemptID uuid.UUID) (*OrchestratorResult, error) {
	attempt, err := s.attempts.GetByID(dbc, taskAttemptID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if attempt == nil || attempt.LearnerID != learnerID {
		return nil, apierr.NotFound(fmt.Errorf("task attempt %s not found", taskAttemptID))
	}
	if attempt.Score == nil {
		return nil, apierr.InvalidRequest(fmt.Errorf("task attempt %s has no score", taskAttemptID))
	}
	task, err := s.tasks.GetByID(dbc, attempt.TaskID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if task == nil {
		return nil, apierr.NotFound(fmt.Errorf("task %s not found", attempt.TaskID))
	}

	plan, err := s.plans.GetActiveByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	week := 1
	if plan != nil {
		week = plan.CurrentWeek
	}

	score := *attempt.Score
	eval, err := s.evaluator.EvaluateScore(dbc, learnerID, task.UnitID, score, week)
	if err != nil {
		return nil, err
	}

	if task.Status != types.TaskStatusCompleted {
		if err := s.tasks.MarkCompleted(dbc, task.ID, time.Now().UTC()); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
	}

	if eval.RevisionReason != "" {
		// Queue bookkeeping is best-effort: the evaluated progression still
		// commits even when the revision entry cannot be written.
		if _, err := s.revision.OnWeakUnit(dbc, learnerID, task.UnitID, eval.RevisionReason); err != nil {
			s.log.Warn("Could not queue revision for weak unit",
				"learner_id", learnerID.String(),
				"unit_id", task.UnitID.String(),
				"reason", eval.RevisionReason,
				"error", err,
			)
		}
	}
	if task.TaskType == types.TaskTypeRevision {
		if _, err := s.revision.ResolveOnRecovery(dbc, learnerID, task.UnitID, score); err != nil {
			return nil, err
		}
	}

	state, err := s.revision.AdvancePassIfEligible(dbc, learnerID)
	if err != nil {
		return nil, err
	}
	forecast, err := s.pace.Recompute(dbc, learnerID, week, eval.PlanReason)
	if err != nil {
		return nil, err
	}
	planReason := eval.PlanReason
	if forecast.Changed {
		planReason = forecast.PlanReason
	}
	if _, err := s.plan.Rebuild(dbc, learnerID, week, planReason); err != nil {
		return nil, err
	}

	open, err := s.revision.OpenItems(dbc, learnerID)
	if err != nil {
		return nil, err
	}

	res := &OrchestratorResult{
		Trigger:       "score_submission",
		Outcome:       eval.Outcome,
		RevisionCount: len(open),
		ActivePass:    state.ActivePass,
		CurrentWeek:   week,
		ForecastWeeks: forecast.Forecast.CurrentForecastWeeks,
		PacingStatus:  forecast.Forecast.PacingStatus,
		PlanReason:    planReason,
		Score:         score,
	}
	if eval.UnlockedUnit != nil {
		res.UnlockedUnit = eval.UnlockedUnit.UnitKey
	}
	return res, nil
}

func (s *orchestratorService) runWeeklyTick(dbc dbctx.Context, learnerID uuid.UUID) (*OrchestratorResult, error) {
	plan, err := s.plan.AdvanceWeek(dbc, learnerID)
	if err != nil {
		return nil, err
	}
	week := plan.CurrentWeek

	queued, err := s.revision.ApplyRetentionDecay(dbc, learnerID, week)
	if err != nil {
		return nil, err
	}
	state, err := s.revision.AdvancePassIfEligible(dbc, learnerID)
	if err != nil {
		return nil, err
	}
	forecast, err := s.pace.Recompute(dbc, learnerID, week, types.PlanReasonWeeklyTick)
	if err != nil {
		return nil, err
	}
	planReason := types.PlanReasonWeeklyTick
	if forecast.Changed {
		planReason = forecast.PlanReason
	}
	if _, err := s.plan.Rebuild(dbc, learnerID, week, planReason); err != nil {
		return nil, err
	}

	open, err := s.revision.OpenItems(dbc, learnerID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Weekly tick applied",
		"learner_id", learnerID.String(),
		"week", week,
		"decay_queued", queued,
	)
	return &OrchestratorResult{
		Trigger:       "weekly_tick",
		RevisionCount: len(open),
		ActivePass:    state.ActivePass,
		CurrentWeek:   week,
		ForecastWeeks: forecast.Forecast.CurrentForecastWeeks,
		PacingStatus:  forecast.Forecast.PacingStatus,
		PlanReason:    planReason,
	}, nil
}

func (s *orchestratorService) runOnboarding(dbc dbctx.Context, learnerID uuid.UUID) (*OrchestratorResult, error) {
	if err := s.evaluator.EnsureFirstUnlocked(dbc, learnerID, DefaultSubject); err != nil {
		return nil, err
	}
	forecast, err := s.pace.Recompute(dbc, learnerID, 1, types.PlanReasonOnboardingInitial)
	if err != nil {
		return nil, err
	}
	if _, err := s.plan.Rebuild(dbc, learnerID, 1, types.PlanReasonOnboardingInitial); err != nil {
		return nil, err
	}
	return &OrchestratorResult{
		Trigger:       "onboarding",
		ActivePass:    1,
		CurrentWeek:   1,
		ForecastWeeks: forecast.Forecast.CurrentForecastWeeks,
		PacingStatus:  forecast.Forecast.PacingStatus,
		PlanReason:    types.PlanReasonOnboardingInitial,
	}, nil
}

func (s *orchestratorService) replay(ctx context.Context, key string) (*OrchestratorResult, error) {
	return s.replayIn(dbctx.Context{Ctx: ctx}, key)
}

func (s *orchestratorService) replayIn(dbc dbctx.Context, key string) (*OrchestratorResult, error) {
	rec, err := s.idempotency.GetByKey(dbc, key)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if rec == nil {
		return nil, nil
	}
	var res OrchestratorResult
	if err := json.Unmarshal(rec.Result, &res); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	res.Replayed = true
	s.log.Debug("Replayed idempotent run", "idempotency_key", key)
	return &res, nil
}

func (s *orchestratorService) record(dbc dbctx.Context, learnerID uuid.UUID, key string, res *OrchestratorResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	_, err = s.idempotency.Create(dbc, &types.IdempotencyRecord{
		ID:        uuid.New(),
		LearnerID: learnerID,
		Key:       key,
		Result:    datatypes.JSON(raw),
	})
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	return nil
}
