package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/locks"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

func (env *testEnv) onboard(t *testing.T, learnerID uuid.UUID) *OrchestratorResult {
	t.Helper()
	res, err := env.orchestrator.HandleOnboarding(context.Background(), learnerID)
	if err != nil {
		t.Fatalf("onboarding run: %v", err)
	}
	return res
}

// weekTask finds the committed task of the given type for a unit in the
// learner's current week.
func (env *testEnv) weekTask(t *testing.T, learnerID, unitID uuid.UUID, taskType string, week int) *types.Task {
	t.Helper()
	tasks, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, week)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, task := range tasks {
		if task.UnitID == unitID && task.TaskType == taskType {
			return task
		}
	}
	t.Fatalf("no %s task for unit %s in week %d", taskType, unitID, week)
	return nil
}

func TestHandleOnboarding_BuildsInitialPlanAndReplays(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	res := env.onboard(t, learnerID)
	if res.Trigger != "onboarding" || res.CurrentWeek != 1 || res.ForecastWeeks != 14 {
		t.Fatalf("unexpected onboarding result: %+v", res)
	}
	if res.Replayed {
		t.Fatalf("first run must not be a replay")
	}
	tasks, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 1)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) == 0 {
		t.Fatalf("expected week-1 tasks after onboarding")
	}

	again := env.onboard(t, learnerID)
	if !again.Replayed {
		t.Fatalf("expected second onboarding to replay")
	}
	if again.ForecastWeeks != res.ForecastWeeks || again.PlanReason != res.PlanReason {
		t.Fatalf("replay diverged from recorded result: %+v vs %+v", again, res)
	}
}

func TestSubmitScore_RunsFullPipeline(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)
	env.onboard(t, learnerID)

	task := env.weekTask(t, learnerID, units[0].ID, types.TaskTypeTest, 1)
	res, err := env.orchestrator.SubmitScore(context.Background(), learnerID, ScoreSubmission{
		TaskID:       task.ID,
		Score:        0.8,
		ProofPayload: json.RawMessage(`{"answers":[2,4,1]}`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Outcome != OutcomePassed {
		t.Fatalf("expected outcome %q, got %q", OutcomePassed, res.Outcome)
	}
	if res.UnlockedUnit != units[1].UnitKey {
		t.Fatalf("expected unlocked unit %q, got %q", units[1].UnitKey, res.UnlockedUnit)
	}

	updated, err := env.taskRepo.GetByID(env.dbc(), task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if updated.Status != types.TaskStatusCompleted {
		t.Fatalf("expected task completed, got %q", updated.Status)
	}
	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.Status != types.ProgressionStatusCompleted {
		t.Fatalf("expected progression completed, got %q", prog.Status)
	}
}

func TestSubmitScore_RejectsProofBelowPolicy(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)
	env.onboard(t, learnerID)

	// Read tasks demand a minimum of time spent; 30 seconds is not enough.
	task := env.weekTask(t, learnerID, units[0].ID, types.TaskTypeRead, 1)
	_, err := env.orchestrator.SubmitScore(context.Background(), learnerID, ScoreSubmission{
		TaskID:           task.ID,
		Score:            0.9,
		TimeSpentSeconds: 30,
	})
	if apierr.CodeOf(err) != apierr.CodeInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}

	// No attempt, no progression movement.
	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.AttemptCount != 0 {
		t.Fatalf("expected no evaluation, attempt_count=%d", prog.AttemptCount)
	}
}

func TestHandleScoreSubmission_ReplaysByAttemptID(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)
	env.onboard(t, learnerID)

	task := env.weekTask(t, learnerID, units[0].ID, types.TaskTypeTest, 1)
	score := 0.9
	attempt, err := env.attemptRepo.Create(env.dbc(), &types.TaskAttempt{
		ID:        uuid.New(),
		TaskID:    task.ID,
		LearnerID: learnerID,
		Score:     &score,
		Accepted:  true,
		Reason:    "proof_accepted",
	})
	if err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	first, err := env.orchestrator.HandleScoreSubmission(context.Background(), learnerID, attempt.ID)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Replayed {
		t.Fatalf("first run must not be a replay")
	}

	second, err := env.orchestrator.HandleScoreSubmission(context.Background(), learnerID, attempt.ID)
	if err != nil {
		t.Fatalf("replay run: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("expected replay on the same attempt")
	}
	if second.Outcome != first.Outcome || second.Score != first.Score {
		t.Fatalf("replay diverged: %+v vs %+v", second, first)
	}

	// The replay must not evaluate again.
	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.AttemptCount != 1 {
		t.Fatalf("expected a single evaluation, attempt_count=%d", prog.AttemptCount)
	}
}

func TestHandleWeeklyTick_AdvancesWeek(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	env.onboard(t, learnerID)

	res, err := env.orchestrator.HandleWeeklyTick(context.Background(), learnerID)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if res.Trigger != "weekly_tick" || res.CurrentWeek != 2 {
		t.Fatalf("unexpected tick result: %+v", res)
	}

	plan, err := env.planRepo.GetActiveByLearnerID(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if plan.CurrentWeek != 2 {
		t.Fatalf("expected plan at week 2, got %d", plan.CurrentWeek)
	}
}

// failingRevisionQueue breaks OnWeakUnit while delegating everything else to
// the real revision service.
type failingRevisionQueue struct {
	RevisionService
}

func (f *failingRevisionQueue) OnWeakUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID, reason string) (*types.RevisionQueueItem, error) {
	return nil, fmt.Errorf("revision queue unavailable")
}

func TestSubmitScore_CommitsEvaluationWhenRevisionQueueFails(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)
	env.onboard(t, learnerID)

	orch := NewOrchestratorService(
		env.db, env.log, env.policy, locks.NewMemoryLocker(),
		env.evaluator, &failingRevisionQueue{env.revision}, env.pace, env.plan,
		env.taskRepo, env.attemptRepo, env.planRepo, env.idemRepo, nil,
	)

	task := env.weekTask(t, learnerID, units[0].ID, types.TaskTypeTest, 1)
	payload := json.RawMessage(`{"answers":[1,3]}`)
	if _, err := orch.SubmitScore(context.Background(), learnerID, ScoreSubmission{
		TaskID: task.ID, Score: 0.3, ProofPayload: payload,
	}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// The second failure force-advances and tries to queue the unit; the
	// broken queue must not roll back the evaluation.
	res, err := orch.SubmitScore(context.Background(), learnerID, ScoreSubmission{
		TaskID: task.ID, Score: 0.3, ProofPayload: payload,
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res.Outcome != OutcomeForcedAdvance {
		t.Fatalf("expected forced_advance, got %q", res.Outcome)
	}

	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.Status != types.ProgressionStatusCompleted || !prog.TimedOut {
		t.Fatalf("expected committed forced advance, got status=%q timed_out=%v", prog.Status, prog.TimedOut)
	}
	if prog.AttemptCount != 2 {
		t.Fatalf("expected attempt_count=2, got %d", prog.AttemptCount)
	}
	open, err := env.revision.OpenItems(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("open items: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected nothing queued through the broken queue, got %d", len(open))
	}
}

func TestRun_ConflictsWhileLockHeld(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	locker := locks.NewMemoryLocker()
	orch := NewOrchestratorService(
		env.db, env.log, env.policy, locker,
		env.evaluator, env.revision, env.pace, env.plan,
		env.taskRepo, env.attemptRepo, env.planRepo, env.idemRepo, nil,
	)

	release, err := locker.Acquire(context.Background(), learnerID, time.Minute)
	if err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	defer release()

	_, err = orch.HandleOnboarding(context.Background(), learnerID)
	if apierr.CodeOf(err) != apierr.CodeConcurrentConflict {
		t.Fatalf("expected concurrent_update_conflict, got %v", err)
	}
}
