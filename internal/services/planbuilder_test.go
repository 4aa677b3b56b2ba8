package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

func TestRebuild_MaterializesLockedCommittedWeek(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	plan, err := env.plan.Rebuild(env.dbc(), learnerID, 1, types.PlanReasonOnboardingInitial)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if plan.CurrentWeek != 1 || plan.TotalWeeks != 14 {
		t.Fatalf("unexpected plan shape: week=%d total=%d", plan.CurrentWeek, plan.TotalWeeks)
	}

	tasks, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 1)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) == 0 {
		t.Fatalf("expected committed-week tasks")
	}
	for _, task := range tasks {
		if !task.IsLocked {
			t.Fatalf("expected all committed tasks locked, %s is not", task.ID)
		}
		if task.Status != types.TaskStatusPending {
			t.Fatalf("expected pending tasks, got %q", task.Status)
		}
	}
}

func TestRebuild_KeepsLockedWeekAcrossRebuilds(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	if _, err := env.plan.Rebuild(env.dbc(), learnerID, 1, types.PlanReasonOnboardingInitial); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	before, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if _, err := env.plan.Rebuild(env.dbc(), learnerID, 1, types.PlanReasonThresholdRetry); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	after, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("committed week changed size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Fatalf("committed task %d was replaced", i)
		}
	}
}

func TestRebuild_RevisionTasksComeFirst(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	// Force the first unit into the revision queue, then cut the week.
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.3, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.3, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := env.revision.OnWeakUnit(env.dbc(), learnerID, first.ID, types.RevisionReasonRepeatedLowScore); err != nil {
		t.Fatalf("queue: %v", err)
	}

	if _, err := env.plan.Rebuild(env.dbc(), learnerID, 2, types.PlanReasonForcedAdvance); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	tasks, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) == 0 {
		t.Fatalf("expected tasks")
	}
	if tasks[0].TaskType != types.TaskTypeRevision || tasks[0].UnitID != first.ID {
		t.Fatalf("expected revision task first, got %q for unit %s", tasks[0].TaskType, tasks[0].UnitID)
	}
}

func TestRebuild_WeeklyBudgetCountsUnitsNotTasks(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	// Force unit 0 into the revision queue so the committed week mixes a
	// single-task revision unit with read/test forward pairs.
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.3, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.3, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := env.revision.OnWeakUnit(env.dbc(), learnerID, first.ID, types.RevisionReasonRepeatedLowScore); err != nil {
		t.Fatalf("queue: %v", err)
	}

	if _, err := env.plan.Rebuild(env.dbc(), learnerID, 2, types.PlanReasonForcedAdvance); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	tasks, err := env.taskRepo.ListByLearnerAndWeek(env.dbc(), learnerID, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	weekUnits := map[uuid.UUID]bool{}
	revisionTasks := 0
	for _, task := range tasks {
		weekUnits[task.UnitID] = true
		if task.TaskType == types.TaskTypeRevision {
			revisionTasks++
		}
	}
	// 69 units over 13 remaining weeks caps the budget at 5 units: one
	// revision task plus four read/test pairs, 9 task rows in total.
	if len(weekUnits) != maxWeeklyUnits {
		t.Fatalf("expected %d units in the week, got %d", maxWeeklyUnits, len(weekUnits))
	}
	if revisionTasks != 1 {
		t.Fatalf("expected 1 revision task, got %d", revisionTasks)
	}
	if len(tasks) != 9 {
		t.Fatalf("expected 9 task rows, got %d", len(tasks))
	}
}

func TestRebuild_AppendsVersionPerRebuild(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	reasons := []string{
		types.PlanReasonOnboardingInitial,
		types.PlanReasonThresholdPass,
		types.PlanReasonWeeklyTick,
	}
	for _, reason := range reasons {
		if _, err := env.plan.Rebuild(env.dbc(), learnerID, 1, reason); err != nil {
			t.Fatalf("rebuild %q: %v", reason, err)
		}
	}

	versions, err := env.versionRepo.ListByLearnerID(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	for i, v := range versions {
		if v.VersionNumber != i+1 {
			t.Fatalf("expected version %d, got %d", i+1, v.VersionNumber)
		}
		if v.Reason != reasons[i] {
			t.Fatalf("expected reason %q at version %d, got %q", reasons[i], i+1, v.Reason)
		}
	}
}

func TestRebuild_DraftCoversForecastWeeks(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	plan, err := env.plan.Rebuild(env.dbc(), learnerID, 1, types.PlanReasonOnboardingInitial)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	var draft PlanDraft
	if err := json.Unmarshal(plan.PlanPayload, &draft); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if draft.GeneratedWeek != 1 || draft.ForecastWeeks != 14 {
		t.Fatalf("unexpected draft header: %+v", draft)
	}
	if len(draft.Weeks) == 0 {
		t.Fatalf("expected draft weeks beyond the committed one")
	}
	if draft.Weeks[0].WeekNumber != 2 {
		t.Fatalf("expected draft to start at week 2, got %d", draft.Weeks[0].WeekNumber)
	}
	for _, week := range draft.Weeks {
		if len(week.UnitKeys) == 0 {
			t.Fatalf("draft week %d has no units", week.WeekNumber)
		}
		if week.WeekNumber > draft.ForecastWeeks {
			t.Fatalf("draft week %d past the horizon %d", week.WeekNumber, draft.ForecastWeeks)
		}
	}
}

func TestAdvanceWeek_CompletesPlanAtHorizon(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	if _, err := env.plan.Rebuild(env.dbc(), learnerID, 1, types.PlanReasonOnboardingInitial); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	plan, err := env.plan.AdvanceWeek(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if plan.CurrentWeek != 2 || plan.Status != types.PlanStatusActive {
		t.Fatalf("expected active week 2, got week=%d status=%q", plan.CurrentWeek, plan.Status)
	}

	for plan.CurrentWeek <= plan.TotalWeeks {
		plan, err = env.plan.AdvanceWeek(env.dbc(), learnerID)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if plan.Status != types.PlanStatusCompleted {
		t.Fatalf("expected completed past week %d, got %q", plan.TotalWeeks, plan.Status)
	}
}
