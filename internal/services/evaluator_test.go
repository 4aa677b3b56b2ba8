package services

import (
	"testing"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

func TestEvaluateScore_RejectsOutOfRangeScore(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	for _, score := range []float64{-0.1, 1.5} {
		_, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, score, 1)
		if apierr.CodeOf(err) != apierr.CodeInvalidScore {
			t.Fatalf("score %v: expected invalid_score, got %v", score, err)
		}
	}
}

func TestEvaluateScore_RejectsLockedUnit(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)

	// The second unit's predecessor has not been completed yet.
	_, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[1].ID, 0.9, 1)
	if apierr.CodeOf(err) != apierr.CodeUnitNotReachable {
		t.Fatalf("expected unit_not_reachable, got %v", err)
	}
}

func TestEvaluateScore_FirstEvaluationActivatesNotStartedUnit(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)

	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[0].ID, 0.9, 1); err != nil {
		t.Fatalf("evaluate unit 0: %v", err)
	}
	next := env.progressionOf(t, learnerID, units[1].ID)
	if next.Status != types.ProgressionStatusNotStarted {
		t.Fatalf("expected successor not_started before evaluation, got %q", next.Status)
	}

	res, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[1].ID, 0.4, 1)
	if err != nil {
		t.Fatalf("evaluate unit 1: %v", err)
	}
	if res.Outcome != OutcomeRetry {
		t.Fatalf("expected retry, got %q", res.Outcome)
	}
	next = env.progressionOf(t, learnerID, units[1].ID)
	if next.Status != types.ProgressionStatusInProgress {
		t.Fatalf("expected in_progress after first evaluation, got %q", next.Status)
	}
}

func TestEvaluateScore_PassCompletesAndUnlocksSuccessor(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)

	res, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[0].ID, 0.75, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Outcome != OutcomePassed {
		t.Fatalf("expected outcome %q, got %q", OutcomePassed, res.Outcome)
	}
	if res.UnlockedUnit == nil || res.UnlockedUnit.ID != units[1].ID {
		t.Fatalf("expected successor %s unlocked", units[1].UnitKey)
	}

	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.Status != types.ProgressionStatusCompleted {
		t.Fatalf("expected completed, got %q", prog.Status)
	}
	if prog.AttemptCount != 1 {
		t.Fatalf("expected attempt_count=1, got %d", prog.AttemptCount)
	}
	next := env.progressionOf(t, learnerID, units[1].ID)
	if next.Status != types.ProgressionStatusNotStarted {
		t.Fatalf("expected successor created not_started, got %q", next.Status)
	}
}

func TestEvaluateScore_FirstFailureRetries(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	res, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.4, 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Outcome != OutcomeRetry {
		t.Fatalf("expected outcome %q, got %q", OutcomeRetry, res.Outcome)
	}
	prog := env.progressionOf(t, learnerID, first.ID)
	if prog.Status != types.ProgressionStatusInProgress {
		t.Fatalf("expected in_progress after first failure, got %q", prog.Status)
	}
	if prog.AttemptCount != 1 || prog.TimedOut {
		t.Fatalf("unexpected state: attempts=%d timed_out=%v", prog.AttemptCount, prog.TimedOut)
	}
}

func TestEvaluateScore_SecondFailureForcesAdvance(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)

	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[0].ID, 0.4, 1); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	res, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[0].ID, 0.3, 1)
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if res.Outcome != OutcomeForcedAdvance {
		t.Fatalf("expected outcome %q, got %q", OutcomeForcedAdvance, res.Outcome)
	}
	if res.RevisionReason != types.RevisionReasonRepeatedLowScore {
		t.Fatalf("expected revision reason %q, got %q", types.RevisionReasonRepeatedLowScore, res.RevisionReason)
	}

	prog := env.progressionOf(t, learnerID, units[0].ID)
	if prog.Status != types.ProgressionStatusCompleted || !prog.TimedOut {
		t.Fatalf("expected completed+timed_out, got status=%q timed_out=%v", prog.Status, prog.TimedOut)
	}
	if prog.AttemptCount != 2 {
		t.Fatalf("expected attempt_count=2, got %d", prog.AttemptCount)
	}
	next := env.progressionOf(t, learnerID, units[1].ID)
	if next.Status != types.ProgressionStatusNotStarted {
		t.Fatalf("expected successor unlocked despite failure, got %q", next.Status)
	}
}

func TestEvaluateScore_BestScoreNeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.55, 1); err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.2, 1); err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	prog := env.progressionOf(t, learnerID, first.ID)
	if prog.BestScore != 0.55 {
		t.Fatalf("expected best_score=0.55, got %v", prog.BestScore)
	}
	if prog.MasteryScore != 0.2 {
		t.Fatalf("expected mastery_score to track latest, got %v", prog.MasteryScore)
	}
}

func TestEvaluateScore_CompletedUnitRejectedOutsideRevision(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.9, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	_, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.9, 1)
	if apierr.CodeOf(err) != apierr.CodeUnitNotReachable {
		t.Fatalf("expected unit_not_reachable for completed unit, got %v", err)
	}
}
