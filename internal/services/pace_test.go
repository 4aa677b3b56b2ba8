package services

import (
	"testing"

	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

func TestRecompute_DegradedWithoutThroughput(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	res, err := env.pace.Recompute(env.dbc(), learnerID, 1, types.PlanReasonOnboardingInitial)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if !res.Forecast.Degraded {
		t.Fatalf("expected degraded forecast with zero completions")
	}
	if res.Forecast.CurrentForecastWeeks != 14 {
		t.Fatalf("expected forecast to carry the previous value 14, got %d", res.Forecast.CurrentForecastWeeks)
	}
	if res.Changed {
		t.Fatalf("expected unchanged forecast")
	}
}

func TestRecompute_ExtendBoundedToTwoWeeks(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	first := env.orderedUnits(t)[0]

	// One completion in ten weeks projects far past the horizon; the step
	// bound caps the move at +2.
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.9, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	res, err := env.pace.Recompute(env.dbc(), learnerID, 10, types.PlanReasonWeeklyTick)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if res.Forecast.CurrentForecastWeeks != 16 {
		t.Fatalf("expected forecast 16 (14+2), got %d", res.Forecast.CurrentForecastWeeks)
	}
	if !res.Changed || res.PlanReason != types.PlanReasonPaceExtend {
		t.Fatalf("expected pace_extend, got changed=%v reason=%q", res.Changed, res.PlanReason)
	}
	if res.Forecast.PacingStatus != types.PacingBehind {
		t.Fatalf("expected behind pacing, got %q", res.Forecast.PacingStatus)
	}
	if res.Forecast.Degraded {
		t.Fatalf("expected a live projection, not degraded")
	}

	profile, err := env.profileRepo.GetByLearnerID(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.CurrentForecastWeeks != 16 || profile.TimelineDeltaWeeks != 2 {
		t.Fatalf("expected profile forecast 16/delta 2, got %d/%d", profile.CurrentForecastWeeks, profile.TimelineDeltaWeeks)
	}
}

func TestRecompute_CompressBoundedToTwoWeeks(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 20)
	units := env.orderedUnits(t)

	// Ten completions in week one is well ahead of a 20-week pace and
	// projects a much shorter run; the step bound caps the move at -2.
	for i := 0; i < 10; i++ {
		if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[i].ID, 0.9, 1); err != nil {
			t.Fatalf("evaluate unit %d: %v", i, err)
		}
	}
	res, err := env.pace.Recompute(env.dbc(), learnerID, 1, types.PlanReasonThresholdPass)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if res.Forecast.PacingStatus != types.PacingAhead {
		t.Fatalf("expected ahead pacing, got %q", res.Forecast.PacingStatus)
	}
	if res.Forecast.CurrentForecastWeeks != 18 {
		t.Fatalf("expected forecast 18 (20-2), got %d", res.Forecast.CurrentForecastWeeks)
	}
	if res.PlanReason != types.PlanReasonPaceCompress {
		t.Fatalf("expected pace_compress, got %q", res.PlanReason)
	}
}

func TestRecompute_OnTrackLeavesForecastUntouched(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 16)
	first := env.orderedUnits(t)[0]

	// One completion in week one sits inside the pacing slack for a 16-week
	// timeline, so repeated recomputations must not walk the forecast.
	if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, first.ID, 0.9, 1); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := env.pace.Recompute(env.dbc(), learnerID, 1, types.PlanReasonWeeklyTick)
		if err != nil {
			t.Fatalf("recompute %d: %v", i, err)
		}
		if res.Forecast.PacingStatus != types.PacingOnTrack {
			t.Fatalf("expected on_track pacing, got %q", res.Forecast.PacingStatus)
		}
		if res.Forecast.CurrentForecastWeeks != 16 {
			t.Fatalf("expected forecast to stay at 16, got %d", res.Forecast.CurrentForecastWeeks)
		}
		if res.Changed {
			t.Fatalf("expected no forecast move while on track")
		}
	}

	profile, err := env.profileRepo.GetByLearnerID(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.CurrentForecastWeeks != 16 {
		t.Fatalf("expected profile forecast 16, got %d", profile.CurrentForecastWeeks)
	}
}

func TestRecompute_ForecastNeverLeavesTimelineBounds(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)
	units := env.orderedUnits(t)

	// Even sustained speed cannot pull the forecast under the 14-week floor.
	for i := 0; i < 10; i++ {
		if _, err := env.evaluator.EvaluateScore(env.dbc(), learnerID, units[i].ID, 0.9, 1); err != nil {
			t.Fatalf("evaluate unit %d: %v", i, err)
		}
	}
	res, err := env.pace.Recompute(env.dbc(), learnerID, 1, types.PlanReasonThresholdPass)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if res.Forecast.CurrentForecastWeeks < 14 {
		t.Fatalf("forecast %d under the 14-week floor", res.Forecast.CurrentForecastWeeks)
	}
}

func TestRecompute_AppendsHistoryEveryRun(t *testing.T) {
	env := newTestEnv(t)
	learnerID := env.seedLearner(t, 14)

	for week := 1; week <= 3; week++ {
		if _, err := env.pace.Recompute(env.dbc(), learnerID, week, types.PlanReasonWeeklyTick); err != nil {
			t.Fatalf("recompute week %d: %v", week, err)
		}
	}
	rows, err := env.forecastRepo.ListByLearnerID(env.dbc(), learnerID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 history rows including unchanged ones, got %d", len(rows))
	}
	for i, row := range rows {
		if row.WeekNumber != i+1 {
			t.Fatalf("expected ordered week numbers, got %d at %d", row.WeekNumber, i)
		}
	}
}
