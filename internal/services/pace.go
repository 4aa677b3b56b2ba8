package services

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

// ForecastResult bundles the appended history row with whether the forecast
// moved, so the plan builder knows to log a pace version.
type ForecastResult struct {
	Forecast   *types.WeeklyForecast `json:"forecast"`
	Changed    bool                  `json:"changed"`
	PlanReason string                `json:"plan_reason,omitempty"`
}

// PaceService projects the completion timeline from observed throughput.
// Every recomputation appends a history row, including unchanged and
// degraded ones. A single recomputation never moves the forecast by more
// than ForecastStepMax weeks, and the result always stays inside the
// configured timeline bounds.
type PaceService interface {
	Recompute(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int, reason string) (*ForecastResult, error)
}

type paceService struct {
	db           *gorm.DB
	log          *logger.Logger
	policy       ProgressionPolicy
	syllabus     SyllabusService
	progressions repos.UnitProgressionRepo
	profiles     repos.LearnerProfileRepo
	forecasts    repos.WeeklyForecastRepo
}

func NewPaceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	syllabus SyllabusService,
	progressions repos.UnitProgressionRepo,
	profiles repos.LearnerProfileRepo,
	forecasts repos.WeeklyForecastRepo,
) PaceService {
	return &paceService{
		db:           db,
		log:          baseLog.With("service", "PaceService"),
		policy:       policy,
		syllabus:     syllabus,
		progressions: progressions,
		profiles:     profiles,
		forecasts:    forecasts,
	}
}

func (s *paceService) Recompute(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int, reason string) (*ForecastResult, error) {
	profile, err := s.profiles.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("no profile for learner %s", learnerID))
	}
	if currentWeek < 1 {
		currentWeek = 1
	}

	total, completed, err := s.unitCounts(dbc, learnerID)
	if err != nil {
		return nil, err
	}

	previous := profile.CurrentForecastWeeks
	if previous == 0 {
		previous = profile.SelectedTimelineWeeks
	}

	pacing := s.pacingStatus(total, completed, currentWeek, profile.SelectedTimelineWeeks)

	// The forecast only moves off-pace: behind extends it, ahead compresses
	// it. On track the previous forecast is carried forward untouched.
	forecastWeeks := previous
	degraded := false
	if pacing != types.PacingOnTrack {
		var projected int
		projected, degraded = s.project(total, completed, currentWeek, previous)
		if !degraded {
			projected = s.boundStep(previous, projected)
			projected = s.policy.ClampWeeks(projected)
			switch pacing {
			case types.PacingBehind:
				if projected > previous {
					forecastWeeks = projected
				}
			case types.PacingAhead:
				if projected < previous {
					forecastWeeks = projected
				}
			}
		}
	}
	delta := forecastWeeks - profile.SelectedTimelineWeeks

	row, err := s.forecasts.Create(dbc, &types.WeeklyForecast{
		ID:                       uuid.New(),
		LearnerID:                learnerID,
		WeekNumber:               currentWeek,
		SelectedTimelineWeeks:    profile.SelectedTimelineWeeks,
		RecommendedTimelineWeeks: profile.RecommendedTimelineWeeks,
		CurrentForecastWeeks:     forecastWeeks,
		TimelineDeltaWeeks:       delta,
		PacingStatus:             pacing,
		Degraded:                 degraded,
		Reason:                   reason,
		GeneratedAt:              time.Now().UTC(),
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	res := &ForecastResult{Forecast: row, Changed: forecastWeeks != previous}
	if res.Changed {
		if forecastWeeks > previous {
			res.PlanReason = types.PlanReasonPaceExtend
		} else {
			res.PlanReason = types.PlanReasonPaceCompress
		}
		if err := s.profiles.UpdateFields(dbc, learnerID, map[string]interface{}{
			"current_forecast_weeks": forecastWeeks,
			"timeline_delta_weeks":   delta,
		}); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}

		// Profiles are superseded, never rewritten in place: every forecast
		// move leaves a history entry.
		profile.CurrentForecastWeeks = forecastWeeks
		profile.TimelineDeltaWeeks = delta
		payload, err := json.Marshal(profile)
		if err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
		if err := s.profiles.CreateSnapshot(dbc, &types.LearnerProfileSnapshot{
			ID:        uuid.New(),
			LearnerID: learnerID,
			Reason:    "forecast_adjustment",
			Payload:   datatypes.JSON(payload),
		}); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
	}

	s.log.Info("Recomputed pace forecast",
		"learner_id", learnerID.String(),
		"week", currentWeek,
		"forecast_weeks", forecastWeeks,
		"pacing", pacing,
		"degraded", degraded,
	)
	return res, nil
}

// project estimates total weeks from throughput so far. With no completions
// yet there is no signal, so the previous forecast is carried forward and the
// row is marked degraded.
func (s *paceService) project(total, completed int64, currentWeek, previous int) (int, bool) {
	if total == 0 || completed == 0 {
		return previous, true
	}
	unitsPerWeek := float64(completed) / float64(currentWeek)
	remaining := float64(total - completed)
	projected := float64(currentWeek) + math.Ceil(remaining/unitsPerWeek)
	return int(projected), false
}

// boundStep caps forecast movement per recomputation so one bad week cannot
// thrash the plan horizon.
func (s *paceService) boundStep(previous, next int) int {
	step := s.policy.ForecastStepMax
	if step <= 0 {
		return next
	}
	if next > previous+step {
		return previous + step
	}
	if next < previous-step {
		return previous - step
	}
	return next
}

func (s *paceService) pacingStatus(total, completed int64, currentWeek, selectedWeeks int) string {
	if total == 0 || selectedWeeks == 0 {
		return types.PacingOnTrack
	}
	actual := float64(completed) / float64(total)
	expected := float64(currentWeek) / float64(selectedWeeks)
	if expected > 1 {
		expected = 1
	}
	switch {
	case actual > expected+s.policy.PacingSlack:
		return types.PacingAhead
	case actual < expected-s.policy.PacingSlack:
		return types.PacingBehind
	default:
		return types.PacingOnTrack
	}
}

func (s *paceService) unitCounts(dbc dbctx.Context, learnerID uuid.UUID) (total, completed int64, err error) {
	units, err := s.syllabus.OrderedUnits(dbc.Ctx, DefaultSubject)
	if err != nil {
		return 0, 0, apierr.PersistenceFailure(err)
	}
	total = int64(len(units))
	completed, err = s.progressions.CountByStatus(dbc, learnerID, types.ProgressionStatusCompleted)
	if err != nil {
		return 0, 0, apierr.PersistenceFailure(err)
	}
	return total, completed, nil
}
