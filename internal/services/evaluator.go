package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

const (
	OutcomePassed        = "passed"
	OutcomeRetry         = "retry"
	OutcomeForcedAdvance = "forced_advance"
)

// EvaluationResult is what the orchestrator acts on after a score is applied.
// RevisionReason is non-empty only when the evaluation itself demands a
// revision entry (forced advance).
type EvaluationResult struct {
	Outcome        string                 `json:"outcome"`
	Progression    *types.UnitProgression `json:"progression"`
	UnlockedUnit   *types.SyllabusUnit    `json:"unlocked_unit,omitempty"`
	RevisionReason string                 `json:"revision_reason,omitempty"`
	PlanReason     string                 `json:"plan_reason"`
}

// EvaluatorService applies a normalized score to a unit's progression row.
// Attempt count increments on every evaluation before the outcome branch, so
// a learner on attempt_count=1 who fails again is force-advanced at 2.
type EvaluatorService interface {
	EvaluateScore(dbc dbctx.Context, learnerID, unitID uuid.UUID, score float64, week int) (*EvaluationResult, error)
	EnsureFirstUnlocked(dbc dbctx.Context, learnerID uuid.UUID, subject string) error
}

type evaluatorService struct {
	db           *gorm.DB
	log          *logger.Logger
	policy       ProgressionPolicy
	syllabus     SyllabusService
	progressions repos.UnitProgressionRepo
}

func NewEvaluatorService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	syllabus SyllabusService,
	progressions repos.UnitProgressionRepo,
) EvaluatorService {
	return &evaluatorService{
		db:           db,
		log:          baseLog.With("service", "EvaluatorService"),
		policy:       policy,
		syllabus:     syllabus,
		progressions: progressions,
	}
}

func (s *evaluatorService) EvaluateScore(dbc dbctx.Context, learnerID, unitID uuid.UUID, score float64, week int) (*EvaluationResult, error) {
	if score < 0 || score > 1 {
		return nil, apierr.InvalidScore(fmt.Errorf("score out of range [0,1]: %v", score))
	}

	unit, err := s.syllabus.GetUnit(dbc, unitID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if unit == nil {
		return nil, apierr.NotFound(fmt.Errorf("syllabus unit %s not found", unitID))
	}

	prog, err := s.progressions.GetByLearnerAndUnit(dbc, learnerID, unitID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	created := false
	if prog == nil {
		// A unit without a progression row is reachable only once its
		// predecessor in hierarchy order has been completed.
		ok, err := s.reachable(dbc, learnerID, unit)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierr.UnitNotReachable(fmt.Errorf("unit %s is not unlocked", unit.UnitKey))
		}
		prog = &types.UnitProgression{
			ID:        uuid.New(),
			LearnerID: learnerID,
			UnitID:    unitID,
			Status:    types.ProgressionStatusNotStarted,
		}
		created = true
	}
	if prog.Status == types.ProgressionStatusCompleted && !prog.RevisionQueued {
		// A completed unit only takes new scores through the revision queue.
		return nil, apierr.UnitNotReachable(fmt.Errorf("unit %s already completed", unit.UnitKey))
	}
	if prog.Status == types.ProgressionStatusNotStarted {
		// First evaluation moves a reachable unit into progress.
		prog.Status = types.ProgressionStatusInProgress
	}

	prog.AttemptCount++
	prog.MasteryScore = score
	if score > prog.BestScore {
		prog.BestScore = score
	}
	if week > 0 {
		prog.LastPracticedWeek = week
	}

	res := &EvaluationResult{Progression: prog}
	switch {
	case score >= s.policy.CompletionThreshold:
		res.Outcome = OutcomePassed
		res.PlanReason = types.PlanReasonThresholdPass
		if prog.Status != types.ProgressionStatusCompleted {
			prog.Status = types.ProgressionStatusCompleted
			next, err := s.unlockSuccessor(dbc, learnerID, unit)
			if err != nil {
				return nil, err
			}
			res.UnlockedUnit = next
		}

	case prog.AttemptCount < s.policy.MaxAttempts:
		res.Outcome = OutcomeRetry
		res.PlanReason = types.PlanReasonThresholdRetry

	default:
		// Attempts exhausted: advance anyway, flag the unit, and let the
		// revision manager pick it up.
		res.Outcome = OutcomeForcedAdvance
		res.PlanReason = types.PlanReasonForcedAdvance
		res.RevisionReason = types.RevisionReasonRepeatedLowScore
		prog.TimedOut = true
		if prog.Status != types.ProgressionStatusCompleted {
			prog.Status = types.ProgressionStatusCompleted
			next, err := s.unlockSuccessor(dbc, learnerID, unit)
			if err != nil {
				return nil, err
			}
			res.UnlockedUnit = next
		}
	}

	if created {
		if _, err := s.progressions.Create(dbc, prog); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
	} else if err := s.progressions.Save(dbc, prog); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	s.log.Info("Evaluated score",
		"learner_id", learnerID.String(),
		"unit_key", unit.UnitKey,
		"outcome", res.Outcome,
		"attempt_count", prog.AttemptCount,
	)
	return res, nil
}

// unlockSuccessor makes the next unit reachable by creating its progression
// row as not_started. The row stays not_started until its first evaluation.
func (s *evaluatorService) unlockSuccessor(dbc dbctx.Context, learnerID uuid.UUID, unit *types.SyllabusUnit) (*types.SyllabusUnit, error) {
	next, err := s.syllabus.SuccessorOf(dbc, unit.Subject, unit.ID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if next == nil {
		return nil, nil
	}
	existing, err := s.progressions.GetByLearnerAndUnit(dbc, learnerID, next.ID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if existing != nil {
		return nil, nil
	}
	_, err = s.progressions.Create(dbc, &types.UnitProgression{
		ID:        uuid.New(),
		LearnerID: learnerID,
		UnitID:    next.ID,
		Status:    types.ProgressionStatusNotStarted,
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return next, nil
}

// reachable reports whether a unit without a progression row may be
// evaluated. The first unit of the hierarchy is always reachable.
func (s *evaluatorService) reachable(dbc dbctx.Context, learnerID uuid.UUID, unit *types.SyllabusUnit) (bool, error) {
	prev, err := s.syllabus.PredecessorOf(dbc, unit.Subject, unit.ID)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	if prev == nil {
		return true, nil
	}
	prevProg, err := s.progressions.GetByLearnerAndUnit(dbc, learnerID, prev.ID)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	return prevProg != nil && prevProg.Status == types.ProgressionStatusCompleted, nil
}

// EnsureFirstUnlocked opens the first unit of a subject for a freshly
// onboarded learner. Idempotent.
func (s *evaluatorService) EnsureFirstUnlocked(dbc dbctx.Context, learnerID uuid.UUID, subject string) error {
	ordered, err := s.syllabus.OrderedUnits(dbc.Ctx, subject)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	if len(ordered) == 0 {
		return apierr.NotFound(fmt.Errorf("no syllabus units for subject %q", subject))
	}
	first := ordered[0]
	existing, err := s.progressions.GetByLearnerAndUnit(dbc, learnerID, first.ID)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	if existing != nil {
		return nil
	}
	_, err = s.progressions.Create(dbc, &types.UnitProgression{
		ID:        uuid.New(),
		LearnerID: learnerID,
		UnitID:    first.ID,
		Status:    types.ProgressionStatusNotStarted,
	})
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	return nil
}
