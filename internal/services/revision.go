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

const maxRevisionPass = 3

// RevisionService runs the three-pass revision sweep. Pass 1 holds units
// flagged during forward progression (forced advances and retention decay)
// and stays active until the whole syllabus has been traversed. Pass 2 then
// re-queues every completed unit still under the mastered bar, and pass 3
// narrows to units still in the weak zone. A pass only advances once all of
// its queue items are resolved.
type RevisionService interface {
	OnWeakUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID, reason string) (*types.RevisionQueueItem, error)
	ResolveOnRecovery(dbc dbctx.Context, learnerID, unitID uuid.UUID, score float64) (bool, error)
	ApplyRetentionDecay(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int) (int, error)
	AdvancePassIfEligible(dbc dbctx.Context, learnerID uuid.UUID) (*types.RevisionPolicyState, error)
	OpenItems(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error)
}

type revisionService struct {
	db           *gorm.DB
	log          *logger.Logger
	policy       ProgressionPolicy
	syllabus     SyllabusService
	progressions repos.UnitProgressionRepo
	queue        repos.RevisionQueueRepo
	states       repos.RevisionPolicyStateRepo
}

func NewRevisionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	syllabus SyllabusService,
	progressions repos.UnitProgressionRepo,
	queue repos.RevisionQueueRepo,
	states repos.RevisionPolicyStateRepo,
) RevisionService {
	return &revisionService{
		db:           db,
		log:          baseLog.With("service", "RevisionService"),
		policy:       policy,
		syllabus:     syllabus,
		progressions: progressions,
		queue:        queue,
		states:       states,
	}
}

// revisionPriority ranks lowest mastery first, ties broken by earliest
// position in the syllabus. Lower value sorts sooner.
func revisionPriority(mastery float64, unit *types.SyllabusUnit) int {
	rank := int(mastery * 100)
	if rank < 0 {
		rank = 0
	}
	if rank > 100 {
		rank = 100
	}
	return rank*10000 + unit.ChapterNumber*100 + unit.SortOrder
}

func (s *revisionService) OnWeakUnit(dbc dbctx.Context, learnerID, unitID uuid.UUID, reason string) (*types.RevisionQueueItem, error) {
	existing, err := s.queue.GetOpenByLearnerAndUnit(dbc, learnerID, unitID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if existing != nil {
		return existing, nil
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
	if prog == nil {
		return nil, apierr.NotFound(fmt.Errorf("no progression for unit %s", unitID))
	}

	state, err := s.ensureState(dbc, learnerID)
	if err != nil {
		return nil, err
	}

	item, err := s.queue.Create(dbc, &types.RevisionQueueItem{
		ID:        uuid.New(),
		LearnerID: learnerID,
		UnitID:    unitID,
		Pass:      state.ActivePass,
		Reason:    reason,
		Priority:  revisionPriority(prog.MasteryScore, unit),
		Status:    types.RevisionStatusQueued,
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	if !prog.RevisionQueued {
		prog.RevisionQueued = true
		if err := s.progressions.Save(dbc, prog); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
	}

	s.log.Info("Queued revision",
		"learner_id", learnerID.String(),
		"unit_key", unit.UnitKey,
		"reason", reason,
		"pass", state.ActivePass,
	)
	return item, nil
}

// ResolveOnRecovery closes the unit's open queue entry once a revision score
// clears the mastered bar. Returns whether anything was resolved.
func (s *revisionService) ResolveOnRecovery(dbc dbctx.Context, learnerID, unitID uuid.UUID, score float64) (bool, error) {
	if score < s.policy.MasteredBar {
		return false, nil
	}
	item, err := s.queue.GetOpenByLearnerAndUnit(dbc, learnerID, unitID)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	if item == nil {
		return false, nil
	}
	if err := s.queue.UpdateFields(dbc, item.ID, map[string]interface{}{
		"status": types.RevisionStatusResolved,
	}); err != nil {
		return false, apierr.PersistenceFailure(err)
	}

	prog, err := s.progressions.GetByLearnerAndUnit(dbc, learnerID, unitID)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	if prog != nil && prog.RevisionQueued {
		prog.RevisionQueued = false
		prog.TimedOut = false
		if err := s.progressions.Save(dbc, prog); err != nil {
			return false, apierr.PersistenceFailure(err)
		}
	}
	return true, nil
}

// ApplyRetentionDecay re-queues completed units whose decayed mastery fell
// under the revision threshold. Decay compounds per elapsed window since the
// unit was last practiced. Returns how many units were queued.
func (s *revisionService) ApplyRetentionDecay(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int) (int, error) {
	if s.policy.DecayWindowWeeks <= 0 {
		return 0, nil
	}
	rows, err := s.progressions.ListByLearnerID(dbc, learnerID)
	if err != nil {
		return 0, apierr.PersistenceFailure(err)
	}

	queued := 0
	for _, prog := range rows {
		if prog.Status != types.ProgressionStatusCompleted || prog.RevisionQueued {
			continue
		}
		idleWeeks := currentWeek - prog.LastPracticedWeek
		windows := idleWeeks / s.policy.DecayWindowWeeks
		if windows < 1 {
			continue
		}
		decayed := prog.MasteryScore * math.Pow(1-s.policy.DecayRate, float64(windows))
		if decayed >= s.policy.RevisionThreshold {
			continue
		}
		if _, err := s.OnWeakUnit(dbc, learnerID, prog.UnitID, types.RevisionReasonRetentionDecay); err != nil {
			return queued, err
		}
		queued++
	}
	return queued, nil
}

// AdvancePassIfEligible moves the sweep forward when the active pass has no
// open items left. Seeding the next pass may find no candidates, in which
// case that pass completes immediately and the loop continues up to pass 3.
func (s *revisionService) AdvancePassIfEligible(dbc dbctx.Context, learnerID uuid.UUID) (*types.RevisionPolicyState, error) {
	state, err := s.ensureState(dbc, learnerID)
	if err != nil {
		return nil, err
	}

	for state.ActivePass <= maxRevisionPass {
		open, err := s.queue.CountOpenByPass(dbc, learnerID, state.ActivePass)
		if err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
		if open > 0 {
			return state, nil
		}
		if state.ActivePass == 1 {
			// Pass 1 only closes once the last unit of the syllabus has been
			// completed, not merely when the flagged queue drains.
			done, err := s.traversalComplete(dbc, learnerID)
			if err != nil {
				return nil, err
			}
			if !done {
				return state, nil
			}
		}

		if err := s.closePass(dbc, learnerID, state); err != nil {
			return nil, err
		}
		if state.ActivePass >= maxRevisionPass {
			return state, nil
		}
		state.ActivePass++
		if err := s.states.Save(dbc, state); err != nil {
			return nil, apierr.PersistenceFailure(err)
		}
		if err := s.seedPass(dbc, learnerID, state.ActivePass); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func (s *revisionService) closePass(dbc dbctx.Context, learnerID uuid.UUID, state *types.RevisionPolicyState) error {
	now := time.Now().UTC()
	switch state.ActivePass {
	case 1:
		if state.Pass1CompletedAt != nil {
			return nil
		}
		state.Pass1CompletedAt = &now
	case 2:
		if state.Pass2CompletedAt != nil {
			return nil
		}
		state.Pass2CompletedAt = &now
	case 3:
		if state.Pass3CompletedAt != nil {
			return nil
		}
		state.Pass3CompletedAt = &now
	}

	avg, err := s.averageMastery(dbc, learnerID)
	if err != nil {
		return err
	}
	scores := map[string]float64{}
	if len(state.PassScores) > 0 {
		_ = json.Unmarshal(state.PassScores, &scores)
	}
	scores[passKey(state.ActivePass)] = avg
	raw, err := json.Marshal(scores)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	state.PassScores = datatypes.JSON(raw)

	if err := s.states.Save(dbc, state); err != nil {
		return apierr.PersistenceFailure(err)
	}
	s.log.Info("Revision pass completed",
		"learner_id", learnerID.String(),
		"pass", state.ActivePass,
		"avg_mastery", avg,
	)
	return nil
}

func passKey(pass int) string {
	switch pass {
	case 1:
		return "pass1"
	case 2:
		return "pass2"
	default:
		return "pass3"
	}
}

// seedPass enqueues candidates for the next sweep. Pass 2 re-queues every
// unit under the mastered bar, whether or not it passed on the first
// traversal; pass 3 takes only units still in the weak zone, all of which
// were necessarily re-queued in pass 2 already.
func (s *revisionService) seedPass(dbc dbctx.Context, learnerID uuid.UUID, pass int) error {
	var bar float64
	var reason string
	switch pass {
	case 2:
		bar = s.policy.MasteredBar
		reason = types.RevisionReasonBelowMasteredBar
	case 3:
		bar = s.policy.WeakZoneBar
		reason = types.RevisionReasonWeakZone
	default:
		return nil
	}

	rows, err := s.progressions.ListByLearnerID(dbc, learnerID)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	for _, prog := range rows {
		if prog.Status != types.ProgressionStatusCompleted || prog.RevisionQueued {
			continue
		}
		if prog.MasteryScore >= bar {
			continue
		}
		if _, err := s.OnWeakUnit(dbc, learnerID, prog.UnitID, reason); err != nil {
			return err
		}
	}
	return nil
}

// traversalComplete reports whether every unit of the syllabus has reached
// completed for this learner.
func (s *revisionService) traversalComplete(dbc dbctx.Context, learnerID uuid.UUID) (bool, error) {
	units, err := s.syllabus.OrderedUnits(dbc.Ctx, DefaultSubject)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	if len(units) == 0 {
		return false, nil
	}
	completed, err := s.progressions.CountByStatus(dbc, learnerID, types.ProgressionStatusCompleted)
	if err != nil {
		return false, apierr.PersistenceFailure(err)
	}
	return completed >= int64(len(units)), nil
}

func (s *revisionService) OpenItems(dbc dbctx.Context, learnerID uuid.UUID) ([]*types.RevisionQueueItem, error) {
	items, err := s.queue.ListOpenByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return items, nil
}

func (s *revisionService) averageMastery(dbc dbctx.Context, learnerID uuid.UUID) (float64, error) {
	rows, err := s.progressions.ListByLearnerID(dbc, learnerID)
	if err != nil {
		return 0, apierr.PersistenceFailure(err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var sum float64
	for _, prog := range rows {
		sum += prog.MasteryScore
	}
	return sum / float64(len(rows)), nil
}

func (s *revisionService) ensureState(dbc dbctx.Context, learnerID uuid.UUID) (*types.RevisionPolicyState, error) {
	state, err := s.states.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if state != nil {
		return state, nil
	}
	state, err = s.states.Create(dbc, &types.RevisionPolicyState{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		ActivePass: 1,
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return state, nil
}
