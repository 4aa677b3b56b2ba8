package services

import (
	"encoding/json"
	"fmt"
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

const (
	minWeeklyUnits = 1
	maxWeeklyUnits = 5
)

// DraftWeek is one forecast week inside the plan payload. Draft weeks are
// freely replaced on every rebuild; only the committed week's Task rows are
// locked.
type DraftWeek struct {
	WeekNumber int      `json:"week_number"`
	UnitKeys   []string `json:"unit_keys"`
	Focus      string   `json:"focus"`
	TaskCount  int      `json:"task_count"`
}

type PlanDraft struct {
	GeneratedWeek int         `json:"generated_week"`
	ForecastWeeks int         `json:"forecast_weeks"`
	Weeks         []DraftWeek `json:"weeks"`
}

// PlanService materializes the weekly plan: locked Task rows for the
// committed week, a replaceable draft payload for everything beyond it, and
// an append-only version log entry per rebuild.
type PlanService interface {
	EnsurePlan(dbc dbctx.Context, learnerID uuid.UUID, totalWeeks int) (*types.WeeklyPlan, error)
	Rebuild(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int, reason string) (*types.WeeklyPlan, error)
	AdvanceWeek(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyPlan, error)
}

type planService struct {
	db           *gorm.DB
	log          *logger.Logger
	policy       ProgressionPolicy
	syllabus     SyllabusService
	progressions repos.UnitProgressionRepo
	profiles     repos.LearnerProfileRepo
	revisions    repos.RevisionQueueRepo
	plans        repos.WeeklyPlanRepo
	versions     repos.WeeklyPlanVersionRepo
	tasks        repos.TaskRepo
}

func NewPlanService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	syllabus SyllabusService,
	progressions repos.UnitProgressionRepo,
	profiles repos.LearnerProfileRepo,
	revisions repos.RevisionQueueRepo,
	plans repos.WeeklyPlanRepo,
	versions repos.WeeklyPlanVersionRepo,
	tasks repos.TaskRepo,
) PlanService {
	return &planService{
		db:           db,
		log:          baseLog.With("service", "PlanService"),
		policy:       policy,
		syllabus:     syllabus,
		progressions: progressions,
		profiles:     profiles,
		revisions:    revisions,
		plans:        plans,
		versions:     versions,
		tasks:        tasks,
	}
}

func (s *planService) EnsurePlan(dbc dbctx.Context, learnerID uuid.UUID, totalWeeks int) (*types.WeeklyPlan, error) {
	plan, err := s.plans.GetActiveByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if plan != nil {
		return plan, nil
	}
	plan, err = s.plans.Create(dbc, &types.WeeklyPlan{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		Status:      types.PlanStatusActive,
		CurrentWeek: 1,
		TotalWeeks:  s.policy.ClampWeeks(totalWeeks),
		GeneratedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return plan, nil
}

func (s *planService) Rebuild(dbc dbctx.Context, learnerID uuid.UUID, currentWeek int, reason string) (*types.WeeklyPlan, error) {
	profile, err := s.profiles.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("no profile for learner %s", learnerID))
	}
	forecastWeeks := profile.CurrentForecastWeeks
	if forecastWeeks == 0 {
		forecastWeeks = profile.SelectedTimelineWeeks
	}
	forecastWeeks = s.policy.ClampWeeks(forecastWeeks)

	plan, err := s.EnsurePlan(dbc, learnerID, forecastWeeks)
	if err != nil {
		return nil, err
	}
	if currentWeek < 1 {
		currentWeek = plan.CurrentWeek
	}

	units, err := s.syllabus.OrderedUnits(dbc.Ctx, DefaultSubject)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	unitByID := make(map[uuid.UUID]*types.SyllabusUnit, len(units))
	for _, u := range units {
		unitByID[u.ID] = u
	}

	progRows, err := s.progressions.ListByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	progByUnit := make(map[uuid.UUID]*types.UnitProgression, len(progRows))
	for _, p := range progRows {
		progByUnit[p.UnitID] = p
	}

	openRevisions, err := s.revisions.ListOpenByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	// Forward queue: the in-progress unit first, then every unit not yet
	// reached, in syllabus order.
	var forward []*types.SyllabusUnit
	for _, u := range units {
		p := progByUnit[u.ID]
		if p == nil || p.Status == types.ProgressionStatusNotStarted || p.Status == types.ProgressionStatusInProgress {
			forward = append(forward, u)
		}
	}

	weeklyUnits := weeklyUnitBudget(len(forward)+len(openRevisions), forecastWeeks-currentWeek+1)

	if err := s.commitWeek(dbc, learnerID, profile, currentWeek, weeklyUnits, openRevisions, forward, unitByID); err != nil {
		return nil, err
	}

	draft := s.draftForecast(currentWeek, forecastWeeks, weeklyUnits, openRevisions, forward, unitByID)
	payload, err := json.Marshal(draft)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	plan.CurrentWeek = currentWeek
	plan.TotalWeeks = forecastWeeks
	plan.PlanPayload = datatypes.JSON(payload)
	if len(forward) == 0 && len(openRevisions) == 0 {
		plan.Status = types.PlanStatusCompleted
	}
	if err := s.plans.Save(dbc, plan); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	maxVersion, err := s.versions.MaxVersionNumber(dbc, plan.ID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if _, err := s.versions.Create(dbc, &types.WeeklyPlanVersion{
		ID:            uuid.New(),
		WeeklyPlanID:  plan.ID,
		LearnerID:     learnerID,
		VersionNumber: maxVersion + 1,
		CurrentWeek:   currentWeek,
		PlanPayload:   datatypes.JSON(payload),
		Reason:        reason,
	}); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	s.log.Info("Rebuilt weekly plan",
		"learner_id", learnerID.String(),
		"week", currentWeek,
		"total_weeks", forecastWeeks,
		"version", maxVersion+1,
		"reason", reason,
	)
	return plan, nil
}

// commitWeek materializes locked Task rows for the committed week. Existing
// locked rows are kept as-is; only unlocked leftovers are replaced.
func (s *planService) commitWeek(
	dbc dbctx.Context,
	learnerID uuid.UUID,
	profile *types.LearnerProfile,
	week int,
	weeklyUnits int,
	openRevisions []*types.RevisionQueueItem,
	forward []*types.SyllabusUnit,
	unitByID map[uuid.UUID]*types.SyllabusUnit,
) error {
	existing, err := s.tasks.ListByLearnerAndWeek(dbc, learnerID, week)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	for _, t := range existing {
		if t.IsLocked {
			return nil
		}
	}
	if err := s.tasks.DeleteUnlockedByWeek(dbc, learnerID, week); err != nil {
		return apierr.PersistenceFailure(err)
	}

	contentPolicy := contentPolicyFor(profile)
	var rows []*types.Task
	sortOrder := 1
	unitsLeft := weeklyUnits

	// Revision work outranks forward progress inside the week. The weekly
	// budget counts units, not task rows: a revision unit carries one task, a
	// forward unit a read/test pair.
	for _, item := range openRevisions {
		if unitsLeft == 0 {
			break
		}
		unit := unitByID[item.UnitID]
		if unit == nil {
			continue
		}
		rows = append(rows, &types.Task{
			ID:            uuid.New(),
			LearnerID:     learnerID,
			WeekNumber:    week,
			UnitID:        unit.ID,
			TaskType:      types.TaskTypeRevision,
			Title:         fmt.Sprintf("Revise %s", unit.Title),
			SortOrder:     sortOrder,
			Status:        types.TaskStatusPending,
			IsLocked:      true,
			ProofPolicy:   proofPolicyFor(types.TaskTypeRevision),
			ContentPolicy: contentPolicy,
		})
		sortOrder++
		unitsLeft--
	}

	for _, unit := range forward {
		if unitsLeft == 0 {
			break
		}
		rows = append(rows, &types.Task{
			ID:            uuid.New(),
			LearnerID:     learnerID,
			WeekNumber:    week,
			UnitID:        unit.ID,
			TaskType:      types.TaskTypeRead,
			Title:         fmt.Sprintf("Study %s", unit.Title),
			SortOrder:     sortOrder,
			Status:        types.TaskStatusPending,
			IsLocked:      true,
			ProofPolicy:   proofPolicyFor(types.TaskTypeRead),
			ContentPolicy: contentPolicy,
		}, &types.Task{
			ID:            uuid.New(),
			LearnerID:     learnerID,
			WeekNumber:    week,
			UnitID:        unit.ID,
			TaskType:      types.TaskTypeTest,
			Title:         fmt.Sprintf("Checkpoint: %s", unit.Title),
			SortOrder:     sortOrder + 1,
			Status:        types.TaskStatusPending,
			IsLocked:      true,
			ProofPolicy:   proofPolicyFor(types.TaskTypeTest),
			ContentPolicy: contentPolicy,
		})
		sortOrder += 2
		unitsLeft--
	}

	_, err = s.tasks.CreateBatch(dbc, rows)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	return nil
}

// draftForecast lays the remaining work across the forecast horizon. Weeks
// after the committed one carry unit keys only; they are re-cut on every
// rebuild.
func (s *planService) draftForecast(
	currentWeek, forecastWeeks, weeklyUnits int,
	openRevisions []*types.RevisionQueueItem,
	forward []*types.SyllabusUnit,
	unitByID map[uuid.UUID]*types.SyllabusUnit,
) *PlanDraft {
	draft := &PlanDraft{GeneratedWeek: currentWeek, ForecastWeeks: forecastWeeks}

	var queue []string
	revisionKeys := map[string]bool{}
	for _, item := range openRevisions {
		if unit := unitByID[item.UnitID]; unit != nil {
			queue = append(queue, unit.UnitKey)
			revisionKeys[unit.UnitKey] = true
		}
	}
	for _, unit := range forward {
		queue = append(queue, unit.UnitKey)
	}

	// The committed week consumes the head of the queue.
	if len(queue) > weeklyUnits {
		queue = queue[weeklyUnits:]
	} else {
		queue = nil
	}

	for week := currentWeek + 1; week <= forecastWeeks && len(queue) > 0; week++ {
		n := weeklyUnits
		if n > len(queue) {
			n = len(queue)
		}
		keys := append([]string(nil), queue[:n]...)
		queue = queue[n:]

		focus := "progression"
		if revisionKeys[keys[0]] {
			focus = "revision"
		}
		draft.Weeks = append(draft.Weeks, DraftWeek{
			WeekNumber: week,
			UnitKeys:   keys,
			Focus:      focus,
			TaskCount:  len(keys) * 2,
		})
	}
	return draft
}

func (s *planService) AdvanceWeek(dbc dbctx.Context, learnerID uuid.UUID) (*types.WeeklyPlan, error) {
	plan, err := s.plans.GetActiveByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if plan == nil {
		return nil, apierr.NotFound(fmt.Errorf("no active plan for learner %s", learnerID))
	}
	plan.CurrentWeek++
	if plan.CurrentWeek > plan.TotalWeeks {
		plan.Status = types.PlanStatusCompleted
	}
	if err := s.plans.Save(dbc, plan); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return plan, nil
}

func weeklyUnitBudget(remainingUnits, remainingWeeks int) int {
	if remainingWeeks < 1 {
		remainingWeeks = 1
	}
	budget := (remainingUnits + remainingWeeks - 1) / remainingWeeks
	if budget < minWeeklyUnits {
		return minWeeklyUnits
	}
	if budget > maxWeeklyUnits {
		return maxWeeklyUnits
	}
	return budget
}

// contentPolicyFor is the data-only directive the external content generator
// consumes: ability band, measured depth, and how dense the worked examples
// should be. Shallow learners get more examples, deep learners fewer.
func contentPolicyFor(profile *types.LearnerProfile) datatypes.JSON {
	band := "weak"
	switch {
	case profile.Ability >= 0.8:
		band = "mastered"
	case profile.Ability >= 0.6:
		band = "developing"
	}
	density := "standard"
	switch {
	case profile.CognitiveDepth < 0.4:
		density = "high"
	case profile.CognitiveDepth > 0.75:
		density = "sparse"
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"band":            band,
		"depth":           profile.CognitiveDepth,
		"example_density": density,
	})
	return datatypes.JSON(raw)
}

func proofPolicyFor(taskType string) datatypes.JSON {
	var policy map[string]interface{}
	switch taskType {
	case types.TaskTypeRead:
		policy = map[string]interface{}{"kind": "time_spent", "min_seconds": 300}
	default:
		policy = map[string]interface{}{"kind": "scored_submission", "requires_score": true}
	}
	raw, _ := json.Marshal(policy)
	return datatypes.JSON(raw)
}
