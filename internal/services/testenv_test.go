package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/locks"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type testEnv struct {
	db     *gorm.DB
	log    *logger.Logger
	policy ProgressionPolicy

	learnerRepo     repos.LearnerRepo
	profileRepo     repos.LearnerProfileRepo
	unitRepo        repos.SyllabusUnitRepo
	progressionRepo repos.UnitProgressionRepo
	queueRepo       repos.RevisionQueueRepo
	stateRepo       repos.RevisionPolicyStateRepo
	planRepo        repos.WeeklyPlanRepo
	versionRepo     repos.WeeklyPlanVersionRepo
	forecastRepo    repos.WeeklyForecastRepo
	taskRepo        repos.TaskRepo
	attemptRepo     repos.TaskAttemptRepo
	idemRepo        repos.IdempotencyRepo

	syllabus     SyllabusService
	evaluator    EvaluatorService
	revision     RevisionService
	pace         PaceService
	plan         PlanService
	orchestrator OrchestratorService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Learner{},
		&types.LearnerToken{},
		&types.LearnerProfile{},
		&types.LearnerProfileSnapshot{},
		&types.SyllabusUnit{},
		&types.UnitProgression{},
		&types.RevisionQueueItem{},
		&types.RevisionPolicyState{},
		&types.WeeklyPlan{},
		&types.WeeklyPlanVersion{},
		&types.WeeklyForecast{},
		&types.Task{},
		&types.TaskAttempt{},
		&types.IdempotencyRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:     db,
		log:    log,
		policy: DefaultProgressionPolicy(),
	}
	env.learnerRepo = repos.NewLearnerRepo(db, log)
	env.profileRepo = repos.NewLearnerProfileRepo(db, log)
	env.unitRepo = repos.NewSyllabusUnitRepo(db, log)
	env.progressionRepo = repos.NewUnitProgressionRepo(db, log)
	env.queueRepo = repos.NewRevisionQueueRepo(db, log)
	env.stateRepo = repos.NewRevisionPolicyStateRepo(db, log)
	env.planRepo = repos.NewWeeklyPlanRepo(db, log)
	env.versionRepo = repos.NewWeeklyPlanVersionRepo(db, log)
	env.forecastRepo = repos.NewWeeklyForecastRepo(db, log)
	env.taskRepo = repos.NewTaskRepo(db, log)
	env.attemptRepo = repos.NewTaskAttemptRepo(db, log)
	env.idemRepo = repos.NewIdempotencyRepo(db, log)

	env.syllabus = NewSyllabusService(db, log, env.unitRepo)
	if err := env.syllabus.SeedDefaultSubject(context.Background()); err != nil {
		t.Fatalf("seed syllabus: %v", err)
	}
	env.evaluator = NewEvaluatorService(db, log, env.policy, env.syllabus, env.progressionRepo)
	env.revision = NewRevisionService(db, log, env.policy, env.syllabus, env.progressionRepo, env.queueRepo, env.stateRepo)
	env.pace = NewPaceService(db, log, env.policy, env.syllabus, env.progressionRepo, env.profileRepo, env.forecastRepo)
	env.plan = NewPlanService(db, log, env.policy, env.syllabus, env.progressionRepo, env.profileRepo, env.queueRepo, env.planRepo, env.versionRepo, env.taskRepo)
	env.orchestrator = NewOrchestratorService(
		db, log, env.policy, locks.NewMemoryLocker(),
		env.evaluator, env.revision, env.pace, env.plan,
		env.taskRepo, env.attemptRepo, env.planRepo, env.idemRepo, nil,
	)
	return env
}

func (env *testEnv) dbc() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

// seedLearner creates a learner with a profile and the first unit unlocked.
func (env *testEnv) seedLearner(t *testing.T, selectedWeeks int) uuid.UUID {
	t.Helper()
	learnerID := uuid.New()
	_, err := env.learnerRepo.Create(env.dbc(), &types.Learner{
		ID:           learnerID,
		Name:         "Test Learner",
		Email:        fmt.Sprintf("%s@example.com", learnerID),
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create learner: %v", err)
	}
	if err := env.profileRepo.Upsert(env.dbc(), &types.LearnerProfile{
		ID:                       uuid.New(),
		LearnerID:                learnerID,
		Ability:                  0.6,
		CognitiveDepth:           0.5,
		SelectedTimelineWeeks:    selectedWeeks,
		RecommendedTimelineWeeks: selectedWeeks,
		CurrentForecastWeeks:     selectedWeeks,
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := env.evaluator.EnsureFirstUnlocked(env.dbc(), learnerID, DefaultSubject); err != nil {
		t.Fatalf("unlock first unit: %v", err)
	}
	return learnerID
}

func (env *testEnv) orderedUnits(t *testing.T) []*types.SyllabusUnit {
	t.Helper()
	units, err := env.syllabus.OrderedUnits(context.Background(), DefaultSubject)
	if err != nil {
		t.Fatalf("ordered units: %v", err)
	}
	if len(units) == 0 {
		t.Fatalf("no syllabus units seeded")
	}
	return units
}

func (env *testEnv) progressionOf(t *testing.T, learnerID, unitID uuid.UUID) *types.UnitProgression {
	t.Helper()
	prog, err := env.progressionRepo.GetByLearnerAndUnit(env.dbc(), learnerID, unitID)
	if err != nil {
		t.Fatalf("get progression: %v", err)
	}
	if prog == nil {
		t.Fatalf("no progression row for unit %s", unitID)
	}
	return prog
}
