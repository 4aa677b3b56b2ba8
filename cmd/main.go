package main

import (
	"context"
	"fmt"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vidyasetu/vidyasetu-backend/internal/db"
	"github.com/vidyasetu/vidyasetu-backend/internal/handlers"
	"github.com/vidyasetu/vidyasetu-backend/internal/middleware"
	"github.com/vidyasetu/vidyasetu-backend/internal/observability"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/locks"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/server"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
	"github.com/vidyasetu/vidyasetu-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "vidyasetu-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(ctx)
		}()
	}

	// Progression policy
	policy, err := services.LoadProgressionPolicy(utils.GetEnv("PROGRESSION_POLICY_PATH", "", log), log)
	if err != nil {
		log.Error("Could not load progression policy", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (lock + dashboard cache); single-process fallbacks when absent
	var rdb *goredis.Client
	var locker locks.LearnerLocker
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	if redisAddr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     redisAddr,
			Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		})
		locker, err = locks.NewRedisLocker(log, rdb)
		if err != nil {
			log.Error("Could not init redis locker", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("REDIS_ADDR not set, using in-process learner locks and no dashboard cache")
		locker = locks.NewMemoryLocker()
	}

	// Repos
	log.Info("Setting up Repos from main...")
	learnerRepo := repos.NewLearnerRepo(thePG, log)
	learnerTokenRepo := repos.NewLearnerTokenRepo(thePG, log)
	learnerProfileRepo := repos.NewLearnerProfileRepo(thePG, log)
	syllabusUnitRepo := repos.NewSyllabusUnitRepo(thePG, log)
	unitProgressionRepo := repos.NewUnitProgressionRepo(thePG, log)
	revisionQueueRepo := repos.NewRevisionQueueRepo(thePG, log)
	revisionStateRepo := repos.NewRevisionPolicyStateRepo(thePG, log)
	weeklyPlanRepo := repos.NewWeeklyPlanRepo(thePG, log)
	weeklyPlanVersionRepo := repos.NewWeeklyPlanVersionRepo(thePG, log)
	weeklyForecastRepo := repos.NewWeeklyForecastRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	taskAttemptRepo := repos.NewTaskAttemptRepo(thePG, log)
	idempotencyRepo := repos.NewIdempotencyRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	syllabusService := services.NewSyllabusService(thePG, log, syllabusUnitRepo)
	if err := syllabusService.SeedDefaultSubject(context.Background()); err != nil {
		log.Error("Could not seed syllabus", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, learnerRepo, learnerTokenRepo)
	profileService := services.NewProfileService(thePG, log, policy, learnerProfileRepo, learnerRepo)
	evaluatorService := services.NewEvaluatorService(thePG, log, policy, syllabusService, unitProgressionRepo)
	revisionService := services.NewRevisionService(thePG, log, policy, syllabusService, unitProgressionRepo, revisionQueueRepo, revisionStateRepo)
	paceService := services.NewPaceService(thePG, log, policy, syllabusService, unitProgressionRepo, learnerProfileRepo, weeklyForecastRepo)
	planService := services.NewPlanService(thePG, log, policy, syllabusService, unitProgressionRepo, learnerProfileRepo, revisionQueueRepo, weeklyPlanRepo, weeklyPlanVersionRepo, taskRepo)
	dashboardService := services.NewDashboardService(thePG, log, rdb, weeklyPlanRepo, taskRepo, unitProgressionRepo, weeklyForecastRepo, revisionQueueRepo, syllabusService)
	orchestratorService := services.NewOrchestratorService(
		thePG,
		log,
		policy,
		locker,
		evaluatorService,
		revisionService,
		paceService,
		planService,
		taskRepo,
		taskAttemptRepo,
		weeklyPlanRepo,
		idempotencyRepo,
		dashboardService,
	)
	schedulerService := services.NewSchedulerService(thePG, log, learnerRepo, orchestratorService)

	tickHours := utils.GetEnvAsInt("WEEKLY_TICK_INTERVAL_HOURS", 168, log)
	go func() {
		_ = schedulerService.Run(context.Background(), time.Duration(tickHours)*time.Hour)
	}()

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(profileService, orchestratorService)
	progressionHandler := handlers.NewProgressionHandler(orchestratorService, dashboardService, taskAttemptRepo)
	planHandler := handlers.NewPlanHandler(dashboardService, weeklyPlanVersionRepo)
	revisionHandler := handlers.NewRevisionHandler(dashboardService, revisionStateRepo, revisionQueueRepo)
	forecastHandler := handlers.NewForecastHandler(dashboardService)
	adminHandler := handlers.NewAdminHandler(schedulerService, orchestratorService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		ProfileHandler:     profileHandler,
		ProgressionHandler: progressionHandler,
		PlanHandler:        planHandler,
		RevisionHandler:    revisionHandler,
		ForecastHandler:    forecastHandler,
		AdminHandler:       adminHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
