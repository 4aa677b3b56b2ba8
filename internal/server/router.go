package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vidyasetu/vidyasetu-backend/internal/handlers"
	"github.com/vidyasetu/vidyasetu-backend/internal/middleware"
	"github.com/vidyasetu/vidyasetu-backend/internal/utils"
)

type RouterConfig struct {
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	ProfileHandler     *handlers.ProfileHandler
	ProgressionHandler *handlers.ProgressionHandler
	PlanHandler        *handlers.PlanHandler
	RevisionHandler    *handlers.RevisionHandler
	ForecastHandler    *handlers.ForecastHandler
	AdminHandler       *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("vidyasetu-backend"))

	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// Profile
	protected.POST("/profile/onboard", cfg.ProfileHandler.Onboard)
	protected.GET("/profile", cfg.ProfileHandler.GetProfile)
	protected.POST("/profile/engagement", cfg.ProfileHandler.RecordEngagement)
	// Progression
	protected.POST("/progression/score", cfg.ProgressionHandler.SubmitScore)
	protected.POST("/progression/attempts/:attemptID/evaluate", cfg.ProgressionHandler.ResubmitAttempt)
	protected.GET("/progression/status", cfg.ProgressionHandler.GetStatus)
	protected.GET("/progression/tasks/:taskID/attempts", cfg.ProgressionHandler.GetTaskAttempts)
	// Plan
	protected.GET("/plan/current", cfg.PlanHandler.GetCurrent)
	protected.GET("/plan/versions", cfg.PlanHandler.GetVersions)
	// Revision
	protected.GET("/revision/queue", cfg.RevisionHandler.GetQueue)
	protected.GET("/revision/passes", cfg.RevisionHandler.GetPassState)
	// Forecast
	protected.GET("/forecast/history", cfg.ForecastHandler.GetHistory)
	// Ops
	protected.POST("/internal/tick", cfg.AdminHandler.TickAll)
	protected.POST("/internal/tick/me", cfg.AdminHandler.TickMe)

	return router
}
