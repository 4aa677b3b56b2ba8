package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/requestdata"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
)

type AdminHandler struct {
	scheduler    services.SchedulerService
	orchestrator services.OrchestratorService
}

func NewAdminHandler(scheduler services.SchedulerService, orchestrator services.OrchestratorService) *AdminHandler {
	return &AdminHandler{scheduler: scheduler, orchestrator: orchestrator}
}

// TickAll fires the weekly tick cycle immediately. Used by ops tooling and
// tests; the scheduler normally drives this on its own interval.
func (ah *AdminHandler) TickAll(c *gin.Context) {
	if err := ah.scheduler.TickAll(c.Request.Context()); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

// TickMe advances the calling learner's plan by one week.
func (ah *AdminHandler) TickMe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	result, err := ah.orchestrator.HandleWeeklyTick(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result, "replayed": result.Replayed})
}
