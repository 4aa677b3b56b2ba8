package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/requestdata"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
)

type PlanHandler struct {
	dashboard services.DashboardService
	versions  repos.WeeklyPlanVersionRepo
}

func NewPlanHandler(dashboard services.DashboardService, versions repos.WeeklyPlanVersionRepo) *PlanHandler {
	return &PlanHandler{dashboard: dashboard, versions: versions}
}

func (ph *PlanHandler) GetCurrent(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	view, err := ph.dashboard.GetCurrentPlan(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, view)
}

// GetVersions returns the append-only recomputation log for the learner.
func (ph *PlanHandler) GetVersions(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	rows, err := ph.versions.ListByLearnerID(dbctx.Context{Ctx: c.Request.Context()}, rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"versions": rows})
}
