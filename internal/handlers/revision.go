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

type RevisionHandler struct {
	dashboard services.DashboardService
	states    repos.RevisionPolicyStateRepo
	queue     repos.RevisionQueueRepo
}

func NewRevisionHandler(dashboard services.DashboardService, states repos.RevisionPolicyStateRepo, queue repos.RevisionQueueRepo) *RevisionHandler {
	return &RevisionHandler{dashboard: dashboard, states: states, queue: queue}
}

func (rh *RevisionHandler) GetQueue(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	items, err := rh.dashboard.GetRevisionQueue(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

func (rh *RevisionHandler) GetPassState(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	state, err := rh.states.GetByLearnerID(dbctx.Context{Ctx: c.Request.Context()}, rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if state == nil {
		RespondOK(c, gin.H{"active_pass": 1, "items": []struct{}{}})
		return
	}
	items, err := rh.queue.ListByLearnerAndPass(dbctx.Context{Ctx: c.Request.Context()}, rd.LearnerID, state.ActivePass)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"state": state, "items": items})
}
