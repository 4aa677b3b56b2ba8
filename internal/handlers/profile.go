package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/requestdata"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
)

type ProfileHandler struct {
	profiles     services.ProfileService
	orchestrator services.OrchestratorService
}

func NewProfileHandler(profiles services.ProfileService, orchestrator services.OrchestratorService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, orchestrator: orchestrator}
}

// Onboard computes the learner profile from diagnostics, then runs the
// engine once to open the first unit and materialize the initial plan.
func (ph *ProfileHandler) Onboard(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var req services.OnboardingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	profile, err := ph.profiles.Onboard(c.Request.Context(), rd.LearnerID, req)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	result, err := ph.orchestrator.HandleOnboarding(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"profile": profile, "result": result})
}

func (ph *ProfileHandler) GetProfile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	profile, err := ph.profiles.Get(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, profile)
}

func (ph *ProfileHandler) RecordEngagement(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var req struct {
		Minutes int `json:"minutes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ph.profiles.RecordEngagement(c.Request.Context(), rd.LearnerID, req.Minutes); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
