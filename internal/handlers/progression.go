package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/requestdata"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type ProgressionHandler struct {
	orchestrator services.OrchestratorService
	dashboard    services.DashboardService
	attempts     repos.TaskAttemptRepo
}

func NewProgressionHandler(orchestrator services.OrchestratorService, dashboard services.DashboardService, attempts repos.TaskAttemptRepo) *ProgressionHandler {
	return &ProgressionHandler{orchestrator: orchestrator, dashboard: dashboard, attempts: attempts}
}

// SubmitScore runs the full engine pipeline on a graded task submission.
func (ph *ProgressionHandler) SubmitScore(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	var req struct {
		TaskID           uuid.UUID       `json:"task_id"`
		Score            float64         `json:"score"`
		ProofPayload     json.RawMessage `json:"proof_payload"`
		TimeSpentSeconds int             `json:"time_spent_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := ph.orchestrator.SubmitScore(c.Request.Context(), rd.LearnerID, services.ScoreSubmission{
		TaskID:           req.TaskID,
		Score:            req.Score,
		ProofPayload:     req.ProofPayload,
		TimeSpentSeconds: req.TimeSpentSeconds,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result, "replayed": result.Replayed})
}

// ResubmitAttempt replays or runs the engine for an already-recorded attempt.
func (ph *ProgressionHandler) ResubmitAttempt(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	attemptID, err := uuid.Parse(c.Param("attemptID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt id"})
		return
	}
	result, err := ph.orchestrator.HandleScoreSubmission(c.Request.Context(), rd.LearnerID, attemptID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result, "replayed": result.Replayed})
}

// GetTaskAttempts returns the evidence trail for one of the learner's tasks.
func (ph *ProgressionHandler) GetTaskAttempts(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	taskID, err := uuid.Parse(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}
	rows, err := ph.attempts.ListByTaskID(dbctx.Context{Ctx: c.Request.Context()}, taskID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	owned := make([]*types.TaskAttempt, 0, len(rows))
	for _, row := range rows {
		if row.LearnerID == rd.LearnerID {
			owned = append(owned, row)
		}
	}
	RespondOK(c, gin.H{"attempts": owned})
}

func (ph *ProgressionHandler) GetStatus(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	view, err := ph.dashboard.GetProgressionStatus(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, view)
}
