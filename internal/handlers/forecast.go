package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidyasetu/vidyasetu-backend/internal/requestdata"
	"github.com/vidyasetu/vidyasetu-backend/internal/services"
)

type ForecastHandler struct {
	dashboard services.DashboardService
}

func NewForecastHandler(dashboard services.DashboardService) *ForecastHandler {
	return &ForecastHandler{dashboard: dashboard}
}

// GetHistory returns every forecast row in order, including degraded and
// unchanged recomputations.
func (fh *ForecastHandler) GetHistory(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.LearnerID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	rows, err := fh.dashboard.GetForecastHistory(c.Request.Context(), rd.LearnerID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"forecasts": rows})
}
