// README: Trip assistant handler (Gemini extracts origin/destination from free text).
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"autometer/internal/service"
)

type AIHandler struct {
	planner *service.TripPlanner
}

func NewAIHandler(planner *service.TripPlanner) *AIHandler {
	return &AIHandler{planner: planner}
}

type askReq struct {
	Message string `json:"message"`
	City    string `json:"city"`
}

// Ask handles POST /api/trips/ask.
func (h *AIHandler) Ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	res, err := h.planner.Ask(ctx, req.Message, strings.TrimSpace(req.City))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}
