// README: Trip estimate handlers (one-shot estimate and tariff-aware watch stream).
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autometer/internal/service"
)

// estimateTimeout caps a single estimate including the mapping call.
const estimateTimeout = 20 * time.Second

type TripHandler struct {
	planner *service.TripPlanner
	log     *zap.Logger
}

func NewTripHandler(planner *service.TripPlanner, log *zap.Logger) *TripHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &TripHandler{planner: planner, log: log}
}

type estimateReq struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// Estimate handles POST /api/trips/estimate.
func (h *TripHandler) Estimate(c *gin.Context) {
	var req estimateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), estimateTimeout)
	defer cancel()

	est, err := h.planner.Estimate(ctx, req.Origin, req.Destination)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, est)
}

// Watch handles GET /api/trips/watch?origin=&destination=. It upgrades to a WebSocket
// and pushes a re-priced estimate whenever the tariff changes.
func (h *TripHandler) Watch(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, err := h.planner.Watch(ctx, c.Query("origin"), c.Query("destination"))
	if err != nil {
		writeTripError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		readMessages(conn, nil)
	}()

	if err := writeUpdates(conn, updates, closed); err != nil {
		h.log.Debug("trip watch ended", zap.Error(err))
	}
}
