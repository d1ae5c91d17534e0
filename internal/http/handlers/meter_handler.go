// README: Meter handlers for session lifecycle, position push, manual distance and live stream.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autometer/internal/modules/location"
	"autometer/internal/modules/meter"
	"autometer/internal/types"
)

// startTimeout bounds the wait for permission and a first fix.
const startTimeout = 15 * time.Second

type MeterHandler struct {
	meters *meter.Service
	log    *zap.Logger
}

func NewMeterHandler(meters *meter.Service, log *zap.Logger) *MeterHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MeterHandler{meters: meters, log: log}
}

type createMeterReq struct {
	Source            string `json:"source"`
	DeviceID          string `json:"device_id"`
	PermissionGranted bool   `json:"permission_granted"`
}

type startMeterReq struct {
	Mode string `json:"mode"`
}

type positionReq struct {
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	TimestampMs int64    `json:"timestamp_ms"`
}

type distanceReq struct {
	DistanceKm *float64 `json:"distance_km"`
}

type wsInbound struct {
	Type string `json:"type"`
	positionReq
}

func (p positionReq) sample() (location.Sample, bool) {
	if p.Lat == nil || p.Lng == nil {
		return location.Sample{}, false
	}
	ts := p.TimestampMs
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	return location.Sample{Lat: *p.Lat, Lng: *p.Lng, TimestampMs: ts}, true
}

// Create handles POST /api/meters.
func (h *MeterHandler) Create(c *gin.Context) {
	var req createMeterReq
	if !bindOptionalJSON(c, &req) {
		return
	}
	sess, err := h.meters.Create(meter.CreateCommand{
		Source:            location.SourceKind(strings.TrimSpace(req.Source)),
		DeviceID:          strings.TrimSpace(req.DeviceID),
		PermissionGranted: req.PermissionGranted,
	})
	if err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sess.Snapshot())
}

// Get handles GET /api/meters/:id.
func (h *MeterHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

// Delete handles DELETE /api/meters/:id.
func (h *MeterHandler) Delete(c *gin.Context) {
	if err := h.meters.Delete(types.ID(c.Param("id"))); err != nil {
		writeMeterError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Start handles POST /api/meters/:id/start. Mode "gps" (default) asks the position
// source for permission; on refusal the response carries fallback "manual".
func (h *MeterHandler) Start(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req startMeterReq
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), startTimeout)
	defer cancel()

	var err error
	switch meter.DistanceMode(req.Mode) {
	case meter.DistanceGPS, "":
		err = sess.Start(ctx)
	case meter.DistanceManual:
		err = sess.StartManual(ctx)
	default:
		writeError(c, http.StatusBadRequest, "mode must be gps or manual")
		return
	}
	if err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

// Stop handles POST /api/meters/:id/stop.
func (h *MeterHandler) Stop(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.Stop(); err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

// Reset handles POST /api/meters/:id/reset.
func (h *MeterHandler) Reset(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if err := sess.Reset(); err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

// Positions handles POST /api/meters/:id/positions with a JSON array of fixes. Every fix
// must carry timestamp_ms.
func (h *MeterHandler) Positions(c *gin.Context) {
	var req []positionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	samples := make([]location.Sample, 0, len(req))
	for _, p := range req {
		// A batch carries its own timing; stamping on arrival would collapse it.
		if p.TimestampMs <= 0 {
			writeError(c, http.StatusBadRequest, "timestamp_ms is required")
			return
		}
		s, ok := p.sample()
		if !ok {
			writeError(c, http.StatusBadRequest, "lat and lng are required")
			return
		}
		samples = append(samples, s)
	}
	if err := h.meters.PushSamples(types.ID(c.Param("id")), samples); err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusAccepted, map[string]any{"accepted": len(samples)})
}

// Distance handles PUT /api/meters/:id/distance, the manual fallback.
func (h *MeterHandler) Distance(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req distanceReq
	if err := c.ShouldBindJSON(&req); err != nil || req.DistanceKm == nil {
		writeError(c, http.StatusBadRequest, "distance_km is required")
		return
	}
	if err := sess.EnterManualDistance(*req.DistanceKm); err != nil {
		writeMeterError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

// Stream handles GET /api/meters/:id/ws. The server pushes a snapshot on every change;
// the client may send {"type":"position","lat":..,"lng":..,"timestamp_ms":..} messages.
func (h *MeterHandler) Stream(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	updates := sess.Subscribe(ctx)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		readMessages(conn, func(msg []byte) {
			var in wsInbound
			if err := json.Unmarshal(msg, &in); err != nil || in.Type != "position" {
				return
			}
			s, ok := in.sample()
			if !ok {
				return
			}
			if err := h.meters.PushSamples(sess.ID(), []location.Sample{s}); err != nil {
				h.log.Debug("dropping websocket position", zap.String("meter_id", string(sess.ID())), zap.Error(err))
			}
		})
	}()

	if err := writeUpdates(conn, updates, closed); err != nil {
		h.log.Debug("meter stream ended", zap.String("meter_id", string(sess.ID())), zap.Error(err))
	}
}

func (h *MeterHandler) session(c *gin.Context) (*meter.Session, bool) {
	sess, err := h.meters.Get(types.ID(c.Param("id")))
	if err != nil {
		writeMeterError(c, err)
		return nil, false
	}
	return sess, true
}
