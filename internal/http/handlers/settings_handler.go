// README: Fare settings handlers (read and replace the active tariff).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"autometer/internal/modules/tariff"
)

type SettingsHandler struct {
	tariffs *tariff.Service
	log     *zap.Logger
}

func NewSettingsHandler(tariffs *tariff.Service, log *zap.Logger) *SettingsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsHandler{tariffs: tariffs, log: log}
}

type fareSettingsResp struct {
	tariff.Tariff
	Version uint64 `json:"version"`
}

// Get handles GET /api/settings/fare.
func (h *SettingsHandler) Get(c *gin.Context) {
	snap := h.tariffs.Current()
	writeJSON(c, http.StatusOK, fareSettingsResp{Tariff: snap.Tariff, Version: snap.Version})
}

// Put handles PUT /api/settings/fare. The whole record is replaced.
func (h *SettingsHandler) Put(c *gin.Context) {
	var req tariff.Tariff
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	snap, err := h.tariffs.Save(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("fare settings rejected", zap.Error(err))
		writeTariffError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, fareSettingsResp{Tariff: snap.Tariff, Version: snap.Version})
}
