// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"autometer/internal/maps"
	"autometer/internal/modules/location"
	"autometer/internal/modules/meter"
	"autometer/internal/modules/tariff"
	"autometer/internal/service"
)

type errorResponse struct {
	Error    string `json:"error"`
	Fallback string `json:"fallback,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bindOptionalJSON decodes the body into v, treating an empty body as "use defaults".
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

func writeMeterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, meter.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, location.ErrPermissionDenied):
		writeJSON(c, http.StatusForbidden, errorResponse{Error: err.Error(), Fallback: string(meter.DistanceManual)})
	case errors.Is(err, meter.ErrInvalidDistance), errors.Is(err, location.ErrUnsupportedSource):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, meter.ErrInvalidState), errors.Is(err, meter.ErrNoPositionSource), errors.Is(err, meter.ErrPushUnsupported):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, location.ErrBackpressure):
		writeError(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, location.ErrPositionUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "position source timed out")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTrip):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, maps.ErrNoRouteFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, maps.ErrUnavailable):
		writeError(c, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrSuperseded):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAssistantUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(c, http.StatusGatewayTimeout, "request cancelled")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeTariffError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tariff.ErrInvalidConfiguration):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
