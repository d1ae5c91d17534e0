// README: Place lookup handlers (debounced autocomplete, geocoding).
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"autometer/internal/maps"
	"autometer/internal/service"
	"autometer/internal/types"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

type PlacesHandler struct {
	autocomplete *service.Autocompleter
	geocoder     Geocoder
}

func NewPlacesHandler(autocomplete *service.Autocompleter, geocoder Geocoder) *PlacesHandler {
	return &PlacesHandler{autocomplete: autocomplete, geocoder: geocoder}
}

// Autocomplete handles GET /api/places/autocomplete?q=&client=. Requests are debounced
// per client; the client id defaults to the caller's IP.
func (h *PlacesHandler) Autocomplete(c *gin.Context) {
	clientID := strings.TrimSpace(c.Query("client"))
	if clientID == "" {
		clientID = c.ClientIP()
	}
	suggestions, err := h.autocomplete.Suggest(c.Request.Context(), clientID, c.Query("q"))
	if err != nil {
		writeTripError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []maps.Suggestion{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// Geocode handles GET /api/places/geocode?address=.
func (h *PlacesHandler) Geocode(c *gin.Context) {
	address := strings.TrimSpace(c.Query("address"))
	if address == "" {
		writeError(c, http.StatusBadRequest, "missing address")
		return
	}
	p, err := h.geocoder.Geocode(c.Request.Context(), address)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}
