// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"autometer/internal/http/handlers"
	"autometer/internal/http/middleware"
)

// NewRouter registers every route. Trip and place routes are only mounted when their
// services were configured.
func NewRouter(deps ServerDeps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	meterHandler := handlers.NewMeterHandler(deps.Meters, deps.Log)
	meters := api.Group("/meters")
	meters.POST("", meterHandler.Create)
	meters.GET("/:id", meterHandler.Get)
	meters.DELETE("/:id", meterHandler.Delete)
	meters.POST("/:id/start", meterHandler.Start)
	meters.POST("/:id/stop", meterHandler.Stop)
	meters.POST("/:id/reset", meterHandler.Reset)
	meters.POST("/:id/positions", meterHandler.Positions)
	meters.PUT("/:id/distance", meterHandler.Distance)
	meters.GET("/:id/ws", meterHandler.Stream)

	settingsHandler := handlers.NewSettingsHandler(deps.Tariffs, deps.Log)
	api.GET("/settings/fare", settingsHandler.Get)
	api.PUT("/settings/fare", settingsHandler.Put)

	if deps.Trips != nil {
		tripHandler := handlers.NewTripHandler(deps.Trips, deps.Log)
		api.POST("/trips/estimate", tripHandler.Estimate)
		api.GET("/trips/watch", tripHandler.Watch)

		aiHandler := handlers.NewAIHandler(deps.Trips)
		api.POST("/trips/ask", aiHandler.Ask)
	}

	if deps.Autocomplete != nil && deps.Geocoder != nil {
		placesHandler := handlers.NewPlacesHandler(deps.Autocomplete, deps.Geocoder)
		api.GET("/places/autocomplete", placesHandler.Autocomplete)
		api.GET("/places/geocode", placesHandler.Geocode)
	}

	return r
}
