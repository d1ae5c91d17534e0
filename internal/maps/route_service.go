package maps

import (
	"context"
	"fmt"
	"math"
	"time"

	"googlemaps.github.io/maps"

	"autometer/internal/observability/metrics"
	"autometer/internal/types"
)

// Route is the driving distance and time between two places.
type Route struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int     `json:"durationMinutes"`
	Summary         string  `json:"summary,omitempty"`
}

// RouteService handles directions and geocoding against the Google Maps API.
type RouteService struct {
	client mapsAPI
	opts   Options
}

// NewRouteService creates a RouteService on top of a shared client.
func NewRouteService(client *maps.Client, opts Options) *RouteService {
	return newRouteService(client, opts)
}

func newRouteService(api mapsAPI, opts Options) *RouteService {
	return &RouteService{client: api, opts: opts.withDefaults()}
}

// DistanceAndDuration returns the first driving route from origin to destination.
func (s *RouteService) DistanceAndDuration(ctx context.Context, origin, destination string) (Route, error) {
	started := time.Now()
	route, err := s.directions(ctx, origin, destination)
	metrics.ObserveMapsCall("directions", started, err)
	return route, err
}

func (s *RouteService) directions(ctx context.Context, origin, destination string) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    s.opts.Language,
		Region:      s.opts.Country,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return Route{}, classify("directions", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, fmt.Errorf("directions %q to %q: %w", origin, destination, ErrNoRouteFound)
	}

	leg := routes[0].Legs[0]
	return Route{
		DistanceKm:      float64(leg.Distance.Meters) / 1000,
		DurationMinutes: int(math.Round(leg.Duration.Minutes())),
		Summary:         routes[0].Summary,
	}, nil
}

// Geocode resolves a free-text address to coordinates.
func (s *RouteService) Geocode(ctx context.Context, address string) (types.Point, error) {
	started := time.Now()
	p, err := s.geocode(ctx, address)
	metrics.ObserveMapsCall("geocode", started, err)
	return p, err
}

func (s *RouteService) geocode(ctx context.Context, address string) (types.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Region:   s.opts.Country,
		Language: s.opts.Language,
	})
	if err != nil {
		return types.Point{}, classify("geocode", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("geocode %q: %w", address, ErrNoRouteFound)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
