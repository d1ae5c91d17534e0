package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"
)

var (
	// ErrNoRouteFound means the API answered but had no route or no match.
	ErrNoRouteFound = errors.New("no route found")
	// ErrUnavailable covers transport, quota and other API failures.
	ErrUnavailable = errors.New("mapping service unavailable")
)

// Options tune every request sent to the Maps API.
type Options struct {
	Country  string
	Language string
	Timeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Country == "" {
		o.Country = "in"
	}
	if o.Language == "" {
		o.Language = "en"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

// mapsAPI is the subset of *maps.Client used here.
type mapsAPI interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	PlaceAutocomplete(ctx context.Context, r *maps.PlaceAutocompleteRequest) (maps.AutocompleteResponse, error)
}

// NewClient creates the Maps API client shared by the route and places services.
func NewClient(apiKey string) (*maps.Client, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}

// classify maps an API error onto ErrNoRouteFound or ErrUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "ZERO_RESULTS") || strings.Contains(msg, "NOT_FOUND") {
		return fmt.Errorf("%s: %w: %v", op, ErrNoRouteFound, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
