package maps

import (
	"context"
	"errors"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"autometer/internal/observability/metrics"
)

// Suggestion is one place prediction for a partially typed address.
type Suggestion struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	MainText      string `json:"mainText"`
	SecondaryText string `json:"secondaryText"`
}

// PlacesService handles interactions with the Google Places API.
type PlacesService struct {
	client mapsAPI
	opts   Options
}

// NewPlacesService creates a PlacesService on top of a shared client.
func NewPlacesService(client *maps.Client, opts Options) *PlacesService {
	return newPlacesService(client, opts)
}

func newPlacesService(api mapsAPI, opts Options) *PlacesService {
	return &PlacesService{client: api, opts: opts.withDefaults()}
}

// Autocomplete returns place predictions restricted to country. An empty country uses
// the configured default. Blank queries return no suggestions without calling the API.
func (s *PlacesService) Autocomplete(ctx context.Context, query, country string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if country == "" {
		country = s.opts.Country
	}

	started := time.Now()
	out, err := s.autocomplete(ctx, query, country)
	metrics.ObserveMapsCall("autocomplete", started, err)
	return out, err
}

func (s *PlacesService) autocomplete(ctx context.Context, query, country string) ([]Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	resp, err := s.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:    query,
		Language: s.opts.Language,
		Components: map[maps.Component][]string{
			maps.ComponentCountry: {country},
		},
	})
	if err != nil {
		classified := classify("autocomplete", err)
		// An unknown prefix is not a failure for a type-ahead box.
		if errors.Is(classified, ErrNoRouteFound) {
			return nil, nil
		}
		return nil, classified
	}

	results := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		results = append(results, Suggestion{
			ID:            p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
		})
	}
	return results, nil
}
