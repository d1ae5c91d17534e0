package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"autometer/internal/maps"
)

// ErrSuperseded is returned to a request that was overtaken by a newer one from the same
// client. Its result, if any, is discarded.
var ErrSuperseded = errors.New("request superseded by a newer one")

// DefaultDebounce is the quiet period before an autocomplete query reaches the API.
const DefaultDebounce = 300 * time.Millisecond

// PlaceSuggester returns place predictions for a partial address.
type PlaceSuggester interface {
	Autocomplete(ctx context.Context, query, country string) ([]maps.Suggestion, error)
}

// Autocompleter debounces suggestion requests per client so only the last keystroke of a
// burst calls the places API.
type Autocompleter struct {
	places  PlaceSuggester
	delay   time.Duration
	country string

	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

func NewAutocompleter(places PlaceSuggester, delay time.Duration, country string) *Autocompleter {
	if delay < 0 {
		delay = DefaultDebounce
	}
	return &Autocompleter{
		places:  places,
		delay:   delay,
		country: country,
		latest:  make(map[string]uint64),
	}
}

// Suggest waits out the debounce delay and queries the places API unless a newer request
// for clientID arrives first. A blank query returns no suggestions immediately and still
// supersedes pending requests.
func (a *Autocompleter) Suggest(ctx context.Context, clientID, query string) ([]maps.Suggestion, error) {
	ticket := a.enter(clientID)
	if strings.TrimSpace(query) == "" {
		a.leave(clientID, ticket)
		return nil, nil
	}

	timer := time.NewTimer(a.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		a.leave(clientID, ticket)
		return nil, ctx.Err()
	case <-timer.C:
	}

	if !a.isLatest(clientID, ticket) {
		return nil, ErrSuperseded
	}
	results, err := a.places.Autocomplete(ctx, query, a.country)
	if !a.isLatest(clientID, ticket) {
		return nil, ErrSuperseded
	}
	a.leave(clientID, ticket)
	return results, err
}

func (a *Autocompleter) enter(clientID string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	a.latest[clientID] = a.seq
	return a.seq
}

func (a *Autocompleter) isLatest(clientID string, ticket uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest[clientID] == ticket
}

func (a *Autocompleter) leave(clientID string, ticket uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest[clientID] == ticket {
		delete(a.latest, clientID)
	}
}
