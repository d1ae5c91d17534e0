package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autometer/internal/maps"
)

type countingPlaces struct {
	calls   atomic.Int32
	queries chan string
	release chan struct{}
}

func (c *countingPlaces) Autocomplete(ctx context.Context, query, country string) ([]maps.Suggestion, error) {
	c.calls.Add(1)
	if c.queries != nil {
		c.queries <- query
	}
	if c.release != nil {
		<-c.release
	}
	return []maps.Suggestion{{ID: query, Description: query + ", " + country}}, nil
}

func TestAutocompleter_LastRequestWins(t *testing.T) {
	places := &countingPlaces{}
	a := NewAutocompleter(places, 30*time.Millisecond, "in")

	type outcome struct {
		query string
		res   []maps.Suggestion
		err   error
	}
	results := make([]outcome, 3)
	var wg sync.WaitGroup
	for i, q := range []string{"in", "indi", "indira"} {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			res, err := a.Suggest(context.Background(), "client-1", q)
			results[i] = outcome{query: q, res: res, err: err}
		}(i, q)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	assert.ErrorIs(t, results[0].err, ErrSuperseded)
	assert.ErrorIs(t, results[1].err, ErrSuperseded)
	require.NoError(t, results[2].err)
	require.Len(t, results[2].res, 1)
	assert.Equal(t, "indira", results[2].res[0].ID)
	assert.Equal(t, "indira, in", results[2].res[0].Description)
	assert.Equal(t, int32(1), places.calls.Load())
}

func TestAutocompleter_ClientsAreIndependent(t *testing.T) {
	places := &countingPlaces{}
	a := NewAutocompleter(places, 10*time.Millisecond, "in")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, client := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, client string) {
			defer wg.Done()
			_, errs[i] = a.Suggest(context.Background(), client, "mg road")
		}(i, client)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, int32(2), places.calls.Load())
}

func TestAutocompleter_BlankQuery(t *testing.T) {
	places := &countingPlaces{}
	a := NewAutocompleter(places, time.Hour, "in")

	res, err := a.Suggest(context.Background(), "c", "   ")
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Zero(t, places.calls.Load())
}

func TestAutocompleter_ContextCancelled(t *testing.T) {
	a := NewAutocompleter(&countingPlaces{}, time.Hour, "in")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := a.Suggest(ctx, "c", "indira")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAutocompleter_SupersededWhileCallInFlight(t *testing.T) {
	places := &countingPlaces{queries: make(chan string), release: make(chan struct{})}
	a := NewAutocompleter(places, 0, "in")

	done := make(chan error, 1)
	go func() {
		_, err := a.Suggest(context.Background(), "c", "first")
		done <- err
	}()

	// The first call is now blocked inside the places API.
	assert.Equal(t, "first", <-places.queries)

	second := make(chan error, 1)
	go func() {
		_, err := a.Suggest(context.Background(), "c", "second")
		second <- err
	}()
	assert.Equal(t, "second", <-places.queries)
	close(places.release)

	assert.NoError(t, <-second)
	assert.ErrorIs(t, <-done, ErrSuperseded)
}
