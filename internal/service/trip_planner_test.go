package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autometer/internal/ai"
	"autometer/internal/maps"
	"autometer/internal/modules/pricing"
	"autometer/internal/modules/tariff"
)

type fakeRoutes struct {
	route maps.Route
	err   error
	calls int
}

func (f *fakeRoutes) DistanceAndDuration(ctx context.Context, origin, destination string) (maps.Route, error) {
	f.calls++
	return f.route, f.err
}

type fakeParser struct {
	query *ai.TripQuery
	err   error
	ctx   map[string]string
}

func (f *fakeParser) ParseTripQuery(ctx context.Context, userMessage string, currentContext map[string]string) (*ai.TripQuery, error) {
	f.ctx = currentContext
	return f.query, f.err
}

func strPtr(s string) *string { return &s }

func newPlanner(t *testing.T, routes RouteEstimator, parser ai.TripQueryParser, at time.Time) (*TripPlanner, *tariff.Service) {
	t.Helper()
	tariffs := tariff.NewService(tariff.NewMemoryStore(), nil)
	clock := pricing.NewClock(time.UTC).WithNow(func() time.Time { return at })
	prices := pricing.NewService(tariffs, clock)
	return NewTripPlanner(routes, prices, tariffs, parser, time.UTC, nil), tariffs
}

var (
	noon     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	midnight = time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
)

func TestTripPlanner_Estimate(t *testing.T) {
	routes := &fakeRoutes{route: maps.Route{DistanceKm: 2, DurationMinutes: 9}}
	p, _ := newPlanner(t, routes, nil, noon)

	est, err := p.Estimate(context.Background(), " Indiranagar ", "MG Road")
	require.NoError(t, err)
	assert.Equal(t, "Indiranagar", est.Origin)
	assert.Equal(t, 2.0, est.DistanceKm)
	assert.Equal(t, 9, est.DurationMinutes)
	assert.Equal(t, int64(38), est.Fare.Amount)
	assert.Equal(t, "₹38.00", est.FareDisplay)
	assert.False(t, est.Night)
	assert.Equal(t, uint64(1), est.TariffVersion)
}

func TestTripPlanner_EstimateNight(t *testing.T) {
	routes := &fakeRoutes{route: maps.Route{DistanceKm: 5, DurationMinutes: 20}}
	p, _ := newPlanner(t, routes, nil, midnight)

	est, err := p.Estimate(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.True(t, est.Night)
	assert.Equal(t, int64(124), est.Fare.Amount)
}

func TestTripPlanner_EstimateErrors(t *testing.T) {
	routes := &fakeRoutes{}
	p, _ := newPlanner(t, routes, nil, noon)

	_, err := p.Estimate(context.Background(), "", "B")
	assert.ErrorIs(t, err, ErrInvalidTrip)
	assert.Zero(t, routes.calls, "blank input must not reach the mapping service")

	routes.err = maps.ErrNoRouteFound
	_, err = p.Estimate(context.Background(), "A", "B")
	assert.ErrorIs(t, err, maps.ErrNoRouteFound)

	routes.err = maps.ErrUnavailable
	est, err := p.Estimate(context.Background(), "A", "B")
	assert.ErrorIs(t, err, maps.ErrUnavailable)
	assert.Zero(t, est.Fare.Amount)
}

func TestTripPlanner_WatchRepricesOnTariffChange(t *testing.T) {
	routes := &fakeRoutes{route: maps.Route{DistanceKm: 2, DurationMinutes: 9}}
	p, tariffs := newPlanner(t, routes, nil, noon)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := p.Watch(ctx, "A", "B")
	require.NoError(t, err)
	first := <-updates
	assert.Equal(t, int64(38), first.Fare.Amount)

	_, err = tariffs.Save(context.Background(), tariff.Tariff{BaseFare: 40, BaseDistanceKm: 1, RatePerKm: 20})
	require.NoError(t, err)

	select {
	case next := <-updates:
		assert.Equal(t, int64(60), next.Fare.Amount)
		assert.Equal(t, uint64(2), next.TariffVersion)
	case <-time.After(2 * time.Second):
		t.Fatal("no re-priced estimate after tariff change")
	}
	assert.Equal(t, 1, routes.calls, "re-pricing must not call the mapping service")

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestTripPlanner_WatchPropagatesRouteError(t *testing.T) {
	p, _ := newPlanner(t, &fakeRoutes{err: maps.ErrUnavailable}, nil, noon)
	_, err := p.Watch(context.Background(), "A", "B")
	assert.ErrorIs(t, err, maps.ErrUnavailable)
}

func TestTripPlanner_Ask(t *testing.T) {
	routes := &fakeRoutes{route: maps.Route{DistanceKm: 2}}
	parser := &fakeParser{query: &ai.TripQuery{
		Intent:      ai.IntentEstimate,
		Origin:      strPtr("Indiranagar, Bengaluru"),
		Destination: strPtr("MG Road, Bengaluru"),
	}}
	p, _ := newPlanner(t, routes, parser, noon)

	res, err := p.Ask(context.Background(), "auto from indiranagar to mg road?", "Bengaluru")
	require.NoError(t, err)
	require.NotNil(t, res.Estimate)
	assert.Equal(t, int64(38), res.Estimate.Fare.Amount)
	assert.Equal(t, "Bengaluru", parser.ctx["city"])
	assert.NotEmpty(t, parser.ctx["current_time"])
}

func TestTripPlanner_AskClarification(t *testing.T) {
	routes := &fakeRoutes{}
	parser := &fakeParser{query: &ai.TripQuery{Intent: ai.IntentClarification, Reply: "Where from?"}}
	p, _ := newPlanner(t, routes, parser, noon)

	res, err := p.Ask(context.Background(), "to the airport", "")
	require.NoError(t, err)
	assert.Nil(t, res.Estimate)
	assert.Equal(t, "Where from?", res.Query.Reply)
	assert.Zero(t, routes.calls)
}

func TestTripPlanner_AskErrors(t *testing.T) {
	p, _ := newPlanner(t, &fakeRoutes{}, nil, noon)
	_, err := p.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)

	boom := errors.New("quota")
	p, _ = newPlanner(t, &fakeRoutes{}, &fakeParser{err: boom}, noon)
	_, err = p.Ask(context.Background(), "hi", "")
	assert.ErrorIs(t, err, boom)

	_, err = p.Ask(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrInvalidTrip)
}
