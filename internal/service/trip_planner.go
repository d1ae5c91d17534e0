package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"autometer/internal/ai"
	"autometer/internal/maps"
	"autometer/internal/modules/pricing"
	"autometer/internal/modules/tariff"
	"autometer/internal/types"
)

var (
	ErrInvalidTrip          = errors.New("origin and destination are required")
	ErrAssistantUnavailable = errors.New("trip assistant is not configured")
)

// RouteEstimator resolves the driving distance and time between two addresses.
type RouteEstimator interface {
	DistanceAndDuration(ctx context.Context, origin, destination string) (maps.Route, error)
}

// TripQuoter prices a trip distance against the current tariff.
type TripQuoter interface {
	QuoteTrip(distanceKm float64) pricing.Quote
}

// TariffWatcher notifies about tariff changes.
type TariffWatcher interface {
	Subscribe(ctx context.Context) <-chan tariff.Snapshot
}

// TripEstimate is the fare for a route between two addresses.
type TripEstimate struct {
	Origin          string            `json:"origin"`
	Destination     string            `json:"destination"`
	DistanceKm      float64           `json:"distanceKm"`
	DurationMinutes int               `json:"durationMinutes"`
	Fare            types.Money       `json:"fare"`
	FareDisplay     string            `json:"fareDisplay"`
	Breakdown       pricing.Breakdown `json:"breakdown"`
	Night           bool              `json:"night"`
	TariffVersion   uint64            `json:"tariffVersion"`
}

// AskResult is the outcome of a free-text trip question. Estimate is nil when the
// assistant needs more information; Query.Reply then holds its follow-up question.
type AskResult struct {
	Query    *ai.TripQuery `json:"query"`
	Estimate *TripEstimate `json:"estimate,omitempty"`
}

// TripPlanner orchestrates the mapping service, the fare engine and the AI assistant.
type TripPlanner struct {
	routes  RouteEstimator
	quoter  TripQuoter
	tariffs TariffWatcher
	parser  ai.TripQueryParser
	loc     *time.Location
	log     *zap.Logger
}

// NewTripPlanner wires the planner. parser and tariffs may be nil; Ask and Watch then
// degrade to ErrAssistantUnavailable and a single estimate respectively.
func NewTripPlanner(routes RouteEstimator, quoter TripQuoter, tariffs TariffWatcher, parser ai.TripQueryParser, loc *time.Location, log *zap.Logger) *TripPlanner {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TripPlanner{
		routes:  routes,
		quoter:  quoter,
		tariffs: tariffs,
		parser:  parser,
		loc:     loc,
		log:     log,
	}
}

// Estimate fetches the route and prices it. Mapping errors are returned unchanged so the
// caller can tell maps.ErrNoRouteFound from maps.ErrUnavailable; no partial estimate is
// produced.
func (p *TripPlanner) Estimate(ctx context.Context, origin, destination string) (TripEstimate, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" || destination == "" {
		return TripEstimate{}, ErrInvalidTrip
	}

	route, err := p.routes.DistanceAndDuration(ctx, origin, destination)
	if err != nil {
		p.log.Warn("route lookup failed",
			zap.String("origin", origin),
			zap.String("destination", destination),
			zap.Error(err),
		)
		return TripEstimate{}, err
	}

	est := TripEstimate{
		Origin:          origin,
		Destination:     destination,
		DistanceKm:      route.DistanceKm,
		DurationMinutes: route.DurationMinutes,
	}
	return p.Reprice(est), nil
}

// Reprice recomputes the fare of an existing estimate against the current tariff and
// night flag without calling the mapping service again.
func (p *TripPlanner) Reprice(est TripEstimate) TripEstimate {
	q := p.quoter.QuoteTrip(est.DistanceKm)
	est.Fare = q.Fare
	est.FareDisplay = q.Fare.Display()
	est.Breakdown = q.Breakdown
	est.Night = q.Night
	est.TariffVersion = q.TariffVersion
	return est
}

// Watch returns the estimate and then a re-priced copy whenever the tariff changes, until
// ctx ends. The channel keeps only the newest estimate for slow readers.
func (p *TripPlanner) Watch(ctx context.Context, origin, destination string) (<-chan TripEstimate, error) {
	est, err := p.Estimate(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	out := make(chan TripEstimate, 1)
	out <- est
	if p.tariffs == nil {
		close(out)
		return out, nil
	}

	updates := p.tariffs.Subscribe(ctx)
	go func() {
		defer close(out)
		for snap := range updates {
			if snap.Version <= est.TariffVersion {
				continue
			}
			est = p.Reprice(est)
			select {
			case <-out:
			default:
			}
			out <- est
		}
	}()
	return out, nil
}

// Ask lets the assistant extract origin and destination from a message, then estimates.
func (p *TripPlanner) Ask(ctx context.Context, message, city string) (AskResult, error) {
	if p.parser == nil {
		return AskResult{}, ErrAssistantUnavailable
	}
	if strings.TrimSpace(message) == "" {
		return AskResult{}, ErrInvalidTrip
	}

	currentContext := map[string]string{
		"current_time": time.Now().In(p.loc).Format(time.RFC3339),
		"city":         city,
	}
	q, err := p.parser.ParseTripQuery(ctx, message, currentContext)
	if err != nil {
		p.log.Error("trip query parsing failed", zap.Error(err))
		return AskResult{}, fmt.Errorf("ai error: %w", err)
	}
	if !q.Complete() {
		return AskResult{Query: q}, nil
	}

	est, err := p.Estimate(ctx, *q.Origin, *q.Destination)
	if err != nil {
		return AskResult{Query: q}, err
	}
	return AskResult{Query: q, Estimate: &est}, nil
}
