// README: Fare engine. Pure fare math plus a Service that binds it to the live tariff and clock.
package pricing

import (
	"math"

	"autometer/internal/modules/tariff"
	"autometer/internal/observability/metrics"
	"autometer/internal/types"
)

// ComputeFare maps a cumulative distance and night flag to a whole-unit fare.
// Invalid distances count as 0 and an invalid tariff is replaced by tariff.Default.
func ComputeFare(distanceKm float64, isNight bool, t tariff.Tariff) int64 {
	return ComputeBreakdown(distanceKm, isNight, t).Total
}

// ComputeBreakdown returns the fare components. Total is the rounded sum of the
// unrounded components, so it always equals ComputeFare.
func ComputeBreakdown(distanceKm float64, isNight bool, t tariff.Tariff) Breakdown {
	d := clampDistance(distanceKm)
	t = t.OrDefault()

	b := Breakdown{BaseFare: t.BaseFare}
	if d > t.BaseDistanceKm {
		b.AdditionalDistanceKm = d - t.BaseDistanceKm
		b.AdditionalFare = t.RatePerKm * b.AdditionalDistanceKm
	}

	subtotal := b.BaseFare + b.AdditionalFare
	gross := subtotal
	if isNight {
		gross = subtotal * NightMultiplier
		b.NightSurcharge = gross - subtotal
	}
	b.Total = int64(math.Round(gross))
	return b
}

func clampDistance(km float64) float64 {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return 0
	}
	return km
}

// TariffSource yields the latest tariff without blocking.
type TariffSource interface {
	Current() tariff.Snapshot
}

// Service quotes fares against whatever tariff and night state are current at call time.
type Service struct {
	tariffs TariffSource
	clock   *Clock
}

func NewService(tariffs TariffSource, clock *Clock) *Service {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &Service{tariffs: tariffs, clock: clock}
}

// Quote re-reads the tariff and the night flag on every call.
func (s *Service) Quote(distanceKm float64) Quote {
	return s.quote(distanceKm, metrics.QuoteLive)
}

// QuoteTrip is Quote for one-shot trip-planner estimates.
func (s *Service) QuoteTrip(distanceKm float64) Quote {
	return s.quote(distanceKm, metrics.QuoteTrip)
}

func (s *Service) quote(distanceKm float64, mode string) Quote {
	snap := tariff.Snapshot{Tariff: tariff.Default}
	if s.tariffs != nil {
		snap = s.tariffs.Current()
	}
	night := s.clock.IsNight()
	b := ComputeBreakdown(distanceKm, night, snap.Tariff)
	metrics.ObserveQuote(mode, night)

	return Quote{
		DistanceKm:    clampDistance(distanceKm),
		Fare:          types.NewMoney(b.Total),
		Breakdown:     b,
		Night:         night,
		Tariff:        snap.Tariff.OrDefault(),
		TariffVersion: snap.Version,
	}
}
