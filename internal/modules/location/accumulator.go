package location

import (
	"fmt"

	"autometer/internal/observability/metrics"
	"autometer/internal/types"
)

// Bounds is the plausible range for a single inter-sample delta. A delta is accepted
// only when MinKm < delta < MaxKm: the floor drops GPS jitter, the ceiling drops jumps.
type Bounds struct {
	MinKm float64
	MaxKm float64
}

var (
	// NativeBounds suit ~1 Hz device fixes and are the default.
	NativeBounds = Bounds{MinKm: 0.01, MaxKm: 1.0}
	// DenseBounds suit high-rate browser-style sampling.
	DenseBounds = Bounds{MinKm: 0.001, MaxKm: 1.0}
)

func (b Bounds) Validate() error {
	if b.MinKm < 0 || b.MaxKm <= b.MinKm {
		return fmt.Errorf("invalid distance filter bounds: min=%v max=%v", b.MinKm, b.MaxKm)
	}
	return nil
}

type Stats struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Dropped  int `json:"dropped"`
}

// Accumulator turns absolute fixes into a cumulative straight-line distance.
// It is not safe for concurrent use; the owning session serialises calls.
type Accumulator struct {
	bounds  Bounds
	totalKm float64
	last    *types.Point
	stats   Stats
}

func NewAccumulator(bounds Bounds) *Accumulator {
	return &Accumulator{bounds: bounds}
}

// OnSample measures the distance from the previous fix and adds it to the total when it
// is within bounds. The previous fix is replaced even when the delta is rejected, so the
// next delta is measured from the freshest position and one bad fix cannot be
// compounded. The first fix only seeds the position. Malformed coordinates are dropped
// without touching any state.
func (a *Accumulator) OnSample(s Sample) (deltaKm float64, accepted bool) {
	if !validCoordinate(s.Lat, s.Lng) {
		a.stats.Dropped++
		metrics.ObserveSample(metrics.SampleDropped)
		return 0, false
	}

	p := types.Point{Lat: s.Lat, Lng: s.Lng}
	prev := a.last
	a.last = &p
	if prev == nil {
		return 0, false
	}

	deltaKm = HaversineKm(prev.Lat, prev.Lng, p.Lat, p.Lng)
	if deltaKm > a.bounds.MinKm && deltaKm < a.bounds.MaxKm {
		a.totalKm += deltaKm
		a.stats.Accepted++
		metrics.ObserveSample(metrics.SampleAccepted)
		return deltaKm, true
	}
	a.stats.Rejected++
	metrics.ObserveSample(metrics.SampleRejected)
	return deltaKm, false
}

func (a *Accumulator) TotalKm() float64 {
	return a.totalKm
}

func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Reset zeroes the total and forgets the last position.
func (a *Accumulator) Reset() {
	a.totalKm = 0
	a.last = nil
	a.stats = Stats{}
}
