// README: Position samples and the position-source capability consumed by meter sessions.
package location

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionDenied    = errors.New("position permission denied")
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrNotStarted          = errors.New("position source not started")
	ErrBackpressure        = errors.New("position buffer full")
)

// Sample is one fix reported by a device.
type Sample struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMs int64   `json:"timestamp_ms"`
}

type Accuracy string

const (
	AccuracyHigh     Accuracy = "high"
	AccuracyBalanced Accuracy = "balanced"
)

// Options are forwarded to the platform source when tracking starts.
type Options struct {
	Accuracy     Accuracy
	MinInterval  time.Duration
	MinDistanceM float64
}

// Stream carries fixes and non-fatal stream failures. Both channels are closed when
// the source stops.
type Stream struct {
	Samples <-chan Sample
	Errors  <-chan error
}

// Source is a platform position provider. Start may block while permission is checked
// and the first fix is obtained; it returns ErrPermissionDenied when access is refused.
// Stop releases the subscription and is safe to call at any time, any number of times.
type Source interface {
	Start(ctx context.Context, opts Options) (Stream, error)
	Stop() error
}

// gate applies the minimum interval and minimum distance options to a sample stream.
type gate struct {
	opts Options
	last Sample
	has  bool
}

func newGate(opts Options) *gate {
	return &gate{opts: opts}
}

func (g *gate) allow(s Sample) bool {
	if g.has {
		if g.opts.MinInterval > 0 && s.TimestampMs-g.last.TimestampMs < g.opts.MinInterval.Milliseconds() {
			return false
		}
		if g.opts.MinDistanceM > 0 && HaversineKm(g.last.Lat, g.last.Lng, s.Lat, s.Lng)*1000 < g.opts.MinDistanceM {
			return false
		}
	}
	g.last = s
	g.has = true
	return true
}
