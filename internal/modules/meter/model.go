// README: Meter session state, snapshot and errors.
package meter

import (
	"errors"
	"fmt"
	"time"

	"autometer/internal/modules/location"
	"autometer/internal/modules/pricing"
	"autometer/internal/types"
)

type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
)

// DistanceMode is where the running distance comes from.
type DistanceMode string

const (
	DistanceGPS    DistanceMode = "gps"
	DistanceManual DistanceMode = "manual"
)

var (
	ErrInvalidState     = errors.New("invalid meter state")
	ErrInvalidDistance  = errors.New("invalid distance")
	ErrNotFound         = errors.New("meter not found")
	ErrNoPositionSource = errors.New("meter has no position source")
	ErrPushUnsupported  = errors.New("meter source does not accept pushed positions")
	ErrPermissionDenied = fmt.Errorf("start tracking: %w", location.ErrPermissionDenied)
)

// Quoter prices a distance against the current tariff and night flag.
type Quoter interface {
	Quote(distanceKm float64) pricing.Quote
}

type Config struct {
	// TickInterval is the wall time between ticks. Every tick counts one elapsed second,
	// so production runs use 1s.
	TickInterval  time.Duration
	Bounds        location.Bounds
	SourceOptions location.Options
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second,
		Bounds:       location.NativeBounds,
		SourceOptions: location.Options{
			Accuracy:    location.AccuracyHigh,
			MinInterval: time.Second,
		},
	}
}

// Snapshot is the read model shown on the meter display.
type Snapshot struct {
	ID             types.ID          `json:"id"`
	State          State             `json:"state"`
	Mode           DistanceMode      `json:"mode"`
	DistanceKm     float64           `json:"distanceKm"`
	ElapsedSeconds int64             `json:"elapsedSeconds"`
	Fare           types.Money       `json:"fare"`
	FareDisplay    string            `json:"fareDisplay"`
	Breakdown      pricing.Breakdown `json:"breakdown"`
	Night          bool              `json:"night"`
	TariffVersion  uint64            `json:"tariffVersion"`
	Warning        string            `json:"warning,omitempty"`
	Samples        location.Stats    `json:"samples"`
	StartedAt      *time.Time        `json:"startedAt,omitempty"`
	StoppedAt      *time.Time        `json:"stoppedAt,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}
