// README: Tariff configuration (base fare, base distance, per-km rate) and validation.
package tariff

import (
	"errors"
	"fmt"
	"math"
)

// SettingsKey is the key the tariff is persisted under in every store.
const SettingsKey = "fareSettings"

var ErrInvalidConfiguration = errors.New("invalid tariff configuration")

type Tariff struct {
	BaseFare       float64 `json:"baseFare"`
	BaseDistanceKm float64 `json:"baseDistanceKm"`
	RatePerKm      float64 `json:"ratePerKm"`
}

// Default is used whenever no valid tariff has been saved.
var Default = Tariff{
	BaseFare:       30,
	BaseDistanceKm: 1.5,
	RatePerKm:      15,
}

// Validate requires every field to be finite and strictly positive.
func (t Tariff) Validate() error {
	switch {
	case !positive(t.BaseFare):
		return fmt.Errorf("%w: baseFare must be > 0, got %v", ErrInvalidConfiguration, t.BaseFare)
	case !positive(t.BaseDistanceKm):
		return fmt.Errorf("%w: baseDistanceKm must be > 0, got %v", ErrInvalidConfiguration, t.BaseDistanceKm)
	case !positive(t.RatePerKm):
		return fmt.Errorf("%w: ratePerKm must be > 0, got %v", ErrInvalidConfiguration, t.RatePerKm)
	}
	return nil
}

// OrDefault returns t when it is valid and Default otherwise.
func (t Tariff) OrDefault() Tariff {
	if t.Validate() != nil {
		return Default
	}
	return t
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Snapshot is a tariff stamped with the cell version it was published under.
type Snapshot struct {
	Tariff  Tariff `json:"tariff"`
	Version uint64 `json:"version"`
}
