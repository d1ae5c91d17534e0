// README: Fare breakdown and quote definitions.
package pricing

import (
	"autometer/internal/modules/tariff"
	"autometer/internal/types"
)

// NightMultiplier is the fixed 50% night surcharge applied to the whole subtotal.
const NightMultiplier = 1.5

// Breakdown keeps the unrounded components; only Total is rounded.
type Breakdown struct {
	BaseFare             float64 `json:"baseFareAmount"`
	AdditionalDistanceKm float64 `json:"additionalDistanceKm"`
	AdditionalFare       float64 `json:"additionalFareAmount"`
	NightSurcharge       float64 `json:"nightSurchargeAmount"`
	Total                int64   `json:"total"`
}

// Quote is a fare computed against a specific tariff version and night flag.
type Quote struct {
	DistanceKm    float64       `json:"distanceKm"`
	Fare          types.Money   `json:"fare"`
	Breakdown     Breakdown     `json:"breakdown"`
	Night         bool          `json:"night"`
	Tariff        tariff.Tariff `json:"tariff"`
	TariffVersion uint64        `json:"tariffVersion"`
}
