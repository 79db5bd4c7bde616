package geo

import (
	"math"

	"github.com/PremHer/appdelivery-sub000/models"
)

// ETA estimate bounds and buffer, in minutes. The estimate is a heuristic
// display value, not a scheduling guarantee.
const (
	etaMinMinutes    = 5
	etaMaxMinutes    = 60
	etaBufferMinutes = 5
	minutesPerKm     = 4
)

// prepMinutes is the remaining kitchen time assumed for a status.
func prepMinutes(status models.OrderStatus) int {
	switch status {
	case models.OrderStatusConfirmed:
		return 15
	case models.OrderStatusPreparing:
		return 10
	default:
		return 0
	}
}

// EstimateMinutes derives the delivery ETA from restaurant and destination
// coordinates and the order's current status:
//
//	prep + ceil(km × 4) + buffer, clamped to [5, 60]
//
// Once the order is picked up, prep is zero and the estimate is travel time
// plus the buffer only.
func EstimateMinutes(status models.OrderStatus, restLat, restLng, destLat, destLng float64) int {
	km := HaversineKm(restLat, restLng, destLat, destLng)
	est := prepMinutes(status) + int(math.Ceil(km*minutesPerKm)) + etaBufferMinutes
	if est < etaMinMinutes {
		est = etaMinMinutes
	}
	if est > etaMaxMinutes {
		est = etaMaxMinutes
	}
	return est
}
