// README: Fare computation inputs and per-vehicle quote results.
package pricing

import (
	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
)

// TripInput is a resolved itinerary. It is never modified after resolution.
type TripInput struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints,omitempty"`
	DistanceKm  float64  `json:"distanceKm"`
	DurationMin float64  `json:"durationMin"`
	StopsCount  int      `json:"stopsCount"`
	PickupDate  string   `json:"pickupDate"`
	PickupTime  string   `json:"pickupTime"`
}

// LeadTimeSurcharge describes the lead-time step of a quote. Applied is false
// for display-only descriptors (reservation, or surcharge disabled).
type LeadTimeSurcharge struct {
	Mode              leadtime.Mode `json:"mode"`
	ThresholdMinutes  float64       `json:"thresholdMinutes"`
	DeltaMinutes      *float64      `json:"deltaMinutes"`
	Applied           bool          `json:"applied"`
	BaseDeltaAmount   float64       `json:"baseDeltaAmount,omitempty"`
	BaseDeltaPercent  float64       `json:"baseDeltaPercent,omitempty"`
	TotalDeltaPercent float64       `json:"totalDeltaPercent,omitempty"`
}

type Surcharges struct {
	Night          bool               `json:"night"`
	VolumeDiscount bool               `json:"volumeDiscount"`
	FareFloor      bool               `json:"fareFloor"`
	LeadTime       *LeadTimeSurcharge `json:"leadTime,omitempty"`
}

// Clone returns a copy that shares no pointers with s.
func (s Surcharges) Clone() Surcharges {
	if s.LeadTime != nil {
		lt := *s.LeadTime
		if lt.DeltaMinutes != nil {
			d := *lt.DeltaMinutes
			lt.DeltaMinutes = &d
		}
		s.LeadTime = &lt
	}
	return s
}

type FareQuote struct {
	VehicleID       string                     `json:"vehicleId"`
	VehicleLabel    string                     `json:"vehicleLabel"`
	IsQuote         bool                       `json:"isQuote"`
	Total           float64                    `json:"total"`
	OptionsFee      float64                    `json:"optionsFee"`
	ExtraStopsTotal float64                    `json:"extraStopsTotal"`
	PricingMode     fareconfig.PricingBehavior `json:"pricingMode"`
	Surcharges      Surcharges                 `json:"surchargesApplied"`
}

const (
	nightStartHour     = 22
	nightEndHour       = 5
	nightMultiplier    = 1.10
	discountThreshold  = 600.0
	discountMultiplier = 0.90
)
