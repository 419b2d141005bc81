// README: Trip session state (resolved itinerary, quotes, selection, options).
package session

import (
	"errors"
	"time"

	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/types"
)

var (
	ErrStaleResolution = errors.New("route resolution superseded by a newer request")
	ErrNotResolved     = errors.New("route not calculated")
	ErrWrongMode       = errors.New("operation not available in this display mode")
	ErrUnknownVehicle  = errors.New("unknown vehicle")
	ErrUnknownOption   = errors.New("unknown option")
	ErrNotFound        = errors.New("session not found")
)

// ResolutionID orders route resolutions. Only the latest one may be applied.
type ResolutionID uint64

// Selection is the active vehicle choice and its price. It is either present
// as a whole or absent.
type Selection struct {
	VehicleID       string             `json:"vehicleId"`
	VehicleLabel    string             `json:"vehicleLabel"`
	IsQuote         bool               `json:"isQuote"`
	Total           float64            `json:"total"`
	OptionsFee      float64            `json:"optionsFee"`
	ExtraStopsTotal float64            `json:"extraStopsTotal"`
	Surcharges      pricing.Surcharges `json:"surchargesApplied"`
}

type SelectedOption struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Fee   float64 `json:"fee"`
}

// State is a point-in-time copy of a session, safe to read and render.
type State struct {
	ID              types.ID                   `json:"id"`
	DisplayMode     fareconfig.DisplayMode     `json:"displayMode"`
	PricingMode     fareconfig.PricingBehavior `json:"pricingMode"`
	Currency        string                     `json:"currency"`
	QuoteMessage    string                     `json:"quoteMessage"`
	Resolved        bool                       `json:"resolved"`
	Trip            *pricing.TripInput         `json:"trip,omitempty"`
	LeadTime        *leadtime.Result           `json:"leadTime,omitempty"`
	LeadTimeLabel   string                     `json:"leadTimeLabel,omitempty"`
	Quotes          []pricing.FareQuote        `json:"quotes"`
	Selection       *Selection                 `json:"selection,omitempty"`
	SelectedOptions []SelectedOption           `json:"selectedOptions"`
	OptionsFee      float64                    `json:"optionsFee"`
	UpdatedAt       time.Time                  `json:"updatedAt"`
}

// SelectedOptionIDs lists the ids of the selected options in catalog order.
func (s State) SelectedOptionIDs() []string {
	ids := make([]string, len(s.SelectedOptions))
	for i, o := range s.SelectedOptions {
		ids[i] = o.ID
	}
	return ids
}
