// README: Booking submission types (contact form, payload sent to the relay, receipt).
package booking

import (
	"errors"
	"fmt"
	"time"

	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/modules/session"
	"fareflow/internal/types"
)

var (
	ErrInvalidContact     = errors.New("invalid contact details")
	ErrConsentRequired    = errors.New("terms consent required")
	ErrRouteNotCalculated = errors.New("route not calculated")
	ErrNoVehicleSelected  = errors.New("no vehicle selected")
	ErrUnsafeEndpoint     = errors.New("unsafe notification endpoint")
)

const DefaultEndpoint = "/api/booking/notify"

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Notes string `json:"notes,omitempty"`
}

type Consent struct {
	Terms     bool `json:"terms"`
	Marketing bool `json:"marketing"`
}

// Form is what the customer filled in at submission time.
type Form struct {
	Contact Contact `json:"contact"`
	Consent Consent `json:"consent"`
}

// TripSnapshot freezes the priced trip as it was when the customer submitted.
type TripSnapshot struct {
	Origin          string                     `json:"origin"`
	Destination     string                     `json:"destination"`
	Waypoints       []string                   `json:"waypoints,omitempty"`
	DistanceKm      float64                    `json:"distanceKm"`
	DurationMin     float64                    `json:"durationMin"`
	StopsCount      int                        `json:"stopsCount"`
	PickupDate      string                     `json:"pickupDate"`
	PickupTime      string                     `json:"pickupTime"`
	LeadTime        *leadtime.Result           `json:"leadTime,omitempty"`
	LeadTimeLabel   string                     `json:"leadTimeLabel,omitempty"`
	DisplayMode     fareconfig.DisplayMode     `json:"displayMode"`
	PricingMode     fareconfig.PricingBehavior `json:"pricingMode"`
	VehicleID       string                     `json:"vehicleId"`
	VehicleLabel    string                     `json:"vehicleLabel"`
	IsQuote         bool                       `json:"isQuote"`
	Total           float64                    `json:"total"`
	Currency        string                     `json:"currency"`
	OptionsFee      float64                    `json:"optionsFee"`
	ExtraStopsTotal float64                    `json:"extraStopsTotal"`
	Options         []session.SelectedOption   `json:"options"`
	Surcharges      pricing.Surcharges         `json:"surchargesApplied"`
}

// ConfigEcho carries the notification settings the relay acts on.
type ConfigEcho struct {
	NotifyEnabled bool   `json:"notifyEnabled"`
	NotifyEmail   string `json:"notifyEmail,omitempty"`
}

type BookingPayload struct {
	Reference   types.ID     `json:"reference"`
	Contact     Contact      `json:"contact"`
	Trip        TripSnapshot `json:"trip"`
	Consent     Consent      `json:"consent"`
	Config      ConfigEcho   `json:"config"`
	SubmittedAt time.Time    `json:"submittedAt"`
}

type Receipt struct {
	Reference   types.ID  `json:"reference"`
	SubmittedAt time.Time `json:"submittedAt"`
	IsQuote     bool      `json:"isQuote"`
	Total       float64   `json:"total"`
	Currency    string    `json:"currency"`
}

// ValidationError reports a rejected submission. Kind is one of the sentinel
// errors above; Fields maps form fields to localized messages.
type ValidationError struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// TransportError is a failed notification call. Detail is for logs only;
// callers show a generic message.
type TransportError struct {
	Status int
	Detail string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("booking notification failed (status %d): %s", e.Status, e.Detail)
	}
	return "booking notification failed: " + e.Detail
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
