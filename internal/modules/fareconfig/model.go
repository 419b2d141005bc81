// README: Canonical widget fare configuration (display mode, pricing behavior, catalog).
package fareconfig

type DisplayMode string

const (
	// DisplayModeA selects one vehicle first, then calculates its fare.
	DisplayModeA DisplayMode = "A"
	// DisplayModeB calculates every vehicle, then lets the user pick one.
	DisplayModeB DisplayMode = "B"
)

type PricingBehavior string

const (
	PricingNormal   PricingBehavior = "normal"
	PricingAllQuote PricingBehavior = "all_quote"
	PricingLeadTime PricingBehavior = "lead_time_pricing"
)

type Vehicle struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	BaseFare   float64 `json:"baseFare"`
	PricePerKm float64 `json:"pricePerKm"`
	QuoteOnly  bool    `json:"quoteOnly"`
	ImageURL   string  `json:"imageUrl,omitempty"`
}

type Option struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Fee   float64 `json:"fee"`
}

// LeadTimePolicy groups the lead_time_pricing knobs.
type LeadTimePolicy struct {
	ThresholdMinutes          float64 `json:"thresholdMinutes"`
	ImmediateLabel            string  `json:"immediateLabel"`
	ReservationLabel          string  `json:"reservationLabel"`
	ImmediateSurchargeEnabled bool    `json:"immediateSurchargeEnabled"`
	ImmediateBaseDeltaAmount  float64 `json:"immediateBaseDeltaAmount"`
	ImmediateBaseDeltaPercent float64 `json:"immediateBaseDeltaPercent"`
	// ImmediateTotalDeltaPercent is applied to the total after the base delta.
	ImmediateTotalDeltaPercent float64 `json:"immediateTotalDeltaPercent"`
}

type FareConfig struct {
	DisplayMode     DisplayMode     `json:"displayMode"`
	PricingBehavior PricingBehavior `json:"pricingBehavior"`
	StopFee         float64         `json:"stopFee"`
	QuoteMessage    string          `json:"quoteMessage"`
	Currency        string          `json:"currency"`
	Locale          string          `json:"locale"`
	NotifyEnabled   bool            `json:"notifyEnabled"`
	NotifyEmail     string          `json:"notifyEmail,omitempty"`
	LeadTime        LeadTimePolicy  `json:"leadTime"`
	Vehicles        []Vehicle       `json:"vehicles"`
	Options         []Option        `json:"options"`
}

// Vehicle looks up a catalog entry by id.
func (c FareConfig) Vehicle(id string) (Vehicle, bool) {
	for _, v := range c.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return Vehicle{}, false
}

func (c FareConfig) Option(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Clone returns a copy whose catalog slices do not alias c.
func (c FareConfig) Clone() FareConfig {
	out := c
	out.Vehicles = append([]Vehicle(nil), c.Vehicles...)
	out.Options = append([]Option(nil), c.Options...)
	return out
}

// RawConfig is the unprocessed configuration source: widget attributes plus an
// optional JSON blob. Either part may be empty.
type RawConfig struct {
	Attributes map[string]string `toml:"attributes"`
	JSON       string            `toml:"json"`
}
