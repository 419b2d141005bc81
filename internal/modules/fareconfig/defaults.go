package fareconfig

const (
	defaultStopFee          = 10.0
	defaultThresholdMinutes = 120.0
	defaultCurrency         = "EUR"
	defaultLocale           = "en"
	defaultQuoteMessage     = "Price on request, we will contact you with a quote."
	defaultImmediateLabel   = "Immediate"
	defaultReservationLabel = "Reservation"
)

// legacyVehicles is the catalog used when the configuration carries none.
func legacyVehicles() []Vehicle {
	return []Vehicle{
		{ID: "sedan", Label: "Sedan", BaseFare: 29.99, PricePerKm: 2.4},
		{ID: "van", Label: "Van", BaseFare: 49.99, PricePerKm: 3.1},
	}
}

func legacyOptions() []Option {
	return []Option{
		{ID: "child_seat", Label: "Child seat", Fee: 10},
		{ID: "extra_luggage", Label: "Extra luggage", Fee: 15},
	}
}

// Defaults returns the configuration produced from an empty source.
func Defaults() FareConfig {
	cfg, _ := normalize(RawConfig{})
	return cfg
}
