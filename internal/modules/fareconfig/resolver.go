// README: Resolver turns a raw attribute/JSON source into a memoized, defaulted FareConfig.
package fareconfig

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Attribute keys recognised in RawConfig.Attributes. Unknown keys are ignored.
const (
	AttrDisplayMode       = "display-mode"
	AttrPricingBehavior   = "pricing-behavior"
	AttrStopFee           = "stop-fee"
	AttrQuoteMessage      = "quote-message"
	AttrCurrency          = "currency"
	AttrLocale            = "locale"
	AttrNotifyEnabled     = "notify-enabled"
	AttrNotifyEmail       = "notify-email"
	AttrLeadTimeThreshold = "lead-time-threshold"
	AttrImmediateLabel    = "immediate-label"
	AttrReservationLabel  = "reservation-label"
	AttrSurchargeEnabled  = "immediate-surcharge-enabled"
	AttrBaseDeltaAmount   = "immediate-base-delta-amount"
	AttrBaseDeltaPercent  = "immediate-base-delta-percent"
	AttrTotalDeltaPercent = "immediate-total-delta-percent"
)

// Resolver owns the canonical configuration of one widget instance.
type Resolver struct {
	raw    RawConfig
	logger zerolog.Logger

	once sync.Once
	mu   sync.RWMutex
	cfg  FareConfig
}

func NewResolver(raw RawConfig, logger zerolog.Logger) *Resolver {
	return &Resolver{raw: raw, logger: logger}
}

// Config returns a copy of the canonical configuration, resolving it on first use.
func (r *Resolver) Config() FareConfig {
	r.once.Do(func() {
		cfg, malformed := normalize(r.raw)
		if malformed {
			r.logger.Warn().Msg("widget config json is malformed, using defaults")
		}
		r.logger.Debug().
			Str("display_mode", string(cfg.DisplayMode)).
			Str("pricing_behavior", string(cfg.PricingBehavior)).
			Int("vehicles", len(cfg.Vehicles)).
			Int("options", len(cfg.Options)).
			Msg("widget config resolved")
		r.mu.Lock()
		r.cfg = cfg
		r.mu.Unlock()
	})
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.Clone()
}

// Update applies fn to a copy of the configuration and stores the re-normalized result.
func (r *Resolver) Update(fn func(*FareConfig)) FareConfig {
	next := r.Config()
	fn(&next)
	next = canonicalize(next)
	r.mu.Lock()
	r.cfg = next
	r.mu.Unlock()
	return next.Clone()
}

type jsonLeadTime struct {
	ThresholdMinutes           *float64 `json:"thresholdMinutes"`
	ImmediateLabel             *string  `json:"immediateLabel"`
	ReservationLabel           *string  `json:"reservationLabel"`
	ImmediateSurchargeEnabled  *bool    `json:"immediateSurchargeEnabled"`
	ImmediateBaseDeltaAmount   *float64 `json:"immediateBaseDeltaAmount"`
	ImmediateBaseDeltaPercent  *float64 `json:"immediateBaseDeltaPercent"`
	ImmediateTotalDeltaPercent *float64 `json:"immediateTotalDeltaPercent"`
}

type jsonConfig struct {
	DisplayMode     *string       `json:"displayMode"`
	PricingBehavior *string       `json:"pricingBehavior"`
	StopFee         *float64      `json:"stopFee"`
	QuoteMessage    *string       `json:"quoteMessage"`
	Currency        *string       `json:"currency"`
	Locale          *string       `json:"locale"`
	NotifyEnabled   *bool         `json:"notifyEnabled"`
	NotifyEmail     *string       `json:"notifyEmail"`
	LeadTime        *jsonLeadTime `json:"leadTime"`
	Vehicles        []Vehicle     `json:"vehicles"`
	Options         []Option      `json:"options"`
}

// parseJSON returns nil for an empty or malformed blob.
func parseJSON(blob string) (*jsonConfig, bool) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, false
	}
	var jc jsonConfig
	if err := json.Unmarshal([]byte(blob), &jc); err != nil {
		return nil, true
	}
	return &jc, false
}

// normalize merges attributes and JSON (JSON wins) over the defaults.
func normalize(raw RawConfig) (FareConfig, bool) {
	jc, malformed := parseJSON(raw.JSON)
	if jc == nil {
		jc = &jsonConfig{}
	}
	attrs := raw.Attributes
	lt := jc.LeadTime
	if lt == nil {
		lt = &jsonLeadTime{}
	}

	cfg := FareConfig{
		DisplayMode:     parseDisplayMode(pickString(jc.DisplayMode, attrs, AttrDisplayMode, "")),
		PricingBehavior: parsePricingBehavior(pickString(jc.PricingBehavior, attrs, AttrPricingBehavior, "")),
		StopFee:         pickFloat(jc.StopFee, attrs, AttrStopFee, defaultStopFee),
		QuoteMessage:    pickString(jc.QuoteMessage, attrs, AttrQuoteMessage, defaultQuoteMessage),
		Currency:        pickString(jc.Currency, attrs, AttrCurrency, defaultCurrency),
		Locale:          strings.ToLower(pickString(jc.Locale, attrs, AttrLocale, defaultLocale)),
		NotifyEnabled:   pickBool(jc.NotifyEnabled, attrs, AttrNotifyEnabled, false),
		NotifyEmail:     pickString(jc.NotifyEmail, attrs, AttrNotifyEmail, ""),
		LeadTime: LeadTimePolicy{
			ThresholdMinutes:           pickFloat(lt.ThresholdMinutes, attrs, AttrLeadTimeThreshold, defaultThresholdMinutes),
			ImmediateLabel:             pickString(lt.ImmediateLabel, attrs, AttrImmediateLabel, defaultImmediateLabel),
			ReservationLabel:           pickString(lt.ReservationLabel, attrs, AttrReservationLabel, defaultReservationLabel),
			ImmediateSurchargeEnabled:  pickBool(lt.ImmediateSurchargeEnabled, attrs, AttrSurchargeEnabled, false),
			ImmediateBaseDeltaAmount:   pickFloat(lt.ImmediateBaseDeltaAmount, attrs, AttrBaseDeltaAmount, 0),
			ImmediateBaseDeltaPercent:  pickFloat(lt.ImmediateBaseDeltaPercent, attrs, AttrBaseDeltaPercent, 0),
			ImmediateTotalDeltaPercent: pickFloat(lt.ImmediateTotalDeltaPercent, attrs, AttrTotalDeltaPercent, 0),
		},
		Vehicles: jc.Vehicles,
		Options:  jc.Options,
	}
	if cfg.Options == nil {
		cfg.Options = legacyOptions()
	}
	return canonicalize(cfg), malformed
}

// canonicalize enforces catalog invariants and non-negative amounts.
func canonicalize(cfg FareConfig) FareConfig {
	cfg.DisplayMode = parseDisplayMode(string(cfg.DisplayMode))
	cfg.PricingBehavior = parsePricingBehavior(string(cfg.PricingBehavior))
	cfg.StopFee = nonNegative(cfg.StopFee)
	cfg.LeadTime.ThresholdMinutes = nonNegative(cfg.LeadTime.ThresholdMinutes)
	cfg.LeadTime.ImmediateBaseDeltaAmount = nonNegative(cfg.LeadTime.ImmediateBaseDeltaAmount)
	cfg.LeadTime.ImmediateBaseDeltaPercent = nonNegative(cfg.LeadTime.ImmediateBaseDeltaPercent)
	cfg.LeadTime.ImmediateTotalDeltaPercent = nonNegative(cfg.LeadTime.ImmediateTotalDeltaPercent)
	if cfg.Locale != "fr" {
		cfg.Locale = defaultLocale
	}

	seen := make(map[string]bool)
	vehicles := make([]Vehicle, 0, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		if strings.TrimSpace(v.Label) == "" {
			v.Label = v.ID
		}
		v.BaseFare = nonNegative(v.BaseFare)
		v.PricePerKm = nonNegative(v.PricePerKm)
		vehicles = append(vehicles, v)
	}
	if len(vehicles) == 0 {
		vehicles = legacyVehicles()
	}
	cfg.Vehicles = vehicles

	seen = make(map[string]bool)
	options := make([]Option, 0, len(cfg.Options))
	for _, o := range cfg.Options {
		o.ID = strings.TrimSpace(o.ID)
		if o.ID == "" || seen[o.ID] {
			continue
		}
		seen[o.ID] = true
		if strings.TrimSpace(o.Label) == "" {
			o.Label = o.ID
		}
		o.Fee = nonNegative(o.Fee)
		options = append(options, o)
	}
	cfg.Options = options
	return cfg
}

func parseDisplayMode(v string) DisplayMode {
	if strings.EqualFold(strings.TrimSpace(v), string(DisplayModeB)) {
		return DisplayModeB
	}
	return DisplayModeA
}

func parsePricingBehavior(v string) PricingBehavior {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case string(PricingAllQuote):
		return PricingAllQuote
	case string(PricingLeadTime), "lead_time":
		return PricingLeadTime
	default:
		return PricingNormal
	}
}

func pickString(j *string, attrs map[string]string, key, def string) string {
	if j != nil && strings.TrimSpace(*j) != "" {
		return strings.TrimSpace(*j)
	}
	if v := strings.TrimSpace(attrs[key]); v != "" {
		return v
	}
	return def
}

func pickFloat(j *float64, attrs map[string]string, key string, def float64) float64 {
	if j != nil && !math.IsNaN(*j) && !math.IsInf(*j, 0) {
		return *j
	}
	if v := strings.TrimSpace(attrs[key]); v != "" {
		if n, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			return n
		}
	}
	return def
}

func pickBool(j *bool, attrs map[string]string, key string, def bool) bool {
	if j != nil {
		return *j
	}
	switch strings.ToLower(strings.TrimSpace(attrs[key])) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
