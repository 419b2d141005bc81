// README: Trip session owns the widget working state and recomputes quotes on every mutation.
package session

import (
	"time"

	"github.com/rs/zerolog"

	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/types"
)

// ConfigSource supplies the current widget configuration.
type ConfigSource interface {
	Config() fareconfig.FareConfig
}

type Calculator interface {
	Quote(trip pricing.TripInput, v fareconfig.Vehicle, cfg fareconfig.FareConfig, lt leadtime.Result, optionsFee float64) pricing.FareQuote
}

type Options struct {
	Now    func() time.Time
	Logger zerolog.Logger
}

// Session is not safe for concurrent use; Registry serializes access.
type Session struct {
	id     types.ID
	cfg    ConfigSource
	calc   Calculator
	now    func() time.Time
	logger zerolog.Logger

	latest    ResolutionID
	trip      *pricing.TripInput
	lt        leadtime.Result
	quotes    []pricing.FareQuote
	selection *Selection
	options   map[string]bool
	updatedAt time.Time
}

func New(id types.ID, cfg ConfigSource, calc Calculator, opts Options) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:      id,
		cfg:     cfg,
		calc:    calc,
		now:     now,
		logger:  opts.Logger.With().Str("session_id", string(id)).Logger(),
		options: make(map[string]bool),
	}
	s.updatedAt = now()
	return s
}

func (s *Session) ID() types.ID {
	return s.id
}

// BeginResolution registers a new route resolution and returns its id. Any
// resolution started earlier becomes stale.
func (s *Session) BeginResolution() ResolutionID {
	s.latest++
	return s.latest
}

// Resolve installs a freshly resolved trip, replacing all previously resolved
// state. In display mode A the quote for radioVehicleID (or the first vehicle
// when empty) becomes the selection; in mode B every vehicle is quoted and the
// selection is cleared.
func (s *Session) Resolve(id ResolutionID, trip pricing.TripInput, radioVehicleID string) (State, error) {
	if id != s.latest {
		s.logger.Debug().Uint64("resolution", uint64(id)).Uint64("latest", uint64(s.latest)).Msg("dropping stale resolution")
		return State{}, ErrStaleResolution
	}
	cfg := s.cfg.Config()
	trip.Waypoints = append([]string(nil), trip.Waypoints...)
	lt := leadtime.Classify(trip.PickupDate, trip.PickupTime, cfg.LeadTime.ThresholdMinutes, s.now())
	fee := s.optionsFee(cfg)

	var quotes []pricing.FareQuote
	var selection *Selection
	switch cfg.DisplayMode {
	case fareconfig.DisplayModeB:
		quotes = make([]pricing.FareQuote, 0, len(cfg.Vehicles))
		for _, v := range cfg.Vehicles {
			quotes = append(quotes, s.calc.Quote(trip, v, cfg, lt, fee))
		}
	default:
		v, ok := radioVehicle(cfg, radioVehicleID)
		if !ok {
			s.clearResolved()
			s.touch()
			return State{}, ErrUnknownVehicle
		}
		q := s.calc.Quote(trip, v, cfg, lt, fee)
		quotes = []pricing.FareQuote{q}
		selection = selectionFrom(q)
	}

	s.trip = &trip
	s.lt = lt
	s.quotes = quotes
	s.selection = selection
	s.touch()

	s.logger.Info().
		Str("display_mode", string(cfg.DisplayMode)).
		Float64("distance_km", trip.DistanceKm).
		Int("stops", trip.StopsCount).
		Str("lead_time", string(lt.Mode)).
		Int("quotes", len(quotes)).
		Msg("trip resolved")
	return s.snapshot(cfg), nil
}

// SelectVehicle picks a vehicle from the compare list (display mode B) and
// prices it against the already resolved trip.
func (s *Session) SelectVehicle(vehicleID string) (State, error) {
	cfg := s.cfg.Config()
	if cfg.DisplayMode != fareconfig.DisplayModeB {
		return State{}, ErrWrongMode
	}
	if s.trip == nil {
		return State{}, ErrNotResolved
	}
	v, ok := cfg.Vehicle(vehicleID)
	if !ok {
		return State{}, ErrUnknownVehicle
	}
	s.requote(cfg, v)
	s.touch()
	return s.snapshot(cfg), nil
}

// ToggleOption flips an option and re-prices the active selection, if any.
// The route is never re-resolved and the stored lead-time result is reused.
func (s *Session) ToggleOption(optionID string) (State, error) {
	cfg := s.cfg.Config()
	if _, ok := cfg.Option(optionID); !ok {
		return State{}, ErrUnknownOption
	}
	if s.options[optionID] {
		delete(s.options, optionID)
	} else {
		s.options[optionID] = true
	}

	if s.trip != nil && s.selection != nil {
		if v, ok := cfg.Vehicle(s.selection.VehicleID); ok {
			s.requote(cfg, v)
		} else {
			s.selection = nil
		}
	}
	s.touch()
	return s.snapshot(cfg), nil
}

// Invalidate drops the resolved trip and any selection, keeping options. A
// resolution still in flight becomes stale.
func (s *Session) Invalidate() State {
	s.latest++
	s.clearResolved()
	s.touch()
	return s.snapshot(s.cfg.Config())
}

// Discard clears the resolved trip after resolution id failed upstream. It is a
// no-op returning ErrStaleResolution when a newer resolution has started.
func (s *Session) Discard(id ResolutionID) (State, error) {
	if id != s.latest {
		return State{}, ErrStaleResolution
	}
	s.clearResolved()
	s.touch()
	return s.snapshot(s.cfg.Config()), nil
}

func (s *Session) clearResolved() {
	s.trip = nil
	s.lt = leadtime.Result{}
	s.quotes = nil
	s.selection = nil
}

func (s *Session) Snapshot() State {
	return s.snapshot(s.cfg.Config())
}

func (s *Session) requote(cfg fareconfig.FareConfig, v fareconfig.Vehicle) {
	q := s.calc.Quote(*s.trip, v, cfg, s.lt, s.optionsFee(cfg))
	replaced := false
	for i := range s.quotes {
		if s.quotes[i].VehicleID == v.ID {
			s.quotes[i] = q
			replaced = true
		}
	}
	if !replaced && cfg.DisplayMode != fareconfig.DisplayModeB {
		s.quotes = []pricing.FareQuote{q}
	}
	s.selection = selectionFrom(q)
}

func (s *Session) optionsFee(cfg fareconfig.FareConfig) float64 {
	var fee float64
	for _, o := range cfg.Options {
		if s.options[o.ID] {
			fee += o.Fee
		}
	}
	return types.RoundCents(fee)
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}

func (s *Session) snapshot(cfg fareconfig.FareConfig) State {
	st := State{
		ID:              s.id,
		DisplayMode:     cfg.DisplayMode,
		PricingMode:     cfg.PricingBehavior,
		Currency:        cfg.Currency,
		QuoteMessage:    cfg.QuoteMessage,
		Resolved:        s.trip != nil,
		Quotes:          make([]pricing.FareQuote, len(s.quotes)),
		SelectedOptions: []SelectedOption{},
		OptionsFee:      s.optionsFee(cfg),
		UpdatedAt:       s.updatedAt,
	}
	for i, q := range s.quotes {
		q.Surcharges = q.Surcharges.Clone()
		st.Quotes[i] = q
	}
	for _, o := range cfg.Options {
		if s.options[o.ID] {
			st.SelectedOptions = append(st.SelectedOptions, SelectedOption{ID: o.ID, Label: o.Label, Fee: o.Fee})
		}
	}
	if s.trip != nil {
		trip := *s.trip
		trip.Waypoints = append([]string(nil), s.trip.Waypoints...)
		st.Trip = &trip
		lt := s.lt
		if lt.DeltaMinutes != nil {
			d := *lt.DeltaMinutes
			lt.DeltaMinutes = &d
		}
		st.LeadTime = &lt
		if cfg.PricingBehavior == fareconfig.PricingLeadTime {
			st.LeadTimeLabel = cfg.LeadTime.ReservationLabel
			if lt.Mode == leadtime.ModeImmediate {
				st.LeadTimeLabel = cfg.LeadTime.ImmediateLabel
			}
		}
	}
	if s.selection != nil {
		sel := *s.selection
		sel.Surcharges = sel.Surcharges.Clone()
		st.Selection = &sel
	}
	return st
}

func radioVehicle(cfg fareconfig.FareConfig, id string) (fareconfig.Vehicle, bool) {
	if id == "" {
		if len(cfg.Vehicles) == 0 {
			return fareconfig.Vehicle{}, false
		}
		return cfg.Vehicles[0], true
	}
	return cfg.Vehicle(id)
}

func selectionFrom(q pricing.FareQuote) *Selection {
	return &Selection{
		VehicleID:       q.VehicleID,
		VehicleLabel:    q.VehicleLabel,
		IsQuote:         q.IsQuote,
		Total:           q.Total,
		OptionsFee:      q.OptionsFee,
		ExtraStopsTotal: q.ExtraStopsTotal,
		Surcharges:      q.Surcharges,
	}
}
