// README: Submission guard validates a booking and forwards it to the relay endpoint.
package booking

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/session"
	"fareflow/internal/types"
)

const minPhoneLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type ConfigSource interface {
	Config() fareconfig.FareConfig
}

// Sender delivers a payload to an absolute endpoint URL.
type Sender interface {
	Send(ctx context.Context, endpoint string, p BookingPayload) error
}

// Journal persists submissions. Journal failures are logged and never block
// delivery.
type Journal interface {
	Create(ctx context.Context, sessionID types.ID, p BookingPayload) error
	UpdateStatus(ctx context.Context, ref types.ID, to Status, detail string) (bool, error)
}

type GuardConfig struct {
	Endpoint   string
	Origin     string
	RelayHosts []string
	Journal    Journal
	Now        func() time.Time
	Logger     zerolog.Logger
}

type Guard struct {
	cfg    ConfigSource
	sender Sender
	opts   GuardConfig
	now    func() time.Time
	logger zerolog.Logger
}

func NewGuard(cfg ConfigSource, sender Sender, opts GuardConfig) *Guard {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Guard{cfg: cfg, sender: sender, opts: opts, now: now, logger: opts.Logger}
}

// Submit validates form and st, then sends one notification. Validation
// failures return a *ValidationError and never reach the network.
func (g *Guard) Submit(ctx context.Context, form Form, st session.State) (*Receipt, error) {
	cfg := g.cfg.Config()
	form.Contact = trimContact(form.Contact)

	if err := Validate(form, st, cfg.Locale); err != nil {
		return nil, err
	}

	endpoint, err := ResolveEndpoint(g.opts.Endpoint, g.opts.Origin, g.opts.RelayHosts)
	if err != nil {
		g.logger.Error().Err(err).Str("endpoint", g.opts.Endpoint).Msg("refusing to send booking")
		return nil, err
	}

	payload := BuildPayload(form, st, cfg, types.NewID(), g.now())
	g.journalCreate(ctx, st.ID, payload)
	if err := g.sender.Send(ctx, endpoint, payload); err != nil {
		detail := err.Error()
		var te *TransportError
		if errors.As(err, &te) {
			detail = te.Detail
			g.logger.Warn().
				Str("reference", string(payload.Reference)).
				Int("status", te.Status).
				Str("detail", te.Detail).
				Msg("booking notification failed")
		} else {
			g.logger.Warn().Err(err).Str("reference", string(payload.Reference)).Msg("booking notification failed")
		}
		g.journalUpdate(ctx, payload.Reference, StatusFailed, detail)
		return nil, err
	}
	g.journalUpdate(ctx, payload.Reference, StatusSent, "")

	g.logger.Info().
		Str("reference", string(payload.Reference)).
		Str("session_id", string(st.ID)).
		Str("vehicle", payload.Trip.VehicleID).
		Bool("quote", payload.Trip.IsQuote).
		Msg("booking submitted")

	return &Receipt{
		Reference:   payload.Reference,
		SubmittedAt: payload.SubmittedAt,
		IsQuote:     payload.Trip.IsQuote,
		Total:       payload.Trip.Total,
		Currency:    payload.Trip.Currency,
	}, nil
}

func (g *Guard) journalCreate(ctx context.Context, sessionID types.ID, p BookingPayload) {
	if g.opts.Journal == nil {
		return
	}
	if err := g.opts.Journal.Create(ctx, sessionID, p); err != nil {
		g.logger.Error().Err(err).Str("reference", string(p.Reference)).Msg("journal booking")
	}
}

func (g *Guard) journalUpdate(ctx context.Context, ref types.ID, to Status, detail string) {
	if g.opts.Journal == nil {
		return
	}
	ok, err := g.opts.Journal.UpdateStatus(context.WithoutCancel(ctx), ref, to, detail)
	switch {
	case err != nil:
		g.logger.Error().Err(err).Str("reference", string(ref)).Msg("update booking status")
	case !ok:
		g.logger.Warn().Str("reference", string(ref)).Str("status", string(to)).Msg("booking was not pending")
	}
}

// Validate runs the submission checks in order: contact details, terms
// consent, resolved route, vehicle selection.
func Validate(form Form, st session.State, locale string) error {
	c := trimContact(form.Contact)
	fields := make(map[string]string)
	if c.Name == "" {
		fields["name"] = message(locale, msgNameRequired)
	}
	switch {
	case c.Email == "":
		fields["email"] = message(locale, msgEmailRequired)
	case !emailPattern.MatchString(c.Email):
		fields["email"] = message(locale, msgEmailInvalid)
	}
	switch {
	case c.Phone == "":
		fields["phone"] = message(locale, msgPhoneRequired)
	case utf8.RuneCountInString(c.Phone) < minPhoneLength:
		fields["phone"] = message(locale, msgPhoneInvalid)
	}
	if len(fields) > 0 {
		return &ValidationError{Kind: ErrInvalidContact, Message: message(locale, msgContactInvalid), Fields: fields}
	}

	if !form.Consent.Terms {
		msg := message(locale, msgConsentRequired)
		return &ValidationError{Kind: ErrConsentRequired, Message: msg, Fields: map[string]string{"terms": msg}}
	}
	if !st.Resolved {
		return &ValidationError{Kind: ErrRouteNotCalculated, Message: message(locale, msgRouteRequired)}
	}
	if st.Selection == nil {
		msg := message(locale, msgVehicleRequired)
		return &ValidationError{Kind: ErrNoVehicleSelected, Message: msg, Fields: map[string]string{"vehicle": msg}}
	}
	return nil
}

// BuildPayload snapshots st. It expects st to have passed Validate.
func BuildPayload(form Form, st session.State, cfg fareconfig.FareConfig, ref types.ID, at time.Time) BookingPayload {
	trip := TripSnapshot{
		DisplayMode:   st.DisplayMode,
		PricingMode:   st.PricingMode,
		Currency:      st.Currency,
		LeadTimeLabel: st.LeadTimeLabel,
		Options:       append([]session.SelectedOption{}, st.SelectedOptions...),
	}
	if st.Trip != nil {
		trip.Origin = st.Trip.Origin
		trip.Destination = st.Trip.Destination
		trip.Waypoints = append([]string(nil), st.Trip.Waypoints...)
		trip.DistanceKm = st.Trip.DistanceKm
		trip.DurationMin = st.Trip.DurationMin
		trip.StopsCount = st.Trip.StopsCount
		trip.PickupDate = st.Trip.PickupDate
		trip.PickupTime = st.Trip.PickupTime
	}
	if st.LeadTime != nil {
		lt := *st.LeadTime
		trip.LeadTime = &lt
	}
	if sel := st.Selection; sel != nil {
		trip.VehicleID = sel.VehicleID
		trip.VehicleLabel = sel.VehicleLabel
		trip.IsQuote = sel.IsQuote
		trip.Total = sel.Total
		trip.OptionsFee = sel.OptionsFee
		trip.ExtraStopsTotal = sel.ExtraStopsTotal
		trip.Surcharges = sel.Surcharges
	}
	return BookingPayload{
		Reference: ref,
		Contact:   trimContact(form.Contact),
		Trip:      trip,
		Consent:   form.Consent,
		Config: ConfigEcho{
			NotifyEnabled: cfg.NotifyEnabled,
			NotifyEmail:   cfg.NotifyEmail,
		},
		SubmittedAt: at.UTC(),
	}
}

func trimContact(c Contact) Contact {
	return Contact{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
		Notes: strings.TrimSpace(c.Notes),
	}
}
