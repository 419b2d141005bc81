package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/leadtime"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/modules/session"
	"fareflow/internal/types"
)

type staticConfig struct {
	cfg fareconfig.FareConfig
}

func (s staticConfig) Config() fareconfig.FareConfig { return s.cfg }

type recordingSender struct {
	calls    int
	endpoint string
	payload  BookingPayload
	err      error
}

func (r *recordingSender) Send(_ context.Context, endpoint string, p BookingPayload) error {
	r.calls++
	r.endpoint = endpoint
	r.payload = p
	return r.err
}

var submittedAt = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

func validForm() Form {
	return Form{
		Contact: Contact{Name: " Ada Lovelace ", Email: "ada@example.com", Phone: "+33 6 12 34 56 78"},
		Consent: Consent{Terms: true},
	}
}

func resolvedState(mode fareconfig.DisplayMode) session.State {
	delta := 240.0
	st := session.State{
		ID:          "sess-1",
		DisplayMode: mode,
		PricingMode: fareconfig.PricingNormal,
		Currency:    "EUR",
		Resolved:    true,
		Trip: &pricing.TripInput{
			Origin: "Paris", Destination: "Orly", Waypoints: []string{"Bercy"},
			DistanceKm: 25, DurationMin: 35, StopsCount: 1,
			PickupDate: "2026-05-02", PickupTime: "14:00",
		},
		LeadTime:        &leadtime.Result{Mode: leadtime.ModeReservation, ThresholdMinutes: 120, DeltaMinutes: &delta},
		SelectedOptions: []session.SelectedOption{{ID: "child_seat", Label: "Child seat", Fee: 10}},
		OptionsFee:      10,
	}
	st.Selection = &session.Selection{
		VehicleID: "sedan", VehicleLabel: "Sedan", Total: 80, OptionsFee: 10, ExtraStopsTotal: 10,
	}
	return st
}

func newTestGuard(sender Sender, locale string) *Guard {
	cfg := fareconfig.Defaults()
	cfg.Locale = locale
	cfg.NotifyEnabled = true
	cfg.NotifyEmail = "dispatch@example.com"
	return NewGuard(staticConfig{cfg: cfg}, sender, GuardConfig{
		Origin: "https://shop.example.com",
		Now:    func() time.Time { return submittedAt },
		Logger: zerolog.Nop(),
	})
}

func TestGuard_SubmitSendsPayload(t *testing.T) {
	sender := &recordingSender{}
	g := newTestGuard(sender, "en")

	receipt, err := g.Submit(context.Background(), validForm(), resolvedState(fareconfig.DisplayModeA))
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "https://shop.example.com/api/booking/notify", sender.endpoint)

	p := sender.payload
	assert.Equal(t, receipt.Reference, p.Reference)
	assert.NotEmpty(t, p.Reference)
	assert.Equal(t, "Ada Lovelace", p.Contact.Name)
	assert.Equal(t, "sedan", p.Trip.VehicleID)
	assert.InDelta(t, 80.0, p.Trip.Total, 1e-9)
	assert.Equal(t, []string{"Bercy"}, p.Trip.Waypoints)
	assert.Equal(t, "child_seat", p.Trip.Options[0].ID)
	assert.True(t, p.Consent.Terms)
	assert.Equal(t, ConfigEcho{NotifyEnabled: true, NotifyEmail: "dispatch@example.com"}, p.Config)
	assert.Equal(t, submittedAt, p.SubmittedAt)
	assert.InDelta(t, 80.0, receipt.Total, 1e-9)
	assert.Equal(t, "EUR", receipt.Currency)
}

func TestGuard_ValidationOrder(t *testing.T) {
	unresolved := session.State{DisplayMode: fareconfig.DisplayModeB}
	noSelection := resolvedState(fareconfig.DisplayModeB)
	noSelection.Selection = nil

	tests := []struct {
		name   string
		form   func(f *Form)
		state  session.State
		want   error
		fields []string
	}{
		{
			name:   "all contact fields empty",
			form:   func(f *Form) { f.Contact = Contact{}; f.Consent.Terms = false },
			state:  unresolved,
			want:   ErrInvalidContact,
			fields: []string{"name", "email", "phone"},
		},
		{
			name:   "bad email",
			form:   func(f *Form) { f.Contact.Email = "ada@example" },
			state:  resolvedState(fareconfig.DisplayModeA),
			want:   ErrInvalidContact,
			fields: []string{"email"},
		},
		{
			name:   "email with spaces",
			form:   func(f *Form) { f.Contact.Email = "ada lovelace@example.com" },
			state:  resolvedState(fareconfig.DisplayModeA),
			want:   ErrInvalidContact,
			fields: []string{"email"},
		},
		{
			name:   "short phone",
			form:   func(f *Form) { f.Contact.Phone = " 12345 " },
			state:  resolvedState(fareconfig.DisplayModeA),
			want:   ErrInvalidContact,
			fields: []string{"phone"},
		},
		{
			name:   "consent checked after contact",
			form:   func(f *Form) { f.Consent.Terms = false },
			state:  unresolved,
			want:   ErrConsentRequired,
			fields: []string{"terms"},
		},
		{
			name:  "route not calculated",
			form:  func(*Form) {},
			state: unresolved,
			want:  ErrRouteNotCalculated,
		},
		{
			name:   "mode B without selection",
			form:   func(*Form) {},
			state:  noSelection,
			want:   ErrNoVehicleSelected,
			fields: []string{"vehicle"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			g := newTestGuard(sender, "en")
			form := validForm()
			tt.form(&form)

			_, err := g.Submit(context.Background(), form, tt.state)
			require.ErrorIs(t, err, tt.want)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.NotEmpty(t, ve.Message)
			for _, f := range tt.fields {
				assert.Contains(t, ve.Fields, f)
			}
			assert.Len(t, ve.Fields, len(tt.fields))
			assert.Zero(t, sender.calls, "validation failures must not send")
		})
	}
}

func TestGuard_LocalizedMessages(t *testing.T) {
	g := newTestGuard(&recordingSender{}, "fr")
	form := validForm()
	form.Contact.Name = ""

	_, err := g.Submit(context.Background(), form, resolvedState(fareconfig.DisplayModeA))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Veuillez saisir votre nom.", ve.Fields["name"])
}

func TestGuard_RefusesUnsafeEndpoint(t *testing.T) {
	sender := &recordingSender{}
	cfg := fareconfig.Defaults()
	g := NewGuard(staticConfig{cfg: cfg}, sender, GuardConfig{
		Endpoint: "https://discord.com/api/webhooks/123/secret",
		Origin:   "https://shop.example.com",
		Logger:   zerolog.Nop(),
	})

	_, err := g.Submit(context.Background(), validForm(), resolvedState(fareconfig.DisplayModeA))
	assert.ErrorIs(t, err, ErrUnsafeEndpoint)
	assert.Zero(t, sender.calls)
}

func TestGuard_TransportFailureIsReturned(t *testing.T) {
	sender := &recordingSender{err: &TransportError{Status: 502, Detail: "bad gateway"}}
	g := newTestGuard(sender, "en")

	receipt, err := g.Submit(context.Background(), validForm(), resolvedState(fareconfig.DisplayModeA))
	assert.Nil(t, receipt)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 502, te.Status)
	assert.Equal(t, 1, sender.calls)
}

func TestBuildPayload_QuoteSelection(t *testing.T) {
	st := resolvedState(fareconfig.DisplayModeB)
	st.Selection = &session.Selection{VehicleID: "bus", VehicleLabel: "Bus", IsQuote: true}

	p := BuildPayload(validForm(), st, fareconfig.Defaults(), "ref-1", submittedAt)
	assert.True(t, p.Trip.IsQuote)
	assert.Zero(t, p.Trip.Total)
	assert.Equal(t, fareconfig.DisplayModeB, p.Trip.DisplayMode)
	require.NotNil(t, p.Trip.LeadTime)
	assert.Equal(t, leadtime.ModeReservation, p.Trip.LeadTime.Mode)
}

type memoryJournal struct {
	sessions map[string]string
	statuses map[string]Status
	details  map[string]string
}

func newMemoryJournal() *memoryJournal {
	return &memoryJournal{sessions: map[string]string{}, statuses: map[string]Status{}, details: map[string]string{}}
}

func (m *memoryJournal) Create(_ context.Context, sessionID types.ID, p BookingPayload) error {
	m.sessions[string(p.Reference)] = string(sessionID)
	m.statuses[string(p.Reference)] = StatusPending
	return nil
}

func (m *memoryJournal) UpdateStatus(_ context.Context, ref types.ID, to Status, detail string) (bool, error) {
	if m.statuses[string(ref)] != StatusPending {
		return false, nil
	}
	m.statuses[string(ref)] = to
	m.details[string(ref)] = detail
	return true, nil
}

func TestGuard_JournalsOutcome(t *testing.T) {
	tests := []struct {
		name       string
		sendErr    error
		wantStatus Status
		wantDetail string
	}{
		{name: "sent", wantStatus: StatusSent},
		{name: "failed", sendErr: &TransportError{Status: 502, Detail: "bad gateway"}, wantStatus: StatusFailed, wantDetail: "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journal := newMemoryJournal()
			sender := &recordingSender{err: tt.sendErr}
			g := NewGuard(staticConfig{cfg: fareconfig.Defaults()}, sender, GuardConfig{
				Origin:  "https://shop.example.com",
				Journal: journal,
				Logger:  zerolog.Nop(),
			})

			_, _ = g.Submit(context.Background(), validForm(), resolvedState(fareconfig.DisplayModeA))

			ref := string(sender.payload.Reference)
			require.NotEmpty(t, ref)
			assert.Equal(t, "sess-1", journal.sessions[ref])
			assert.Equal(t, tt.wantStatus, journal.statuses[ref])
			assert.Equal(t, tt.wantDetail, journal.details[ref])
		})
	}
}

func TestGuard_ValidationFailureIsNotJournaled(t *testing.T) {
	journal := newMemoryJournal()
	g := NewGuard(staticConfig{cfg: fareconfig.Defaults()}, &recordingSender{}, GuardConfig{
		Origin:  "https://shop.example.com",
		Journal: journal,
		Logger:  zerolog.Nop(),
	})
	form := validForm()
	form.Consent.Terms = false

	_, err := g.Submit(context.Background(), form, resolvedState(fareconfig.DisplayModeA))
	require.ErrorIs(t, err, ErrConsentRequired)
	assert.Empty(t, journal.statuses)
}
