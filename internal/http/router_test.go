package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fareflow/internal/maps"
	"fareflow/internal/modules/booking"
	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/modules/session"
)

type stubRoutes struct {
	mu    sync.Mutex
	route maps.Route
	err   error
	calls int
}

func (s *stubRoutes) Resolve(_ context.Context, _ maps.RouteRequest) (maps.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.route, s.err
}

type stubSubmitter struct {
	err   error
	form  booking.Form
	state session.State
}

func (s *stubSubmitter) Submit(_ context.Context, form booking.Form, st session.State) (*booking.Receipt, error) {
	s.form = form
	s.state = st
	if s.err != nil {
		return nil, s.err
	}
	return &booking.Receipt{Reference: "ref-1", Total: st.Selection.Total, Currency: st.Currency}, nil
}

type testAPI struct {
	handler http.Handler
	routes  *stubRoutes
	submit  *stubSubmitter
}

func newTestAPI(t *testing.T, mode string) *testAPI {
	t.Helper()
	resolver := fareconfig.NewResolver(fareconfig.RawConfig{
		Attributes: map[string]string{fareconfig.AttrDisplayMode: mode},
	}, zerolog.Nop())
	now := func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	registry := session.NewRegistry(session.RegistryConfig{
		Config:     resolver,
		Calculator: pricing.NewService(),
		Now:        now,
		Logger:     zerolog.Nop(),
	})
	routes := &stubRoutes{route: maps.Route{DistanceMeters: 25000, DurationSeconds: 1800}}
	submit := &stubSubmitter{}
	h := NewRouter(RouterDeps{
		Config:   resolver,
		Sessions: registry,
		Routes:   routes,
		Booking:  submit,
		Logger:   zerolog.Nop(),
	})
	return &testAPI{handler: h, routes: routes, submit: submit}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testAPI) createSession(t *testing.T) string {
	w := a.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return string(decode[session.State](t, w).ID)
}

func routeBody() map[string]any {
	return map[string]any{
		"origin":      "Paris",
		"destination": "Orly",
		"pickupDate":  "2026-03-14",
		"pickupTime":  "14:00",
	}
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t, "A")
	w := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])
}

func TestRouter_WidgetConfigHidesNotifySettings(t *testing.T) {
	api := newTestAPI(t, "B")
	w := api.do(t, http.MethodGet, "/api/widget/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "B", body["displayMode"])
	assert.NotContains(t, body, "notifyEmail")
	assert.Len(t, body["vehicles"], 2)
}

func TestRouter_ModeAFlow(t *testing.T) {
	api := newTestAPI(t, "A")
	id := api.createSession(t)

	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[session.State](t, w)
	require.NotNil(t, st.Selection)
	assert.Equal(t, "sedan", st.Selection.VehicleID)
	assert.InDelta(t, 60.0, st.Selection.Total, 1e-9)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/options/child_seat/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st = decode[session.State](t, w)
	assert.InDelta(t, 70.0, st.Selection.Total, 1e-9)
	assert.Equal(t, 1, api.routes.calls, "toggling must not re-resolve the route")

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/vehicle", map[string]string{"vehicleId": "van"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", booking.Form{
		Contact: booking.Contact{Name: "Ada", Email: "ada@example.com", Phone: "0612345678"},
		Consent: booking.Consent{Terms: true},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.InDelta(t, 70.0, api.submit.state.Selection.Total, 1e-9)
	assert.Equal(t, "Ada", api.submit.form.Contact.Name)
}

func TestRouter_ModeBFlow(t *testing.T) {
	api := newTestAPI(t, "B")
	id := api.createSession(t)

	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody())
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[session.State](t, w)
	assert.Nil(t, st.Selection)
	assert.Len(t, st.Quotes, 2)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/vehicle", map[string]string{"vehicleId": "van"})
	require.Equal(t, http.StatusOK, w.Code)
	st = decode[session.State](t, w)
	require.NotNil(t, st.Selection)
	assert.Equal(t, "van", st.Selection.VehicleID)

	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/vehicle", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPost, "/api/sessions/"+id+"/vehicle", map[string]string{"vehicleId": "zeppelin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MissingInputClearsPrice(t *testing.T) {
	api := newTestAPI(t, "A")
	id := api.createSession(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody()).Code)

	body := routeBody()
	delete(body, "pickupDate")
	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, api.routes.calls)

	st := decode[session.State](t, api.do(t, http.MethodGet, "/api/sessions/"+id, nil))
	assert.False(t, st.Resolved)
	assert.Nil(t, st.Selection)
}

func TestRouter_UnknownVehicleClearsPrice(t *testing.T) {
	api := newTestAPI(t, "A")
	id := api.createSession(t)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody()).Code)

	body := routeBody()
	body["origin"] = "Lyon"
	body["destination"] = "Nice"
	body["vehicleId"] = "spaceship"
	w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, api.routes.calls, "unknown vehicles are rejected before the route lookup")

	st := decode[session.State](t, api.do(t, http.MethodGet, "/api/sessions/"+id, nil))
	assert.False(t, st.Resolved)
	assert.Nil(t, st.Trip)
	assert.Nil(t, st.Selection)
}

func TestRouter_UpstreamErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: maps.ErrNotReady, want: http.StatusServiceUnavailable},
		{err: maps.ErrNoRoute, want: http.StatusBadGateway},
		{err: maps.ErrRouteUnavailable, want: http.StatusBadGateway},
		{err: maps.ErrInvalidRequest, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			api := newTestAPI(t, "A")
			id := api.createSession(t)
			require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody()).Code)

			api.routes.err = tt.err
			w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody())
			assert.Equal(t, tt.want, w.Code)

			st := decode[session.State](t, api.do(t, http.MethodGet, "/api/sessions/"+id, nil))
			assert.False(t, st.Resolved, "failed resolution leaves the session unresolved")
		})
	}
}

func TestRouter_SubmitErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation",
			err:  &booking.ValidationError{Kind: booking.ErrConsentRequired, Message: "accept terms", Fields: map[string]string{"terms": "accept terms"}},
			want: http.StatusUnprocessableEntity,
		},
		{name: "transport", err: &booking.TransportError{Status: 500, Detail: "smtp down"}, want: http.StatusBadGateway},
		{name: "unsafe endpoint", err: booking.ErrUnsafeEndpoint, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, "A")
			id := api.createSession(t)
			require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/sessions/"+id+"/route", routeBody()).Code)
			api.submit.err = tt.err

			w := api.do(t, http.MethodPost, "/api/sessions/"+id+"/submit", booking.Form{})
			assert.Equal(t, tt.want, w.Code)
			assert.NotContains(t, w.Body.String(), "smtp down", "transport detail stays in logs")
		})
	}
}

func TestRouter_UnknownSession(t *testing.T) {
	api := newTestAPI(t, "A")
	w := api.do(t, http.MethodGet, "/api/sessions/0b7c1f9e-0000-4000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/sessions/not!valid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_MalformedSessionID(t *testing.T) {
	api := newTestAPI(t, "A")
	for _, id := range []string{"----", "abc", "0b7c1f9e00004000800000000000000000000", "0b7c1f9e-0000-4000-8000-00000000000g"} {
		w := api.do(t, http.MethodGet, "/api/sessions/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestServer_RateLimited(t *testing.T) {
	resolver := fareconfig.NewResolver(fareconfig.RawConfig{}, zerolog.Nop())
	srv := NewServer(ServerDeps{
		Router: RouterDeps{
			Config:   resolver,
			Sessions: session.NewRegistry(session.RegistryConfig{Config: resolver, Calculator: pricing.NewService()}),
			Routes:   &stubRoutes{},
			Booking:  &stubSubmitter{},
			Logger:   zerolog.Nop(),
		},
		RateLimit:  1,
		RateWindow: time.Minute,
	})
	h := srv.Routes()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
