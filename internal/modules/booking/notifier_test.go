package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier() *Notifier {
	return NewNotifier(NotifierConfig{
		Name:         "test",
		Timeout:      2 * time.Second,
		MaxFailures:  2,
		OpenDuration: time.Minute,
		Logger:       zerolog.Nop(),
	})
}

func samplePayload() BookingPayload {
	return BookingPayload{
		Reference: "ref-1",
		Contact:   Contact{Name: "Ada", Email: "ada@example.com", Phone: "0612345678"},
		Trip:      TripSnapshot{VehicleID: "sedan", Total: 60, Currency: "EUR"},
		Consent:   Consent{Terms: true},
	}
}

func TestNotifier_Success(t *testing.T) {
	var got BookingPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := newTestNotifier().Send(context.Background(), srv.URL, samplePayload())
	require.NoError(t, err)
	assert.Equal(t, "ref-1", string(got.Reference))
	assert.InDelta(t, 60.0, got.Trip.Total, 1e-9)
}

func TestNotifier_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDetail string
	}{
		{name: "non-2xx", status: http.StatusBadGateway, body: "upstream down", wantStatus: 502, wantDetail: "Bad Gateway"},
		{name: "non-2xx with json error", status: http.StatusBadRequest, body: `{"ok":false,"error":"invalid","detail":"missing email"}`, wantStatus: 400, wantDetail: "invalid: missing email"},
		{name: "malformed json", status: http.StatusOK, body: `<html>`, wantStatus: 200, wantDetail: "malformed relay response"},
		{name: "ok false", status: http.StatusOK, body: `{"ok":false,"error":"mail quota"}`, wantStatus: 200, wantDetail: "mail quota"},
		{name: "ok missing", status: http.StatusOK, body: `{}`, wantStatus: 200, wantDetail: "relay reported failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newTestNotifier().Send(context.Background(), srv.URL, samplePayload())
			var te *TransportError
			require.True(t, errors.As(err, &te), "got %v", err)
			assert.Equal(t, tt.wantStatus, te.Status)
			assert.Equal(t, tt.wantDetail, te.Detail)
		})
	}
}

func TestNotifier_NeverRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestNotifier().Send(context.Background(), srv.URL, samplePayload())
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestNotifier_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n := newTestNotifier()
	for i := 0; i < 2; i++ {
		require.Error(t, n.Send(context.Background(), srv.URL, samplePayload()))
	}
	assert.Equal(t, gobreaker.StateOpen, n.State())

	err := n.Send(context.Background(), srv.URL, samplePayload())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNotifier_RelayRejectionsKeepBreakerClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"rejected"}`))
	}))
	defer srv.Close()

	n := newTestNotifier()
	for i := 0; i < 4; i++ {
		require.Error(t, n.Send(context.Background(), srv.URL, samplePayload()))
	}
	assert.Equal(t, gobreaker.StateClosed, n.State())
}

func TestNotifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestNotifier().Send(context.Background(), url, samplePayload())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.Status)
}
