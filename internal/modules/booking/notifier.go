// README: HTTP notifier posts booking payloads to the relay behind a circuit breaker.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

const maxResponseBytes = 64 << 10

type NotifierConfig struct {
	Name       string
	Timeout    time.Duration
	HTTPClient *http.Client

	// Breaker settings. Zero values fall back to 5 consecutive failures and
	// a 30 second open period.
	MaxFailures  uint32
	OpenDuration time.Duration

	Logger zerolog.Logger
}

// relayResponse is the body every relay answers with.
type relayResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Notifier sends each payload exactly once; it never retries.
type Notifier struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[relayResponse]
	logger  zerolog.Logger
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.Name == "" {
		cfg.Name = "booking-notify"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	maxFailures := cfg.MaxFailures

	breaker := gobreaker.NewCircuitBreaker[relayResponse](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &Notifier{client: client, breaker: breaker, logger: logger}
}

func (n *Notifier) Send(ctx context.Context, endpoint string, p BookingPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode booking payload: %w", err)
	}

	_, err = n.breaker.Execute(func() (relayResponse, error) {
		return n.post(ctx, endpoint, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &TransportError{Detail: "relay circuit open", Err: err}
	}
	return err
}

func (n *Notifier) State() gobreaker.State {
	return n.breaker.State()
}

func (n *Notifier) post(ctx context.Context, endpoint string, body []byte) (relayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return relayResponse{}, &TransportError{Detail: "build request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return relayResponse{}, &TransportError{Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return relayResponse{}, &TransportError{Status: resp.StatusCode, Detail: "read response: " + err.Error(), Err: err}
	}

	var out relayResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := http.StatusText(resp.StatusCode)
		if decodeErr == nil && (out.Error != "" || out.Detail != "") {
			detail = joinDetail(out.Error, out.Detail)
		}
		return relayResponse{}, &TransportError{Status: resp.StatusCode, Detail: detail}
	}
	if decodeErr != nil {
		return relayResponse{}, &TransportError{Status: resp.StatusCode, Detail: "malformed relay response", Err: decodeErr}
	}
	if !out.OK {
		return relayResponse{}, &TransportError{Status: resp.StatusCode, Detail: joinDetail(out.Error, out.Detail)}
	}
	return out, nil
}

// countsAsHealthy keeps answers that prove the relay is up (4xx, ok=false)
// from tripping the breaker.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status >= 200 && te.Status < 500
	}
	return false
}

func joinDetail(errMsg, detail string) string {
	switch {
	case errMsg == "" && detail == "":
		return "relay reported failure"
	case detail == "":
		return errMsg
	case errMsg == "":
		return detail
	}
	return errMsg + ": " + detail
}
