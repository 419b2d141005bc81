// README: Route resolver over Google Maps Directions; sums every leg of the first route.
package maps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

var (
	ErrNotReady         = errors.New("route provider not configured")
	ErrInvalidRequest   = errors.New("origin and destination are required")
	ErrNoRoute          = errors.New("no route found")
	ErrRouteUnavailable = errors.New("route provider unavailable")
)

// DirectionsClient is the subset of *maps.Client used here.
type DirectionsClient interface {
	Directions(ctx context.Context, r *maps.DirectionsRequest) ([]maps.Route, []maps.GeocodedWaypoint, error)
}

// RouteCache stores resolved routes. Implementations must treat a miss as
// (Route{}, false, nil).
type RouteCache interface {
	Get(ctx context.Context, req RouteRequest) (Route, bool, error)
	Set(ctx context.Context, req RouteRequest, route Route) error
}

type RouteRequest struct {
	Origin      string
	Destination string
	Waypoints   []string
}

// Route is the itinerary total over all legs.
type Route struct {
	DistanceMeters  int     `json:"distanceMeters"`
	DurationSeconds float64 `json:"durationSeconds"`
}

func (r Route) DistanceKm() float64 {
	return float64(r.DistanceMeters) / 1000
}

func (r Route) DurationMin() float64 {
	return r.DurationSeconds / 60
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client DirectionsClient
	cache  RouteCache
	logger zerolog.Logger
}

// NewRouteService creates a RouteService with the given API key. An empty key
// yields a service whose Resolve always returns ErrNotReady.
func NewRouteService(apiKey string, cache RouteCache, logger zerolog.Logger) (*RouteService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return &RouteService{cache: cache, logger: logger}, nil
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return NewRouteServiceWithClient(client, cache, logger), nil
}

func NewRouteServiceWithClient(client DirectionsClient, cache RouteCache, logger zerolog.Logger) *RouteService {
	return &RouteService{client: client, cache: cache, logger: logger}
}

func (s *RouteService) Ready() bool {
	return s != nil && s.client != nil
}

// Resolve returns the driving distance and duration from origin to
// destination through the waypoints, in order.
func (s *RouteService) Resolve(ctx context.Context, req RouteRequest) (Route, error) {
	if !s.Ready() {
		return Route{}, ErrNotReady
	}
	req = normalizeRequest(req)
	if req.Origin == "" || req.Destination == "" {
		return Route{}, ErrInvalidRequest
	}

	if s.cache != nil {
		route, ok, err := s.cache.Get(ctx, req)
		if err != nil {
			s.logger.Warn().Err(err).Msg("route cache read failed")
		} else if ok {
			return route, nil
		}
	}

	start := time.Now()
	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   req.Waypoints,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		mapped := classifyError(err)
		s.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("directions request failed")
		return Route{}, fmt.Errorf("%w: %v", mapped, err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Route{}, ErrNoRoute
	}

	var route Route
	for _, leg := range routes[0].Legs {
		if leg == nil {
			continue
		}
		route.DistanceMeters += leg.Distance.Meters
		route.DurationSeconds += leg.Duration.Seconds()
	}

	s.logger.Debug().
		Int("legs", len(routes[0].Legs)).
		Int("distance_m", route.DistanceMeters).
		Float64("duration_s", route.DurationSeconds).
		Dur("elapsed", time.Since(start)).
		Msg("route resolved")

	if s.cache != nil {
		if err := s.cache.Set(ctx, req, route); err != nil {
			s.logger.Warn().Err(err).Msg("route cache write failed")
		}
	}
	return route, nil
}

func normalizeRequest(req RouteRequest) RouteRequest {
	out := RouteRequest{
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
	}
	for _, w := range req.Waypoints {
		if w = strings.TrimSpace(w); w != "" {
			out.Waypoints = append(out.Waypoints, w)
		}
	}
	return out
}

// classifyError maps a Directions status error onto ErrNoRoute or
// ErrRouteUnavailable. The client reports statuses as "maps: STATUS - message".
func classifyError(err error) error {
	msg := err.Error()
	for _, status := range []string{"ZERO_RESULTS", "NOT_FOUND", "MAX_ROUTE_LENGTH_EXCEEDED"} {
		if strings.Contains(msg, status) {
			return ErrNoRoute
		}
	}
	return ErrRouteUnavailable
}
