// README: Session handlers for create/get, route resolution, vehicle pick, option toggle and submit.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fareflow/internal/maps"
	"fareflow/internal/modules/booking"
	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/modules/session"
	"fareflow/internal/types"
)

type RouteResolver interface {
	Resolve(ctx context.Context, req maps.RouteRequest) (maps.Route, error)
}

type Submitter interface {
	Submit(ctx context.Context, form booking.Form, st session.State) (*booking.Receipt, error)
}

type SessionHandler struct {
	sessions *session.Registry
	routes   RouteResolver
	booking  Submitter
	cfg      ConfigSource
	logger   zerolog.Logger
}

func NewSessionHandler(sessions *session.Registry, routes RouteResolver, submitter Submitter, cfg ConfigSource, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, routes: routes, booking: submitter, cfg: cfg, logger: logger}
}

type resolveRouteReq struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints"`
	PickupDate  string   `json:"pickupDate"`
	PickupTime  string   `json:"pickupTime"`
	VehicleID   string   `json:"vehicleId"`
}

type selectVehicleReq struct {
	VehicleID string `json:"vehicleId" binding:"required"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	writeJSON(c, http.StatusCreated, h.sessions.Create())
}

func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	st, err := h.sessions.Snapshot(id)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

// ResolveRoute resolves the itinerary and prices it. Missing inputs clear any
// previous price; upstream failures leave the session unresolved.
func (h *SessionHandler) ResolveRoute(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req resolveRouteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.Origin = strings.TrimSpace(req.Origin)
	req.Destination = strings.TrimSpace(req.Destination)
	req.PickupDate = strings.TrimSpace(req.PickupDate)
	waypoints := make([]string, 0, len(req.Waypoints))
	for _, w := range req.Waypoints {
		if w = strings.TrimSpace(w); w != "" {
			waypoints = append(waypoints, w)
		}
	}

	if msg := missingInput(req); msg != "" {
		if h.invalidate(c, id) {
			writeError(c, http.StatusBadRequest, msg)
		}
		return
	}
	if cfg := h.cfg.Config(); cfg.DisplayMode != fareconfig.DisplayModeB && req.VehicleID != "" {
		if _, known := cfg.Vehicle(req.VehicleID); !known {
			if h.invalidate(c, id) {
				writeSessionError(c, session.ErrUnknownVehicle)
			}
			return
		}
	}

	var resolution session.ResolutionID
	if err := h.sessions.With(id, func(s *session.Session) error {
		resolution = s.BeginResolution()
		return nil
	}); err != nil {
		writeSessionError(c, err)
		return
	}

	route, err := h.routes.Resolve(c.Request.Context(), maps.RouteRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   waypoints,
	})
	if err != nil {
		_ = h.sessions.With(id, func(s *session.Session) error {
			_, derr := s.Discard(resolution)
			return derr
		})
		h.logger.Warn().Err(err).Str("session_id", string(id)).Msg("route resolution failed")
		writeRouteError(c, err)
		return
	}

	trip := pricing.TripInput{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   waypoints,
		DistanceKm:  route.DistanceKm(),
		DurationMin: route.DurationMin(),
		StopsCount:  len(waypoints),
		PickupDate:  req.PickupDate,
		PickupTime:  strings.TrimSpace(req.PickupTime),
	}
	var st session.State
	err = h.sessions.With(id, func(s *session.Session) error {
		var rerr error
		st, rerr = s.Resolve(resolution, trip, req.VehicleID)
		return rerr
	})
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

// invalidate clears the session's resolved trip; it writes the error response
// and reports false when the session is gone.
func (h *SessionHandler) invalidate(c *gin.Context, id types.ID) bool {
	err := h.sessions.With(id, func(s *session.Session) error {
		s.Invalidate()
		return nil
	})
	if err != nil {
		writeSessionError(c, err)
		return false
	}
	return true
}

func (h *SessionHandler) SelectVehicle(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req selectVehicleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "vehicleId is required")
		return
	}
	var st session.State
	err := h.sessions.With(id, func(s *session.Session) error {
		var serr error
		st, serr = s.SelectVehicle(req.VehicleID)
		return serr
	})
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *SessionHandler) ToggleOption(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	optionID := c.Param("optionId")
	var st session.State
	err := h.sessions.With(id, func(s *session.Session) error {
		var serr error
		st, serr = s.ToggleOption(optionID)
		return serr
	})
	if err != nil {
		writeSessionError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var form booking.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	st, err := h.sessions.Snapshot(id)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	receipt, err := h.booking.Submit(c.Request.Context(), form, st)
	if err != nil {
		writeBookingError(c, err, h.cfg.Config().Locale)
		return
	}
	writeJSON(c, http.StatusCreated, receipt)
}

func sessionID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid session id")
		return "", false
	}
	return types.ID(id), true
}

func missingInput(req resolveRouteReq) string {
	switch {
	case req.Origin == "" || req.Destination == "":
		return "origin and destination are required"
	case req.PickupDate == "":
		return "pickup date is required"
	}
	return ""
}
