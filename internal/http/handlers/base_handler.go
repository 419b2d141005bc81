// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fareflow/internal/maps"
	"fareflow/internal/modules/booking"
	"fareflow/internal/modules/session"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// isValidID accepts the canonical uuid strings produced by types.NewID.
func isValidID(v string) bool {
	return len(v) == 36 && uuid.Validate(v) == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrStaleResolution),
		errors.Is(err, session.ErrWrongMode),
		errors.Is(err, session.ErrNotResolved):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrUnknownVehicle), errors.Is(err, session.ErrUnknownOption):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeRouteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, maps.ErrInvalidRequest):
		writeError(c, http.StatusBadRequest, maps.ErrInvalidRequest.Error())
	case errors.Is(err, maps.ErrNotReady):
		writeError(c, http.StatusServiceUnavailable, maps.ErrNotReady.Error())
	case errors.Is(err, maps.ErrNoRoute):
		writeError(c, http.StatusBadGateway, maps.ErrNoRoute.Error())
	case errors.Is(err, maps.ErrRouteUnavailable):
		writeError(c, http.StatusBadGateway, maps.ErrRouteUnavailable.Error())
	default:
		writeSessionError(c, err)
	}
}

func writeBookingError(c *gin.Context, err error, locale string) {
	var ve *booking.ValidationError
	var te *booking.TransportError
	switch {
	case errors.As(err, &ve):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: ve.Message, Fields: ve.Fields})
	case errors.As(err, &te):
		writeError(c, http.StatusBadGateway, booking.SendFailedMessage(locale))
	case errors.Is(err, booking.ErrUnsafeEndpoint):
		writeError(c, http.StatusInternalServerError, "booking endpoint misconfigured")
	default:
		writeSessionError(c, err)
	}
}
