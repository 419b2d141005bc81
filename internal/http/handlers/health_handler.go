// README: Health handler reports liveness and whether routing is configured.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	routesReady func() bool
	sessions    func() int
}

func NewHealthHandler(routesReady func() bool, sessions func() int) *HealthHandler {
	return &HealthHandler{routesReady: routesReady, sessions: sessions}
}

func (h *HealthHandler) Get(c *gin.Context) {
	writeJSON(c, http.StatusOK, map[string]any{
		"status":   "ok",
		"routing":  h.routesReady(),
		"sessions": h.sessions(),
	})
}
