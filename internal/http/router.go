// README: HTTP router registration.
package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fareflow/internal/http/handlers"
	"fareflow/internal/http/middleware"
	"fareflow/internal/modules/session"
)

type RouterDeps struct {
	Config      handlers.ConfigSource
	Sessions    *session.Registry
	Routes      handlers.RouteResolver
	RoutesReady func() bool
	Booking     handlers.Submitter
	Logger      zerolog.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger), middleware.Logging(deps.Logger))

	ready := deps.RoutesReady
	if ready == nil {
		ready = func() bool { return deps.Routes != nil }
	}
	health := handlers.NewHealthHandler(ready, deps.Sessions.Len)
	r.GET("/health", health.Get)

	configHandler := handlers.NewConfigHandler(deps.Config)
	r.GET("/api/widget/config", configHandler.Get)

	sessionHandler := handlers.NewSessionHandler(deps.Sessions, deps.Routes, deps.Booking, deps.Config, deps.Logger)
	api := r.Group("/api/sessions")
	api.POST("", sessionHandler.Create)
	api.GET("/:id", sessionHandler.Get)
	api.POST("/:id/route", sessionHandler.ResolveRoute)
	api.POST("/:id/vehicle", sessionHandler.SelectVehicle)
	api.POST("/:id/options/:optionId/toggle", sessionHandler.ToggleOption)
	api.POST("/:id/submit", sessionHandler.Submit)

	return r
}
