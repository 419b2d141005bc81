// README: API gateway; wraps the router with rate limiting and runs the HTTP server.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"fareflow/internal/http/middleware"
)

type ServerDeps struct {
	Router          RouterDeps
	Addr            string
	RateLimit       int
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	deps   ServerDeps
	logger zerolog.Logger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps, logger: deps.Router.Logger}
}

func (s *Server) Routes() http.Handler {
	return middleware.RateLimitByIP(s.deps.RateLimit, s.deps.RateWindow)(NewRouter(s.deps.Router))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.deps.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.deps.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.deps.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
