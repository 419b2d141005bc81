// README: Structured logger construction.
package infra

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger tagged with the service name.
func NewLogger(w io.Writer, service string, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
