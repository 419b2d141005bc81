// README: Config loader with env defaults for HTTP, storage, maps, widget and booking relay settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type HTTPConfig struct {
	Addr            string
	RateLimit       int
	RateWindow      time.Duration
	ShutdownTimeout time.Duration
}

type WidgetConfig struct {
	// Key selects the widget_configs row when a database is configured.
	Key string
	// File, when set, takes precedence over the database.
	File string
}

type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type BookingConfig struct {
	Endpoint        string
	Origin          string
	RelayHosts      []string
	Timeout         time.Duration
	BreakerFailures int
	BreakerOpen     time.Duration
}

type Config struct {
	HTTP HTTPConfig
	DB   struct {
		DSN string
	}
	Redis struct {
		Addr string
	}
	Maps struct {
		APIKey   string
		CacheTTL time.Duration
	}
	Widget   WidgetConfig
	Session  SessionConfig
	Booking  BookingConfig
	LogLevel zerolog.Level
}

// Load reads FARE_* environment variables. Empty DSN, Redis address or maps
// key disable the corresponding backend.
func Load() (Config, error) {
	var cfg Config
	cfg.HTTP.Addr = envOrDefault("FARE_HTTP_ADDR", ":8080")
	cfg.HTTP.RateLimit = envOrDefaultInt("FARE_RATE_LIMIT", 60)
	cfg.HTTP.RateWindow = envOrDefaultDuration("FARE_RATE_WINDOW", time.Minute)
	cfg.HTTP.ShutdownTimeout = envOrDefaultDuration("FARE_SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.DB.DSN = os.Getenv("FARE_DB_DSN")
	cfg.Redis.Addr = os.Getenv("FARE_REDIS_ADDR")
	cfg.Maps.APIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.Maps.CacheTTL = envOrDefaultDuration("FARE_ROUTE_CACHE_TTL", 6*time.Hour)
	cfg.Widget.Key = envOrDefault("FARE_WIDGET_KEY", "default")
	cfg.Widget.File = os.Getenv("FARE_WIDGET_FILE")
	cfg.Session.IdleTTL = envOrDefaultDuration("FARE_SESSION_TTL", 30*time.Minute)
	cfg.Session.SweepInterval = envOrDefaultDuration("FARE_SESSION_SWEEP", time.Minute)
	cfg.Booking.Endpoint = envOrDefault("FARE_NOTIFY_ENDPOINT", "/api/booking/notify")
	cfg.Booking.Origin = os.Getenv("FARE_ORIGIN")
	cfg.Booking.RelayHosts = envList("FARE_RELAY_HOSTS")
	cfg.Booking.Timeout = envOrDefaultDuration("FARE_NOTIFY_TIMEOUT", 10*time.Second)
	cfg.Booking.BreakerFailures = envOrDefaultInt("FARE_NOTIFY_BREAKER_FAILURES", 5)
	cfg.Booking.BreakerOpen = envOrDefaultDuration("FARE_NOTIFY_BREAKER_OPEN", 30*time.Second)

	level, err := zerolog.ParseLevel(envOrDefault("FARE_LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("FARE_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.HTTP.RateLimit < 0 {
		return Config{}, fmt.Errorf("FARE_RATE_LIMIT must not be negative")
	}
	if cfg.Session.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("FARE_SESSION_SWEEP must be positive")
	}
	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
