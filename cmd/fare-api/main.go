// README: Entry point; loads config, wires services, starts HTTP server and the session janitor.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"fareflow/internal/config"
	httptransport "fareflow/internal/http"
	"fareflow/internal/infra"
	"fareflow/internal/maps"
	"fareflow/internal/modules/booking"
	"fareflow/internal/modules/fareconfig"
	"fareflow/internal/modules/pricing"
	"fareflow/internal/modules/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := infra.NewLogger(os.Stderr, "fare-api", zerolog.InfoLevel)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger(os.Stdout, "fare-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	if cfg.DB.DSN != "" {
		db, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("connect database")
		}
		defer db.Close()
	}

	raw, err := loadWidgetConfig(ctx, cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("load widget config")
	}
	fareCfg := fareconfig.NewResolver(raw, log.With().Str("component", "fareconfig").Logger())
	resolved := fareCfg.Config()
	log.Info().
		Str("display_mode", string(resolved.DisplayMode)).
		Str("pricing_behavior", string(resolved.PricingBehavior)).
		Int("vehicles", len(resolved.Vehicles)).
		Msg("widget config ready")

	var cache maps.RouteCache
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn().Err(err).Msg("route cache disabled")
		} else {
			defer redisClient.Close()
			cache = maps.NewRedisRouteCache(redisClient, cfg.Maps.CacheTTL)
		}
	}
	routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey, cache, log.With().Str("component", "maps").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("maps client")
	}
	if !routeSvc.Ready() {
		log.Warn().Msg("GOOGLE_MAPS_API_KEY not set; route resolution will report not ready")
	}

	registry := session.NewRegistry(session.RegistryConfig{
		Config:     fareCfg,
		Calculator: pricing.NewService(),
		IdleTTL:    cfg.Session.IdleTTL,
		Logger:     log.With().Str("component", "session").Logger(),
	})

	notifier := booking.NewNotifier(booking.NotifierConfig{
		Timeout:      cfg.Booking.Timeout,
		MaxFailures:  uint32(max(cfg.Booking.BreakerFailures, 1)),
		OpenDuration: cfg.Booking.BreakerOpen,
		Logger:       log.With().Str("component", "notifier").Logger(),
	})
	guardCfg := booking.GuardConfig{
		Endpoint:   cfg.Booking.Endpoint,
		Origin:     cfg.Booking.Origin,
		RelayHosts: cfg.Booking.RelayHosts,
		Logger:     log.With().Str("component", "booking").Logger(),
	}
	if db != nil {
		guardCfg.Journal = booking.NewStore(db)
	}
	guard := booking.NewGuard(fareCfg, notifier, guardCfg)
	if _, err := booking.ResolveEndpoint(cfg.Booking.Endpoint, cfg.Booking.Origin, cfg.Booking.RelayHosts); err != nil {
		log.Error().Err(err).Msg("booking endpoint rejected; submissions will fail")
	}

	server := httptransport.NewServer(httptransport.ServerDeps{
		Router: httptransport.RouterDeps{
			Config:      fareCfg,
			Sessions:    registry,
			Routes:      routeSvc,
			RoutesReady: routeSvc.Ready,
			Booking:     guard,
			Logger:      log.With().Str("component", "http").Logger(),
		},
		Addr:            cfg.HTTP.Addr,
		RateLimit:       cfg.HTTP.RateLimit,
		RateWindow:      cfg.HTTP.RateWindow,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	go registry.RunJanitor(ctx, cfg.Session.SweepInterval)
	go reloadOnHangup(ctx, cfg, db, fareCfg, log)

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server")
	}
}

// loadWidgetConfig picks the raw widget configuration: a TOML file when
// configured, else the database row, else built-in defaults.
func loadWidgetConfig(ctx context.Context, cfg config.Config, db *pgxpool.Pool, log zerolog.Logger) (fareconfig.RawConfig, error) {
	if cfg.Widget.File != "" {
		log.Info().Str("file", cfg.Widget.File).Msg("loading widget config file")
		return fareconfig.LoadFile(cfg.Widget.File)
	}
	if db == nil {
		log.Info().Msg("no widget config source; using defaults")
		return fareconfig.RawConfig{}, nil
	}

	raw, err := fareconfig.NewStore(db).LoadRaw(ctx, cfg.Widget.Key)
	if errors.Is(err, fareconfig.ErrNotFound) {
		log.Warn().Str("widget_key", cfg.Widget.Key).Msg("widget config row missing; using defaults")
		return fareconfig.RawConfig{}, nil
	}
	return raw, err
}

// reloadOnHangup re-reads the widget config on SIGHUP. Live sessions pick the
// new catalog up on their next recomputation.
func reloadOnHangup(ctx context.Context, cfg config.Config, db *pgxpool.Pool, fareCfg *fareconfig.Resolver, log zerolog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			raw, err := loadWidgetConfig(ctx, cfg, db, log)
			if err != nil {
				log.Error().Err(err).Msg("reload widget config")
				continue
			}
			next := fareconfig.NewResolver(raw, log).Config()
			applied := fareCfg.Update(func(c *fareconfig.FareConfig) { *c = next })
			log.Info().
				Str("display_mode", string(applied.DisplayMode)).
				Int("vehicles", len(applied.Vehicles)).
				Msg("widget config reloaded")
		}
	}
}
