package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agrimarket/internal/directory/fetcher"
	"agrimarket/internal/directory/schema"
	"agrimarket/internal/discovery"
	discoveryhandler "agrimarket/internal/discovery/handler"
	discoverymetrics "agrimarket/internal/discovery/metrics"
	"agrimarket/internal/geo"
	"agrimarket/internal/platform/config"
	"agrimarket/internal/platform/httpserver"
	"agrimarket/internal/platform/logger"
	"agrimarket/internal/platform/metrics"
	"agrimarket/internal/platform/redis"
	"agrimarket/internal/ratelimit"
	"agrimarket/internal/session"
	httpapi "agrimarket/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	kinds := schema.Default()
	if cfg.KindsFile != "" {
		loaded, err := schema.LoadFile(cfg.KindsFile)
		if err != nil {
			return err
		}
		kinds = loaded
	}

	reg := metrics.NewRegistry()
	discoveryMetrics := discoverymetrics.New(reg)

	health := map[string]httpapi.HealthCheck{}
	var store session.Store = session.NewInMemoryStore()
	var limitStore ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = session.NewRedisStore(redisClient.Client)
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		health["redis"] = redisClient.Health
		log.Info("using redis session store")
	}

	sessions := session.NewService(store, cfg.Session.TTL, session.WithLogger(log))

	client := fetcher.New(cfg.Upstream.BaseURL,
		fetcher.WithTimeout(cfg.Upstream.Timeout),
		fetcher.WithRegistry(kinds),
		fetcher.WithMetrics(discoveryMetrics),
		fetcher.WithLogger(log),
	)
	health["upstream"] = client.Health
	service := discovery.NewService(client, kinds,
		discovery.WithDefaultFit(geo.NewFitOptions(cfg.Map.DefaultLat, cfg.Map.DefaultLng, cfg.Map.DefaultZoom, cfg.Map.MaxZoom, cfg.Map.Padding)),
		discovery.WithMediaBaseURL(cfg.Upstream.MediaBaseURL),
		discovery.WithMetrics(discoveryMetrics),
		discovery.WithLogger(log),
	)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		limiter = ratelimit.NewLimiter(
			ratelimit.Limit{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window},
			limitStore,
			ratelimit.WithFallback(ratelimit.NewInMemoryStore()),
			ratelimit.WithRegisterer(reg),
			ratelimit.WithLogger(log),
		)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Sessions:       sessions,
		SessionCookie:  cfg.Session.CookieName,
		SessionHandler: session.NewHandler(sessions, session.CookieOptions{Name: cfg.Session.CookieName, Secure: cfg.Session.CookieSecure}, log),
		Discovery:      discoveryhandler.New(service, session.NewGate(cfg.Session.LoginURL), log),
		RateLimiter:    limiter,
		Metrics:        reg.Handler(),
		Health:         health,
		RequestTimeout: cfg.Upstream.Timeout + 5*time.Second,
	})

	srv := httpserver.New(cfg.Addr, router, cfg.Upstream.Timeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting agrimarket gateway", "addr", cfg.Addr, "upstream", cfg.Upstream.BaseURL)
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
