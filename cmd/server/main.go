package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/skyfinder/internal/autocomplete"
	"github.com/dharmasatrya/skyfinder/internal/cache"
	"github.com/dharmasatrya/skyfinder/internal/config"
	"github.com/dharmasatrya/skyfinder/internal/handler"
	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/ratelimit"
	"github.com/dharmasatrya/skyfinder/internal/session"
	"github.com/dharmasatrya/skyfinder/internal/skyscanner"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns every resource of the process so that its deferred cleanup happens
// on both clean shutdown and startup failure.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		logger.Error(err, "Failed to load configuration")
		return err
	}

	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	rateLimiter := ratelimit.NewEndpointLimiterWithDefaults()
	rateLimiter.SetEndpointLimit(ratelimit.EndpointAirports, cfg.Upstream.AirportRate, cfg.Upstream.AirportBurst)
	rateLimiter.SetEndpointLimit(ratelimit.EndpointFlights, cfg.Upstream.FlightRate, cfg.Upstream.FlightBurst)

	client, err := skyscanner.New(skyscanner.Config{
		BaseURL:    cfg.Upstream.BaseURL,
		APIKey:     cfg.Upstream.APIKey,
		APIHost:    cfg.Upstream.APIHost,
		Locale:     cfg.Upstream.Locale,
		Timeout:    cfg.Upstream.Timeout,
		MaxRetries: cfg.Upstream.MaxRetries,
		Limiter:    rateLimiter,
	})
	if err != nil {
		logger.Error(err, "Failed to initialize flight API client")
		return err
	}

	store, err := newStore(cfg.Store)
	if err != nil {
		logger.Error(err, "Failed to connect to Redis", "host", cfg.Store.RedisHost, "port", cfg.Store.RedisPort)
		return err
	}
	defer store.Close()

	sessions := session.NewManager(session.Config{
		TTL: cfg.SessionTTL,
		Autocomplete: autocomplete.Config{
			Debounce:       cfg.Autocomplete.Debounce,
			BlurGrace:      cfg.Autocomplete.BlurGrace,
			MinQueryLength: cfg.Autocomplete.MinQueryLength,
		},
	}, client, client, store)
	defer sessions.Close()

	renderer, err := handler.NewRenderer()
	if err != nil {
		logger.Error(err, "Failed to parse templates")
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(handler.RequestLogger())

	handler.New(sessions, client, cfg.Autocomplete.MinQueryLength).Register(e)

	logger.Info("Starting skyfinder server",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"api_host", cfg.Upstream.APIHost,
		"store", cfg.Store.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, e, ":"+cfg.Port, 10*time.Second); err != nil {
		logger.Error(err, "Server stopped unexpectedly")
		return err
	}
	return nil
}

// serve runs e until ctx is done, then shuts it down within grace. A listener
// failure is returned to the caller instead of exiting from the server goroutine.
func serve(ctx context.Context, e *echo.Echo, addr string, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Graceful shutdown failed")
		return err
	}
	return nil
}

func newStore(cfg config.StoreConfig) (cache.Store, error) {
	if cfg.Backend != "redis" {
		logger.Info("Itinerary store: memory", "ttl", cfg.TTL)
		return cache.NewMemoryStore(cfg.TTL), nil
	}

	s, err := cache.NewRedisStore(cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Itinerary store: redis", "host", cfg.RedisHost, "port", cfg.RedisPort, "ttl", cfg.TTL)
	return s, nil
}
