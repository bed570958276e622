package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darkodi/shortlink/internal/analytics"
	"github.com/darkodi/shortlink/internal/auth"
	"github.com/darkodi/shortlink/internal/cache"
	"github.com/darkodi/shortlink/internal/config"
	"github.com/darkodi/shortlink/internal/encoder"
	"github.com/darkodi/shortlink/internal/handler"
	"github.com/darkodi/shortlink/internal/logger"
	"github.com/darkodi/shortlink/internal/middleware"
	"github.com/darkodi/shortlink/internal/ratelimit"
	"github.com/darkodi/shortlink/internal/repository"
	"github.com/darkodi/shortlink/internal/service"
	"github.com/darkodi/shortlink/internal/validator"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	log.Info("starting shortlink",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"cache", cfg.Cache.Backend,
		"base_url", cfg.App.BaseURL)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	// ============================================================
	// STORE
	// ============================================================
	store, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeWith(log, "store", store.Close)

	created, err := auth.EnsureAdmin(ctx, store, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminEmail)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "username", cfg.Auth.AdminUsername)
	}

	// ============================================================
	// CACHE
	// ============================================================
	var c cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		c, err = cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		}, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		log.Info("redis cache connected", "addr", cfg.Cache.RedisAddr)
	default:
		c = cache.NewMemory(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}
	defer closeWith(log, "cache", c.Close)

	// ============================================================
	// ANALYTICS
	// ============================================================
	var recorderOpts []analytics.Option
	if cfg.Analytics.GeoIPDBPath != "" {
		geo, err := analytics.OpenGeoIP(cfg.Analytics.GeoIPDBPath)
		if err != nil {
			log.Warn("geoip disabled", "path", cfg.Analytics.GeoIPDBPath, "error", err.Error())
		} else {
			defer closeWith(log, "geoip", geo.Close)
			recorderOpts = append(recorderOpts, analytics.WithGeoLocator(geo))
		}
	}
	recorder := analytics.NewRecorder(store, analytics.Config{
		Workers:    cfg.Analytics.Workers,
		BufferSize: cfg.Analytics.BufferSize,
	}, log, recorderOpts...)

	// ============================================================
	// SERVICES
	// ============================================================
	v := validator.NewURLValidator().
		WithBlockedDomains(cfg.Shortener.BlockedDomains...).
		WithBlockPrivateIPs(cfg.Shortener.BlockPrivateIPs)

	opts := []service.Option{
		service.WithRecorder(recorder),
		service.WithCacheTTL(cfg.Cache.TTL),
		service.WithLogger(log),
	}
	handlerCfg := handler.Config{
		FallbackURL:   cfg.Shortener.FallbackURL,
		SecureCookies: cfg.IsProduction(),
		HealthCheck:   store.Ping,
	}

	if cfg.RateLimit.Enabled {
		createLimiter := ratelimit.NewSlidingWindow(ratelimit.Config{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			Cleanup:     cfg.RateLimit.Cleanup,
		}, ratelimit.WithLogger(log))
		defer createLimiter.Close()

		loginLimiter := ratelimit.NewSlidingWindow(ratelimit.Config{
			MaxRequests: cfg.RateLimit.LoginMax,
			Window:      cfg.RateLimit.Window,
			Cleanup:     cfg.RateLimit.Cleanup,
		}, ratelimit.WithLogger(log))
		defer loginLimiter.Close()

		opts = append(opts, service.WithLimiter(createLimiter))
		handlerCfg.LoginLimiter = loginLimiter
		log.Info("rate limiter enabled",
			"max_requests", cfg.RateLimit.MaxRequests,
			"login_max", cfg.RateLimit.LoginMax,
			"window", cfg.RateLimit.Window)
	}

	shortener := service.NewShortenerService(store, c, v, encoder.NewGenerator(cfg.Shortener.CodeLength), cfg.App.BaseURL, opts...)
	reports := service.NewReportService(store)
	authSvc := auth.NewService(store, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	// ============================================================
	// HTTP
	// ============================================================
	h := handler.New(shortener, reports, authSvc, log, handlerCfg)
	router := middleware.Chain(h.SetupRoutes(),
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logging(log),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", "http://localhost"+server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	select {
	case err := <-serverErr:
		recorder.Close()
		return err

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err.Error())
			if err := server.Close(); err != nil {
				log.Error("forced shutdown failed", "error", err.Error())
			}
		}
	}

	// pending clicks are written before the store closes
	start := time.Now()
	closeWith(log, "recorder", recorder.Close)
	log.Info("click queue drained", "dropped", recorder.Dropped(), "took", time.Since(start))
	return nil
}

func closeWith(log *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Error("failed to close "+name, "error", err.Error())
	}
}
