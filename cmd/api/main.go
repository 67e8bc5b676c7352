package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fn-M/HousingManager/internal/app"
	"github.com/Fn-M/HousingManager/internal/auth"
	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/Fn-M/HousingManager/internal/handlers"
	"github.com/Fn-M/HousingManager/internal/logging"
	"github.com/Fn-M/HousingManager/internal/ratelimit"
	"github.com/Fn-M/HousingManager/internal/scheduler"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		// the logger may not exist yet
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("housing manager stopped")
	}
}

func run() error {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Pretty)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info().Str("config", configPath).Msg("configuration loaded")

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("initial refresh failed, starting with an empty store")
	}

	authenticator := auth.New(cfg.Auth)
	if authenticator.Users() == 0 {
		logger.Warn().Msg("no users configured (set HM_USERS), every login will fail")
	}

	// Initialize rate limiter
	rateLimiter := ratelimit.NewRateLimiter(
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.RequestsPerHour,
		cfg.RateLimit.RequestsPerDay,
		cfg.RateLimit.Enabled,
	)
	logger.Info().
		Int("per_minute", cfg.RateLimit.RequestsPerMinute).
		Int("per_hour", cfg.RateLimit.RequestsPerHour).
		Int("per_day", cfg.RateLimit.RequestsPerDay).
		Bool("enabled", cfg.RateLimit.Enabled).
		Msg("rate limiter initialized")

	var cleanupJob scheduler.CleanupFunc
	if a.Cleanup != nil {
		cleanupJob = a.Cleanup.Run
	}
	sched := scheduler.NewScheduler(cfg, func(ctx context.Context) error {
		_, err := a.Service.Refresh(ctx)
		return err
	}, cleanupJob, logger)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	deps := handlers.Deps{
		Service:      a.Service,
		Auth:         authenticator,
		Limiter:      rateLimiter,
		Scheduler:    sched,
		AllowOrigins: cfg.Server.AllowOrigins,
		LogRequests:  cfg.Logging.LogRequests,
		Logger:       logger,
	}
	// Optional backends stay nil interfaces when absent
	if a.Search != nil {
		deps.Search = a.Search
	}
	if a.Snapshot != nil {
		deps.Changes = a.Snapshot
	}
	if a.Cleanup != nil {
		deps.Cleanup = a.Cleanup
	}
	if a.Gorm != nil {
		deps.Deletions = a.Gorm
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go pruneLogins(ctx, authenticator.Throttle(), cfg.Auth.Lockout())

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// pruneLogins drops idle login throttle entries until ctx is done.
func pruneLogins(ctx context.Context, t *ratelimit.LoginThrottle, idle time.Duration) {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Prune(idle)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
