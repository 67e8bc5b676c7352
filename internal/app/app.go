// Package app assembles the dashboard service and its optional backends from
// configuration. Both the API server and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Fn-M/HousingManager/internal/adsapi"
	"github.com/Fn-M/HousingManager/internal/cleanup"
	"github.com/Fn-M/HousingManager/internal/config"
	"github.com/Fn-M/HousingManager/internal/dashboard"
	"github.com/Fn-M/HousingManager/internal/database"
	"github.com/Fn-M/HousingManager/internal/search"
	"github.com/Fn-M/HousingManager/internal/snapshot"
	"github.com/rs/zerolog"
)

// App holds the wired components. Optional ones are nil when not configured.
type App struct {
	Config  *config.Config
	Client  *adsapi.Client
	Service *dashboard.Service

	Cache    database.ListingCache
	Gorm     *database.GormDB
	Search   *search.SearchClient
	Snapshot *snapshot.Service
	Cleanup  *cleanup.Service

	logger zerolog.Logger
}

// New connects everything cfg enables. A database that cannot be reached is
// fatal; an unreachable search engine is only logged and disabled.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, logger: logger}

	a.Client = adsapi.NewClient(adsapi.Config{
		BaseURL:          cfg.API.BaseURL,
		APIKey:           cfg.API.APIKey,
		Headers:          cfg.API.Headers,
		Timeout:          cfg.API.Timeout(),
		MaxRetries:       cfg.API.MaxRetries,
		RetryDelay:       cfg.API.RetryDelay(),
		BreakerThreshold: cfg.API.BreakerThreshold,
		BreakerReset:     cfg.API.BreakerReset(),
	}, logger)

	opts := dashboard.Options{}

	if conn := cfg.Database.Conn(); conn != nil {
		// Get port as string, handle 0 as the backend default
		port := conn.Port
		if port <= 0 {
			port = cfg.Database.DefaultPort()
		}
		cache, gdb, err := database.Open(database.Options{
			Type:     cfg.Database.Type,
			Host:     conn.Host,
			Port:     fmt.Sprintf("%d", port),
			User:     conn.User,
			Password: conn.Password,
			Name:     conn.Database,
			LogLevel: cfg.Logging.Level,
		})
		if err != nil {
			return nil, err
		}
		a.Cache = cache
		opts.Cache = cache
		logger.Info().Str("type", cfg.Database.Type).Str("host", conn.Host).Msg("listing cache connected")

		if gdb != nil {
			a.Gorm = gdb
			a.Snapshot = snapshot.NewService(gdb.DB())
			a.Cleanup = cleanup.NewService(gdb.DB(), logger)
			opts.Changes = a.Snapshot
			opts.Deletions = gdb
		}
	}

	if ms := cfg.Search.Meilisearch; ms.Enabled && ms.Host != "" {
		sc := search.NewSearchClient(ms.Host, ms.APIKey, ms.Index)
		if !sc.Healthy() {
			logger.Warn().Str("host", ms.Host).Msg("meilisearch is not reachable, search disabled")
		} else if err := sc.InitIndex(); err != nil {
			logger.Warn().Err(err).Msg("failed to initialize search index, search disabled")
		} else {
			a.Search = sc
			opts.Index = sc
			logger.Info().Str("host", ms.Host).Str("index", ms.Index).Msg("search index ready")
		}
	}

	a.Service = dashboard.New(a.Client, opts, logger)
	return a, nil
}

// Start loads the listings once. When the API is unreachable the store is
// seeded from the cache instead and the error is only logged.
func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.API.Timeout()*time.Duration(a.Config.API.MaxRetries+1))
	defer cancel()

	if _, err := a.Service.Refresh(ctx); err != nil {
		n, werr := a.Service.Warm(context.Background())
		if werr != nil {
			a.logger.Error().Err(werr).Msg("failed to warm store from cache")
		}
		if n == 0 {
			return err
		}
		a.logger.Warn().Err(err).Int("cached", n).Msg("ads API unreachable, serving cached listings")
	}
	return nil
}

// Close releases database connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close listing cache")
		}
	}
}
