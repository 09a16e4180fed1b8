// Package app wires configuration into the clients, cache, store and
// analyzer shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/analysis/fusion"
	"github.com/Alias1177/NovaAnalyst/internal/api/coingecko"
	"github.com/Alias1177/NovaAnalyst/internal/api/dexscreener"
	"github.com/Alias1177/NovaAnalyst/internal/api/openai"
	"github.com/Alias1177/NovaAnalyst/internal/cache"
	"github.com/Alias1177/NovaAnalyst/internal/config"
	"github.com/Alias1177/NovaAnalyst/internal/database"
	"github.com/Alias1177/NovaAnalyst/internal/metrics"
)

// App holds the long-lived components built from a Config
type App struct {
	Config   *config.Config
	Analyzer *fusion.Analyzer
	// AI is nil when no usable OpenAI key is configured
	AI       *openai.Client
	Store    database.Store
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	cache cache.Cache
}

// Options selects optional components
type Options struct {
	// WithStore opens the watchlist store (Postgres when configured, memory otherwise)
	WithStore bool
}

// New builds the application. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	a := &App{Config: cfg, Metrics: m, Registry: reg}

	c, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cache = c

	gecko := coingecko.NewClient(coingecko.ClientOptions{
		BaseURL:         cfg.CoinGeckoBaseURL,
		APIKey:          cfg.CoinGeckoAPIKey,
		RequestTimeout:  cfg.RequestTimeoutDuration(),
		RequestsPerMin:  cfg.CoinGeckoRequestsPerMin,
		MaxRetryTimeout: cfg.MaxRetryDuration(),
		Metrics:         m,
	})
	dex := dexscreener.NewClient(dexscreener.ClientOptions{
		BaseURL:         cfg.DexScreenerBaseURL,
		RequestTimeout:  cfg.RequestTimeoutDuration(),
		RequestsPerMin:  cfg.DexScreenerRequestsPerMin,
		MaxRetryTimeout: cfg.MaxRetryDuration(),
		Metrics:         m,
	})

	a.Analyzer, err = fusion.NewAnalyzer(fusion.Dependencies{
		Tokens:  gecko,
		Dex:     dex,
		Market:  gecko,
		Quotes:  gecko,
		Cache:   c,
		Metrics: m,
	}, fusion.Config{
		ChartSamples: cfg.ChartSamples,
		ReportTTL:    cfg.CacheTTLDuration(),
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if openai.Available(cfg.OpenAIAPIKey) {
		a.AI = openai.NewClient(openai.ClientOptions{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
	} else {
		log.Warn().Msg("OpenAI key missing or invalid, AI insights use the data-only fallback")
	}

	if opts.WithStore {
		a.Store, err = newStore(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.CacheBackend != config.CacheRedis {
		return cache.NewMemory(time.Minute), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r, err := cache.NewRedis(connectCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis cache")
	return r, nil
}

func newStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if !cfg.DatabaseConfigured() {
		log.Warn().Msg("Postgres not configured, watchlists are kept in memory")
		return database.NewMemory(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.New(connectCtx, database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Close releases the cache and store
func (a *App) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
