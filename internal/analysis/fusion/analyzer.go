package fusion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/anomaly"
	"github.com/Alias1177/NovaAnalyst/internal/cache"
	"github.com/Alias1177/NovaAnalyst/internal/calculate"
	"github.com/Alias1177/NovaAnalyst/internal/metrics"
	"github.com/Alias1177/NovaAnalyst/internal/report"
	"github.com/Alias1177/NovaAnalyst/models"
)

// Config tunes the analyzer
type Config struct {
	// ChartSamples is how many daily prices to request for indicators
	ChartSamples int
	// ReportTTL is how long a finished report is served from cache
	ReportTTL time.Duration
}

// Dependencies are the collaborators an Analyzer works with.
// Market, Quotes, Cache and Metrics are optional.
type Dependencies struct {
	Tokens  models.TokenSource
	Dex     models.DexSource
	Market  models.MarketSource
	Quotes  models.QuoteSource
	Cache   cache.Cache
	Metrics *metrics.Metrics
}

// Analyzer merges CoinGecko metadata, DexScreener pairs and computed
// indicators into analysis reports
type Analyzer struct {
	tokens  models.TokenSource
	dex     models.DexSource
	market  models.MarketSource
	quotes  models.QuoteSource
	cache   cache.Cache
	metrics *metrics.Metrics
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
}

// fetchResult carries the outcome of one upstream call
type fetchResult[T any] struct {
	Value T
	Err   error
}

// NewAnalyzer creates an Analyzer. Tokens and Dex are required.
func NewAnalyzer(deps Dependencies, cfg Config) (*Analyzer, error) {
	if deps.Tokens == nil || deps.Dex == nil {
		return nil, errors.New("fusion: token and dex sources are required")
	}
	if cfg.ChartSamples <= 0 {
		cfg.ChartSamples = models.LongestWindow
	}
	if cfg.ReportTTL <= 0 {
		cfg.ReportTTL = cache.DefaultTTL
	}

	return &Analyzer{
		tokens:  deps.Tokens,
		dex:     deps.Dex,
		market:  deps.Market,
		quotes:  deps.Quotes,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		cfg:     cfg,
		logger:  log.With().Str("component", "fusion_analyzer").Logger(),
		now:     time.Now,
	}, nil
}

// AnalyzeToken resolves query against CoinGecko and DexScreener, computes
// indicators from the daily price history and assembles a report.
// When no upstream yields data it returns a *models.NoDataError.
func (a *Analyzer) AnalyzeToken(ctx context.Context, query string) (*models.AnalysisReport, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &models.NoDataError{Query: query, Causes: []error{errors.New("empty query")}}
	}

	started := a.now()
	reportKey := cache.Key("report", query)

	var cached models.AnalysisReport
	if a.lookup(ctx, reportKey, &cached) {
		return &cached, nil
	}

	rep, err := a.analyze(ctx, query)
	if err != nil {
		a.logger.Warn().Err(err).Str("query", query).Msg("Analysis failed")
		return nil, err
	}

	a.metrics.ObserveAnalysis(string(rep.DataSource), started, degradedOf(rep))
	a.store(ctx, reportKey, rep, a.cfg.ReportTTL)

	a.logger.Info().
		Str("query", query).
		Str("data_source", string(rep.DataSource)).
		Str("sentiment", rep.Sentiment.Label).
		Dur("took", a.now().Sub(started)).
		Msg("Token analyzed")

	return rep, nil
}

func (a *Analyzer) analyze(ctx context.Context, query string) (*models.AnalysisReport, error) {
	if chain, pair, ok := parsePairRef(query); ok {
		return a.pairOnly(ctx, query, chain, pair)
	}

	results, err := cachedFetch(ctx, a, cache.Key("search", query), cache.SearchTTL, func(ctx context.Context) ([]models.SearchResult, error) {
		return a.tokens.Search(ctx, query)
	})
	if err != nil {
		// CoinGecko is down or rejecting us, DexScreener alone is the fallback
		a.logger.Warn().Err(err).Str("query", query).Msg("CoinGecko search failed, falling back to DexScreener")
		return a.dexOnly(ctx, query, models.SourceDexScreenerFallback, err, nil)
	}
	if len(results) == 0 {
		a.logger.Debug().Str("query", query).Msg("No CoinGecko match, searching DexScreener")
		notFound := &models.UpstreamError{Source: "coingecko", Op: "search", Err: models.ErrNotFound}
		return a.dexOnly(ctx, query, models.SourceDexScreenerOnly, notFound, nil)
	}

	id := results[0].ID
	var (
		wg    sync.WaitGroup
		coin  fetchResult[*models.TokenMetadata]
		dex   fetchResult[*models.DexMetadata]
		chart fetchResult[models.PriceSeries]
	)

	// Coin detail then DEX pairs, since the pair lookup needs the contract address
	wg.Add(1)
	go func() {
		defer wg.Done()
		coin.Value, coin.Err = cachedFetch(ctx, a, cache.Key("coin", id), cache.TokenTTL, func(ctx context.Context) (*models.TokenMetadata, error) {
			return a.tokens.Coin(ctx, id)
		})
		if coin.Err != nil {
			return
		}
		dex.Value, dex.Err = a.dexForToken(ctx, coin.Value)
	}()

	// Price history
	wg.Add(1)
	go func() {
		defer wg.Done()
		days := models.ChartDaysFor(a.cfg.ChartSamples)
		chart.Value, chart.Err = cachedFetch(ctx, a, cache.Key("chart", id, fmt.Sprint(days)), cache.MarketTTL, func(ctx context.Context) (models.PriceSeries, error) {
			return a.tokens.MarketChart(ctx, id, days)
		})
	}()

	wg.Wait()

	if coin.Err != nil {
		a.logger.Warn().Err(coin.Err).Str("id", id).Msg("CoinGecko coin fetch failed, falling back to DexScreener")
		if chart.Err != nil {
			return a.dexOnly(ctx, query, models.SourceDexScreenerFallback, coin.Err, nil)
		}
		// the price history arrived on its own, keep it
		ind, warning := a.indicators(chart)
		var warnings []string
		if warning != "" {
			warnings = append(warnings, warning)
		}
		return a.dexOnly(ctx, query, models.SourceDexScreenerFallback, coin.Err, ind, warnings...)
	}

	var warnings []string
	if dex.Err != nil {
		a.logger.Debug().Err(dex.Err).Str("id", id).Msg("No DEX data for token")
		dex.Value = nil
		if !errors.Is(dex.Err, models.ErrNotFound) {
			warnings = append(warnings, fmt.Sprintf("dex data unavailable: %v", dex.Err))
		}
	}

	ind, warning := a.indicators(chart)
	if warning != "" {
		warnings = append(warnings, warning)
	}

	return report.Build(coin.Value, dex.Value, ind, report.Options{
		Query:       query,
		GeneratedAt: a.now().UTC(),
		Warnings:    warnings,
	}), nil
}

// dexForToken looks pairs up by contract address, then by symbol or name
func (a *Analyzer) dexForToken(ctx context.Context, token *models.TokenMetadata) (*models.DexMetadata, error) {
	var errs []error

	if addr := token.ContractAddress(); addr != "" {
		meta, err := cachedFetch(ctx, a, cache.Key("dex_token", addr), cache.MarketTTL, func(ctx context.Context) (*models.DexMetadata, error) {
			return a.dex.TokenPairs(ctx, addr)
		})
		if err == nil {
			return meta, nil
		}
		errs = append(errs, err)
	}

	term := token.Symbol
	if term == "" {
		term = token.Name
	}
	if term == "" {
		return nil, errors.Join(append(errs, models.ErrNotFound)...)
	}

	meta, err := a.searchDex(ctx, term)
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}
	return meta, nil
}

// dexOnly builds a report from DexScreener data plus any indicators already
// computed, or a NoDataError when DexScreener fails too
func (a *Analyzer) dexOnly(ctx context.Context, query string, source models.DataSource, cause error, ind *models.IndicatorSet, warnings ...string) (*models.AnalysisReport, error) {
	meta, err := a.searchDex(ctx, query)
	if err != nil {
		return nil, &models.NoDataError{Query: query, Causes: []error{cause, err}}
	}

	return report.Build(nil, meta, ind, report.Options{
		Query:       query,
		Source:      source,
		GeneratedAt: a.now().UTC(),
		Warnings:    warnings,
	}), nil
}

// pairOnly reports on a single DEX pair named by chain and pair address
func (a *Analyzer) pairOnly(ctx context.Context, query, chain, pair string) (*models.AnalysisReport, error) {
	meta, err := cachedFetch(ctx, a, cache.Key("dex_pair", chain, pair), cache.MarketTTL, func(ctx context.Context) (*models.DexMetadata, error) {
		return a.dex.PairsByChain(ctx, chain, pair)
	})
	if err != nil {
		return nil, &models.NoDataError{Query: query, Causes: []error{err}}
	}

	return report.Build(nil, meta, nil, report.Options{
		Query:       query,
		Source:      models.SourceDexScreenerOnly,
		GeneratedAt: a.now().UTC(),
	}), nil
}

func (a *Analyzer) searchDex(ctx context.Context, term string) (*models.DexMetadata, error) {
	return cachedFetch(ctx, a, cache.Key("dex_search", term), cache.MarketTTL, func(ctx context.Context) (*models.DexMetadata, error) {
		return a.dex.Search(ctx, term)
	})
}

// indicators computes the indicator set, or explains why there is none
func (a *Analyzer) indicators(chart fetchResult[models.PriceSeries]) (*models.IndicatorSet, string) {
	if chart.Err != nil {
		return nil, fmt.Sprintf("price history unavailable: %v", chart.Err)
	}
	if len(chart.Value) == 0 {
		return nil, "price history unavailable: no data points"
	}

	ind, err := calculate.ComputeIndicators(chart.Value)
	if err != nil {
		a.logger.Warn().Err(err).Int("samples", len(chart.Value)).Msg("Indicators not computed")
		return nil, fmt.Sprintf("indicators unavailable: %v", err)
	}

	if d := anomaly.Detect(chart.Value); d.IsAnomaly {
		a.logger.Info().Str("type", d.Type).Float64("score", d.Score).Msg("Price anomaly detected")
		return ind, fmt.Sprintf("price anomaly: %s", d.Details)
	}
	return ind, ""
}

// MarketOverview returns the global market snapshot
func (a *Analyzer) MarketOverview(ctx context.Context) (*models.MarketOverview, error) {
	if a.market == nil {
		return nil, errors.New("market overview source not configured")
	}
	return cachedFetch(ctx, a, cache.Key("global"), cache.MarketTTL, a.market.Global)
}

// Trending returns the currently trending coins
func (a *Analyzer) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	if a.market == nil {
		return nil, errors.New("market overview source not configured")
	}
	return cachedFetch(ctx, a, cache.Key("trending"), cache.MarketTTL, a.market.Trending)
}

// maxQuoteIDs is how many coin ids go into one markets request
const maxQuoteIDs = 25

// Quotes returns current quotes for ids, batching maxQuoteIDs per request.
// Duplicate and blank ids are skipped. A failed batch fails the call.
func (a *Analyzer) Quotes(ctx context.Context, ids []string) ([]models.MarketQuote, error) {
	if a.quotes == nil {
		return nil, errors.New("quote source not configured")
	}

	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	var quotes []models.MarketQuote
	for start := 0; start < len(unique); start += maxQuoteIDs {
		end := min(start+maxQuoteIDs, len(unique))
		batch, err := a.quotes.Markets(ctx, unique[start:end])
		if err != nil {
			return nil, fmt.Errorf("quotes %d-%d: %w", start, end, err)
		}
		quotes = append(quotes, batch...)
	}
	return quotes, nil
}

// Health checks both upstreams concurrently
func (a *Analyzer) Health(ctx context.Context) models.APIHealth {
	var (
		wg     sync.WaitGroup
		health models.APIHealth
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		health.CoinGecko = a.check(ctx, a.tokens)
	}()
	go func() {
		defer wg.Done()
		health.DexScreener = a.check(ctx, a.dex)
	}()
	wg.Wait()

	health.CheckedAt = a.now().UTC()
	return health
}

func (a *Analyzer) check(ctx context.Context, source interface{}) models.UpstreamHealth {
	pinger, ok := source.(models.Pinger)
	if !ok {
		return models.UpstreamHealth{Status: models.StatusOffline, Error: "no health check"}
	}

	started := time.Now()
	err := pinger.Ping(ctx)
	result := models.UpstreamHealth{
		Status:       models.StatusOnline,
		ResponseTime: time.Since(started),
	}
	if err != nil {
		result.Status = models.StatusOffline
		result.Error = err.Error()
	}
	return result
}

// cachedFetch serves key from the cache, or calls fetch and caches its result
func cachedFetch[T any](ctx context.Context, a *Analyzer, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var value T
	if a.lookup(ctx, key, &value) {
		return value, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	a.store(ctx, key, value, ttl)
	return value, nil
}

func (a *Analyzer) lookup(ctx context.Context, key string, dest interface{}) bool {
	if a.cache == nil {
		return false
	}
	found, err := a.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		a.metrics.ObserveCache("error")
		a.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	case found:
		a.metrics.ObserveCache("hit")
		return true
	default:
		a.metrics.ObserveCache("miss")
		return false
	}
}

func (a *Analyzer) store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, value, ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

func degradedOf(rep *models.AnalysisReport) []string {
	if rep.Indicators == nil {
		return nil
	}
	return rep.Indicators.Degraded
}
