package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/metrics"
	httpClient "github.com/Alias1177/NovaAnalyst/internal/platform/http"
	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	// DefaultBaseURL is the public CoinGecko API
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	sourceName     = "coingecko"
	vsCurrency     = "usd"
)

// Client is the CoinGecko API client
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new CoinGecko client
type ClientOptions struct {
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	RequestsPerMin  int
	MaxRetryTimeout time.Duration
	Metrics         *metrics.Metrics
}

// NewClient creates a new CoinGecko API client
func NewClient(options ClientOptions) *Client {
	baseURL := strings.TrimRight(options.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	headers := http.Header{}
	if options.APIKey != "" {
		// Pro and demo plans authenticate with different headers
		if strings.Contains(baseURL, "pro-api") {
			headers.Set("x-cg-pro-api-key", options.APIKey)
		} else {
			headers.Set("x-cg-demo-api-key", options.APIKey)
		}
	}

	return &Client{
		baseURL: baseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Name:            sourceName,
			Timeout:         options.RequestTimeout,
			RequestsPerMin:  options.RequestsPerMin,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Headers:         headers,
			Metrics:         options.Metrics,
		}),
		logger: log.With().Str("component", "coingecko_client").Logger(),
	}
}

// Search returns coins matching query, best match first
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?query=%s", c.baseURL, url.QueryEscape(query))
	c.logger.Debug().Str("query", query).Msg("Searching coins")

	var data searchResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return nil, upstreamError("search", err)
	}

	results := make([]models.SearchResult, 0, len(data.Coins))
	for _, coin := range data.Coins {
		if coin.ID == "" {
			continue
		}
		results = append(results, models.SearchResult{
			ID:            coin.ID,
			Name:          coin.Name,
			Symbol:        strings.ToUpper(coin.Symbol),
			MarketCapRank: coin.MarketCapRank,
			Thumb:         coin.Thumb,
		})
	}
	return results, nil
}

// Coin fetches full metadata for a coin id
func (c *Client) Coin(ctx context.Context, id string) (*models.TokenMetadata, error) {
	endpoint := fmt.Sprintf(
		"%s/coins/%s?localization=false&tickers=true&market_data=true&community_data=true&developer_data=true&sparkline=true",
		c.baseURL,
		url.PathEscape(id),
	)
	c.logger.Debug().Str("id", id).Msg("Fetching coin")

	var data coinResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return nil, upstreamError("coin", err)
	}
	if data.ID == "" {
		return nil, upstreamError("coin", fmt.Errorf("%w: missing id", models.ErrMalformedPayload))
	}

	return data.toTokenMetadata(), nil
}

// MarketChart fetches daily USD prices for the last days, oldest first
func (c *Client) MarketChart(ctx context.Context, id string, days int) (models.PriceSeries, error) {
	if days <= 0 {
		days = 30
	}
	endpoint := fmt.Sprintf(
		"%s/coins/%s/market_chart?vs_currency=%s&days=%d&interval=daily",
		c.baseURL,
		url.PathEscape(id),
		vsCurrency,
		days,
	)
	c.logger.Debug().Str("id", id).Int("days", days).Msg("Fetching market chart")

	var data marketChartResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return nil, upstreamError("market_chart", err)
	}

	series := make(models.PriceSeries, 0, len(data.Prices))
	for i, point := range data.Prices {
		if len(point) < 2 {
			return nil, upstreamError("market_chart", fmt.Errorf("%w: price point %d has %d fields", models.ErrMalformedPayload, i, len(point)))
		}
		series = append(series, models.PricePoint{
			Time:  time.UnixMilli(int64(point[0])).UTC(),
			Price: point[1],
		})
	}

	// Sort oldest first for proper calculations
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})

	c.logger.Debug().Int("count", len(series)).Msg("Fetched market chart")
	return series, nil
}

// Global fetches the global market overview
func (c *Client) Global(ctx context.Context) (*models.MarketOverview, error) {
	var data globalResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/global", &data); err != nil {
		return nil, upstreamError("global", err)
	}

	d := data.Data
	return &models.MarketOverview{
		TotalMarketCap:               d.TotalMarketCap[vsCurrency],
		TotalVolume24h:               d.TotalVolume[vsCurrency],
		BTCDominance:                 d.MarketCapPercentage["btc"],
		ETHDominance:                 d.MarketCapPercentage["eth"],
		MarketCapChange24hPercentage: d.MarketCapChangePercentage24hUSD,
		ActiveCoins:                  d.ActiveCryptocurrencies,
		ActivePairs:                  d.Markets,
		MarketCapPercentage:          d.MarketCapPercentage,
		UpdatedAt:                    time.Unix(d.UpdatedAt, 0).UTC(),
	}, nil
}

// Trending fetches the trending search list
func (c *Client) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	var data trendingResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/search/trending", &data); err != nil {
		return nil, upstreamError("trending", err)
	}

	coins := make([]models.TrendingCoin, 0, len(data.Coins))
	for _, entry := range data.Coins {
		coins = append(coins, models.TrendingCoin{
			ID:            entry.Item.ID,
			Name:          entry.Item.Name,
			Symbol:        strings.ToUpper(entry.Item.Symbol),
			MarketCapRank: entry.Item.MarketCapRank,
			PriceBTC:      entry.Item.PriceBTC,
			Score:         entry.Item.Score,
		})
	}
	return coins, nil
}

// Markets fetches USD quotes for several coin ids in one request
func (c *Client) Markets(ctx context.Context, ids []string) ([]models.MarketQuote, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	endpoint := fmt.Sprintf(
		"%s/coins/markets?vs_currency=%s&ids=%s&order=market_cap_desc&sparkline=false",
		c.baseURL,
		vsCurrency,
		url.QueryEscape(strings.Join(ids, ",")),
	)

	var quotes []models.MarketQuote
	if err := c.httpClient.GetJSON(ctx, endpoint, &quotes); err != nil {
		return nil, upstreamError("markets", err)
	}
	for i := range quotes {
		quotes[i].Symbol = strings.ToUpper(quotes[i].Symbol)
	}
	return quotes, nil
}

// Ping checks that the API is reachable
func (c *Client) Ping(ctx context.Context) error {
	var data map[string]interface{}
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/ping", &data); err != nil {
		return upstreamError("ping", err)
	}
	return nil
}

func upstreamError(op string, err error) error {
	var decodeErr *httpClient.DecodeError
	if errors.As(err, &decodeErr) {
		err = fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	return &models.UpstreamError{Source: sourceName, Op: op, Err: err}
}
