package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/metrics"
	httpClient "github.com/Alias1177/NovaAnalyst/internal/platform/http"
	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	// DefaultBaseURL is the public DexScreener API
	DefaultBaseURL = "https://api.dexscreener.com/latest"
	sourceName     = "dexscreener"
	// pingQuery is used by Ping since the API has no dedicated health endpoint
	pingQuery = "ethereum"
)

// Client is the DexScreener API client
type Client struct {
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new DexScreener client
type ClientOptions struct {
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerMin  int
	MaxRetryTimeout time.Duration
	Metrics         *metrics.Metrics
}

// NewClient creates a new DexScreener API client
func NewClient(options ClientOptions) *Client {
	baseURL := strings.TrimRight(options.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if options.RequestsPerMin == 0 {
		options.RequestsPerMin = 60
	}

	return &Client{
		baseURL: baseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Name:            sourceName,
			Timeout:         options.RequestTimeout,
			RequestsPerMin:  options.RequestsPerMin,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Metrics:         options.Metrics,
		}),
		logger: log.With().Str("component", "dexscreener_client").Logger(),
	}
}

// Search finds pairs matching a name, symbol or address
func (c *Client) Search(ctx context.Context, query string) (*models.DexMetadata, error) {
	endpoint := fmt.Sprintf("%s/dex/search?q=%s", c.baseURL, url.QueryEscape(query))
	c.logger.Debug().Str("query", query).Msg("Searching pairs")
	return c.fetch(ctx, "search", endpoint)
}

// TokenPairs returns every pair that trades the token at address
func (c *Client) TokenPairs(ctx context.Context, address string) (*models.DexMetadata, error) {
	endpoint := fmt.Sprintf("%s/dex/tokens/%s", c.baseURL, url.PathEscape(address))
	c.logger.Debug().Str("address", address).Msg("Fetching token pairs")
	return c.fetch(ctx, "token_pairs", endpoint)
}

// PairsByChain returns a single pair looked up by chain and pair address
func (c *Client) PairsByChain(ctx context.Context, chainID, pairAddress string) (*models.DexMetadata, error) {
	endpoint := fmt.Sprintf("%s/dex/pairs/%s/%s", c.baseURL, url.PathEscape(chainID), url.PathEscape(pairAddress))
	return c.fetch(ctx, "pairs", endpoint)
}

// Ping checks that the API is reachable
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, pingQuery)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) fetch(ctx context.Context, op, endpoint string) (*models.DexMetadata, error) {
	var data pairsResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		var decodeErr *httpClient.DecodeError
		if errors.As(err, &decodeErr) {
			err = fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
		}
		return nil, &models.UpstreamError{Source: sourceName, Op: op, Err: err}
	}

	meta, err := buildMetadata(&data)
	if err != nil {
		return nil, &models.UpstreamError{Source: sourceName, Op: op, Err: err}
	}

	c.logger.Debug().Str("op", op).Int("pairs", meta.PairsCount).Msg("Fetched pairs")
	return meta, nil
}
