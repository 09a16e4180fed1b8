package models

import "context"

// TokenSource provides CoinGecko-style token metadata and history
type TokenSource interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
	Coin(ctx context.Context, id string) (*TokenMetadata, error)
	MarketChart(ctx context.Context, id string, days int) (PriceSeries, error)
}

// MarketSource provides global market data
type MarketSource interface {
	Global(ctx context.Context) (*MarketOverview, error)
	Trending(ctx context.Context) ([]TrendingCoin, error)
}

// QuoteSource provides current USD quotes for several coin ids at once
type QuoteSource interface {
	Markets(ctx context.Context, ids []string) ([]MarketQuote, error)
}

// DexSource provides DexScreener-style pair data
type DexSource interface {
	Search(ctx context.Context, query string) (*DexMetadata, error)
	TokenPairs(ctx context.Context, address string) (*DexMetadata, error)
	PairsByChain(ctx context.Context, chainID, pairAddress string) (*DexMetadata, error)
}

// Pinger is implemented by upstream clients that support a cheap liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}
