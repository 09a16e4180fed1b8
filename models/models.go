package models

import (
	"time"
)

// PricePoint is one observation of a token price in USD
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is a chronologically ordered list of price points (oldest first)
type PriceSeries []PricePoint

// Prices returns a copy of the price values in series order
func (s PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s))
	for i, p := range s {
		prices[i] = p.Price
	}
	return prices
}

// Last returns the most recent price, or 0 for an empty series
func (s PriceSeries) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Price
}

// Trend is the price/moving-average classification
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Signal is an overbought/oversold reading
type Signal string

const (
	SignalOverbought Signal = "overbought"
	SignalOversold   Signal = "oversold"
	SignalNeutral    Signal = "neutral"
)

// DataSource describes which upstreams contributed to a report
type DataSource string

const (
	SourceCombined            DataSource = "combined"
	SourceCoinGeckoOnly       DataSource = "coingecko_only"
	SourceDexScreenerOnly     DataSource = "dexscreener_only"
	SourceDexScreenerFallback DataSource = "dexscreener_fallback"
	SourceInsufficientData    DataSource = "insufficient_data"
)

// Level strengths
const (
	StrengthMedium = "medium"
	StrengthWeak   = "weak"
)

// Level is a support or resistance price found in the series
type Level struct {
	Price              float64 `json:"price"`
	Strength           string  `json:"strength"`
	PercentFromCurrent float64 `json:"percent_from_current"`
}

// MACD holds the moving average convergence/divergence readings
type MACD struct {
	Line              float64 `json:"line"`
	Signal            float64 `json:"signal"`
	Histogram         float64 `json:"histogram"`
	PreviousHistogram float64 `json:"previous_histogram"`
}

// BollingerBands holds band values; Width is (upper-lower)/middle
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// Volatility is the standard deviation of log returns, raw fractions
type Volatility struct {
	Daily      float64 `json:"daily"`
	Annualized float64 `json:"annualized"`
}

// IndicatorSet holds every indicator computed from one price series
type IndicatorSet struct {
	CurrentPrice float64 `json:"current_price"`
	SampleCount  int     `json:"sample_count"`

	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA200 float64 `json:"sma200"`

	// Percent distance of the current price from each SMA; 0 when the SMA is unavailable
	SMA20VsPrice  float64 `json:"sma20_vs_price"`
	SMA50VsPrice  float64 `json:"sma50_vs_price"`
	SMA200VsPrice float64 `json:"sma200_vs_price"`

	RSI14     float64 `json:"rsi14"`
	RSISignal Signal  `json:"rsi_signal"`

	MACD      MACD  `json:"macd"`
	MACDTrend Trend `json:"macd_trend"`

	Bollinger       BollingerBands `json:"bollinger"`
	BollingerSignal Signal         `json:"bollinger_signal"`

	Volatility Volatility `json:"volatility"`
	Trend      Trend      `json:"trend"`

	Support    []Level `json:"support"`
	Resistance []Level `json:"resistance"`

	// Degraded lists indicators that fell back to their insufficient-data default
	Degraded []string `json:"degraded,omitempty"`
}

// IsDegraded reports whether the named indicator used its fallback value
func (s *IndicatorSet) IsDegraded(name string) bool {
	for _, d := range s.Degraded {
		if d == name {
			return true
		}
	}
	return false
}

// Indicator names used in IndicatorSet.Degraded
const (
	IndicatorSMA20      = "sma20"
	IndicatorSMA50      = "sma50"
	IndicatorSMA200     = "sma200"
	IndicatorRSI        = "rsi14"
	IndicatorMACD       = "macd"
	IndicatorBollinger  = "bollinger"
	IndicatorVolatility = "volatility"
	IndicatorLevels     = "support_resistance"
	IndicatorTrend      = "trend"
)

// DeveloperStats are repository activity figures reported by CoinGecko
type DeveloperStats struct {
	Forks                   int `json:"forks"`
	Stars                   int `json:"stars"`
	Subscribers             int `json:"subscribers"`
	TotalIssues             int `json:"total_issues"`
	ClosedIssues            int `json:"closed_issues"`
	PullRequestsMerged      int `json:"pull_requests_merged"`
	PullRequestContributors int `json:"pull_request_contributors"`
	CommitCount4Weeks       int `json:"commit_count_4_weeks"`
}

// CommunityStats are social figures reported by CoinGecko
type CommunityStats struct {
	TwitterFollowers         int     `json:"twitter_followers"`
	RedditSubscribers        int     `json:"reddit_subscribers"`
	RedditAveragePosts48h    float64 `json:"reddit_average_posts_48h"`
	RedditAverageComments48h float64 `json:"reddit_average_comments_48h"`
	TelegramChannelUserCount int     `json:"telegram_channel_user_count"`
}

// TokenLinks are the project's public links
type TokenLinks struct {
	Homepage           string   `json:"homepage,omitempty"`
	BlockchainSites    []string `json:"blockchain_sites,omitempty"`
	OfficialForumURLs  []string `json:"official_forum_urls,omitempty"`
	ChatURLs           []string `json:"chat_urls,omitempty"`
	AnnouncementURLs   []string `json:"announcement_urls,omitempty"`
	TwitterScreenName  string   `json:"twitter_screen_name,omitempty"`
	TelegramChannel    string   `json:"telegram_channel,omitempty"`
	SubredditURL       string   `json:"subreddit_url,omitempty"`
	GithubRepositories []string `json:"github_repositories,omitempty"`
}

// TokenMetadata is the normalized CoinGecko view of a token
type TokenMetadata struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank,omitempty"`

	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	TotalVolume  float64 `json:"total_volume"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`

	PriceChange24h               float64 `json:"price_change_24h"`
	PriceChangePercentage24h     float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage7d      float64 `json:"price_change_percentage_7d"`
	PriceChangePercentage30d     float64 `json:"price_change_percentage_30d"`
	MarketCapChange24h           float64 `json:"market_cap_change_24h"`
	MarketCapChangePercentage24h float64 `json:"market_cap_change_percentage_24h"`
	CirculatingSupply            float64 `json:"circulating_supply"`
	TotalSupply                  float64 `json:"total_supply"`
	MaxSupply                    float64 `json:"max_supply"`
	ATH                          float64 `json:"ath"`
	ATHChangePercentage          float64 `json:"ath_change_percentage"`
	ATHDate                      string  `json:"ath_date,omitempty"`
	ATL                          float64 `json:"atl"`
	ATLChangePercentage          float64 `json:"atl_change_percentage"`
	ATLDate                      string  `json:"atl_date,omitempty"`
	SentimentVotesUpPercentage   float64 `json:"sentiment_votes_up_percentage"`
	SentimentVotesDownPercentage float64 `json:"sentiment_votes_down_percentage"`

	Description string   `json:"description,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	// Platforms maps chain name to contract address
	Platforms map[string]string `json:"platforms,omitempty"`

	Developer   DeveloperStats `json:"developer"`
	Community   CommunityStats `json:"community"`
	Links       TokenLinks     `json:"links"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// ContractAddress returns the first non-empty platform contract address
// in deterministic (sorted chain name) order
func (t *TokenMetadata) ContractAddress() string {
	if t == nil || len(t.Platforms) == 0 {
		return ""
	}
	best := ""
	bestChain := ""
	for chain, addr := range t.Platforms {
		if addr == "" {
			continue
		}
		if best == "" || chain < bestChain {
			best, bestChain = addr, chain
		}
	}
	return best
}

// SearchResult is one coin hit from a CoinGecko search
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank int    `json:"market_cap_rank"`
	Thumb         string `json:"thumb,omitempty"`
}

// DexToken identifies one side of a DEX pair
type DexToken struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// DexLiquidity is pair liquidity in USD and in each token
type DexLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// DexWindows holds a value for each DexScreener reporting window
type DexWindows struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

// DexTxnCount is the buy/sell count inside one window
type DexTxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// DexTxns holds transaction counts per reporting window
type DexTxns struct {
	H24 DexTxnCount `json:"h24"`
	H6  DexTxnCount `json:"h6"`
	H1  DexTxnCount `json:"h1"`
	M5  DexTxnCount `json:"m5"`
}

// DexPair is one trading pair reported by DexScreener
type DexPair struct {
	PairAddress string       `json:"pair_address"`
	BaseToken   DexToken     `json:"base_token"`
	QuoteToken  DexToken     `json:"quote_token"`
	DexID       string       `json:"dex_id"`
	ChainID     string       `json:"chain_id"`
	URL         string       `json:"url,omitempty"`
	PriceUSD    float64      `json:"price_usd"`
	PriceNative float64      `json:"price_native"`
	Liquidity   DexLiquidity `json:"liquidity"`
	Volume      DexWindows   `json:"volume"`
	PriceChange DexWindows   `json:"price_change"`
	Txns        DexTxns      `json:"txns"`
	FDV         float64      `json:"fdv"`
	MarketCap   float64      `json:"market_cap"`
}

// DexMetadata is the normalized DexScreener view of a token's pairs
type DexMetadata struct {
	SchemaVersion     string    `json:"schema_version,omitempty"`
	Pairs             []DexPair `json:"pairs"`
	PairsCount        int       `json:"pairs_count"`
	MostLiquidPair    *DexPair  `json:"most_liquid_pair,omitempty"`
	HighestVolumePair *DexPair  `json:"highest_volume_pair,omitempty"`
}

// Sentiment is the integer factor score and its label
type Sentiment struct {
	Score   int      `json:"score"`
	Label   string   `json:"label"`
	Bullish int      `json:"bullish_factors"`
	Bearish int      `json:"bearish_factors"`
	Factors []string `json:"factors,omitempty"`
}

// FormattedLevel is a support/resistance level rendered for display
type FormattedLevel struct {
	Price              string `json:"price"`
	Strength           string `json:"strength"`
	PercentFromCurrent string `json:"percent_from_current"`
}

// FormattedIndicators holds display strings: prices with 6 decimals, percents with 2
type FormattedIndicators struct {
	CurrentPrice string `json:"current_price"`

	SMA20         string `json:"sma20"`
	SMA50         string `json:"sma50"`
	SMA200        string `json:"sma200"`
	SMA20VsPrice  string `json:"sma20_vs_price"`
	SMA50VsPrice  string `json:"sma50_vs_price"`
	SMA200VsPrice string `json:"sma200_vs_price"`

	RSI string `json:"rsi"`

	MACDLine      string `json:"macd_line"`
	MACDSignal    string `json:"macd_signal"`
	MACDHistogram string `json:"macd_histogram"`

	BollingerUpper  string `json:"bollinger_upper"`
	BollingerMiddle string `json:"bollinger_middle"`
	BollingerLower  string `json:"bollinger_lower"`
	BollingerWidth  string `json:"bollinger_width"`

	VolatilityDaily      string `json:"volatility_daily"`
	VolatilityAnnualized string `json:"volatility_annualized"`

	Support    []FormattedLevel `json:"support"`
	Resistance []FormattedLevel `json:"resistance"`
}

// AnalysisReport is the fused result returned to callers
type AnalysisReport struct {
	ID          string     `json:"id"`
	Query       string     `json:"query"`
	GeneratedAt time.Time  `json:"generated_at"`
	Valid       bool       `json:"valid"`
	DataSource  DataSource `json:"data_source"`

	Token      *TokenMetadata       `json:"token,omitempty"`
	Dex        *DexMetadata         `json:"dex,omitempty"`
	Indicators *IndicatorSet        `json:"indicators,omitempty"`
	Formatted  *FormattedIndicators `json:"formatted,omitempty"`
	Sentiment  Sentiment            `json:"sentiment"`

	Warnings []string `json:"warnings,omitempty"`
}

// MarketOverview is the global market snapshot
type MarketOverview struct {
	TotalMarketCap               float64            `json:"total_market_cap"`
	TotalVolume24h               float64            `json:"total_volume_24h"`
	BTCDominance                 float64            `json:"btc_dominance"`
	ETHDominance                 float64            `json:"eth_dominance"`
	MarketCapChange24hPercentage float64            `json:"market_cap_change_24h_percentage"`
	ActiveCoins                  int                `json:"active_coins"`
	ActivePairs                  int                `json:"active_pairs"`
	MarketCapPercentage          map[string]float64 `json:"market_cap_percentage,omitempty"`
	UpdatedAt                    time.Time          `json:"updated_at"`
}

// TrendingCoin is one entry of the trending search list
type TrendingCoin struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	MarketCapRank int     `json:"market_cap_rank"`
	PriceBTC      float64 `json:"price_btc"`
	Score         int     `json:"score"`
}

// MarketQuote is one row of a batch markets request
type MarketQuote struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	MarketCapRank            int     `json:"market_cap_rank"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
}

// Upstream status values
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// UpstreamHealth is the health check result for one upstream
type UpstreamHealth struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// APIHealth reports the state of every upstream
type APIHealth struct {
	CoinGecko   UpstreamHealth `json:"coingecko"`
	DexScreener UpstreamHealth `json:"dexscreener"`
	CheckedAt   time.Time      `json:"checked_at"`
}

// WatchlistEntry is a token a chat asked to follow
type WatchlistEntry struct {
	ChatID    int64     `json:"chat_id"`
	Query     string    `json:"query"`
	Persona   string    `json:"persona"`
	CreatedAt time.Time `json:"created_at"`
}
