package coingecko

import (
	"strings"

	"github.com/Alias1177/NovaAnalyst/models"
)

// Raw CoinGecko payloads. Nullable numbers decode to zero.

type searchResponse struct {
	Coins []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		MarketCapRank int    `json:"market_cap_rank"`
		Thumb         string `json:"thumb"`
	} `json:"coins"`
}

type coinResponse struct {
	ID                           string            `json:"id"`
	Symbol                       string            `json:"symbol"`
	Name                         string            `json:"name"`
	MarketCapRank                int               `json:"market_cap_rank"`
	Categories                   []string          `json:"categories"`
	Platforms                    map[string]string `json:"platforms"`
	SentimentVotesUpPercentage   float64           `json:"sentiment_votes_up_percentage"`
	SentimentVotesDownPercentage float64           `json:"sentiment_votes_down_percentage"`
	LastUpdated                  string            `json:"last_updated"`

	Description struct {
		En string `json:"en"`
	} `json:"description"`

	MarketData *struct {
		CurrentPrice                 map[string]float64 `json:"current_price"`
		MarketCap                    map[string]float64 `json:"market_cap"`
		TotalVolume                  map[string]float64 `json:"total_volume"`
		High24h                      map[string]float64 `json:"high_24h"`
		Low24h                       map[string]float64 `json:"low_24h"`
		PriceChange24h               float64            `json:"price_change_24h"`
		PriceChangePercentage24h     float64            `json:"price_change_percentage_24h"`
		PriceChangePercentage7d      float64            `json:"price_change_percentage_7d"`
		PriceChangePercentage30d     float64            `json:"price_change_percentage_30d"`
		MarketCapChange24h           float64            `json:"market_cap_change_24h"`
		MarketCapChangePercentage24h float64            `json:"market_cap_change_percentage_24h"`
		CirculatingSupply            float64            `json:"circulating_supply"`
		TotalSupply                  float64            `json:"total_supply"`
		MaxSupply                    float64            `json:"max_supply"`
		ATH                          map[string]float64 `json:"ath"`
		ATHChangePercentage          map[string]float64 `json:"ath_change_percentage"`
		ATHDate                      map[string]string  `json:"ath_date"`
		ATL                          map[string]float64 `json:"atl"`
		ATLChangePercentage          map[string]float64 `json:"atl_change_percentage"`
		ATLDate                      map[string]string  `json:"atl_date"`
	} `json:"market_data"`

	DeveloperData struct {
		Forks                   int `json:"forks"`
		Stars                   int `json:"stars"`
		Subscribers             int `json:"subscribers"`
		TotalIssues             int `json:"total_issues"`
		ClosedIssues            int `json:"closed_issues"`
		PullRequestsMerged      int `json:"pull_requests_merged"`
		PullRequestContributors int `json:"pull_request_contributors"`
		CommitCount4Weeks       int `json:"commit_count_4_weeks"`
	} `json:"developer_data"`

	CommunityData struct {
		TwitterFollowers         int     `json:"twitter_followers"`
		RedditSubscribers        int     `json:"reddit_subscribers"`
		RedditAveragePosts48h    float64 `json:"reddit_average_posts_48h"`
		RedditAverageComments48h float64 `json:"reddit_average_comments_48h"`
		TelegramChannelUserCount int     `json:"telegram_channel_user_count"`
	} `json:"community_data"`

	Links struct {
		Homepage                  []string `json:"homepage"`
		BlockchainSite            []string `json:"blockchain_site"`
		OfficialForumURL          []string `json:"official_forum_url"`
		ChatURL                   []string `json:"chat_url"`
		AnnouncementURL           []string `json:"announcement_url"`
		TwitterScreenName         string   `json:"twitter_screen_name"`
		TelegramChannelIdentifier string   `json:"telegram_channel_identifier"`
		SubredditURL              string   `json:"subreddit_url"`
		ReposURL                  struct {
			Github []string `json:"github"`
		} `json:"repos_url"`
	} `json:"links"`
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

type globalResponse struct {
	Data struct {
		ActiveCryptocurrencies          int                `json:"active_cryptocurrencies"`
		Markets                         int                `json:"markets"`
		TotalMarketCap                  map[string]float64 `json:"total_market_cap"`
		TotalVolume                     map[string]float64 `json:"total_volume"`
		MarketCapPercentage             map[string]float64 `json:"market_cap_percentage"`
		MarketCapChangePercentage24hUSD float64            `json:"market_cap_change_percentage_24h_usd"`
		UpdatedAt                       int64              `json:"updated_at"`
	} `json:"data"`
}

type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string  `json:"id"`
			Name          string  `json:"name"`
			Symbol        string  `json:"symbol"`
			MarketCapRank int     `json:"market_cap_rank"`
			PriceBTC      float64 `json:"price_btc"`
			Score         int     `json:"score"`
		} `json:"item"`
	} `json:"coins"`
}

// toTokenMetadata normalizes a coin payload; USD is the quote currency
func (c *coinResponse) toTokenMetadata() *models.TokenMetadata {
	t := &models.TokenMetadata{
		ID:                           c.ID,
		Name:                         c.Name,
		Symbol:                       strings.ToUpper(c.Symbol),
		MarketCapRank:                c.MarketCapRank,
		SentimentVotesUpPercentage:   c.SentimentVotesUpPercentage,
		SentimentVotesDownPercentage: c.SentimentVotesDownPercentage,
		Description:                  c.Description.En,
		Categories:                   nonEmpty(c.Categories, 0),
		Platforms:                    map[string]string{},
		LastUpdated:                  c.LastUpdated,
		Developer: models.DeveloperStats{
			Forks:                   c.DeveloperData.Forks,
			Stars:                   c.DeveloperData.Stars,
			Subscribers:             c.DeveloperData.Subscribers,
			TotalIssues:             c.DeveloperData.TotalIssues,
			ClosedIssues:            c.DeveloperData.ClosedIssues,
			PullRequestsMerged:      c.DeveloperData.PullRequestsMerged,
			PullRequestContributors: c.DeveloperData.PullRequestContributors,
			CommitCount4Weeks:       c.DeveloperData.CommitCount4Weeks,
		},
		Community: models.CommunityStats{
			TwitterFollowers:         c.CommunityData.TwitterFollowers,
			RedditSubscribers:        c.CommunityData.RedditSubscribers,
			RedditAveragePosts48h:    c.CommunityData.RedditAveragePosts48h,
			RedditAverageComments48h: c.CommunityData.RedditAverageComments48h,
			TelegramChannelUserCount: c.CommunityData.TelegramChannelUserCount,
		},
		Links: models.TokenLinks{
			BlockchainSites:    nonEmpty(c.Links.BlockchainSite, 3),
			OfficialForumURLs:  nonEmpty(c.Links.OfficialForumURL, 1),
			ChatURLs:           nonEmpty(c.Links.ChatURL, 1),
			AnnouncementURLs:   nonEmpty(c.Links.AnnouncementURL, 1),
			TwitterScreenName:  c.Links.TwitterScreenName,
			TelegramChannel:    c.Links.TelegramChannelIdentifier,
			SubredditURL:       c.Links.SubredditURL,
			GithubRepositories: nonEmpty(c.Links.ReposURL.Github, 3),
		},
	}

	if home := nonEmpty(c.Links.Homepage, 1); len(home) > 0 {
		t.Links.Homepage = home[0]
	}

	for chain, addr := range c.Platforms {
		if chain != "" && addr != "" {
			t.Platforms[chain] = addr
		}
	}

	if md := c.MarketData; md != nil {
		t.CurrentPrice = md.CurrentPrice[vsCurrency]
		t.MarketCap = md.MarketCap[vsCurrency]
		t.TotalVolume = md.TotalVolume[vsCurrency]
		t.High24h = md.High24h[vsCurrency]
		t.Low24h = md.Low24h[vsCurrency]
		t.PriceChange24h = md.PriceChange24h
		t.PriceChangePercentage24h = md.PriceChangePercentage24h
		t.PriceChangePercentage7d = md.PriceChangePercentage7d
		t.PriceChangePercentage30d = md.PriceChangePercentage30d
		t.MarketCapChange24h = md.MarketCapChange24h
		t.MarketCapChangePercentage24h = md.MarketCapChangePercentage24h
		t.CirculatingSupply = md.CirculatingSupply
		t.TotalSupply = md.TotalSupply
		t.MaxSupply = md.MaxSupply
		t.ATH = md.ATH[vsCurrency]
		t.ATHChangePercentage = md.ATHChangePercentage[vsCurrency]
		t.ATHDate = md.ATHDate[vsCurrency]
		t.ATL = md.ATL[vsCurrency]
		t.ATLChangePercentage = md.ATLChangePercentage[vsCurrency]
		t.ATLDate = md.ATLDate[vsCurrency]
	}

	return t
}

// nonEmpty drops blank entries and keeps at most limit of them (0 = no limit)
func nonEmpty(values []string, limit int) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
