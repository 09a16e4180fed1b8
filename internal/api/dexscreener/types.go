package dexscreener

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Alias1177/NovaAnalyst/models"
)

type pairsResponse struct {
	SchemaVersion string    `json:"schemaVersion"`
	Pairs         []rawPair `json:"pairs"`
	// The pairs-by-chain endpoint also returns the single requested pair
	Pair *rawPair `json:"pair"`
}

type rawToken struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

type rawWindows struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

type rawTxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type rawPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   rawToken `json:"baseToken"`
	QuoteToken  rawToken `json:"quoteToken"`
	// Prices arrive as decimal strings
	PriceNative string `json:"priceNative"`
	PriceUSD    string `json:"priceUsd"`
	Txns        struct {
		H24 rawTxnCount `json:"h24"`
		H6  rawTxnCount `json:"h6"`
		H1  rawTxnCount `json:"h1"`
		M5  rawTxnCount `json:"m5"`
	} `json:"txns"`
	Volume      rawWindows `json:"volume"`
	PriceChange rawWindows `json:"priceChange"`
	Liquidity   *struct {
		USD   float64 `json:"usd"`
		Base  float64 `json:"base"`
		Quote float64 `json:"quote"`
	} `json:"liquidity"`
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
}

func (p rawPair) toDexPair() (models.DexPair, error) {
	priceUSD, err := parsePrice(p.PriceUSD)
	if err != nil {
		return models.DexPair{}, fmt.Errorf("pair %s priceUsd: %w", p.PairAddress, err)
	}
	priceNative, err := parsePrice(p.PriceNative)
	if err != nil {
		return models.DexPair{}, fmt.Errorf("pair %s priceNative: %w", p.PairAddress, err)
	}

	pair := models.DexPair{
		PairAddress: p.PairAddress,
		BaseToken:   models.DexToken(p.BaseToken),
		QuoteToken:  models.DexToken(p.QuoteToken),
		DexID:       p.DexID,
		ChainID:     p.ChainID,
		URL:         p.URL,
		PriceUSD:    priceUSD,
		PriceNative: priceNative,
		Volume:      models.DexWindows(p.Volume),
		PriceChange: models.DexWindows(p.PriceChange),
		Txns: models.DexTxns{
			H24: models.DexTxnCount(p.Txns.H24),
			H6:  models.DexTxnCount(p.Txns.H6),
			H1:  models.DexTxnCount(p.Txns.H1),
			M5:  models.DexTxnCount(p.Txns.M5),
		},
		FDV:       p.FDV,
		MarketCap: p.MarketCap,
	}
	if p.Liquidity != nil {
		pair.Liquidity = models.DexLiquidity{
			USD:   p.Liquidity.USD,
			Base:  p.Liquidity.Base,
			Quote: p.Liquidity.Quote,
		}
	}
	return pair, nil
}

// parsePrice accepts an empty string as an unknown (zero) price
func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", models.ErrMalformedPayload, s)
	}
	return v, nil
}

// buildMetadata normalizes pairs and picks the most liquid and highest volume
// pair. Ties keep the earliest pair.
func buildMetadata(resp *pairsResponse) (*models.DexMetadata, error) {
	raw := resp.Pairs
	if len(raw) == 0 && resp.Pair != nil {
		raw = []rawPair{*resp.Pair}
	}
	if len(raw) == 0 {
		return nil, models.ErrNotFound
	}

	meta := &models.DexMetadata{
		SchemaVersion: resp.SchemaVersion,
		Pairs:         make([]models.DexPair, 0, len(raw)),
	}
	for _, p := range raw {
		pair, err := p.toDexPair()
		if err != nil {
			return nil, err
		}
		meta.Pairs = append(meta.Pairs, pair)
	}
	meta.PairsCount = len(meta.Pairs)

	liquid, volume := 0, 0
	for i := range meta.Pairs {
		if meta.Pairs[i].Liquidity.USD > meta.Pairs[liquid].Liquidity.USD {
			liquid = i
		}
		if meta.Pairs[i].Volume.H24 > meta.Pairs[volume].Volume.H24 {
			volume = i
		}
	}
	meta.MostLiquidPair = &meta.Pairs[liquid]
	meta.HighestVolumePair = &meta.Pairs[volume]

	return meta, nil
}
