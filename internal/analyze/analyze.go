package analyze

import (
	"github.com/Alias1177/NovaAnalyst/models"
)

// pressureRatio is how far one side of the DEX order flow must outweigh the other
const pressureRatio = 1.5

// ClassifyTrend compares the price with the 50 and 200 period SMAs.
// The trend is bullish only when price > sma50 > sma200 and bearish only
// when price < sma50 < sma200.
func ClassifyTrend(price, sma50, sma200 float64) models.Trend {
	switch {
	case price > sma50 && sma50 > sma200:
		return models.TrendBullish
	case price < sma50 && sma50 < sma200:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// AnalyzeOrderFlow reads 24h buy/sell pressure on a DEX pair.
// It returns the flow direction and the buy/sell ratio.
func AnalyzeOrderFlow(pair *models.DexPair) (models.Trend, float64) {
	if pair == nil {
		return models.TrendNeutral, 0
	}

	buys := float64(pair.Txns.H24.Buys)
	sells := float64(pair.Txns.H24.Sells)

	// Calculate buy/sell ratio
	denom := sells
	if denom == 0 {
		denom = 1
	}
	ratio := buys / denom

	// Determine flow direction
	flow := models.TrendNeutral
	if buys > sells*pressureRatio {
		flow = models.TrendBullish
	} else if sells > buys*pressureRatio {
		flow = models.TrendBearish
	}

	return flow, ratio
}
