package analyze

import (
	"fmt"

	"github.com/Alias1177/NovaAnalyst/models"
)

// Sentiment labels
const (
	SentimentStronglyBullish = "Strongly Bullish"
	SentimentBullish         = "Bullish"
	SentimentMildlyBullish   = "Mildly Bullish"
	SentimentMildlyBearish   = "Mildly Bearish"
	SentimentBearish         = "Bearish"
	SentimentStronglyBearish = "Strongly Bearish"
	SentimentInsufficient    = "Insufficient data"
)

// SentimentInput is everything the sentiment score looks at. Any field may be nil.
type SentimentInput struct {
	Token      *models.TokenMetadata
	Indicators *models.IndicatorSet
	Dex        *models.DexMetadata
}

// ScoreSentiment counts bullish and bearish factors across price momentum,
// moving averages, RSI, MACD and DEX order flow
func ScoreSentiment(in SentimentInput) models.Sentiment {
	if in.Token == nil {
		return models.Sentiment{Label: SentimentInsufficient}
	}

	bullishFactors := 0
	bearishFactors := 0
	var factors []string

	bull := func(weight int, reason string) {
		bullishFactors += weight
		factors = append(factors, fmt.Sprintf("+%d %s", weight, reason))
	}
	bear := func(weight int, reason string) {
		bearishFactors += weight
		factors = append(factors, fmt.Sprintf("-%d %s", weight, reason))
	}

	// Price momentum
	change := in.Token.PriceChangePercentage24h
	if change > 5 {
		bull(2, "strong 24h gain")
	} else if change > 2 {
		bull(1, "24h gain")
	} else if change < -5 {
		bear(2, "strong 24h loss")
	} else if change < -2 {
		bear(1, "24h loss")
	}

	if ti := in.Indicators; ti != nil {
		// Price vs SMA relationship
		if !ti.IsDegraded(models.IndicatorSMA50) {
			if ti.SMA50VsPrice > 5 {
				bull(1, "price well above SMA50")
			} else if ti.SMA50VsPrice < -5 {
				bear(1, "price well below SMA50")
			}
		}
		if !ti.IsDegraded(models.IndicatorSMA200) {
			if ti.SMA200VsPrice > 10 {
				bull(2, "price well above SMA200")
			} else if ti.SMA200VsPrice < -10 {
				bear(2, "price well below SMA200")
			}
		}

		// RSI
		if !ti.IsDegraded(models.IndicatorRSI) {
			switch RSISignal(ti.RSI14) {
			case models.SignalOverbought:
				bear(1, "RSI overbought")
			case models.SignalOversold:
				bull(1, "RSI oversold")
			}
		}

		// MACD
		switch ti.MACDTrend {
		case models.TrendBullish:
			bull(1, "MACD histogram rising")
		case models.TrendBearish:
			bear(1, "MACD histogram falling")
		}
	}

	// DEX data
	if in.Dex != nil && in.Dex.MostLiquidPair != nil {
		pair := in.Dex.MostLiquidPair

		switch flow, _ := AnalyzeOrderFlow(pair); flow {
		case models.TrendBullish:
			bull(1, "DEX buy pressure")
		case models.TrendBearish:
			bear(1, "DEX sell pressure")
		}

		if pair.PriceChange.H24 > 5 {
			bull(1, "DEX pair up over 24h")
		} else if pair.PriceChange.H24 < -5 {
			bear(1, "DEX pair down over 24h")
		}
	}

	score := bullishFactors - bearishFactors
	return models.Sentiment{
		Score:   score,
		Label:   SentimentLabel(score),
		Bullish: bullishFactors,
		Bearish: bearishFactors,
		Factors: factors,
	}
}

// SentimentLabel maps a net factor score to its label
func SentimentLabel(score int) string {
	switch {
	case score >= 4:
		return SentimentStronglyBullish
	case score >= 2:
		return SentimentBullish
	case score >= 0:
		return SentimentMildlyBullish
	case score > -2:
		return SentimentMildlyBearish
	case score > -4:
		return SentimentBearish
	default:
		return SentimentStronglyBearish
	}
}
