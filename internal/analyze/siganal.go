package analyze

import "github.com/Alias1177/NovaAnalyst/models"

const (
	rsiOverbought = 70
	rsiOversold   = 30
)

// RSISignal maps an RSI reading to overbought/oversold/neutral
func RSISignal(rsi float64) models.Signal {
	if rsi > rsiOverbought {
		return models.SignalOverbought
	} else if rsi < rsiOversold {
		return models.SignalOversold
	}
	return models.SignalNeutral
}

// MACDTrend is bullish when the histogram is positive and rising,
// bearish when it is negative and falling
func MACDTrend(m models.MACD) models.Trend {
	if m.Histogram > 0 && m.Histogram > m.PreviousHistogram {
		return models.TrendBullish
	} else if m.Histogram < 0 && m.Histogram < m.PreviousHistogram {
		return models.TrendBearish
	}
	return models.TrendNeutral
}

// BollingerSignal compares the price with the bands. Zero bands mean the
// bands could not be computed and always read neutral.
func BollingerSignal(price float64, bands models.BollingerBands) models.Signal {
	if bands.Upper == 0 && bands.Lower == 0 {
		return models.SignalNeutral
	}
	if price > bands.Upper {
		return models.SignalOverbought
	} else if price < bands.Lower {
		return models.SignalOversold
	}
	return models.SignalNeutral
}
