package anomaly

import (
	"fmt"
	"math"

	"github.com/Alias1177/NovaAnalyst/models"
)

// Anomaly types
const (
	PriceSpike         = "PRICE_SPIKE"
	VolatilityBreakout = "VOLATILITY_BREAKOUT"
)

const (
	recentWindow   = 10
	baselineWindow = 50
	minSamples     = 20

	spikeThreshold    = 3.0
	breakoutThreshold = 2.5
)

// Detection describes unusual behaviour at the end of a price series
type Detection struct {
	IsAnomaly bool    `json:"is_anomaly"`
	Type      string  `json:"type,omitempty"`
	Score     float64 `json:"score"` // 0..1
	Details   string  `json:"details,omitempty"`
}

// Detect checks the latest move of series against its recent range.
// Daily series carry closes only, so the average absolute close-to-close
// move stands in for the average true range.
func Detect(series models.PriceSeries) Detection {
	if len(series) < minSamples {
		return Detection{}
	}
	prices := series.Prices()

	recent := meanAbsMove(prices, recentWindow)
	baseline := meanAbsMove(prices, baselineWindow)
	last := prices[len(prices)-1]
	prev := prices[len(prices)-2]

	// any move out of a flat stretch is the largest possible spike
	if recent == 0 {
		if last == prev {
			return Detection{}
		}
		return Detection{
			IsAnomaly: true,
			Type:      PriceSpike,
			Score:     1,
			Details:   fmt.Sprintf("Price moved %.2f%% after a flat period", (last-prev)/prev*100),
		}
	}

	var d Detection

	// 1. Price spike
	move := math.Abs(last-prev) / recent
	if move > spikeThreshold {
		d.IsAnomaly = true
		d.Type = PriceSpike
		d.Score = math.Min(move/spikeThreshold/2, 1.0)
		d.Details = fmt.Sprintf("Price moved %.1f times the normal daily range", move)
	}

	// 2. Volatility breakout
	if baseline > 0 {
		ratio := recent / baseline
		if ratio > breakoutThreshold {
			if d.IsAnomaly {
				d.Score = math.Min(d.Score+0.1, 1.0)
				d.Type += "_WITH_" + VolatilityBreakout
			} else {
				d.IsAnomaly = true
				d.Type = VolatilityBreakout
				d.Score = math.Min(ratio/4.0, 1.0)
				d.Details = fmt.Sprintf("Recent volatility %.1f times the baseline", ratio)
			}
		}
	}

	return d
}

// meanAbsMove averages |p[i]-p[i-1]| over the last window moves, excluding
// the newest one so a spike does not dilute its own baseline
func meanAbsMove(prices []float64, window int) float64 {
	end := len(prices) - 1
	start := end - window
	if start < 1 {
		start = 1
	}
	if end <= start {
		return 0
	}

	var sum float64
	for i := start; i < end; i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(end-start)
}
