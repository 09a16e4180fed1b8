package calculate

import (
	"errors"
	"fmt"
	"math"

	"github.com/Alias1177/NovaAnalyst/internal/analyze"
	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	rsiPeriod          = 14
	bollingerPeriod    = 20
	bollingerDeviation = 2.0
	volatilityPeriod   = 30
)

// ErrInvalidSeries is matched by every ComputationError
var ErrInvalidSeries = errors.New("invalid price series")

// ComputationError reports a price series the indicators cannot be computed from
type ComputationError struct {
	Index  int
	Reason string
}

func (e *ComputationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s", ErrInvalidSeries, e.Reason)
	}
	return fmt.Sprintf("%v: point %d: %s", ErrInvalidSeries, e.Index, e.Reason)
}

func (e *ComputationError) Is(target error) bool {
	return target == ErrInvalidSeries
}

// ComputeIndicators calculates every indicator for a chronological price series.
// Indicators without enough history fall back to their defaults and are listed
// in IndicatorSet.Degraded.
func ComputeIndicators(series models.PriceSeries) (*models.IndicatorSet, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	prices := series.Prices()
	n := len(prices)
	currentPrice := prices[n-1]

	set := &models.IndicatorSet{
		CurrentPrice: currentPrice,
		SampleCount:  n,
	}

	// Moving averages
	set.SMA20 = SMA(prices, 20)
	set.SMA50 = SMA(prices, 50)
	set.SMA200 = SMA(prices, 200)
	set.SMA20VsPrice = percentFrom(currentPrice, set.SMA20)
	set.SMA50VsPrice = percentFrom(currentPrice, set.SMA50)
	set.SMA200VsPrice = percentFrom(currentPrice, set.SMA200)
	degradeIf(set, n < 20, models.IndicatorSMA20)
	degradeIf(set, n < 50, models.IndicatorSMA50)
	degradeIf(set, n < 200, models.IndicatorSMA200)

	// Calculate RSI
	set.RSI14 = RSI(prices, rsiPeriod)
	set.RSISignal = analyze.RSISignal(set.RSI14)
	degradeIf(set, n < rsiPeriod+1, models.IndicatorRSI)

	// Calculate MACD
	set.MACD = MACD(prices)
	set.MACDTrend = analyze.MACDTrend(set.MACD)
	degradeIf(set, n < macdSlowPeriod, models.IndicatorMACD)

	// Calculate Bollinger Bands
	set.Bollinger = Bollinger(prices, bollingerPeriod, bollingerDeviation)
	set.BollingerSignal = analyze.BollingerSignal(currentPrice, set.Bollinger)
	degradeIf(set, n < bollingerPeriod, models.IndicatorBollinger)

	set.Volatility = Volatility(prices, volatilityPeriod)
	degradeIf(set, n < volatilityPeriod, models.IndicatorVolatility)

	set.Support, set.Resistance = SupportResistance(prices)
	degradeIf(set, n < levelsMinSamples, models.IndicatorLevels)

	// a zero SMA50 or SMA200 still orders against the price, so the label
	// is kept but marked degraded
	set.Trend = analyze.ClassifyTrend(currentPrice, set.SMA50, set.SMA200)
	degradeIf(set, set.IsDegraded(models.IndicatorSMA50) || set.IsDegraded(models.IndicatorSMA200), models.IndicatorTrend)

	return set, nil
}

func validateSeries(series models.PriceSeries) error {
	if len(series) == 0 {
		return &ComputationError{Index: -1, Reason: "empty series"}
	}

	for i, p := range series {
		switch {
		case math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
			return &ComputationError{Index: i, Reason: "price is not a finite number"}
		case p.Price <= 0:
			return &ComputationError{Index: i, Reason: "price must be positive"}
		}
		if i > 0 && !p.Time.IsZero() && !series[i-1].Time.IsZero() && p.Time.Before(series[i-1].Time) {
			return &ComputationError{Index: i, Reason: "series is not chronological"}
		}
	}
	return nil
}

// percentFrom returns how far price sits above (positive) or below base in percent
func percentFrom(price, base float64) float64 {
	if base == 0 {
		return 0
	}
	return (price/base - 1) * 100
}

func degradeIf(set *models.IndicatorSet, cond bool, name string) {
	if cond {
		set.Degraded = append(set.Degraded, name)
	}
}
