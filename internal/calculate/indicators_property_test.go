package calculate

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Alias1177/NovaAnalyst/models"
)

// priceSliceGen generates strictly positive price slices of length n
func priceSliceGen(n int) gopter.Gen {
	return gen.SliceOfN(n, gen.Float64Range(0.0001, 50000.0))
}

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	// Shrinking can shorten slices below the lengths the properties need
	parameters.MaxShrinkCount = 0
	return parameters
}

func TestProperty_RSIWithinBounds(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("RSI is within [0, 100]", prop.ForAll(
		func(prices []float64) bool {
			rsi := RSI(prices, 14)
			return rsi >= 0 && rsi <= 100
		},
		priceSliceGen(60),
	))

	properties.TestingRun(t)
}

func TestProperty_BollingerOrdering(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("upper >= middle >= lower", prop.ForAll(
		func(prices []float64) bool {
			b := Bollinger(prices, 20, 2)
			return b.Upper >= b.Middle && b.Middle >= b.Lower && b.Width >= 0
		},
		priceSliceGen(40),
	))

	properties.TestingRun(t)
}

func TestProperty_SMAWindowShift(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("appending v shifts SMA by (v - dropped)/period", prop.ForAll(
		func(prices []float64, next float64) bool {
			const period = 20
			if len(prices) < period {
				return true
			}
			before := SMA(prices, period)
			after := SMA(append(append([]float64{}, prices...), next), period)
			want := before + (next-prices[len(prices)-period])/period
			return math.Abs(after-want) <= 1e-6*math.Max(1, math.Abs(want))
		},
		priceSliceGen(30),
		gen.Float64Range(0.0001, 50000.0),
	))

	properties.TestingRun(t)
}

func TestProperty_ComputeIndicatorsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("same series gives identical indicator sets", prop.ForAll(
		func(prices []float64) bool {
			series := make(models.PriceSeries, len(prices))
			start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, p := range prices {
				series[i] = models.PricePoint{Time: start.AddDate(0, 0, i), Price: p}
			}

			first, err1 := ComputeIndicators(series)
			second, err2 := ComputeIndicators(series)
			if err1 != nil || err2 != nil {
				return false
			}
			return reflect.DeepEqual(first, second) &&
				first.RSI14 >= 0 && first.RSI14 <= 100 &&
				len(first.Support) <= 3 && len(first.Resistance) <= 3
		},
		priceSliceGen(210),
	))

	properties.TestingRun(t)
}
