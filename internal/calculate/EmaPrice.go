package calculate

// EMA returns the exponential moving average of values, seeded with the SMA
// of the first period values. With fewer than period values the last value is
// returned (0 for an empty slice).
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	if period <= 0 || len(values) < period {
		return values[len(values)-1]
	}

	series := emaSeries(values, period)
	return series[len(series)-1]
}

// emaSeries returns the EMA at every index from period-1 onward.
// Callers must ensure len(values) >= period.
func emaSeries(values []float64, period int) []float64 {
	// Start with SMA of the first window
	ema := calculateAverage(values[:period])

	// Multiplier for weighting the EMA
	k := 2.0 / float64(period+1)

	out := make([]float64, 0, len(values)-period+1)
	out = append(out, ema)
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out = append(out, ema)
	}

	return out
}
