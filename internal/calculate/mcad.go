package calculate

import (
	"math"

	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9

	// histograms smaller than this fraction of the last price are rounding noise
	macdNoise = 1e-10
)

// MACD returns the 12/26 MACD line, its 9-period signal EMA, the histogram,
// and the histogram one sample earlier. Fewer than 26 values yield zeros.
func MACD(values []float64) models.MACD {
	line, signal, hist, ok := calculateMACD(values, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	if !ok {
		return models.MACD{}
	}

	var prevHist float64
	if len(values) > 1 {
		_, _, prevHist, _ = calculateMACD(values[:len(values)-1], macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	}

	return models.MACD{
		Line:              line,
		Signal:            signal,
		Histogram:         hist,
		PreviousHistogram: prevHist,
	}
}

func calculateMACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (float64, float64, float64, bool) {
	// Cannot calculate MACD with insufficient data
	if len(closes) < slowPeriod {
		return 0, 0, 0, false
	}

	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)

	// Align both series on the slow EMA's first index
	offset := slowPeriod - fastPeriod
	macdHistory := make([]float64, len(slow))
	for i := range slow {
		macdHistory[i] = fast[i+offset] - slow[i]
	}

	macdLine := macdHistory[len(macdHistory)-1]

	// Signal line is the EMA of the MACD history; with a short history
	// it collapses to the latest MACD value
	signalLine := EMA(macdHistory, signalPeriod)

	hist := macdLine - signalLine
	if math.Abs(hist) < macdNoise*math.Abs(closes[len(closes)-1]) {
		hist = 0
	}

	return macdLine, signalLine, hist, true
}
