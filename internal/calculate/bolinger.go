package calculate

import "github.com/Alias1177/NovaAnalyst/models"

// Bollinger calculates Bollinger Bands over the last period values using the
// population standard deviation. Fewer than period values yield zeros.
func Bollinger(values []float64, period int, multiplier float64) models.BollingerBands {
	if period <= 0 || len(values) < period {
		return models.BollingerBands{}
	}

	window := values[len(values)-period:]
	middle := calculateAverage(window)
	sd := StdDev(window)

	bands := models.BollingerBands{
		Upper:  middle + sd*multiplier,
		Middle: middle,
		Lower:  middle - sd*multiplier,
	}
	if middle != 0 {
		bands.Width = (bands.Upper - bands.Lower) / middle
	}

	return bands
}
