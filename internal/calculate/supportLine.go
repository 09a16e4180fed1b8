package calculate

import (
	"math"
	"sort"

	"github.com/Alias1177/NovaAnalyst/models"
)

const (
	levelsMinSamples = 30
	levelsEdge       = 10
	maxLevels        = 3
)

// SupportResistance scans for swing lows and highs and returns the three
// levels on each side closest to the current price
func SupportResistance(values []float64) ([]models.Level, []models.Level) {
	if len(values) < levelsMinSamples {
		return []models.Level{}, []models.Level{}
	}

	currentPrice := values[len(values)-1]
	var support, resistance []models.Level

	newLevel := func(price float64, strength string) models.Level {
		return models.Level{
			Price:              price,
			Strength:           strength,
			PercentFromCurrent: (price/currentPrice - 1) * 100,
		}
	}

	// Scan for swing highs and lows away from the edges
	for i := levelsEdge; i < len(values)-levelsEdge; i++ {
		p := values[i]

		if isSwing(values, i, func(a, b float64) bool { return a < b }) {
			if p < currentPrice {
				support = append(support, newLevel(p, models.StrengthMedium))
			} else {
				resistance = append(resistance, newLevel(p, models.StrengthWeak))
			}
		}

		if isSwing(values, i, func(a, b float64) bool { return a > b }) {
			if p > currentPrice {
				resistance = append(resistance, newLevel(p, models.StrengthMedium))
			} else {
				support = append(support, newLevel(p, models.StrengthWeak))
			}
		}
	}

	return nearestLevels(support, currentPrice), nearestLevels(resistance, currentPrice)
}

// isSwing checks values[i] against its neighbours at distance 1, 2 and 5
func isSwing(values []float64, i int, beats func(a, b float64) bool) bool {
	for _, d := range [...]int{1, 2, 5} {
		if !beats(values[i], values[i-d]) || !beats(values[i], values[i+d]) {
			return false
		}
	}
	return true
}

func nearestLevels(levels []models.Level, currentPrice float64) []models.Level {
	sort.SliceStable(levels, func(i, j int) bool {
		return math.Abs(levels[i].Price-currentPrice) < math.Abs(levels[j].Price-currentPrice)
	})

	if len(levels) > maxLevels {
		levels = levels[:maxLevels]
	}
	if levels == nil {
		levels = []models.Level{}
	}
	return levels
}
