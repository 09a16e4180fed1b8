package calculate

import (
	"math"

	"github.com/Alias1177/NovaAnalyst/models"
)

// daysPerYear annualizes daily volatility; crypto trades every day
const daysPerYear = 365

// Volatility returns the standard deviation of the log returns inside the
// last period values, plus its annualized form. Fewer than period values
// yield zeros.
func Volatility(values []float64, period int) models.Volatility {
	if period < 2 || len(values) < period {
		return models.Volatility{}
	}

	daily := StdDev(LogReturns(values[len(values)-period:]))
	return models.Volatility{
		Daily:      daily,
		Annualized: daily * math.Sqrt(daysPerYear),
	}
}
