package calculate

import "math"

// Variance returns the population variance of values
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := calculateAverage(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// LogReturns returns ln(p[i]/p[i-1]) for each consecutive pair
func LogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns = append(returns, math.Log(values[i]/values[i-1]))
	}
	return returns
}
