package models

// LongestWindow is the largest lookback any indicator needs (SMA200)
const LongestWindow = 200

// ChartDaysFor returns how many days of daily history to request so that
// at least samples points come back, with a 10% buffer for gaps
func ChartDaysFor(samples int) int {
	if samples <= 0 {
		samples = LongestWindow
	}
	return int(float64(samples)*1.1) + 1
}
