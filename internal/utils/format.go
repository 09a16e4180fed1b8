package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// NotAvailable is rendered in place of a missing value
const NotAvailable = "N/A"

// FormatFixed renders v with exactly places decimals, or N/A if v is not finite
func FormatFixed(v float64, places int32) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FormatPrice renders a price-like value with 6 decimals
func FormatPrice(v float64) string {
	return FormatFixed(v, 6)
}

// FormatPercent renders a percentage with 2 decimals and a % suffix
func FormatPercent(v float64) string {
	s := FormatFixed(v, 2)
	if s == NotAvailable {
		return s
	}
	return s + "%"
}

// FormatLargeNumber abbreviates num with a T/B/M/K suffix and 2 decimals
func FormatLargeNumber(num float64) string {
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return NotAvailable
	}

	abs := math.Abs(num)
	switch {
	case abs >= 1e12:
		return FormatFixed(num/1e12, 2) + "T"
	case abs >= 1e9:
		return FormatFixed(num/1e9, 2) + "B"
	case abs >= 1e6:
		return FormatFixed(num/1e6, 2) + "M"
	case abs >= 1e3:
		return FormatFixed(num/1e3, 2) + "K"
	default:
		return FormatFixed(num, 2)
	}
}
