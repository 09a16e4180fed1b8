package utils

import (
	"math"
	"testing"
)

func TestFormatLargeNumber(t *testing.T) {
	tests := []struct {
		num      float64
		expected string
	}{
		{1.5e12, "1.50T"},
		{2_340_000_000, "2.34B"},
		{7_250_000, "7.25M"},
		{12_500, "12.50K"},
		{999, "999.00"},
		{0, "0.00"},
		{-3_000_000, "-3.00M"},
		{math.NaN(), NotAvailable},
	}

	for _, tt := range tests {
		if got := FormatLargeNumber(tt.num); got != tt.expected {
			t.Errorf("FormatLargeNumber(%v) = %q, want %q", tt.num, got, tt.expected)
		}
	}
}

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"price", FormatPrice(0.1234567), "0.123457"},
		{"whole price", FormatPrice(100), "100.000000"},
		{"percent", FormatPercent(-10.004), "-10.00%"},
		{"percent rounding", FormatPercent(3.456), "3.46%"},
		{"infinite", FormatPercent(math.Inf(1)), NotAvailable},
		{"four places", FormatFixed(0.4, 4), "0.4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
