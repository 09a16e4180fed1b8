package report

import (
	"testing"
	"time"

	"github.com/Alias1177/NovaAnalyst/internal/analyze"
	"github.com/Alias1177/NovaAnalyst/models"
)

func TestBuildDataSource(t *testing.T) {
	token := &models.TokenMetadata{ID: "bitcoin", Symbol: "BTC", CurrentPrice: 50000}
	dex := &models.DexMetadata{PairsCount: 1}

	tests := []struct {
		name          string
		token         *models.TokenMetadata
		dex           *models.DexMetadata
		override      models.DataSource
		expected      models.DataSource
		expectedValid bool
	}{
		{"both sources", token, dex, "", models.SourceCombined, true},
		{"token only", token, nil, "", models.SourceCoinGeckoOnly, true},
		{"dex only", nil, dex, "", models.SourceDexScreenerOnly, true},
		{"fallback override", nil, dex, models.SourceDexScreenerFallback, models.SourceDexScreenerFallback, true},
		{"nothing", nil, nil, "", models.SourceInsufficientData, false},
		{"nothing ignores override", nil, nil, models.SourceCombined, models.SourceInsufficientData, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Build(tt.token, tt.dex, nil, Options{Query: " btc ", Source: tt.override})
			if rep.DataSource != tt.expected {
				t.Errorf("DataSource = %v, want %v", rep.DataSource, tt.expected)
			}
			if rep.Valid != tt.expectedValid {
				t.Errorf("Valid = %v, want %v", rep.Valid, tt.expectedValid)
			}
			if rep.Query != "btc" {
				t.Errorf("Query = %q, want trimmed", rep.Query)
			}
			if rep.ID == "" {
				t.Error("report ID is empty")
			}
		})
	}
}

func TestBuildInvalidHasNoPayload(t *testing.T) {
	ind := &models.IndicatorSet{CurrentPrice: 1}
	rep := Build(nil, nil, ind, Options{Query: "nothing"})

	if rep.Token != nil || rep.Dex != nil || rep.Indicators != nil || rep.Formatted != nil {
		t.Errorf("invalid report carries payload: %+v", rep)
	}
	if rep.Sentiment.Label != analyze.SentimentInsufficient {
		t.Errorf("Sentiment = %q, want %q", rep.Sentiment.Label, analyze.SentimentInsufficient)
	}
}

func TestBuildFormatsIndicators(t *testing.T) {
	ind := &models.IndicatorSet{
		CurrentPrice:  1.23456789,
		SampleCount:   40,
		SMA20:         1.2,
		SMA20VsPrice:  2.880657,
		RSI14:         63.456,
		Bollinger:     models.BollingerBands{Upper: 1.3, Middle: 1.2, Lower: 1.1, Width: 0.1666666},
		Volatility:    models.Volatility{Daily: 0.0345, Annualized: 0.659},
		Support:       []models.Level{{Price: 1.1, Strength: models.StrengthMedium, PercentFromCurrent: -10.9}},
		Degraded:      []string{models.IndicatorSMA200},
		SMA200VsPrice: 0,
	}
	token := &models.TokenMetadata{Symbol: "ABC", PriceChangePercentage24h: 1}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	rep := Build(token, nil, ind, Options{Query: "abc", GeneratedAt: now})

	f := rep.Formatted
	if f == nil {
		t.Fatal("Formatted is nil")
	}
	checks := map[string][2]string{
		"current price": {f.CurrentPrice, "1.234568"},
		"sma20":         {f.SMA20, "1.200000"},
		"sma20 vs":      {f.SMA20VsPrice, "2.88%"},
		"rsi":           {f.RSI, "63.46"},
		"bb width":      {f.BollingerWidth, "0.1667"},
		"vol daily":     {f.VolatilityDaily, "3.45%"},
		"vol annual":    {f.VolatilityAnnualized, "65.90%"},
		"support price": {f.Support[0].Price, "1.100000"},
		"support pct":   {f.Support[0].PercentFromCurrent, "-10.90%"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s = %q, want %q", name, c[0], c[1])
		}
	}
	if f.Resistance == nil || len(f.Resistance) != 0 {
		t.Errorf("Resistance = %v, want empty slice", f.Resistance)
	}
	if len(rep.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one degraded warning", rep.Warnings)
	}
	if !rep.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, want %v", rep.GeneratedAt, now)
	}
	if rep.DataSource != models.SourceCoinGeckoOnly {
		t.Errorf("DataSource = %v", rep.DataSource)
	}
}
