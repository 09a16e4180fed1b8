package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alias1177/NovaAnalyst/internal/analyze"
	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// Options controls report assembly
type Options struct {
	Query string
	// Source overrides the data source derived from which inputs are present,
	// e.g. dexscreener_fallback after a failed CoinGecko lookup
	Source      models.DataSource
	GeneratedAt time.Time
	Warnings    []string
}

// Build fuses token metadata, DEX data and indicators into one report.
// Without token and DEX data the report is invalid and carries no payload.
func Build(token *models.TokenMetadata, dex *models.DexMetadata, ind *models.IndicatorSet, opts Options) *models.AnalysisReport {
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	rep := &models.AnalysisReport{
		ID:          uuid.NewString(),
		Query:       strings.TrimSpace(opts.Query),
		GeneratedAt: generatedAt,
		Warnings:    append([]string(nil), opts.Warnings...),
	}

	if token == nil && dex == nil {
		rep.DataSource = models.SourceInsufficientData
		rep.Sentiment = models.Sentiment{Label: analyze.SentimentInsufficient}
		return rep
	}

	rep.Valid = true
	rep.Token = token
	rep.Dex = dex
	rep.Indicators = ind
	rep.DataSource = resolveSource(token, dex, opts.Source)

	if ind != nil {
		rep.Formatted = FormatIndicators(ind)
		for _, name := range ind.Degraded {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s unavailable: not enough price history (%d samples)", name, ind.SampleCount))
		}
	}

	rep.Sentiment = analyze.ScoreSentiment(analyze.SentimentInput{
		Token:      token,
		Indicators: ind,
		Dex:        dex,
	})

	return rep
}

func resolveSource(token *models.TokenMetadata, dex *models.DexMetadata, override models.DataSource) models.DataSource {
	if override != "" {
		return override
	}
	switch {
	case token != nil && dex != nil:
		return models.SourceCombined
	case token != nil:
		return models.SourceCoinGeckoOnly
	default:
		return models.SourceDexScreenerOnly
	}
}

// FormatIndicators renders indicator values for display
func FormatIndicators(ind *models.IndicatorSet) *models.FormattedIndicators {
	return &models.FormattedIndicators{
		CurrentPrice: utils.FormatPrice(ind.CurrentPrice),

		SMA20:         utils.FormatPrice(ind.SMA20),
		SMA50:         utils.FormatPrice(ind.SMA50),
		SMA200:        utils.FormatPrice(ind.SMA200),
		SMA20VsPrice:  utils.FormatPercent(ind.SMA20VsPrice),
		SMA50VsPrice:  utils.FormatPercent(ind.SMA50VsPrice),
		SMA200VsPrice: utils.FormatPercent(ind.SMA200VsPrice),

		RSI: utils.FormatFixed(ind.RSI14, 2),

		MACDLine:      utils.FormatPrice(ind.MACD.Line),
		MACDSignal:    utils.FormatPrice(ind.MACD.Signal),
		MACDHistogram: utils.FormatPrice(ind.MACD.Histogram),

		BollingerUpper:  utils.FormatPrice(ind.Bollinger.Upper),
		BollingerMiddle: utils.FormatPrice(ind.Bollinger.Middle),
		BollingerLower:  utils.FormatPrice(ind.Bollinger.Lower),
		BollingerWidth:  utils.FormatFixed(ind.Bollinger.Width, 4),

		VolatilityDaily:      utils.FormatPercent(ind.Volatility.Daily * 100),
		VolatilityAnnualized: utils.FormatPercent(ind.Volatility.Annualized * 100),

		Support:    formatLevels(ind.Support),
		Resistance: formatLevels(ind.Resistance),
	}
}

func formatLevels(levels []models.Level) []models.FormattedLevel {
	out := make([]models.FormattedLevel, 0, len(levels))
	for _, l := range levels {
		out = append(out, models.FormattedLevel{
			Price:              utils.FormatPrice(l.Price),
			Strength:           l.Strength,
			PercentFromCurrent: utils.FormatPercent(l.PercentFromCurrent),
		})
	}
	return out
}
