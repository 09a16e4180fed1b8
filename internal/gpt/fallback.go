package gpt

import (
	"fmt"
	"math"
	"strings"

	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// Section is one titled block of an analysis
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Analysis is the text analysis returned to users
type Analysis struct {
	Summary      string    `json:"summary,omitempty"`
	Format       string    `json:"format"`
	Sections     []Section `json:"sections,omitempty"`
	AnalysisText string    `json:"analysis_text"`
	// AIGenerated is false when the analysis was built without the model
	AIGenerated bool `json:"ai_generated"`
}

const fallbackConclusion = "This analysis is based on available market data. For more detailed insights, enable the OpenAI integration."

// FallbackAnalysis builds a plain analysis from the report when no model is available
func FallbackAnalysis(rep *models.AnalysisReport) *Analysis {
	analysis := &Analysis{
		Summary: "Analysis based on available market data without AI enhancement.",
		Format:  "text",
	}

	if t := rep.Token; t != nil && t.CurrentPrice != 0 {
		direction := "decreased"
		if t.PriceChangePercentage24h > 0 {
			direction = "increased"
		}
		analysis.Sections = append(analysis.Sections, Section{
			Title: "Price Analysis",
			Content: fmt.Sprintf("%s (%s) is currently trading at $%s and has %s by %s in the last 24 hours.",
				t.Name, t.Symbol, utils.FormatPrice(t.CurrentPrice), direction, utils.FormatPercent(math.Abs(t.PriceChangePercentage24h))),
		})
	}

	if t := rep.Token; t != nil && t.MarketCap != 0 {
		content := "The token has a market capitalization of $" + utils.FormatLargeNumber(t.MarketCap)
		if t.MarketCapRank > 0 {
			content += fmt.Sprintf(" with a market cap rank of #%d", t.MarketCapRank)
		}
		analysis.Sections = append(analysis.Sections, Section{Title: "Market Information", Content: content + "."})
	}

	if ind := rep.Indicators; ind != nil {
		position := "below"
		if ind.SMA50VsPrice > 0 {
			position = "above"
		}
		trend := fmt.Sprintf("The current trend appears to be %s.", ind.Trend)
		if ind.IsDegraded(models.IndicatorTrend) {
			trend = "There is not enough price history to call a long-term trend."
		}
		analysis.Sections = append(analysis.Sections, Section{
			Title: "Technical Indicators",
			Content: fmt.Sprintf("%s RSI is at %s indicating %s conditions. The token is currently trading %s its 50-day moving average by %s.",
				trend, utils.FormatFixed(ind.RSI14, 2), ind.RSISignal, position, utils.FormatPercent(math.Abs(ind.SMA50VsPrice))),
		})
	}

	if dex := rep.Dex; dex != nil && dex.MostLiquidPair != nil {
		p := dex.MostLiquidPair
		analysis.Sections = append(analysis.Sections, Section{
			Title: "DEX Information",
			Content: fmt.Sprintf("The token has %d trading pairs across various DEXes. The most liquid pair is %s/%s on %s, with $%s in liquidity and $%s in 24h trading volume.",
				dex.PairsCount, p.BaseToken.Symbol, p.QuoteToken.Symbol, p.DexID, utils.FormatLargeNumber(p.Liquidity.USD), utils.FormatLargeNumber(p.Volume.H24)),
		})
	}

	analysis.Sections = append(analysis.Sections, Section{Title: "Conclusion", Content: fallbackConclusion})
	analysis.AnalysisText = renderSections(analysis.Sections)
	return analysis
}

func renderSections(sections []Section) string {
	parts := make([]string, len(sections))
	for i, s := range sections {
		parts[i] = fmt.Sprintf("## %s\n%s\n", s.Title, s.Content)
	}
	return strings.Join(parts, "\n")
}

// QuickSummary is a short chat reply describing the report
func QuickSummary(rep *models.AnalysisReport) string {
	if rep == nil || !rep.Valid {
		query := ""
		if rep != nil {
			query = rep.Query
		}
		return fmt.Sprintf("I couldn't find sufficient data for %s. The token may be very new or not listed on major platforms.", query)
	}

	var sb strings.Builder

	if t := rep.Token; t != nil {
		fmt.Fprintf(&sb, "%s (%s) is currently trading at $%s. ", t.Name, t.Symbol, orNA(t.CurrentPrice, utils.FormatPrice))
		if t.PriceChangePercentage24h != 0 {
			direction := "up"
			if t.PriceChangePercentage24h < 0 {
				direction = "down"
			}
			fmt.Fprintf(&sb, "It's %s %s in the last 24 hours. ", direction, utils.FormatPercent(math.Abs(t.PriceChangePercentage24h)))
		}
		if t.MarketCap != 0 {
			fmt.Fprintf(&sb, "Market cap is $%s", utils.FormatLargeNumber(t.MarketCap))
			if t.MarketCapRank > 0 {
				fmt.Fprintf(&sb, " (rank #%d)", t.MarketCapRank)
			}
			sb.WriteString(". ")
		}
	}

	if rep.Dex != nil && rep.Dex.MostLiquidPair != nil {
		p := rep.Dex.MostLiquidPair
		fmt.Fprintf(&sb, "Most liquid trading pair is on %s with $%s liquidity. ", p.DexID, utils.FormatLargeNumber(p.Liquidity.USD))
	}

	if ind := rep.Indicators; ind != nil {
		if !ind.IsDegraded(models.IndicatorTrend) {
			fmt.Fprintf(&sb, "Technical analysis indicates a %s trend. ", ind.Trend)
		}
		if !ind.IsDegraded(models.IndicatorRSI) {
			fmt.Fprintf(&sb, "RSI is at %s (%s). ", utils.FormatFixed(ind.RSI14, 2), ind.RSISignal)
		}
	}

	fmt.Fprintf(&sb, "Overall market sentiment appears %s.", strings.ToLower(rep.Sentiment.Label))
	return sb.String()
}
