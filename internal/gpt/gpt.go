package gpt

import (
	"fmt"
	"strings"

	"github.com/Alias1177/NovaAnalyst/internal/report"
	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// AnalysisType selects the focus of an AI analysis
type AnalysisType string

const (
	Comprehensive AnalysisType = "comprehensive"
	Technical     AnalysisType = "technical"
	Fundamental   AnalysisType = "fundamental"
	Risk          AnalysisType = "risk"
	Opportunity   AnalysisType = "opportunity"
)

// ParseAnalysisType maps a name to an AnalysisType, defaulting to Comprehensive
func ParseAnalysisType(name string) AnalysisType {
	switch t := AnalysisType(strings.ToLower(strings.TrimSpace(name))); t {
	case Technical, Fundamental, Risk, Opportunity:
		return t
	default:
		return Comprehensive
	}
}

var analysisKeywords = []struct {
	kind  AnalysisType
	words []string
}{
	{Technical, []string{"technical", "chart", "pattern", "indicator", "price action", "support", "resistance"}},
	{Fundamental, []string{"fundamental", "tokenomics", "team", "utility", "use case", "adoption"}},
	{Risk, []string{"risk", "safe", "safety", "concern", "secure", "security", "scam"}},
	{Opportunity, []string{"opportunity", "potential", "growth", "promising", "upside", "bullish"}},
}

// DetectAnalysisType guesses the analysis a chat message asks for
func DetectAnalysisType(message string) AnalysisType {
	lower := strings.ToLower(message)
	for _, group := range analysisKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.kind
			}
		}
	}
	return Comprehensive
}

var (
	basicPatterns = []string{"what is", "price of", "how much is", "current price", "tell me about", "info on", "information about"}
	analysisTerms = []string{"analyze", "analysis", "technical", "fundamental", "detailed", "in-depth", "prediction", "forecast", "outlook", "perspective"}
)

// IsBasicInfoQuery reports whether a short message only asks for price or basic facts
func IsBasicInfoQuery(message string) bool {
	lower := strings.ToLower(message)
	if len(strings.Fields(lower)) >= 10 {
		return false
	}
	for _, term := range analysisTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	for _, pattern := range basicPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

const basePrompt = "You are Nova, an advanced cryptocurrency analyst AI with expertise in technical analysis, fundamentals, and market behavior. Your analysis is data-driven, precise, and insightful, focusing on objective metrics rather than hype."

var systemFocus = map[AnalysisType]string{
	Comprehensive: "You provide detailed, holistic analysis covering fundamental metrics, technical indicators, and market dynamics. Your assessments are balanced, nuanced, and consider multiple timeframes. You clearly separate facts from opinion and emphasize risk management. You note limitations in the data when relevant.",
	Technical:     "You focus exclusively on technical analysis, interpreting chart patterns, indicators, and trading signals. You analyze price action, volume trends, support/resistance levels, and mathematical indicators. You avoid fundamental factors and focus on price movements and probabilities.",
	Fundamental:   "You focus on fundamental analysis of cryptocurrencies, examining tokenomics, utility, adoption metrics, and project fundamentals. You assess factors like supply distribution, developer activity, real-world usage, and value accrual mechanisms.",
	Risk:          "You focus on risk assessment, critically analyzing weaknesses, threats, and vulnerabilities. You evaluate liquidity risks, smart contract security, centralization concerns, regulatory threats, and market dynamics. Your assessment is cautious and prioritizes capital preservation.",
	Opportunity:   "You focus on identifying potential opportunities and growth catalysts, while still maintaining analytical rigor. You evaluate positive signals, undervalued metrics, competitive advantages, and market inefficiencies.",
}

var instructions = map[AnalysisType]string{
	Comprehensive: `Provide a comprehensive analysis with these sections:
1. Executive Summary (key findings in 2-3 sentences)
2. Price Analysis (recent movements, context, key levels)
3. Market Structure (liquidity, volume, buy/sell pressure)
4. Technical Outlook (indicator analysis, trend direction, signals)
5. Fundamental Assessment (tokenomics, utility, adoption metrics)
6. Risk Factors (specific risks and concerns)
7. Noteworthy Metrics (any standout data points)
8. Conclusion (objective synthesis of the data)

Do not make price predictions or give financial advice. Separate facts from interpretations and note data limitations.`,
	Technical: `Provide a technical analysis with these sections:
1. Key Technical Findings (2-3 sentence summary)
2. Price Action Analysis (trends, patterns, key levels)
3. Indicator Analysis (detailed interpretation of technical indicators)
4. Support & Resistance Levels (key price levels and their significance)
5. Volume Analysis (volume trends and what they suggest)
6. Technical Signals (bullish/bearish setups, divergences, or other patterns)
7. Technical Outlook (potential scenarios based on current indicators)

Focus exclusively on price action and technical indicators. Do not include fundamental factors or make specific price predictions.`,
	Fundamental: `Provide a fundamental analysis with these sections:
1. Key Fundamental Findings (2-3 sentence summary)
2. Tokenomics Assessment (supply metrics, distribution, emission schedule)
3. Utility & Value Accrual (token use cases and how value is captured)
4. Adoption Metrics (user growth, transaction volume, ecosystem development)
5. Developer Activity (codebase activity, updates, innovation)
6. Community & Market Position (community strength, competitive position)
7. Fundamental Outlook (analysis of project's fundamental health)

Focus on project fundamentals and adoption metrics rather than price movements or technical factors.`,
	Risk: `Provide a risk assessment with these sections:
1. Risk Summary (key risk factors in 2-3 sentences)
2. Liquidity & Market Risks (depth, concentration, slippage concerns)
3. Technical Vulnerabilities (concerning technical signals or patterns)
4. Fundamental Weaknesses (problematic tokenomics, adoption issues)
5. Security Considerations (contract risks, centralization concerns)
6. Competitive & External Threats (market position, competitive disadvantages)
7. Risk Mitigation Considerations (factors that could reduce identified risks)

Focus on identifying and analyzing possible risks. Be thorough and cautious in your assessment.`,
	Opportunity: `Provide an opportunity analysis with these sections:
1. Opportunity Summary (key potential in 2-3 sentences)
2. Technical Opportunities (positive indicators, potential setups)
3. Fundamental Strengths (strong metrics, competitive advantages)
4. Market Positioning (relative value, market inefficiencies)
5. Growth Catalysts (upcoming events, developing trends)
6. Comparative Advantages (standout metrics compared to peers)
7. Balanced Perspective (important counterbalancing factors to consider)

While focusing on potential opportunities, maintain analytical rigor and include a balanced perspective.`,
}

// SystemPrompt returns the analyst system prompt for t
func SystemPrompt(t AnalysisType) string {
	focus, ok := systemFocus[t]
	if !ok {
		focus = systemFocus[Comprehensive]
	}
	return basePrompt + "\n" + focus
}

// Instructions returns the numbered section layout the model should follow for t
func Instructions(t AnalysisType) string {
	if s, ok := instructions[t]; ok {
		return s
	}
	return instructions[Comprehensive]
}

// UserPrompt renders a report into the analysis request sent to the model
func UserPrompt(rep *models.AnalysisReport, t AnalysisType, additionalContext string) string {
	var sb strings.Builder
	sb.WriteString("Please analyze the following cryptocurrency data:\n\n")

	sb.WriteString("TOKEN INFORMATION:\n")
	sb.WriteString(FormatToken(rep.Token))
	sb.WriteString("\n\n")

	if rep.Dex != nil {
		sb.WriteString("DEX DATA:\n")
		sb.WriteString(FormatDex(rep.Dex))
	} else {
		sb.WriteString("No DEX data available.")
	}
	sb.WriteString("\n\n")

	if rep.Indicators != nil {
		sb.WriteString("TECHNICAL INDICATORS:\n")
		sb.WriteString(FormatIndicators(rep.Indicators))
	} else {
		sb.WriteString("No technical indicators available.")
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Data source: %s\n\n", rep.DataSource)

	if ctx := strings.TrimSpace(additionalContext); ctx != "" {
		fmt.Fprintf(&sb, "Additional context: %s\n\n", ctx)
	}

	sb.WriteString(Instructions(t))
	return sb.String()
}

// FormatToken renders token metadata as prompt lines
func FormatToken(t *models.TokenMetadata) string {
	if t == nil {
		return "No token data available."
	}

	lines := []string{
		fmt.Sprintf("Name: %s (%s)", t.Name, t.Symbol),
		"Current Price: $" + orNA(t.CurrentPrice, utils.FormatPrice),
		fmt.Sprintf("Market Cap: $%s (Rank: %s)", orNA(t.MarketCap, utils.FormatLargeNumber), rank(t.MarketCapRank)),
		"24h Volume: $" + orNA(t.TotalVolume, utils.FormatLargeNumber),
		"24h Change: " + orNA(t.PriceChangePercentage24h, utils.FormatPercent),
		"7d Change: " + orNA(t.PriceChangePercentage7d, utils.FormatPercent),
		"30d Change: " + orNA(t.PriceChangePercentage30d, utils.FormatPercent),
		"Circulating Supply: " + orNA(t.CirculatingSupply, utils.FormatLargeNumber),
		"Total Supply: " + orNA(t.TotalSupply, utils.FormatLargeNumber),
		"Max Supply: " + orNA(t.MaxSupply, utils.FormatLargeNumber),
		fmt.Sprintf("All-Time High: $%s (%s from ATH)", orNA(t.ATH, utils.FormatPrice), orNA(t.ATHChangePercentage, utils.FormatPercent)),
		fmt.Sprintf("All-Time Low: $%s (%s from ATL)", orNA(t.ATL, utils.FormatPrice), orNA(t.ATLChangePercentage, utils.FormatPercent)),
	}

	if t.Developer.CommitCount4Weeks > 0 {
		lines = append(lines, fmt.Sprintf("Developer Activity: %d commits in last 4 weeks", t.Developer.CommitCount4Weeks))
	} else {
		lines = append(lines, "Developer Activity: No data")
	}
	if t.Community.TwitterFollowers > 0 {
		lines = append(lines, fmt.Sprintf("Community: %d Twitter followers", t.Community.TwitterFollowers))
	} else {
		lines = append(lines, "Community: No data")
	}

	return strings.Join(lines, "\n")
}

// FormatDex renders the most liquid pair as prompt lines
func FormatDex(dex *models.DexMetadata) string {
	if dex == nil || len(dex.Pairs) == 0 || dex.MostLiquidPair == nil {
		return "No DEX data available."
	}
	p := dex.MostLiquidPair
	txns := p.Txns.H24

	return strings.Join([]string{
		fmt.Sprintf("Total Pairs Found: %d", dex.PairsCount),
		fmt.Sprintf("Most Liquid Pair: %s/%s on %s (%s)", p.BaseToken.Symbol, p.QuoteToken.Symbol, p.DexID, p.ChainID),
		"Pair Price: $" + orNA(p.PriceUSD, utils.FormatPrice),
		"Liquidity: $" + orNA(p.Liquidity.USD, utils.FormatLargeNumber),
		"24h Volume: $" + orNA(p.Volume.H24, utils.FormatLargeNumber),
		"24h Price Change: " + orNA(p.PriceChange.H24, utils.FormatPercent),
		fmt.Sprintf("24h Transactions: %d buys, %d sells", txns.Buys, txns.Sells),
		"Buy/Sell Ratio: " + utils.FormatFixed(float64(txns.Buys)/float64(max(txns.Sells, 1)), 2),
		"FDV: $" + orNA(p.FDV, utils.FormatLargeNumber),
		"Market Cap: $" + orNA(p.MarketCap, utils.FormatLargeNumber),
	}, "\n")
}

// FormatIndicators renders the indicator set as prompt lines
func FormatIndicators(ind *models.IndicatorSet) string {
	if ind == nil {
		return "No technical indicator data available."
	}
	f := report.FormatIndicators(ind)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Current Trend: %s\n", ind.Trend)
	sb.WriteString("Moving Averages:\n")
	fmt.Fprintf(&sb, "- SMA20: %s (Price %s from SMA20)\n", f.SMA20, f.SMA20VsPrice)
	fmt.Fprintf(&sb, "- SMA50: %s (Price %s from SMA50)\n", f.SMA50, f.SMA50VsPrice)
	fmt.Fprintf(&sb, "- SMA200: %s (Price %s from SMA200)\n\n", f.SMA200, f.SMA200VsPrice)

	fmt.Fprintf(&sb, "RSI (14): %s (%s)\n\n", f.RSI, ind.RSISignal)

	sb.WriteString("MACD:\n")
	fmt.Fprintf(&sb, "- MACD Line: %s\n", f.MACDLine)
	fmt.Fprintf(&sb, "- Signal Line: %s\n", f.MACDSignal)
	fmt.Fprintf(&sb, "- Histogram: %s (%s)\n\n", f.MACDHistogram, ind.MACDTrend)

	sb.WriteString("Bollinger Bands:\n")
	fmt.Fprintf(&sb, "- Upper: %s\n", f.BollingerUpper)
	fmt.Fprintf(&sb, "- Middle: %s\n", f.BollingerMiddle)
	fmt.Fprintf(&sb, "- Lower: %s\n", f.BollingerLower)
	fmt.Fprintf(&sb, "- Width: %s (%s)\n\n", f.BollingerWidth, ind.BollingerSignal)

	sb.WriteString("Volatility:\n")
	fmt.Fprintf(&sb, "- Daily: %s\n", f.VolatilityDaily)
	fmt.Fprintf(&sb, "- Annualized: %s\n\n", f.VolatilityAnnualized)

	fmt.Fprintf(&sb, "Support Levels: %s\n", levelList(f.Support))
	fmt.Fprintf(&sb, "Resistance Levels: %s", levelList(f.Resistance))

	if len(ind.Degraded) > 0 {
		fmt.Fprintf(&sb, "\nUnavailable (short history, %d samples): %s", ind.SampleCount, strings.Join(ind.Degraded, ", "))
	}
	return sb.String()
}

func levelList(levels []models.FormattedLevel) string {
	if len(levels) == 0 {
		return "None identified"
	}
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%s (%s)", l.Price, l.Strength)
	}
	return strings.Join(parts, ", ")
}

// orNA formats v, or returns N/A for a zero value
func orNA(v float64, format func(float64) string) string {
	if v == 0 {
		return utils.NotAvailable
	}
	return format(v)
}

func rank(r int) string {
	if r <= 0 {
		return utils.NotAvailable
	}
	return fmt.Sprint(r)
}
