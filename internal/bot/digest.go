package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/database"
	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// sendDelay spaces out messages; Telegram allows about 30 per second per bot
const sendDelay = 50 * time.Millisecond

// BroadcastStats summarises one digest run
type BroadcastStats struct {
	Chats  int
	Tokens int
	Sent   int
	Failed int
}

// QuoteSource refreshes prices for several CoinGecko ids in one call
type QuoteSource interface {
	Quotes(ctx context.Context, ids []string) ([]models.MarketQuote, error)
}

// Broadcaster sends each chat a digest of its watchlist
type Broadcaster struct {
	sender   Sender
	analyzer Analyzer
	quotes   QuoteSource // nil keeps report prices
	store    database.Store
	delay    time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewBroadcaster creates a Broadcaster
func NewBroadcaster(sender Sender, analyzer Analyzer, store database.Store) *Broadcaster {
	return &Broadcaster{
		sender:   sender,
		analyzer: analyzer,
		store:    store,
		delay:    sendDelay,
		now:      time.Now,
		logger:   log.With().Str("component", "broadcaster").Logger(),
	}
}

// WithQuotes makes digests show prices from one batched quote refresh
// instead of the possibly cached report prices
func (b *Broadcaster) WithQuotes(q QuoteSource) *Broadcaster {
	b.quotes = q
	return b
}

// Run sends one digest per chat. Each distinct token is analysed once per
// run even when several chats watch it.
func (b *Broadcaster) Run(ctx context.Context) (BroadcastStats, error) {
	var stats BroadcastStats

	entries, err := b.store.AllWatchlists(ctx)
	if err != nil {
		return stats, fmt.Errorf("load watchlists: %w", err)
	}

	groups := database.GroupByChat(entries)
	chats := make([]int64, 0, len(groups))
	for id := range groups {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })
	stats.Chats = len(chats)

	reports := make(map[string]digestLine)
	for _, chatID := range chats {
		for _, e := range groups[chatID] {
			if _, ok := reports[e.Query]; ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			reports[e.Query] = b.analyze(ctx, e.Query)
		}
	}
	stats.Tokens = len(reports)
	b.refreshQuotes(ctx, reports)

	for i, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		lines := make([]digestLine, 0, len(groups[chatID]))
		for _, e := range groups[chatID] {
			lines = append(lines, reports[e.Query])
		}

		persona := gpt.PersonaOrDefault(groups[chatID][0].Persona)
		text := formatDigest(persona, b.now(), lines)
		for _, part := range SplitMessage(text, maxMessageLen) {
			if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
				b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send digest")
				stats.Failed++
				continue
			}
			stats.Sent++
		}

		if i < len(chats)-1 && b.delay > 0 {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(b.delay):
			}
		}
	}

	b.logger.Info().
		Int("chats", stats.Chats).
		Int("tokens", stats.Tokens).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Msg("Broadcast completed")
	return stats, nil
}

// digestLine is one token's row in a digest
type digestLine struct {
	Query  string
	Report *models.AnalysisReport
	Quote  *models.MarketQuote
	Err    error
}

// refreshQuotes attaches fresh quotes to lines backed by CoinGecko data.
// Failures are logged and the report prices are kept.
func (b *Broadcaster) refreshQuotes(ctx context.Context, lines map[string]digestLine) {
	if b.quotes == nil {
		return
	}

	var ids []string
	for _, l := range lines {
		if l.Report != nil && l.Report.Token != nil && l.Report.Token.ID != "" {
			ids = append(ids, l.Report.Token.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)

	quotes, err := b.quotes.Quotes(ctx, ids)
	if err != nil {
		b.logger.Warn().Err(err).Int("ids", len(ids)).Msg("Quote refresh failed, using report prices")
		return
	}

	byID := make(map[string]models.MarketQuote, len(quotes))
	for _, q := range quotes {
		byID[q.ID] = q
	}
	for query, l := range lines {
		if l.Report == nil || l.Report.Token == nil {
			continue
		}
		if q, ok := byID[l.Report.Token.ID]; ok {
			l.Quote = &q
			lines[query] = l
		}
	}
}

func (b *Broadcaster) analyze(ctx context.Context, query string) digestLine {
	rep, err := b.analyzer.AnalyzeToken(ctx, query)
	if err != nil && !errors.Is(err, models.ErrNoData) {
		b.logger.Warn().Err(err).Str("query", query).Msg("Digest analysis failed")
	}
	return digestLine{Query: query, Report: rep, Err: err}
}

// formatDigest renders a chat's digest in the persona's voice
func formatDigest(persona gpt.Persona, now time.Time, lines []digestLine) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s's watchlist digest for %s\n\n", persona.Name, now.Format("2006-01-02"))

	for _, l := range lines {
		sb.WriteString(formatDigestLine(l))
		sb.WriteString("\n")
	}

	sb.WriteString("\nThis is analysis, not financial advice.")
	return sb.String()
}

func formatDigestLine(l digestLine) string {
	if l.Err != nil || l.Report == nil || !l.Report.Valid {
		return fmt.Sprintf("- %s: no data available", l.Query)
	}

	rep := l.Report
	var parts []string

	name := l.Query
	price := 0.0
	change := 0.0
	switch {
	case rep.Token != nil:
		name = fmt.Sprintf("%s (%s)", rep.Token.Name, rep.Token.Symbol)
		price = rep.Token.CurrentPrice
		change = rep.Token.PriceChangePercentage24h
		if l.Quote != nil {
			price = l.Quote.CurrentPrice
			change = l.Quote.PriceChangePercentage24h
		}
	case rep.Dex != nil && rep.Dex.MostLiquidPair != nil:
		p := rep.Dex.MostLiquidPair
		name = fmt.Sprintf("%s (%s)", p.BaseToken.Name, p.BaseToken.Symbol)
		price = p.PriceUSD
		change = p.PriceChange.H24
	}

	if price > 0 {
		parts = append(parts, "$"+utils.FormatPrice(price))
	}
	if change != 0 {
		parts = append(parts, utils.FormatPercent(change)+" 24h")
	}
	if rep.Indicators != nil && !rep.Indicators.IsDegraded(models.IndicatorTrend) {
		parts = append(parts, string(rep.Indicators.Trend)+" trend")
	}
	if rep.Sentiment.Label != "" {
		parts = append(parts, rep.Sentiment.Label)
	}

	if len(parts) == 0 {
		return fmt.Sprintf("- %s", name)
	}
	return fmt.Sprintf("- %s: %s", name, strings.Join(parts, ", "))
}
