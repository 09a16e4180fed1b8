// Package bot implements the Telegram chat front-end.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/api/openai"
	"github.com/Alias1177/NovaAnalyst/internal/database"
	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// maxMessageLen is Telegram's limit for one text message
const maxMessageLen = 4096

// historyLimit is how many chat turns are remembered per chat
const historyLimit = 10

// Sender is the part of tgbotapi.BotAPI the bot uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Analyzer produces reports and market data
type Analyzer interface {
	AnalyzeToken(ctx context.Context, query string) (*models.AnalysisReport, error)
	MarketOverview(ctx context.Context) (*models.MarketOverview, error)
	Trending(ctx context.Context) ([]models.TrendingCoin, error)
	Health(ctx context.Context) models.APIHealth
}

// Assistant writes analyses and chat replies
type Assistant interface {
	AnalyzeReport(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType, additionalContext string) (*gpt.Analysis, error)
	Chat(ctx context.Context, persona gpt.Persona, system string, history []openai.ChatMessage, message string) (string, error)
}

// Bot routes chat messages to the analyzer, the assistant and the store
type Bot struct {
	sender         Sender
	analyzer       Analyzer
	assistant      Assistant // nil disables AI replies
	store          database.Store
	defaultPersona string
	logger         zerolog.Logger
	now            func() time.Time

	mu      sync.Mutex
	history map[int64][]openai.ChatMessage
}

// Options configures a Bot
type Options struct {
	Sender         Sender
	Analyzer       Analyzer
	Assistant      Assistant
	Store          database.Store
	DefaultPersona string
}

// New creates a Bot
func New(opts Options) (*Bot, error) {
	if opts.Sender == nil || opts.Analyzer == nil || opts.Store == nil {
		return nil, errors.New("bot: sender, analyzer and store are required")
	}
	if _, ok := gpt.LookupPersona(opts.DefaultPersona); !ok {
		opts.DefaultPersona = gpt.DefaultPersona
	}

	return &Bot{
		sender:         opts.Sender,
		analyzer:       opts.Analyzer,
		assistant:      opts.Assistant,
		store:          opts.Store,
		defaultPersona: opts.DefaultPersona,
		logger:         log.With().Str("component", "telegram_bot").Logger(),
		now:            time.Now,
		history:        make(map[int64][]openai.ChatMessage),
	}, nil
}

// HandleUpdate dispatches one Telegram update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	if !message.IsCommand() {
		b.handleChat(ctx, chatID, message.Text)
		return
	}

	b.logger.Debug().Int64("chat_id", chatID).Str("command", message.Command()).Str("args", args).Msg("Command received")

	switch message.Command() {
	case "start", "help":
		persona := b.persona(ctx, chatID)
		b.reply(chatID, persona.DefaultPrompt+"\n\n"+helpText)
	case "analyze":
		b.handleAnalyze(ctx, chatID, args)
	case "summary":
		b.withReport(ctx, chatID, args, func(rep *models.AnalysisReport) {
			b.reply(chatID, gpt.QuickSummary(rep))
		})
	case "ta":
		b.withReport(ctx, chatID, args, func(rep *models.AnalysisReport) {
			b.reply(chatID, technicalReply(rep))
		})
	case "persona":
		b.handlePersona(ctx, chatID, args)
	case "watch":
		b.handleWatch(ctx, chatID, args)
	case "unwatch":
		b.handleUnwatch(ctx, chatID, args)
	case "watchlist":
		b.handleWatchlist(ctx, chatID)
	case "market":
		b.reply(chatID, b.marketReply(ctx))
	case "health":
		b.reply(chatID, healthReply(b.analyzer.Health(ctx)))
	default:
		b.reply(chatID, "Unknown command.\n\n"+helpText)
	}
}

const helpText = `Commands:
/analyze <token> [technical|fundamental|risk|opportunity] - full analysis
/summary <token> - quick summary
/ta <token> - technical indicators
/persona [name] - show or switch persona
/watch <token> - add to your daily digest
/unwatch <token> - remove from your digest
/watchlist - show your digest tokens
/market - global market overview
/health - upstream API status`

func (b *Bot) handleAnalyze(ctx context.Context, chatID int64, args string) {
	query, kind := splitAnalysisArgs(args)
	if kind == "" {
		kind = b.persona(ctx, chatID).Analysis
	}

	b.withReport(ctx, chatID, query, func(rep *models.AnalysisReport) {
		analysis := gpt.FallbackAnalysis(rep)
		if b.assistant != nil {
			var err error
			analysis, err = b.assistant.AnalyzeReport(ctx, rep, kind, "")
			if err != nil {
				b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("AI analysis failed, sending fallback")
			}
		}
		b.reply(chatID, analysis.AnalysisText)
	})
}

// splitAnalysisArgs separates an optional trailing analysis type from the query
func splitAnalysisArgs(args string) (string, gpt.AnalysisType) {
	fields := strings.Fields(args)
	if len(fields) > 1 {
		last := strings.ToLower(fields[len(fields)-1])
		if kind := gpt.ParseAnalysisType(last); string(kind) == last {
			return strings.Join(fields[:len(fields)-1], " "), kind
		}
	}
	return args, ""
}

func (b *Bot) withReport(ctx context.Context, chatID int64, query string, fn func(*models.AnalysisReport)) {
	if query == "" {
		b.reply(chatID, "Please tell me which token, e.g. /summary bitcoin")
		return
	}

	b.typing(chatID)
	rep, err := b.analyzer.AnalyzeToken(ctx, query)
	if err != nil {
		if errors.Is(err, models.ErrNoData) {
			b.reply(chatID, gpt.QuickSummary(&models.AnalysisReport{Query: query}))
			return
		}
		b.logger.Error().Err(err).Str("query", query).Msg("Analysis failed")
		b.reply(chatID, "Sorry, I couldn't reach the market data providers. Please try again later.")
		return
	}
	fn(rep)
}

func technicalReply(rep *models.AnalysisReport) string {
	name := rep.Query
	if rep.Token != nil {
		name = fmt.Sprintf("%s (%s)", rep.Token.Name, rep.Token.Symbol)
	}
	if rep.Indicators == nil {
		return fmt.Sprintf("No price history is available for %s, so technical indicators can't be computed.", name)
	}
	return fmt.Sprintf("Technical indicators for %s\n\n%s\n\nSentiment: %s (score %d)",
		name, gpt.FormatIndicators(rep.Indicators), rep.Sentiment.Label, rep.Sentiment.Score)
}

func (b *Bot) handlePersona(ctx context.Context, chatID int64, args string) {
	if args == "" {
		current := b.persona(ctx, chatID)
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("You're talking to %s, the %s. Pick a persona:", current.Name, current.Title))
		msg.ReplyMarkup = personaKeyboard()
		b.send(msg)
		return
	}
	b.setPersona(ctx, chatID, args)
}

func (b *Bot) setPersona(ctx context.Context, chatID int64, key string) {
	persona, ok := gpt.LookupPersona(key)
	if !ok {
		b.reply(chatID, fmt.Sprintf("Unknown persona %q. Available: %s", key, strings.Join(gpt.PersonaKeys(), ", ")))
		return
	}
	if err := b.store.SetPersona(ctx, chatID, strings.ToLower(strings.TrimSpace(key))); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error saving persona")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	b.clearHistory(chatID)
	b.reply(chatID, persona.DefaultPrompt)
}

// personaKeyboard lists personas as inline buttons, two per row
func personaKeyboard() tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for i, key := range gpt.PersonaKeys() {
		if i%2 == 0 && i > 0 {
			keyboard = append(keyboard, row)
			row = []tgbotapi.InlineKeyboardButton{}
		}
		p, _ := gpt.LookupPersona(key)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s - %s", p.Name, p.Title), "persona_"+key))
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	// Acknowledge the callback query
	if _, err := b.sender.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Debug().Err(err).Msg("Error acknowledging callback")
	}

	if key, ok := strings.CutPrefix(callback.Data, "persona_"); ok {
		b.setPersona(ctx, chatID, key)
	}
}

func (b *Bot) handleWatch(ctx context.Context, chatID int64, query string) {
	if query == "" {
		b.reply(chatID, "Usage: /watch <token>")
		return
	}
	added, err := b.store.AddWatch(ctx, chatID, query, b.personaKey(ctx, chatID))
	switch {
	case errors.Is(err, database.ErrWatchlistFull):
		b.reply(chatID, fmt.Sprintf("Your watchlist is full (%d tokens). Remove one with /unwatch first.", database.MaxWatchlist))
	case err != nil:
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error adding watch")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
	case !added:
		b.reply(chatID, fmt.Sprintf("%s is already on your watchlist.", query))
	default:
		b.reply(chatID, fmt.Sprintf("Added %s to your watchlist.", query))
	}
}

func (b *Bot) handleUnwatch(ctx context.Context, chatID int64, query string) {
	if query == "" {
		b.reply(chatID, "Usage: /unwatch <token>")
		return
	}
	removed, err := b.store.RemoveWatch(ctx, chatID, query)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error removing watch")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	if !removed {
		b.reply(chatID, fmt.Sprintf("%s was not on your watchlist.", query))
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed %s from your watchlist.", query))
}

func (b *Bot) handleWatchlist(ctx context.Context, chatID int64) {
	entries, err := b.store.ListWatchlist(ctx, chatID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Error listing watchlist")
		b.reply(chatID, "Sorry, there was an error. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.reply(chatID, "Your watchlist is empty. Add tokens with /watch <token>.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Your watchlist:\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. %s (since %s)\n", i+1, e.Query, e.CreatedAt.Format("2006-01-02"))
	}
	b.reply(chatID, strings.TrimRight(sb.String(), "\n"))
}

func (b *Bot) marketReply(ctx context.Context) string {
	var sb strings.Builder

	overview, err := b.analyzer.MarketOverview(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Market overview failed")
		sb.WriteString("Global market data is unavailable right now.\n")
	} else {
		sb.WriteString("Global market\n")
		fmt.Fprintf(&sb, "Total market cap: $%s (%s 24h)\n", utils.FormatLargeNumber(overview.TotalMarketCap), utils.FormatPercent(overview.MarketCapChange24hPercentage))
		fmt.Fprintf(&sb, "24h volume: $%s\n", utils.FormatLargeNumber(overview.TotalVolume24h))
		fmt.Fprintf(&sb, "BTC dominance: %s, ETH dominance: %s\n", utils.FormatPercent(overview.BTCDominance), utils.FormatPercent(overview.ETHDominance))
	}

	trending, err := b.analyzer.Trending(ctx)
	if err == nil && len(trending) > 0 {
		sb.WriteString("\nTrending searches:\n")
		for i, c := range trending {
			if i == 7 {
				break
			}
			fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, c.Name, c.Symbol)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func healthReply(h models.APIHealth) string {
	line := func(name string, u models.UpstreamHealth) string {
		if u.Status == models.StatusOnline {
			return fmt.Sprintf("%s: online (%d ms)", name, u.ResponseTime.Milliseconds())
		}
		return fmt.Sprintf("%s: offline (%s)", name, u.Error)
	}
	return "API status\n" + line("CoinGecko", h.CoinGecko) + "\n" + line("DexScreener", h.DexScreener)
}

// handleChat answers free text in the chat's persona
func (b *Bot) handleChat(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.assistant == nil {
		b.reply(chatID, "AI chat is not configured. Try /summary <token> or /help.")
		return
	}

	persona := b.persona(ctx, chatID)
	b.typing(chatID)

	answer, err := b.assistant.Chat(ctx, persona, persona.ChatSystemPrompt(b.now()), b.chatHistory(chatID), text)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Chat completion failed")
		b.reply(chatID, "I'm having trouble thinking right now. Please try again in a moment.")
		return
	}

	b.remember(chatID, openai.ChatMessage{FromUser: true, Content: text}, openai.ChatMessage{Content: answer})
	b.reply(chatID, answer)
}

func (b *Bot) chatHistory(chatID int64) []openai.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]openai.ChatMessage(nil), b.history[chatID]...)
}

func (b *Bot) remember(chatID int64, msgs ...openai.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[chatID], msgs...)
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	b.history[chatID] = h
}

func (b *Bot) clearHistory(chatID int64) {
	b.mu.Lock()
	delete(b.history, chatID)
	b.mu.Unlock()
}

func (b *Bot) personaKey(ctx context.Context, chatID int64) string {
	key, err := b.store.GetPersona(ctx, chatID)
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Error loading persona")
	}
	if _, ok := gpt.LookupPersona(key); !ok {
		return b.defaultPersona
	}
	return key
}

func (b *Bot) persona(ctx context.Context, chatID int64) gpt.Persona {
	return gpt.PersonaOrDefault(b.personaKey(ctx, chatID))
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug().Err(err).Msg("Error sending chat action")
	}
}

// reply sends text, split into Telegram-sized messages
func (b *Bot) reply(chatID int64, text string) {
	for _, part := range SplitMessage(text, maxMessageLen) {
		b.send(tgbotapi.NewMessage(chatID, part))
	}
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Error sending message")
	}
}

// SplitMessage breaks text into chunks of at most limit bytes, preferring
// line breaks
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			// don't split a multi-byte rune
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
