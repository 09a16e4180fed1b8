package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/NovaAnalyst/internal/api/openai"
	"github.com/Alias1177/NovaAnalyst/internal/database"
	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/models"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Markup interface{}
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	requests []tgbotapi.Chattable
	failFor  map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	if f.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, sentMessage{ChatID: msg.ChatID, Text: msg.Text, Markup: msg.ReplyMarkup})
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.sent[len(f.sent)-1]
}

type fakeAnalyzer struct {
	reports map[string]*models.AnalysisReport
	errs    map[string]error
	calls   map[string]int
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		reports: map[string]*models.AnalysisReport{"btc": btcReport()},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeAnalyzer) AnalyzeToken(ctx context.Context, query string) (*models.AnalysisReport, error) {
	f.calls[query]++
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if rep, ok := f.reports[query]; ok {
		return rep, nil
	}
	return nil, &models.NoDataError{Query: query}
}

func (f *fakeAnalyzer) MarketOverview(ctx context.Context) (*models.MarketOverview, error) {
	return &models.MarketOverview{TotalMarketCap: 2.5e12, TotalVolume24h: 9.8e10, BTCDominance: 52.1, ETHDominance: 16.7, MarketCapChange24hPercentage: 1.25}, nil
}

func (f *fakeAnalyzer) Trending(ctx context.Context) ([]models.TrendingCoin, error) {
	return []models.TrendingCoin{{Name: "Pepe", Symbol: "PEPE"}, {Name: "Solana", Symbol: "SOL"}}, nil
}

func (f *fakeAnalyzer) Health(ctx context.Context) models.APIHealth {
	return models.APIHealth{
		CoinGecko:   models.UpstreamHealth{Status: models.StatusOnline, ResponseTime: 120 * time.Millisecond},
		DexScreener: models.UpstreamHealth{Status: models.StatusOffline, Error: "timeout"},
	}
}

type fakeAssistant struct {
	kind    gpt.AnalysisType
	persona gpt.Persona
	history []openai.ChatMessage
	err     error
}

func (f *fakeAssistant) AnalyzeReport(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType, extra string) (*gpt.Analysis, error) {
	f.kind = kind
	if f.err != nil {
		return gpt.FallbackAnalysis(rep), f.err
	}
	return &gpt.Analysis{AnalysisText: "AI says: " + rep.Query, AIGenerated: true}, nil
}

func (f *fakeAssistant) Chat(ctx context.Context, persona gpt.Persona, system string, history []openai.ChatMessage, message string) (string, error) {
	f.persona = persona
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return persona.Name + " heard: " + message, nil
}

func btcReport() *models.AnalysisReport {
	return &models.AnalysisReport{
		Query:      "btc",
		Valid:      true,
		DataSource: models.SourceCoinGeckoOnly,
		Token: &models.TokenMetadata{
			ID:                       "bitcoin",
			Name:                     "Bitcoin",
			Symbol:                   "BTC",
			CurrentPrice:             65000,
			PriceChangePercentage24h: 2.5,
		},
		Sentiment: models.Sentiment{Score: 3, Label: "Bullish"},
	}
}

type harness struct {
	bot       *Bot
	sender    *fakeSender
	analyzer  *fakeAnalyzer
	assistant *fakeAssistant
	store     *database.Memory
}

func newHarness(t *testing.T, withAI bool) *harness {
	t.Helper()
	h := &harness{
		sender:   &fakeSender{},
		analyzer: newFakeAnalyzer(),
		store:    database.NewMemory(),
	}
	opts := Options{Sender: h.sender, Analyzer: h.analyzer, Store: h.store, DefaultPersona: "nova"}
	if withAI {
		h.assistant = &fakeAssistant{}
		opts.Assistant = h.assistant
	}

	b, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	b.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	h.bot = b
	return h
}

const chatID int64 = 1001

func command(text string) tgbotapi.Update {
	name := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}}
}

func text(msg string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: msg}}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{Sender: &fakeSender{}}); err == nil {
		t.Error("expected an error")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"start", "/start", []string{"I'm Nova, your Logic-Driven Analyst", "/watch <token>"}},
		{"summary", "/summary btc", []string{"Bitcoin (BTC) is currently trading at $65000.000000.", "appears bullish."}},
		{"summary without token", "/summary", []string{"Please tell me which token"}},
		{"no data", "/summary ghost", []string{"couldn't find sufficient data for ghost"}},
		{"ta without history", "/ta btc", []string{"No price history is available for Bitcoin (BTC)"}},
		{"market", "/market", []string{"Total market cap: $2.50T (1.25% 24h)", "BTC dominance: 52.10%", "1. Pepe (PEPE)"}},
		{"health", "/health", []string{"CoinGecko: online (120 ms)", "DexScreener: offline (timeout)"}},
		{"unknown", "/moon", []string{"Unknown command."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.bot.HandleUpdate(context.Background(), command(tt.input))

			got := h.sender.last(t).Text
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("reply %q missing %q", got, want)
				}
			}
		})
	}
}

func TestUpstreamFailureReply(t *testing.T) {
	h := newHarness(t, false)
	h.analyzer.errs["eth"] = errors.New("connection reset")

	h.bot.HandleUpdate(context.Background(), command("/summary eth"))
	if got := h.sender.last(t).Text; !strings.Contains(got, "couldn't reach the market data providers") {
		t.Errorf("reply = %q", got)
	}
}

func TestTechnicalReply(t *testing.T) {
	h := newHarness(t, false)
	rep := btcReport()
	rep.Indicators = &models.IndicatorSet{
		Trend:        models.TrendBullish,
		RSI14:        62.5,
		RSISignal:    models.SignalNeutral,
		CurrentPrice: 65000,
		Support:      []models.Level{},
		Resistance:   []models.Level{},
	}
	h.analyzer.reports["btc"] = rep

	h.bot.HandleUpdate(context.Background(), command("/ta btc"))
	got := h.sender.last(t).Text
	for _, want := range []string{"Technical indicators for Bitcoin (BTC)", "Current Trend: bullish", "RSI (14): 62.50", "Sentiment: Bullish (score 3)"} {
		if !strings.Contains(got, want) {
			t.Errorf("reply missing %q", want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("explicit type", func(t *testing.T) {
		h := newHarness(t, true)
		h.bot.HandleUpdate(context.Background(), command("/analyze btc risk"))
		if h.assistant.kind != gpt.Risk {
			t.Errorf("kind = %s", h.assistant.kind)
		}
		if h.analyzer.calls["btc"] != 1 {
			t.Errorf("calls = %v", h.analyzer.calls)
		}
		if got := h.sender.last(t).Text; got != "AI says: btc" {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("persona type", func(t *testing.T) {
		h := newHarness(t, true)
		h.store.SetPersona(context.Background(), chatID, "vega")
		h.bot.HandleUpdate(context.Background(), command("/analyze btc"))
		if h.assistant.kind != gpt.Technical {
			t.Errorf("kind = %s, want technical for Vega", h.assistant.kind)
		}
	})

	t.Run("without AI", func(t *testing.T) {
		h := newHarness(t, false)
		h.bot.HandleUpdate(context.Background(), command("/analyze btc"))
		if got := h.sender.last(t).Text; !strings.HasPrefix(got, "## Price Analysis") {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("AI failure sends fallback", func(t *testing.T) {
		h := newHarness(t, true)
		h.assistant.err = errors.New("rate limited")
		h.bot.HandleUpdate(context.Background(), command("/analyze btc"))
		if got := h.sender.last(t).Text; !strings.Contains(got, "## Conclusion") {
			t.Errorf("reply = %q", got)
		}
	})
}

func TestSplitAnalysisArgs(t *testing.T) {
	tests := []struct {
		args      string
		wantQuery string
		wantKind  gpt.AnalysisType
	}{
		{"btc", "btc", ""},
		{"btc technical", "btc", gpt.Technical},
		{"shiba inu Opportunity", "shiba inu", gpt.Opportunity},
		{"shiba inu", "shiba inu", ""},
		{"risk", "risk", ""},
	}
	for _, tt := range tests {
		q, k := splitAnalysisArgs(tt.args)
		if q != tt.wantQuery || k != tt.wantKind {
			t.Errorf("splitAnalysisArgs(%q) = %q, %q", tt.args, q, k)
		}
	}
}

func TestPersonaSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	h.bot.HandleUpdate(ctx, command("/persona"))
	last := h.sender.last(t)
	if _, ok := last.Markup.(tgbotapi.InlineKeyboardMarkup); !ok || !strings.Contains(last.Text, "Nova") {
		t.Errorf("persona menu = %+v", last)
	}

	h.bot.HandleUpdate(ctx, command("/persona Vega"))
	if got, _ := h.store.GetPersona(ctx, chatID); got != "vega" {
		t.Errorf("stored persona = %q", got)
	}
	if !strings.HasPrefix(h.sender.last(t).Text, "Vega online.") {
		t.Errorf("reply = %q", h.sender.last(t).Text)
	}

	h.bot.HandleUpdate(ctx, command("/persona zeus"))
	if !strings.Contains(h.sender.last(t).Text, "astra, ember, luna, nova, vega") {
		t.Errorf("reply = %q", h.sender.last(t).Text)
	}

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    "persona_luna",
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
	h.bot.HandleUpdate(ctx, callback)
	if got, _ := h.store.GetPersona(ctx, chatID); got != "luna" {
		t.Errorf("stored persona after callback = %q", got)
	}
	if len(h.sender.requests) == 0 {
		t.Error("callback not acknowledged")
	}
}

func TestWatchlistCommands(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	steps := []struct {
		input string
		want  string
	}{
		{"/watchlist", "Your watchlist is empty."},
		{"/watch", "Usage: /watch <token>"},
		{"/watch BTC", "Added BTC to your watchlist."},
		{"/watch btc", "btc is already on your watchlist."},
		{"/watch pepe", "Added pepe"},
		{"/watchlist", "1. btc (since "},
		{"/unwatch doge", "doge was not on your watchlist."},
		{"/unwatch btc", "Removed btc"},
		{"/watchlist", "1. pepe"},
	}
	for _, step := range steps {
		h.bot.HandleUpdate(ctx, command(step.input))
		if got := h.sender.last(t).Text; !strings.Contains(got, step.want) {
			t.Errorf("%s: reply = %q, want %q", step.input, got, step.want)
		}
	}

	entries, _ := h.store.ListWatchlist(ctx, chatID)
	if len(entries) != 1 || entries[0].Persona != "nova" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFreeTextChat(t *testing.T) {
	ctx := context.Background()

	t.Run("without AI", func(t *testing.T) {
		h := newHarness(t, false)
		h.bot.HandleUpdate(ctx, text("hello"))
		if got := h.sender.last(t).Text; !strings.Contains(got, "not configured") {
			t.Errorf("reply = %q", got)
		}
	})

	t.Run("with AI keeps history", func(t *testing.T) {
		h := newHarness(t, true)
		h.store.SetPersona(ctx, chatID, "ember")

		h.bot.HandleUpdate(ctx, text("is pepe safe?"))
		if got := h.sender.last(t).Text; got != "Ember heard: is pepe safe?" {
			t.Errorf("reply = %q", got)
		}
		if len(h.assistant.history) != 0 {
			t.Errorf("first turn history = %d", len(h.assistant.history))
		}

		h.bot.HandleUpdate(ctx, text("and doge?"))
		if len(h.assistant.history) != 2 || !h.assistant.history[0].FromUser {
			t.Errorf("history = %+v", h.assistant.history)
		}

		for i := 0; i < 10; i++ {
			h.bot.HandleUpdate(ctx, text("more"))
		}
		if got := len(h.bot.chatHistory(chatID)); got != historyLimit {
			t.Errorf("history length = %d, want %d", got, historyLimit)
		}

		// switching persona starts a fresh conversation
		h.bot.HandleUpdate(ctx, command("/persona nova"))
		if got := len(h.bot.chatHistory(chatID)); got != 0 {
			t.Errorf("history after persona switch = %d", got)
		}
	})

	t.Run("AI failure", func(t *testing.T) {
		h := newHarness(t, true)
		h.assistant.err = errors.New("timeout")
		h.bot.HandleUpdate(ctx, text("hi"))
		if got := h.sender.last(t).Text; !strings.Contains(got, "trouble thinking") {
			t.Errorf("reply = %q", got)
		}
		if len(h.bot.chatHistory(chatID)) != 0 {
			t.Error("failed turn remembered")
		}
	})
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "hello", 10, []string{"hello"}},
		{"line break", "aaaa\nbbbb\ncc", 10, []string{"aaaa\nbbbb", "cc"}},
		{"hard cut", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"multibyte", "ééé", 3, []string{"é", "é", "é"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("SplitMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
