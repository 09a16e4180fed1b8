package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/app"
	"github.com/Alias1177/NovaAnalyst/internal/bot"
	"github.com/Alias1177/NovaAnalyst/internal/config"
	"github.com/Alias1177/NovaAnalyst/internal/logging"
)

// handlerTimeout bounds the work done for a single update
const handlerTimeout = 2 * time.Minute

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger, closer := logging.Setup(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, FilePath: cfg.LogFile})
	defer closer.Close()

	if err := cfg.ValidateBot(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid bot configuration")
	}

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{WithStore: true})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	logger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	opts := bot.Options{
		Sender:         api,
		Analyzer:       a.Analyzer,
		Store:          a.Store,
		DefaultPersona: cfg.DefaultPersona,
	}
	if a.AI != nil {
		opts.Assistant = a.AI
	}
	b, err := bot.New(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Setup update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutdown signal received, waiting for handlers...")
			api.StopReceivingUpdates()
			wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(update tgbotapi.Update) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						logger.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("Update handler panicked")
					}
				}()

				hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
				defer cancel()
				b.HandleUpdate(hctx, update)
			}(update)
		}
	}
}

func configPath() string {
	if p := os.Getenv("NOVA_CONFIG"); p != "" {
		return p
	}
	return "nova.yaml"
}
