package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/NovaAnalyst/internal/app"
	"github.com/Alias1177/NovaAnalyst/internal/bot"
	"github.com/Alias1177/NovaAnalyst/internal/config"
	"github.com/Alias1177/NovaAnalyst/internal/logging"
)

// runTimeout bounds a single digest run
const runTimeout = 30 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "broadcast",
		Short: "Send watchlist digests to Telegram chats",
		Long: `broadcast sends every chat with a watchlist a short digest of its tokens.
By default it stays running and sends on the configured cron schedule.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, closer := logging.Setup(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, FilePath: cfg.LogFile})
			defer closer.Close()

			if err := cfg.ValidateBot(); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, app.Options{WithStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
			if err != nil {
				return fmt.Errorf("initialize Telegram bot: %w", err)
			}

			b := bot.NewBroadcaster(api, a.Analyzer, a.Store).WithQuotes(a.Analyzer)

			if once {
				return runDigest(ctx, b)
			}

			c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			if _, err := c.AddFunc(cfg.BroadcastCron, func() {
				if err := runDigest(ctx, b); err != nil {
					log.Error().Err(err).Msg("Digest run failed")
				}
			}); err != nil {
				return fmt.Errorf("schedule %q: %w", cfg.BroadcastCron, err)
			}

			c.Start()
			logger.Info().Str("schedule", cfg.BroadcastCron).Msg("Digest scheduler started")

			<-ctx.Done()
			logger.Info().Msg("Shutdown signal received, waiting for running digest...")
			<-c.Stop().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "nova.yaml", "path to the YAML config file")
	cmd.Flags().BoolVar(&once, "once", false, "send one round of digests and exit")
	return cmd
}

func runDigest(ctx context.Context, b *bot.Broadcaster) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	started := time.Now()
	stats, err := b.Run(ctx)

	event := log.Info()
	if err != nil {
		event = log.Warn().Err(err)
	}
	rate := 0.0
	if stats.Sent+stats.Failed > 0 {
		rate = float64(stats.Sent) / float64(stats.Sent+stats.Failed) * 100
	}
	event.
		Int("chats", stats.Chats).
		Int("tokens", stats.Tokens).
		Int("sent", stats.Sent).
		Int("failed", stats.Failed).
		Float64("success_rate", rate).
		Dur("took", time.Since(started)).
		Msg("Digest run completed")
	return err
}
