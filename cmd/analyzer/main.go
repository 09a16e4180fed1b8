package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/NovaAnalyst/internal/analysis/fusion"
	"github.com/Alias1177/NovaAnalyst/internal/app"
	"github.com/Alias1177/NovaAnalyst/internal/calculate"
	"github.com/Alias1177/NovaAnalyst/internal/config"
	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/internal/logging"
	"github.com/Alias1177/NovaAnalyst/internal/report"
	"github.com/Alias1177/NovaAnalyst/internal/server"
	"github.com/Alias1177/NovaAnalyst/internal/utils"
	"github.com/Alias1177/NovaAnalyst/models"
)

// cli carries state shared by the subcommands
type cli struct {
	configPath string
	logLevel   string
	jsonOut    bool

	cfg *config.Config
	app *app.App
	log io.Closer
}

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "analyzer",
		Short: "Crypto token technical analysis over CoinGecko and DexScreener",
		Long: `analyzer fuses CoinGecko metadata, DexScreener pair data and indicators
computed from daily price history into one analysis report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "nova.yaml", "path to the YAML config file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "print JSON instead of text")

	root.AddCommand(
		newTokenCmd(c),
		newIndicatorsCmd(c),
		newMarketCmd(c),
		newHealthCmd(c),
		newServeCmd(c),
	)
	return root
}

// setup loads configuration and configures logging
func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	c.cfg = cfg

	_, c.log = logging.Setup(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, FilePath: cfg.LogFile})
	return nil
}

// application builds the clients on first use
func (c *cli) application(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(ctx, c.cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() error {
	var errs []error
	if c.app != nil {
		errs = append(errs, c.app.Close())
	}
	if c.log != nil {
		errs = append(errs, c.log.Close())
	}
	return errors.Join(errs...)
}

func (c *cli) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTokenCmd(c *cli) *cobra.Command {
	var (
		kind   string
		withAI bool
	)

	cmd := &cobra.Command{
		Use:   "token <query>",
		Short: "Analyze a token by name, symbol or contract address",
		Example: `  analyzer token bitcoin
  analyzer token pepe --ai --type risk
  analyzer token 0x6982508145454ce325ddbe47a25d4ec3d2311933 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}

			rep, err := a.Analyzer.AnalyzeToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return c.printJSON(out, rep)
			}

			fmt.Fprintln(out, gpt.QuickSummary(rep))
			fmt.Fprintf(out, "\nData source: %s\n", rep.DataSource)
			if rep.Indicators != nil {
				fmt.Fprintf(out, "\n%s\n", gpt.FormatIndicators(rep.Indicators))
			}
			for _, w := range rep.Warnings {
				fmt.Fprintf(out, "Warning: %s\n", w)
			}

			if withAI {
				analysis, err := a.AI.AnalyzeReport(cmd.Context(), rep, gpt.ParseAnalysisType(kind), "")
				if err != nil {
					log.Warn().Err(err).Msg("AI analysis failed, showing fallback")
				}
				fmt.Fprintf(out, "\n%s", analysis.AnalysisText)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withAI, "ai", false, "add a written analysis (OpenAI when configured)")
	cmd.Flags().StringVarP(&kind, "type", "t", string(gpt.Comprehensive), "analysis type: comprehensive, technical, fundamental, risk, opportunity")
	return cmd
}

func newIndicatorsCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Compute indicators for a local price series",
		Long: `Compute SMA, RSI, MACD, Bollinger Bands, volatility and support/resistance
for a price series stored in a .json or .csv file. No network access is needed.`,
		Example: `  analyzer indicators --file btc.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := loadSeries(file)
			if err != nil {
				return err
			}

			ind, err := calculate.ComputeIndicators(series)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return c.printJSON(out, struct {
					Indicators *models.IndicatorSet        `json:"indicators"`
					Formatted  *models.FormattedIndicators `json:"formatted"`
				}{ind, report.FormatIndicators(ind)})
			}

			fmt.Fprintf(out, "Samples: %d, current price: %s\n\n", ind.SampleCount, utils.FormatPrice(ind.CurrentPrice))
			fmt.Fprintln(out, gpt.FormatIndicators(ind))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "price series file (.json or .csv)")
	cmd.MarkFlagRequired("file")
	return cmd
}

func newMarketCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show the global market overview and trending coins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}

			overview, err := a.Analyzer.MarketOverview(cmd.Context())
			if err != nil {
				return err
			}
			trending, err := a.Analyzer.Trending(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Trending coins unavailable")
			}

			out := cmd.OutOrStdout()
			if c.jsonOut {
				return c.printJSON(out, map[string]interface{}{"overview": overview, "trending": trending})
			}

			fmt.Fprintf(out, "Total market cap: $%s (%s 24h)\n", utils.FormatLargeNumber(overview.TotalMarketCap), utils.FormatPercent(overview.MarketCapChange24hPercentage))
			fmt.Fprintf(out, "24h volume:       $%s\n", utils.FormatLargeNumber(overview.TotalVolume24h))
			fmt.Fprintf(out, "BTC dominance:    %s\n", utils.FormatPercent(overview.BTCDominance))
			fmt.Fprintf(out, "ETH dominance:    %s\n", utils.FormatPercent(overview.ETHDominance))
			fmt.Fprintf(out, "Active coins:     %d\n", overview.ActiveCoins)
			if len(trending) > 0 {
				fmt.Fprintln(out, "\nTrending:")
				for i, coin := range trending {
					fmt.Fprintf(out, "%2d. %s (%s) rank %d\n", i+1, coin.Name, coin.Symbol, coin.MarketCapRank)
				}
			}
			return nil
		},
	}
}

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check CoinGecko and DexScreener availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}

			health := a.Analyzer.Health(cmd.Context())
			out := cmd.OutOrStdout()
			if c.jsonOut {
				return c.printJSON(out, health)
			}

			for _, u := range []struct {
				name string
				h    models.UpstreamHealth
			}{{"CoinGecko", health.CoinGecko}, {"DexScreener", health.DexScreener}} {
				if u.h.Status == models.StatusOnline {
					fmt.Fprintf(out, "%-12s online  %v\n", u.name, u.h.ResponseTime.Round(time.Millisecond))
				} else {
					fmt.Fprintf(out, "%-12s offline %s\n", u.name, u.h.Error)
				}
			}
			return nil
		},
	}
}

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		Long: `Serve the JSON API:
  GET /v1/analysis?q=<token>
  GET /v1/insight?q=<token>&type=<analysis type>[&format=json]
  GET /v1/market
  GET /v1/health
  GET /healthz
  GET /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.ListenAddr
			}

			srv := newServer(a, addr)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				log.Info().Msg("Shutdown signal received, exiting...")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newServer(a *app.App, addr string) *server.Server {
	opts := server.Options{
		Addr:           addr,
		Service:        a.Analyzer,
		Metrics:        a.Metrics.Handler(),
		RequestTimeout: 2 * a.Config.RequestTimeoutDuration(),
	}
	if a.AI != nil {
		opts.Insights = a.AI
	}
	return server.NewServer(opts)
}

var _ server.Service = (*fusion.Analyzer)(nil)
