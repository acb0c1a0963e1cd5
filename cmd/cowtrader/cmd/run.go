package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/cowtrader/bot"
	"github.com/rustyeddy/cowtrader/chain"
	"github.com/rustyeddy/cowtrader/config"
	"github.com/rustyeddy/cowtrader/cow"
	"github.com/rustyeddy/cowtrader/decision"
	"github.com/rustyeddy/cowtrader/feed"
	"github.com/rustyeddy/cowtrader/journal"
	"github.com/rustyeddy/cowtrader/ledger"
	"github.com/rustyeddy/cowtrader/market"
	"github.com/rustyeddy/cowtrader/notify"
	"github.com/rustyeddy/cowtrader/orders"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run the bot's trading loop using settings from a configuration file.

One cycle runs per interval: refresh the price, reconcile fills, sweep stale
orders, decide, and execute. The process stops cleanly on SIGINT or SIGTERM.

Example:
  cowtrader run --config cowtrader.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pair, err := market.NewPair(cfg.Pair.Base, cfg.Pair.Quote)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Price feed: optional websocket stream first, REST sources as failover.
	var sources []feed.Source
	var stream *feed.Stream
	if cfg.Feed.Stream {
		stream = feed.NewStream(cfg.Feed.StreamURL, cfg.Feed.StreamStaleness.Std())
		stream.Start(ctx)
		defer stream.Stop()
		sources = append(sources, stream)
	}
	sources = append(sources, feed.NewCoinGecko(), feed.NewBinanceTicker())
	prices := feed.New(sources...)

	venue := cow.NewClient(cfg.Account.CowAPIURL, cfg.Account.Address)
	signer := cow.NewHTTPSigner(cfg.Account.SignerURL)
	seen := ledger.NewSeenSet()
	reconciler := ledger.NewReconciler(venue, pair, seen)
	manager := orders.NewManager(venue, signer, pair, cfg.Account.Address,
		cfg.Trading.OrderValidity.Std(), cfg.Trading.DuplicateThreshold)

	backends := make([]decision.Backend, 0, len(cfg.Decision.Models))
	for _, model := range cfg.Decision.Models {
		backends = append(backends, decision.NewOpenRouter(
			cfg.Decision.APIURL, cfg.Decision.APIKey, model, cfg.Decision.Timeout.Std()))
	}
	engine := decision.NewEngine(backends, decision.Limits{
		MinProfitMargin:  cfg.Trading.MinProfitMargin,
		MaxConcentration: cfg.Trading.MaxConcentration,
		LowConcentration: cfg.Trading.LowConcentration,
		MinOrderSize:     cfg.Trading.MinOrderSize,
		FallbackMaxBuy:   cfg.Trading.FallbackMaxBuy,
		FallbackFraction: cfg.Trading.FallbackFraction,
		FallbackOffset:   cfg.Trading.FallbackOffset,
	})

	jnl, err := newJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jnl.Close()

	b := bot.New(bot.Deps{
		Config:     cfg,
		Pair:       pair,
		Feed:       prices,
		Seen:       seen,
		Reconciler: reconciler,
		Engine:     engine,
		Orders:     manager,
		Balances:   chain.NewReader(cfg.Account.RPCURL, cfg.Account.Address, pair),
		Notifier:   notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID),
		Journal:    jnl,
	})

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}

	srv := newServer(cfg, b, prices, manager)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("http server failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"pair":     pair.Name(),
		"account":  cfg.Account.Address,
		"interval": cfg.Trading.Interval,
	}).Info("trading loop starting")

	b.Run(ctx)

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.DecisionsFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func newServer(cfg *config.Config, b *bot.Bot, prices *feed.Feed, manager *orders.Manager) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		l := b.Ledger()
		price, _ := prices.Last()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"pair":       cfg.Pair.Base + "/" + cfg.Pair.Quote,
			"price":      price,
			"holdings":   l.Holdings,
			"cost_basis": l.CostBasis,
			"total_cost": l.TotalCost,
			"open":       manager.Count(),
		})
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}
}
