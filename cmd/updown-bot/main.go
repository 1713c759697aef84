// Up/down market trading bot with graceful shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/internal/config"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/internal/metrics"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/clob"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/engine"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/feeds"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/notify"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/storage"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to YAML config file (optional)")
}

func main() {
	flag.Parse()

	printBanner()

	cfg, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	setupLogging(cfg.LogLevel)
	log := logrus.WithField("component", "main")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := storage.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	// CLOB client. Without credentials every order is simulated at the
	// quoted price; quotes still come from the live book.
	var creds *clob.Credentials
	if cfg.HasCredentials() {
		creds = &clob.Credentials{
			APIKey:     cfg.Credentials.APIKey,
			APISecret:  cfg.Credentials.APISecret,
			Passphrase: cfg.Credentials.Passphrase,
		}
	} else {
		log.Warn("No credentials configured, running in SIMULATION mode")
	}

	var clobOpts []clob.Option
	if cfg.ClobURL != "" {
		clobOpts = append(clobOpts, clob.WithBaseURL(cfg.ClobURL))
	}
	client := clob.New(creds, clobOpts...)

	met := metrics.New()

	market := engine.Market{
		Slug:        cfg.Market.Slug,
		UpTokenID:   cfg.Market.UpTokenID,
		DownTokenID: cfg.Market.DownTokenID,
	}
	provider := engine.MarketProviderFunc(func() *engine.Market { return &market })

	opts := []engine.Option{
		engine.WithPollInterval(cfg.PollInterval),
		engine.WithConfigStore(store),
		engine.WithMetrics(met),
		engine.WithExecutorOptions(engine.WithFeeRateBps(cfg.FeeRateBps)),
	}

	var spot *feeds.SpotFeed
	if cfg.SpotFeedURL != "" {
		spot = feeds.NewSpotFeed(cfg.SpotFeedURL)
		spot.Start(context.Background())
		defer spot.Stop()
		opts = append(opts, engine.WithSpotFeed(spot))
	}

	eng := engine.New(client, provider, opts...)

	notifier := notify.NewSlackNotifier(cfg.SlackWebhookURL)
	if notifier.IsEnabled() {
		eng.OnTradeRecorded(func(t engine.Trade) {
			var profit float64
			if t.Profit != nil {
				profit = *t.Profit
			}
			notifier.TradeAlert(t.MarketSlug, string(t.Side), string(t.OrderType),
				t.Price, t.Size, profit, t.OrderID)
		})
	}

	if err := eng.Configure(initialStrategy(store, cfg, log)); err != nil {
		log.Fatalf("Invalid strategy config: %v", err)
	}

	httpServer := startHTTPServer(cfg.HTTPPort, eng, met, log)

	if err := eng.Start(); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}

	notifier.Startup(cfg.Market.Slug, !cfg.HasCredentials())
	log.Info("Bot is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutdown signal received")

	eng.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown error: %v", err)
	}

	status := eng.GetStatus()
	notifier.Shutdown(status.TotalTrades, status.TotalProfit)
	log.Infof("Final stats: %d trades, $%.2f realized P&L", status.TotalTrades, status.TotalProfit)
}

// initialStrategy prefers the persisted configuration; the file/env values
// only seed a fresh installation.
func initialStrategy(store *storage.Store, cfg *config.Config, log *logrus.Entry) strategy.Config {
	if saved, err := store.LoadStrategy(); err != nil {
		log.Warnf("Failed to load persisted strategy: %v", err)
	} else if saved != nil {
		log.Info("Loaded persisted strategy configuration")
		return *saved
	}

	return strategy.Config{
		Enabled:           cfg.Strategy.Enabled,
		EntryPrice:        cfg.Strategy.EntryPrice,
		EntryBandWidth:    cfg.Strategy.EntryBandWidth,
		ProfitTargetPrice: cfg.Strategy.ProfitTargetPrice,
		StopLossPrice:     cfg.Strategy.StopLossPrice,
		TradeSize:         cfg.Strategy.TradeSize,
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║            UP/DOWN MARKET TRADING BOT            ║")
	fmt.Println("║      Binary Outcome Markets • CLOB Execution     ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()
}

func startHTTPServer(port int, eng *engine.Engine, met *metrics.Metrics, log *logrus.Entry) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eng.GetStatus())
	})

	mux.HandleFunc("/trades", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(eng.GetTrades())
	})

	mux.Handle("/metrics", met.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Infof("HTTP server starting on :%d", port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	return server
}
