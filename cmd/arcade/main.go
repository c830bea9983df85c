package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polyarcade/config"
	"github.com/alejandrodnm/polyarcade/internal/adapters/binance"
	"github.com/alejandrodnm/polyarcade/internal/adapters/notify"
	"github.com/alejandrodnm/polyarcade/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyarcade/internal/adapters/storage"
	"github.com/alejandrodnm/polyarcade/internal/application/arcade"
	"github.com/alejandrodnm/polyarcade/internal/domain"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	market := flag.String("market", "", "asset to bet on, e.g. btc (overrides config)")
	compact := flag.Bool("compact", false, "compact mode: fewer items, terser output")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *market != "" {
		cfg.Arcade.Market = *market
	}
	if *compact {
		cfg.Arcade.Compact = true
	}
	setupLogger(cfg.Log)

	slog.Info("polyarcade starting",
		"config", *configPath,
		"market", cfg.Arcade.Market,
		"bankroll", cfg.Arcade.BankrollUSDC,
		"bet", cfg.Arcade.BetUSDC,
		"compact", cfg.Arcade.Compact,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := polymarket.NewClient(cfg.API.GammaBase)
	executor := polymarket.NewExecutor(client, store)
	notifier := notify.NewConsole(cfg.Arcade.Compact)
	feed := binance.NewFeed(binance.Config{
		URL:           cfg.Feed.URL,
		Symbol:        cfg.Feed.Symbol,
		ChartWidth:    cfg.Chart.Width,
		ChartHeight:   cfg.Chart.Height,
		HeaderOffset:  cfg.Chart.HeaderOffset,
		FrameInterval: cfg.FrameInterval(),
		Window:        cfg.FeedWindow(),
	})

	controller := arcade.NewController(arcade.Config{
		Wallet:    cfg.Arcade.Wallet,
		Market:    cfg.Arcade.Market,
		Bankroll:  cfg.Arcade.BankrollUSDC,
		BetAmount: cfg.Arcade.BetUSDC,
		MaxBets:   cfg.Arcade.MaxBets,
		Compact:   cfg.Arcade.Compact,
	}, executor, client, store, notifier, feed, nil, domain.DefaultRNG())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := controller.Start(ctx); err != nil {
		slog.Error("failed to start session", "err", err)
		os.Exit(1)
	}

	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("price feed exited", "err", err)
		}
	}()
	go func() {
		if err := controller.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("frame loop exited", "err", err)
		}
	}()

	runCommands(ctx, cancel, controller)

	if err := controller.Stop(context.Background()); err != nil {
		slog.Error("failed to stop session cleanly", "err", err)
		os.Exit(1)
	}
	slog.Info("polyarcade stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
