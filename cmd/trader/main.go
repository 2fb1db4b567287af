package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Noslix/BinanceBot/internal/binance"
	"github.com/Noslix/BinanceBot/internal/config"
	"github.com/Noslix/BinanceBot/internal/database"
	"github.com/Noslix/BinanceBot/internal/logger"
	"github.com/Noslix/BinanceBot/internal/telegram"
	"github.com/Noslix/BinanceBot/internal/trader"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded", zap.String("strategy", cfg.Trading.Strategy))

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Binance, log)
	if err := restClient.Ping(); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Wire the Telegram remote-control channel when configured
	var notifier trader.Notifier = trader.NewNopNotifier()
	var tg *telegram.Client
	if cfg.Telegram.Enabled() {
		tg = telegram.NewClient(&cfg.Telegram, log)
		notifier = tg
	} else {
		log.Warn("Telegram not configured, running without notifications")
	}

	// Initialize the trading engine
	engine, err := trader.NewEngine(log, &cfg, restClient, notifier, db)
	if err != nil {
		log.Fatal("Failed to initialize engine", zap.Error(err))
	}
	if tg != nil {
		go tg.Poll(ctx, engine.Commands())
	}

	// Expose the read-only status API
	api := trader.NewAPIServer(engine, log)
	api.Start()
	defer api.Stop(context.Background())

	if err := engine.Run(ctx); err != nil {
		log.Error("Engine stopped with error", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
