package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"spendbot/internal/amqp"
	"spendbot/internal/bot"
	"spendbot/internal/config"
	"spendbot/internal/export/sheets"
	"spendbot/internal/log"
	"spendbot/internal/parse"
	"spendbot/internal/report"
	"spendbot/internal/storage"
)

func main() {
	// Load .env for local development; deployed processes use real env.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Component: log.ComponentApp,
		JSON:      cfg.LogJSON,
	})
	log.SetDefault(logger)

	logger.Info("starting spendbot")

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open storage", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	aggregator := storage.NewAggregator(repo, cfg.DefaultLanguage)
	renderer := report.NewRenderer(cfg.CashbackRate, cfg.CashbackCapCents)

	amqpClient, err := amqp.NewClient(amqp.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.AMQPExchange,
		Queue:    cfg.AMQPQueue,
	}, logger.WithComponent(log.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("failed to connect to broker", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to authorize telegram bot", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var exporter bot.Exporter
	if cfg.GoogleSpreadsheetID != "" {
		exp, err := sheets.NewExporter(ctx, sheets.Config{
			CredentialsFile: cfg.GoogleCredentialsFile,
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
		}, repo, logger.WithComponent(log.ComponentExport).Slog())
		if err != nil {
			logger.Error("failed to initialize sheets export", log.FieldError, err)
			os.Exit(1)
		}
		exporter = exp
		logger.Info("sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("sheets export disabled")
	}

	b := bot.New(bot.Config{
		API:             api,
		Repo:            repo,
		Aggregator:      aggregator,
		Parser:          parse.NewParser(),
		Renderer:        renderer,
		Publisher:       amqpClient,
		Exporter:        exporter,
		DefaultLanguage: cfg.DefaultLanguage,
		Logger:          logger.WithComponent(log.ComponentBot).Slog(),
	})

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("spendbot stopped gracefully")
}
