package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"spendbot/internal/amqp"
	"spendbot/internal/bot"
	"spendbot/internal/config"
	"spendbot/internal/insight"
	"spendbot/internal/log"
	"spendbot/internal/provider/gemini"
	"spendbot/internal/provider/openai"
	"spendbot/internal/report"
	"spendbot/internal/scheduler"
	"spendbot/internal/services"
	"spendbot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Component: log.ComponentWorker,
		JSON:      cfg.LogJSON,
	})
	log.SetDefault(logger)

	logger.Info("starting spendbot-worker")

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

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to authorize telegram bot", log.FieldError, err)
		os.Exit(1)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		logger.Error("failed to build providers", log.FieldError, err)
		os.Exit(1)
	}

	throttle := insight.NewThrottler(map[insight.AlertCategory]time.Duration{
		insight.AlertFallbackUsed:       cfg.AlertFallbackInterval,
		insight.AlertAllProvidersFailed: cfg.AlertExhaustedInterval,
	})

	var notifier insight.Notifier
	if cfg.AdminChatID != 0 {
		notifier = bot.NewOperatorNotifier(api, cfg.AdminChatID)
	} else {
		logger.Warn("no admin chat configured, operator alerts will be dropped")
	}

	pipeline, err := insight.NewPipeline(providers, throttle, notifier, insight.Config{
		MinTransactions: cfg.InsightMinTransactions,
		ProviderTimeout: cfg.InsightProviderTimeout,
		RetryAttempts:   cfg.InsightRetryAttempts,
		RetryDelay:      cfg.InsightRetryDelay,
	})
	if err != nil {
		logger.Error("failed to build insight pipeline", log.FieldError, err)
		os.Exit(1)
	}

	aggregator := storage.NewAggregator(repo, cfg.DefaultLanguage)
	renderer := report.NewRenderer(cfg.CashbackRate, cfg.CashbackCapCents)
	sender := bot.NewSender(api)

	reports := services.NewReportService(aggregator, pipeline, renderer, sender,
		logger.WithComponent(log.ComponentReport).Slog())
	batch := services.NewBatchRunner(repo, reports, cfg.BatchConcurrency,
		logger.WithComponent(log.ComponentWorker).Slog())

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	sched, err := scheduler.New(cfg.BatchCronSpec, location, batch,
		logger.WithComponent(log.ComponentScheduler).Slog())
	if err != nil {
		logger.Error("failed to build scheduler", log.FieldError, err)
		os.Exit(1)
	}

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched.Start()
	defer sched.Stop()

	err = amqpClient.ConsumeReportRequests(ctx, func(ctx context.Context, req amqp.ReportRequest) error {
		return reports.BuildAndDeliver(ctx, req.UserID, req.Year, req.Month)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("spendbot-worker stopped gracefully")
}

// buildProviders assembles the provider chain in configured order.
func buildProviders(cfg *config.Config) ([]insight.Provider, error) {
	var providers []insight.Provider
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				continue
			}
			providers = append(providers, gemini.NewClient(cfg.GeminiAPIKey, gemini.WithModel(cfg.GeminiModel)))
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				continue
			}
			providers = append(providers, openai.NewClient(cfg.OpenAIAPIKey,
				openai.WithModel(cfg.OpenAIModel), openai.WithBaseURL(cfg.OpenAIBaseURL)))
		default:
			return nil, errors.New("unknown provider " + name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("no provider has an API key configured")
	}
	return providers, nil
}
