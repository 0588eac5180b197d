// Package bot runs the interactive Telegram front end: command handling and
// free-text transaction entry.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spendbot/internal/amqp"
	"spendbot/internal/core"
	"spendbot/internal/insight"
	"spendbot/internal/log"
	"spendbot/internal/parse"
	"spendbot/internal/report"
	"spendbot/internal/storage"
)

const updateTimeoutSeconds = 30

// Publisher enqueues report requests for the worker.
type Publisher interface {
	PublishReportRequest(ctx context.Context, req amqp.ReportRequest) error
}

// Exporter pushes one month of transactions to an external sheet.
type Exporter interface {
	ExportMonth(ctx context.Context, userID int64, year, month int) (int, error)
}

// Bot handles Telegram updates.
type Bot struct {
	api             *tgbotapi.BotAPI
	repo            *storage.Repository
	aggregator      *storage.Aggregator
	parser          *parse.Parser
	renderer        *report.Renderer
	publisher       Publisher
	exporter        Exporter // nil when export is not configured
	defaultLanguage string
	logger          *slog.Logger
}

// Config wires the bot's collaborators.
type Config struct {
	API             *tgbotapi.BotAPI
	Repo            *storage.Repository
	Aggregator      *storage.Aggregator
	Parser          *parse.Parser
	Renderer        *report.Renderer
	Publisher       Publisher
	Exporter        Exporter
	DefaultLanguage string
	Logger          *slog.Logger
}

// New creates the bot.
func New(cfg Config) *Bot {
	return &Bot{
		api:             cfg.API,
		repo:            cfg.Repo,
		aggregator:      cfg.Aggregator,
		parser:          cfg.Parser,
		renderer:        cfg.Renderer,
		publisher:       cfg.Publisher,
		exporter:        cfg.Exporter,
		defaultLanguage: cfg.DefaultLanguage,
		logger:          cfg.Logger,
	}
}

// Run processes updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("update loop started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	var reply string
	var err error
	switch msg.Command() {
	case "start":
		reply, err = b.handleStart(ctx, msg)
	case "month":
		reply, err = b.handleMonth(ctx, chatID)
	case "report":
		reply, err = b.handleReport(ctx, chatID)
	case "export":
		reply, err = b.handleExport(ctx, chatID)
	case "":
		reply, err = b.handleEntry(ctx, msg)
	default:
		reply = "Unknown command. Available: /start, /month, /report, /export."
	}

	if err != nil {
		b.logger.Error("command failed",
			log.FieldChatID, chatID,
			log.FieldOperation, msg.Command(),
			log.FieldError, err)
		reply = "Something went wrong, please try again."
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		b.logger.Error("failed to send reply", log.FieldChatID, chatID, log.FieldError, err)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	language := b.defaultLanguage
	if msg.From != nil && msg.From.LanguageCode != "" {
		language = msg.From.LanguageCode
	}

	if err := b.repo.UpsertUser(ctx, msg.Chat.ID, language); err != nil {
		return "", err
	}

	b.logger.Info("user registered", log.FieldChatID, msg.Chat.ID)
	return "Welcome! Send entries like \"coffee 4.50\" or \"+2000 salary\".\n" +
		"/month shows the current month, /report builds the full report, /export pushes it to your sheet.", nil
}

// handleMonth replies with the current month's totals without contacting
// any generation provider.
func (b *Bot) handleMonth(ctx context.Context, chatID int64) (string, error) {
	now := time.Now()
	snapshot, err := b.aggregator.Snapshot(ctx, chatID, now.Year(), int(now.Month()))
	if err != nil {
		return "", err
	}
	if snapshot.TxCount == 0 {
		return "No transactions recorded this month yet.", nil
	}
	return b.renderer.Render(snapshot, insight.Result{Text: insight.Template(snapshot)}), nil
}

// handleReport enqueues a full report for the worker. Generation can take
// a while, so the bot never blocks the update loop on it.
func (b *Bot) handleReport(ctx context.Context, chatID int64) (string, error) {
	now := time.Now()
	req := amqp.ReportRequest{UserID: chatID, Year: now.Year(), Month: int(now.Month())}
	if err := b.publisher.PublishReportRequest(ctx, req); err != nil {
		return "", err
	}
	return "Report requested. It will arrive here shortly.", nil
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) (string, error) {
	if b.exporter == nil {
		return "Export is not configured.", nil
	}

	now := time.Now()
	n, err := b.exporter.ExportMonth(ctx, chatID, now.Year(), int(now.Month()))
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "Nothing to export this month.", nil
	}
	return fmt.Sprintf("Exported %d transactions.", n), nil
}

// handleEntry records one transaction from free text.
func (b *Bot) handleEntry(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	entry, err := b.parser.Parse(msg.Text)
	if errors.Is(err, parse.ErrNoAmount) || errors.Is(err, parse.ErrEmptyText) {
		return "Could not find an amount. Try \"coffee 4.50\" or \"+2000 salary\".", nil
	}
	if err != nil {
		return "", err
	}

	tx := core.Transaction{
		UserID:      msg.Chat.ID,
		Date:        core.Today(),
		Kind:        entry.Kind,
		Description: entry.Description,
		Amount:      entry.Amount,
		Category:    entry.Category,
	}

	if _, err := b.repo.CreateTransaction(ctx, tx); err != nil {
		return "", err
	}
	b.aggregator.Invalidate(msg.Chat.ID, tx.Date.Year(), tx.Date.Month())

	b.logger.Info("transaction recorded",
		log.FieldChatID, msg.Chat.ID,
		log.FieldCategory, tx.Category,
		log.FieldAmountCents, tx.Amount.Cents)

	verb := "Recorded"
	if tx.Kind == core.Income {
		verb = "Recorded income"
	}
	return fmt.Sprintf("%s: %s, %s (%s)", verb, tx.Description, tx.Amount, tx.Category), nil
}
