// Package services coordinates storage, insight generation, rendering, and
// delivery into user-facing operations.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"spendbot/internal/core"
	"spendbot/internal/insight"
	"spendbot/internal/log"
	"spendbot/internal/report"
)

// Snapshotter aggregates one user-month.
type Snapshotter interface {
	Snapshot(ctx context.Context, userID int64, year, month int) (*core.PeriodSnapshot, error)
}

// Generator produces the insight text for one snapshot.
type Generator interface {
	Generate(ctx context.Context, snapshot *core.PeriodSnapshot) (insight.Result, error)
}

// Deliverer sends one finished report to a chat.
type Deliverer interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// ReportService builds and delivers monthly reports.
type ReportService struct {
	aggregator Snapshotter
	generator  Generator
	renderer   *report.Renderer
	deliverer  Deliverer
	logger     *slog.Logger
}

// NewReportService wires the report flow.
func NewReportService(aggregator Snapshotter, generator Generator, renderer *report.Renderer, deliverer Deliverer, logger *slog.Logger) *ReportService {
	return &ReportService{
		aggregator: aggregator,
		generator:  generator,
		renderer:   renderer,
		deliverer:  deliverer,
		logger:     logger,
	}
}

// BuildAndDeliver aggregates one user-month, generates its insight, renders
// the report, and sends it to the user's chat.
func (s *ReportService) BuildAndDeliver(ctx context.Context, userID int64, year, month int) error {
	snapshot, err := s.aggregator.Snapshot(ctx, userID, year, month)
	if err != nil {
		return fmt.Errorf("aggregate %d %04d-%02d: %w", userID, year, month, err)
	}

	result, err := s.generator.Generate(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("generate insight: %w", err)
	}

	s.logger.Info("report built",
		log.FieldUserID, userID,
		log.FieldYear, year,
		log.FieldMonth, month,
		log.FieldTxCount, snapshot.TxCount,
		log.FieldProvider, result.Provider,
		log.FieldFallback, result.Fallback)

	text := s.renderer.Render(snapshot, result)
	if err := s.deliverer.Send(ctx, userID, text); err != nil {
		return fmt.Errorf("deliver report to %d: %w", userID, err)
	}
	return nil
}
