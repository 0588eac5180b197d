// Package insight generates a short natural-language financial summary for
// one user's period snapshot, trying text generation providers in priority
// order and degrading to a deterministic template when they all fail.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendbot/internal/core"
)

// Provider is one external text generation capability. Vendor-specific
// authentication, model selection, and request shaping stay behind it.
type Provider interface {
	// Name identifies the provider in logs and alerts.
	Name() string
	// Generate returns text for the given instruction, or a *ProviderError.
	Generate(ctx context.Context, prompt, language string) (string, error)
}

// Notifier delivers a short status message to the operator channel.
// Implementations must not block past their own transport timeout.
type Notifier interface {
	Notify(ctx context.Context, text string, silent bool) error
}

// Result is the pipeline's sole output: the summary text and whether it is
// the deterministic template rather than provider-generated.
type Result struct {
	Text     string
	Fallback bool
	Provider string // empty when Fallback is true
}

// Attempt records one try against one provider. Attempts are never
// persisted; they only shape logging and the exhaustion alert.
type Attempt struct {
	Provider string
	Err      error
	At       time.Time
}

// Config holds pipeline tuning knobs.
type Config struct {
	// MinTransactions is the activity threshold below which the template
	// is returned without contacting any provider.
	MinTransactions int

	// ProviderTimeout bounds one call to one provider.
	ProviderTimeout time.Duration

	// RetryAttempts is how many extra tries a provider gets after its
	// first failure, for retryable failures only.
	RetryAttempts int

	// RetryDelay is the fixed pause before each retry.
	RetryDelay time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinTransactions: 3,
		ProviderTimeout: 60 * time.Second,
		RetryAttempts:   1,
		RetryDelay:      2 * time.Second,
	}
}

// Pipeline runs the provider chain. Safe for concurrent use; the only
// shared mutable state is the injected Throttler.
type Pipeline struct {
	providers []Provider
	throttle  *Throttler
	notifier  Notifier
	config    Config
	sleep     func(ctx context.Context, d time.Duration)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSleep injects the retry delay function, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration)) PipelineOption {
	return func(p *Pipeline) {
		p.sleep = sleep
	}
}

// NewPipeline creates a pipeline over the given providers, in preference
// order. The notifier may be nil, in which case alerts are only logged.
func NewPipeline(providers []Provider, throttle *Throttler, notifier Notifier, config Config, opts ...PipelineOption) (*Pipeline, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider is required")
	}
	if throttle == nil {
		return nil, errors.New("throttler is required")
	}

	p := &Pipeline{
		providers: providers,
		throttle:  throttle,
		notifier:  notifier,
		config:    config,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Generate produces exactly one final text for the snapshot: either
// provider-generated or the deterministic template. The only error it
// returns is an input contract violation in the snapshot itself; provider
// failures are handled internally.
func (p *Pipeline) Generate(ctx context.Context, snapshot *core.PeriodSnapshot) (Result, error) {
	if err := snapshot.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid snapshot: %w", err)
	}

	// Too little data to be worth a generation call. Routine, not a
	// failure: no alert.
	if snapshot.TxCount < p.config.MinTransactions {
		slog.DebugContext(ctx, "Snapshot below activity threshold, using template",
			"tx_count", snapshot.TxCount,
			"threshold", p.config.MinTransactions)
		return Result{Text: Template(snapshot), Fallback: true}, nil
	}

	prompt := BuildPrompt(snapshot)

	var attempts []Attempt
	for i, provider := range p.providers {
		text, err := p.tryProvider(ctx, provider, prompt, snapshot.Language)
		if err == nil {
			if i > 0 {
				p.alert(ctx, AlertFallbackUsed, fmt.Sprintf(
					"insight: primary provider unavailable, served by %q (attempt %d of %d)",
					provider.Name(), i+1, len(p.providers)), true)
			}
			return Result{Text: text, Provider: provider.Name()}, nil
		}

		attempts = append(attempts, Attempt{Provider: provider.Name(), Err: err, At: time.Now()})
		slog.WarnContext(ctx, "Provider failed, advancing",
			"provider", provider.Name(),
			"position", i+1,
			"error", err)
	}

	p.alert(ctx, AlertAllProvidersFailed, fmt.Sprintf(
		"insight: all %d providers failed, serving template (last error: %v)",
		len(attempts), attempts[len(attempts)-1].Err), false)

	return Result{Text: Template(snapshot), Fallback: true}, nil
}

// tryProvider runs one provider with its timeout and bounded retry.
func (p *Pipeline) tryProvider(ctx context.Context, provider Provider, prompt, language string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			p.sleep(ctx, p.config.RetryDelay)
		}

		callCtx, cancel := context.WithTimeout(ctx, p.config.ProviderTimeout)
		text, err := provider.Generate(callCtx, prompt, language)
		cancel()

		if err == nil {
			return text, nil
		}
		lastErr = err

		var perr *ProviderError
		if errors.As(err, &perr) && !perr.Retryable() {
			break
		}
	}

	return "", lastErr
}

// alert sends one throttled operator notification. Notification failures
// are logged and swallowed: alerting must never break generation.
func (p *Pipeline) alert(ctx context.Context, category AlertCategory, text string, silent bool) {
	if !p.throttle.Allow(category) {
		slog.DebugContext(ctx, "Alert suppressed by throttle", "alert_category", string(category))
		return
	}
	if p.notifier == nil {
		slog.WarnContext(ctx, "No notifier configured, alert dropped",
			"alert_category", string(category), "text", text)
		return
	}
	if err := p.notifier.Notify(ctx, text, silent); err != nil {
		slog.ErrorContext(ctx, "Failed to send operator alert",
			"alert_category", string(category), "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
