package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spendbot/internal/core"
)

type fakeProvider struct {
	name  string
	calls int
	// errs are returned in order; once exhausted, text is returned.
	errs []error
	text string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, prompt, language string) (string, error) {
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return "", err
	}
	return p.text, nil
}

type recordedAlert struct {
	text   string
	silent bool
}

type fakeNotifier struct {
	alerts []recordedAlert
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, text string, silent bool) error {
	n.alerts = append(n.alerts, recordedAlert{text: text, silent: silent})
	return n.err
}

func providerErr(name string, kind FailureKind) error {
	return &ProviderError{Provider: name, Kind: kind, Err: errors.New("boom")}
}

func testSnapshot(txCount int) *core.PeriodSnapshot {
	return &core.PeriodSnapshot{
		Year:         2025,
		Month:        6,
		Language:     "en",
		TotalIncome:  core.Money{Cents: 250000},
		TotalExpense: core.Money{Cents: 30620},
		Balance:      core.Money{Cents: 219380},
		TxCount:      txCount,
		Categories: []core.CategoryShare{
			{Name: "Misc", Amount: core.Money{Cents: 18372}, Percent: 60},
			{Name: "Dining", Amount: core.Money{Cents: 12248}, Percent: 40},
		},
	}
}

func newTestPipeline(t *testing.T, providers []Provider, throttle *Throttler, notifier Notifier) *Pipeline {
	t.Helper()
	if throttle == nil {
		throttle = NewThrottler(nil)
	}
	p, err := NewPipeline(providers, throttle, notifier, Config{
		MinTransactions: 3,
		ProviderTimeout: time.Second,
		RetryAttempts:   1,
		RetryDelay:      time.Millisecond,
	}, WithSleep(func(ctx context.Context, d time.Duration) {}))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestGeneratePrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "a", text: "Nice month overall."}
	secondary := &fakeProvider{name: "b", text: "unused"}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, []Provider{primary, secondary}, nil, notifier)

	res, err := p.Generate(context.Background(), testSnapshot(13))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Nice month overall." || res.Fallback || res.Provider != "a" {
		t.Errorf("unexpected result: %+v", res)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary provider called %d times, want 0", secondary.calls)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("got %d alerts, want 0", len(notifier.alerts))
	}
}

func TestGenerateFailsOverToSecondProvider(t *testing.T) {
	// Primary is rate limited on the first call and on its one retry.
	primary := &fakeProvider{name: "a", errs: []error{
		providerErr("a", FailureRateLimited),
		providerErr("a", FailureRateLimited),
	}}
	secondary := &fakeProvider{name: "b", text: "Spending stable this month."}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, []Provider{primary, secondary}, nil, notifier)

	res, err := p.Generate(context.Background(), testSnapshot(13))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Spending stable this month." {
		t.Errorf("text = %q", res.Text)
	}
	if res.Fallback {
		t.Error("Fallback = true for provider-generated text")
	}
	if res.Provider != "b" {
		t.Errorf("Provider = %q, want b", res.Provider)
	}
	if primary.calls != 2 {
		t.Errorf("primary called %d times, want 2 (original + retry)", primary.calls)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary called %d times, want 1", secondary.calls)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(notifier.alerts))
	}
	if !notifier.alerts[0].silent {
		t.Error("fallback alert should be silent")
	}
	if !strings.Contains(notifier.alerts[0].text, `"b"`) {
		t.Errorf("alert should name the serving provider, got %q", notifier.alerts[0].text)
	}
}

func TestGenerateBelowThresholdUsesTemplate(t *testing.T) {
	primary := &fakeProvider{name: "a", text: "unused"}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, []Provider{primary}, nil, notifier)

	snapshot := testSnapshot(2)
	res, err := p.Generate(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Fallback {
		t.Error("Fallback = false for below-threshold snapshot")
	}
	if res.Provider != "" {
		t.Errorf("Provider = %q, want empty", res.Provider)
	}
	if res.Text != Template(snapshot) {
		t.Errorf("text = %q, want template output", res.Text)
	}
	if primary.calls != 0 {
		t.Errorf("provider called %d times, want 0", primary.calls)
	}
	if len(notifier.alerts) != 0 {
		t.Errorf("got %d alerts, want 0", len(notifier.alerts))
	}
}

func TestGenerateNonRetryableSkipsRetry(t *testing.T) {
	primary := &fakeProvider{name: "a", errs: []error{
		providerErr("a", FailureAuth),
		providerErr("a", FailureAuth),
	}}
	secondary := &fakeProvider{name: "b", text: "ok"}
	p := newTestPipeline(t, []Provider{primary, secondary}, nil, &fakeNotifier{})

	res, err := p.Generate(context.Background(), testSnapshot(13))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, want 1 (auth failures are not retried)", primary.calls)
	}
	if res.Provider != "b" {
		t.Errorf("Provider = %q, want b", res.Provider)
	}
}

func TestGenerateAllProvidersFailed(t *testing.T) {
	primary := &fakeProvider{name: "a", errs: []error{
		providerErr("a", FailureTransient),
		providerErr("a", FailureTransient),
	}}
	secondary := &fakeProvider{name: "b", errs: []error{
		providerErr("b", FailureAuth),
	}}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, []Provider{primary, secondary}, nil, notifier)

	snapshot := testSnapshot(13)
	res, err := p.Generate(context.Background(), snapshot)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Fallback {
		t.Error("Fallback = false after exhaustion")
	}
	if res.Text != Template(snapshot) {
		t.Errorf("text = %q, want template output", res.Text)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(notifier.alerts))
	}
	if notifier.alerts[0].silent {
		t.Error("exhaustion alert should not be silent")
	}
}

func TestGenerateExhaustionAlertThrottled(t *testing.T) {
	now := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	throttle := NewThrottler(map[AlertCategory]time.Duration{
		AlertAllProvidersFailed: 30 * time.Minute,
	}, WithClock(func() time.Time { return now }))
	notifier := &fakeNotifier{}

	failing := func() []Provider {
		return []Provider{&fakeProvider{name: "a", errs: []error{
			providerErr("a", FailureAuth),
		}}}
	}

	run := func() {
		p := newTestPipeline(t, failing(), throttle, notifier)
		if _, err := p.Generate(context.Background(), testSnapshot(13)); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}

	run()
	if len(notifier.alerts) != 1 {
		t.Fatalf("after first exhaustion: %d alerts, want 1", len(notifier.alerts))
	}

	// Another failure 5 minutes later stays quiet.
	now = now.Add(5 * time.Minute)
	run()
	if len(notifier.alerts) != 1 {
		t.Fatalf("after throttled exhaustion: %d alerts, want 1", len(notifier.alerts))
	}

	// 65 minutes after the first alert the interval has elapsed.
	now = now.Add(time.Hour)
	run()
	if len(notifier.alerts) != 2 {
		t.Fatalf("after interval elapsed: %d alerts, want 2", len(notifier.alerts))
	}
}

func TestGenerateInvalidSnapshot(t *testing.T) {
	p := newTestPipeline(t, []Provider{&fakeProvider{name: "a", text: "x"}}, nil, nil)

	if _, err := p.Generate(context.Background(), nil); !errors.Is(err, core.ErrMissingPeriod) {
		t.Errorf("nil snapshot error = %v, want ErrMissingPeriod", err)
	}

	bad := testSnapshot(13)
	bad.Month = 13
	if _, err := p.Generate(context.Background(), bad); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestGenerateNilNotifier(t *testing.T) {
	primary := &fakeProvider{name: "a", errs: []error{providerErr("a", FailureAuth)}}
	p := newTestPipeline(t, []Provider{primary}, nil, nil)

	res, err := p.Generate(context.Background(), testSnapshot(13))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Fallback {
		t.Error("Fallback = false")
	}
}

func TestGenerateNotifierErrorSwallowed(t *testing.T) {
	primary := &fakeProvider{name: "a", errs: []error{providerErr("a", FailureAuth)}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	p := newTestPipeline(t, []Provider{primary}, nil, notifier)

	if _, err := p.Generate(context.Background(), testSnapshot(13)); err != nil {
		t.Fatalf("Generate: %v (alert failures must not surface)", err)
	}
}

func TestNewPipelineValidation(t *testing.T) {
	if _, err := NewPipeline(nil, NewThrottler(nil), nil, DefaultConfig()); err == nil {
		t.Error("expected error for empty provider list")
	}
	if _, err := NewPipeline([]Provider{&fakeProvider{name: "a"}}, nil, nil, DefaultConfig()); err == nil {
		t.Error("expected error for nil throttler")
	}
}
