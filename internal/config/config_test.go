package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "test.db"))
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg := validConfig(t)

	if got := cfg.ProviderOrder; len(got) != 2 || got[0] != "gemini" || got[1] != "openai" {
		t.Errorf("ProviderOrder = %v", got)
	}
	if cfg.InsightMinTransactions != 3 {
		t.Errorf("InsightMinTransactions = %d", cfg.InsightMinTransactions)
	}
	if cfg.InsightProviderTimeout != 60*time.Second {
		t.Errorf("InsightProviderTimeout = %v", cfg.InsightProviderTimeout)
	}
	if cfg.AlertFallbackInterval != time.Hour {
		t.Errorf("AlertFallbackInterval = %v", cfg.AlertFallbackInterval)
	}
	if cfg.AlertExhaustedInterval != 30*time.Minute {
		t.Errorf("AlertExhaustedInterval = %v", cfg.AlertExhaustedInterval)
	}
	if cfg.CashbackRate != 0.01 || cfg.CashbackCapCents != 300000 {
		t.Errorf("cashback = %v / %d", cfg.CashbackRate, cfg.CashbackCapCents)
	}
	if cfg.BatchCronSpec != "0 8 1 * *" {
		t.Errorf("BatchCronSpec = %q", cfg.BatchCronSpec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROVIDER_ORDER", "openai, gemini")
	t.Setenv("INSIGHT_PROVIDER_TIMEOUT", "30s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Load()
	if got := cfg.ProviderOrder; len(got) != 2 || got[0] != "openai" {
		t.Errorf("ProviderOrder = %v", got)
	}
	if cfg.InsightProviderTimeout != 30*time.Second {
		t.Errorf("InsightProviderTimeout = %v", cfg.InsightProviderTimeout)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.TelegramToken = ""
	cfg.ProviderOrder = []string{"mystery"}
	cfg.InsightMinTransactions = 0
	cfg.BatchConcurrency = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"TELEGRAM_TOKEN",
		"unknown provider 'mystery'",
		"minimum transaction count",
		"batch concurrency",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidateAMQPURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.AMQPURL = "http://not-amqp:5672"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AMQP URL scheme") {
		t.Errorf("Validate = %v, want AMQP scheme error", err)
	}
}

func TestValidateTimezone(t *testing.T) {
	cfg := validConfig(t)
	cfg.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "timezone") {
		t.Errorf("Validate = %v, want timezone error", err)
	}
}

func TestSlogLevelUnknownDefaultsToInfo(t *testing.T) {
	cfg := &Config{LogLevel: "chatty"}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v, want info", cfg.SlogLevel())
	}
}
