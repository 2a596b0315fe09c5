package config

import (
	"testing"
	"time"
)

// setRequiredEnvVars は必須環境変数をテスト用の値で設定するヘルパー。
func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("LISTIGO_API_BASE_URL", "http://localhost:8080/api")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8080/api")
	}
}

func TestLoad_MissingRequiredVar_ReturnsError(t *testing.T) {
	t.Setenv("LISTIGO_API_BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.HTTPTimeout, 10*time.Second)
	}
	if cfg.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, 15*time.Second)
	}
	if cfg.AggregateMaxConcurrent != 4 {
		t.Errorf("AggregateMaxConcurrent = %d, want 4", cfg.AggregateMaxConcurrent)
	}
	if cfg.WatchInterval != time.Minute {
		t.Errorf("WatchInterval = %v, want %v", cfg.WatchInterval, time.Minute)
	}
	if cfg.RateLimitPerSec != 10 {
		t.Errorf("RateLimitPerSec = %v, want 10", cfg.RateLimitPerSec)
	}
	if cfg.RateLimitBurst != 20 {
		t.Errorf("RateLimitBurst = %d, want 20", cfg.RateLimitBurst)
	}
	if cfg.StatusPort != "8090" {
		t.Errorf("StatusPort = %q, want %q", cfg.StatusPort, "8090")
	}
	if cfg.StateDBPath == "" {
		t.Error("StateDBPathが設定されていません")
	}
}

func TestLoad_OverriddenValues(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("LISTIGO_POLL_INTERVAL", "30s")
	t.Setenv("LISTIGO_AGGREGATE_MAX_CONCURRENT", "8")
	t.Setenv("LISTIGO_STATE_DB_PATH", "/tmp/listigo-test.db")
	t.Setenv("LISTIGO_RATE_LIMIT_PER_SEC", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, 30*time.Second)
	}
	if cfg.AggregateMaxConcurrent != 8 {
		t.Errorf("AggregateMaxConcurrent = %d, want 8", cfg.AggregateMaxConcurrent)
	}
	if cfg.StateDBPath != "/tmp/listigo-test.db" {
		t.Errorf("StateDBPath = %q, want %q", cfg.StateDBPath, "/tmp/listigo-test.db")
	}
	if cfg.RateLimitPerSec != 2.5 {
		t.Errorf("RateLimitPerSec = %v, want 2.5", cfg.RateLimitPerSec)
	}
}

func TestLoad_InvalidOptionalValue_FallsBackToDefault(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("LISTIGO_POLL_INTERVAL", "not-a-duration")
	t.Setenv("LISTIGO_AGGREGATE_MAX_CONCURRENT", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.PollInterval != 15*time.Second {
		t.Errorf("PollInterval = %v, want デフォルト %v", cfg.PollInterval, 15*time.Second)
	}
	if cfg.AggregateMaxConcurrent != 4 {
		t.Errorf("AggregateMaxConcurrent = %d, want デフォルト 4", cfg.AggregateMaxConcurrent)
	}
}
