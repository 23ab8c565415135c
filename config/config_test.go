package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const minimalYAML = `fundingflow:
  name: "TestApp"
  version: "1.0"
scheduler:
  interval: 30s
reader:
  timeout: 5s
  rate_limit:
    requests_per_second: 2
    burst_size: 2
  retry:
    max_attempts: 2
    base_delay: 100ms
    max_delay: 1s
source:
  hyperliquid:
    enabled: true
    url: "https://api.hyperliquid.xyz/info"
`

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, minimalYAML)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Fundingflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Fundingflow.Name)
	}
	if cfg.Scheduler.Interval.Std() != 30*time.Second {
		t.Errorf("unexpected interval: %v", cfg.Scheduler.Interval.Std())
	}
	if cfg.Reader.Retry.MaxAttempts != 2 {
		t.Errorf("unexpected retry attempts: %d", cfg.Reader.Retry.MaxAttempts)
	}
	if !cfg.Source.Hyperliquid.Enabled {
		t.Errorf("expected hyperliquid source enabled")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `fundingflow:
  name: "TestApp"
  version: "1.0"
source:
  paradex:
    enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scheduler.Interval.Std() != 60*time.Second {
		t.Errorf("expected default interval 60s, got %v", cfg.Scheduler.Interval.Std())
	}
	if cfg.Reader.Timeout.Std() != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.Reader.Timeout.Std())
	}
	if cfg.Bot.TopDefault != 10 {
		t.Errorf("expected default top_default 10, got %d", cfg.Bot.TopDefault)
	}
}

func TestLoadConfigRequiresVenue(t *testing.T) {
	path := writeTempConfig(t, `fundingflow:
  name: "TestApp"
  version: "1.0"
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error when no venue is enabled")
	}
}

func TestLoadConfigBotValidation(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	path := writeTempConfig(t, minimalYAML+`bot:
  enabled: true
  chat_id: -100123
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error when bot token is missing")
	}
}

func TestBotTokenFromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	path := writeTempConfig(t, minimalYAML+`bot:
  enabled: true
  chat_id: -100123
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Bot.Token != "123:abc" {
		t.Errorf("expected token from environment, got %q", cfg.Bot.Token)
	}
}

func TestLoadConfigDashboardDefaults(t *testing.T) {
	path := writeTempConfig(t, minimalYAML+`dashboard:
  enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Dashboard.Address != "0.0.0.0:8080" {
		t.Errorf("expected default dashboard address, got %q", cfg.Dashboard.Address)
	}
	if cfg.Dashboard.TopLimit != 100 {
		t.Errorf("expected default top_limit 100, got %d", cfg.Dashboard.TopLimit)
	}
}

func TestLoadConfigDashboardValidation(t *testing.T) {
	path := writeTempConfig(t, minimalYAML+`dashboard:
  enabled: true
  top_limit: -5
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for non-positive dashboard top_limit")
	}
}

func TestDurationInvalid(t *testing.T) {
	path := writeTempConfig(t, `fundingflow:
  name: "TestApp"
  version: "1.0"
scheduler:
  interval: sixty
source:
  paradex:
    enabled: true
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv(appEnvVar, "prod")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("expected production, got %s", env)
	}
	if !IsProductionLike(EnvironmentStaging) {
		t.Errorf("staging should be production-like")
	}
	if IsProductionLike(EnvironmentDevelopment) {
		t.Errorf("development should not be production-like")
	}
}
