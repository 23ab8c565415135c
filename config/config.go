package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Fundingflow FundingflowConfig `yaml:"fundingflow"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Reader      ReaderConfig      `yaml:"reader"`
	Source      SourceConfig      `yaml:"source"`
	Bot         BotConfig         `yaml:"bot"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type FundingflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
}

type ReaderConfig struct {
	Timeout   Duration        `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

type SourceConfig struct {
	Hyperliquid VenueSourceConfig `yaml:"hyperliquid"`
	Extended    VenueSourceConfig `yaml:"extended"`
	Paradex     VenueSourceConfig `yaml:"paradex"`
	Binance     VenueSourceConfig `yaml:"binance"`
	Bybit       VenueSourceConfig `yaml:"bybit"`
}

type VenueSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

type BotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
	// TopDefault is the number of candidates returned when /topapy is
	// called without an argument.
	TopDefault int `yaml:"top_default"`
}

type DashboardConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	// TopLimit caps the number of candidates a single request may ask for.
	TopLimit int `yaml:"top_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

// Duration parses values like "60s" or "500ms" from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Scheduler: SchedulerConfig{Interval: Duration(60 * time.Second)},
		Reader: ReaderConfig{
			Timeout: Duration(10 * time.Second),
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   Duration(500 * time.Millisecond),
				MaxDelay:    Duration(5 * time.Second),
			},
			RateLimit: RateLimitConfig{RequestsPerSecond: 5, BurstSize: 5},
		},
		Bot:       BotConfig{TopDefault: 10},
		Dashboard: DashboardConfig{Address: "0.0.0.0:8080", TopLimit: 100},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Secrets come from the environment, never from the file on disk.
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Bot.Token = strings.TrimSpace(v)
	}
	if config.Metrics.CloudWatch.Enabled {
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Metrics.CloudWatch.Region = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Fundingflow.Name == "" {
		return fmt.Errorf("fundingflow.name is required")
	}

	if cfg.Fundingflow.Version == "" {
		return fmt.Errorf("fundingflow.version is required")
	}

	if cfg.Scheduler.Interval.Std() <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than 0")
	}

	if cfg.Reader.Timeout.Std() <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}

	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}

	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}

	enabled := 0
	for _, src := range []VenueSourceConfig{
		cfg.Source.Hyperliquid,
		cfg.Source.Extended,
		cfg.Source.Paradex,
		cfg.Source.Binance,
		cfg.Source.Bybit,
	} {
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source venue must be enabled")
	}

	if cfg.Dashboard.Enabled {
		if cfg.Dashboard.Address == "" {
			return fmt.Errorf("dashboard.address is required when the dashboard is enabled")
		}
		if cfg.Dashboard.TopLimit <= 0 {
			return fmt.Errorf("dashboard.top_limit must be greater than 0")
		}
	}

	if cfg.Bot.Enabled {
		if cfg.Bot.Token == "" {
			return fmt.Errorf("bot.token is required when the bot is enabled (set TELEGRAM_BOT_TOKEN)")
		}
		if cfg.Bot.ChatID == 0 {
			return fmt.Errorf("bot.chat_id is required when the bot is enabled")
		}
		if cfg.Bot.TopDefault <= 0 {
			return fmt.Errorf("bot.top_default must be greater than 0")
		}
	}

	return nil
}
