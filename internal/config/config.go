package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a configuration file. Files ending in .yaml or .yml are decoded
// as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{Reminder: ReminderConfig{Enabled: true}}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateLogging()...)

	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf("telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverFile:
		if err := validatePath(c.Storage.Path, "storage.path"); err != nil {
			errs = append(errs, err)
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required when storage.driver is 'postgres'"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid storage.driver: %s (expected: sqlite, postgres, file, memory)", c.Storage.Driver))
	}

	if c.Reminder.IntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("reminder.interval_seconds must be >= 1 (got %d)", c.Reminder.IntervalSeconds))
	}
	// Zero means "use the default", so a window has at least one second.
	if c.Reminder.LookaheadSeconds < 1 {
		errs = append(errs, fmt.Errorf("reminder.lookahead_seconds must be >= 1 (got %d)", c.Reminder.LookaheadSeconds))
	}
	if c.Reminder.ToleranceSeconds < 1 {
		errs = append(errs, fmt.Errorf("reminder.tolerance_seconds must be >= 1 (got %d)", c.Reminder.ToleranceSeconds))
	}
	// A tick can only announce occurrences within min(lookahead, tolerance)
	// of itself; a wider interval skips some of them entirely.
	if span := min(c.Reminder.LookaheadSeconds, c.Reminder.ToleranceSeconds); span >= 1 && c.Reminder.IntervalSeconds > span {
		errs = append(errs, fmt.Errorf("reminder.interval_seconds (%d) must not exceed reminder.lookahead_seconds (%d) or reminder.tolerance_seconds (%d)",
			c.Reminder.IntervalSeconds, c.Reminder.LookaheadSeconds, c.Reminder.ToleranceSeconds))
	}
	if _, err := c.Reminder.Location(); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, c.validateDelivery()...)

	if c.Ledger.MinutesPerPoint < 1 {
		errs = append(errs, fmt.Errorf("ledger.minutes_per_point must be >= 1 (got %d)", c.Ledger.MinutesPerPoint))
	}

	if c.Commands.Workers < 1 {
		errs = append(errs, fmt.Errorf("commands.workers must be >= 1 (got %d)", c.Commands.Workers))
	}
	if c.Commands.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("commands.queue_size must be >= 1 (got %d)", c.Commands.QueueSize))
	}
	if c.Commands.UpcomingLimit < 1 {
		errs = append(errs, fmt.Errorf("commands.upcoming_limit must be >= 1 (got %d)", c.Commands.UpcomingLimit))
	}
	if c.Commands.PreviewCount < 1 {
		errs = append(errs, fmt.Errorf("commands.preview_count must be >= 1 (got %d)", c.Commands.PreviewCount))
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("metrics.listen_addr is required when metrics are enabled"))
	}

	if c.MessageBus.Capacity < 1 {
		errs = append(errs, fmt.Errorf("message_bus.capacity must be >= 1 (got %d)", c.MessageBus.Capacity))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	return errs
}

func (c *Config) validateDelivery() []error {
	var errs []error

	switch c.Delivery.Kind {
	case DeliveryWebhook:
		if c.Delivery.WebhookURL == "" {
			errs = append(errs, fmt.Errorf("delivery.webhook_url is required when delivery.kind is 'webhook'"))
		} else if u, err := url.Parse(c.Delivery.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, formatValidationError("delivery.webhook_url", "must be an absolute http(s) URL", c.Delivery.WebhookURL))
		}
	case DeliveryTelegram:
		if c.Delivery.ChatID == 0 {
			errs = append(errs, fmt.Errorf("delivery.chat_id is required when delivery.kind is 'telegram'"))
		}
		if c.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf("telegram.token is required when delivery.kind is 'telegram'"))
		}
	case DeliveryLog:
	default:
		errs = append(errs, fmt.Errorf("invalid delivery.kind: %s (expected: webhook, telegram, log)", c.Delivery.Kind))
	}

	if c.Delivery.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("delivery.timeout_seconds must be >= 1 (got %d)", c.Delivery.TimeoutSeconds))
	}
	if c.Delivery.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("delivery.rate_per_second must be >= 0 (got %v)", c.Delivery.RatePerSecond))
	}

	return errs
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskTelegramToken(token))
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}
