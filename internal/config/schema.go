// Package config provides configuration loading and validation for ipubot.
// It supports TOML configuration files (YAML when the file ends in .yaml or
// .yml) with environment variable expansion, default values, and validation.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [telegram]: Telegram bot connection and whitelist
//   - [storage]: Persistence backend for events and the point ledger
//   - [reminder]: Scheduler loop cadence and notification window
//   - [delivery]: Where reminders are sent (webhook, telegram, log)
//   - [ledger]: Point ledger settings
//   - [commands]: Chat command handling
//   - [metrics]: Prometheus endpoint
//   - [message_bus]: Message bus capacity settings
//
// Environment variables:
// Secrets can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: token = "${TELEGRAM_BOT_TOKEN}"
package config

import (
	"fmt"
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Telegram   TelegramConfig   `toml:"telegram" yaml:"telegram"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Reminder   ReminderConfig   `toml:"reminder" yaml:"reminder"`
	Delivery   DeliveryConfig   `toml:"delivery" yaml:"delivery"`
	Ledger     LedgerConfig     `toml:"ledger" yaml:"ledger"`
	Commands   CommandsConfig   `toml:"commands" yaml:"commands"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics"`
	MessageBus MessageBusConfig `toml:"message_bus" yaml:"message_bus"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// TelegramConfig configures the Telegram connector.
type TelegramConfig struct {
	Enabled            bool     `toml:"enabled" yaml:"enabled"`
	Token              string   `toml:"token" yaml:"token"`
	AllowedUsers       []string `toml:"allowed_users" yaml:"allowed_users"`
	SendTimeoutSeconds int      `toml:"send_timeout_seconds" yaml:"send_timeout_seconds"`
	PollTimeoutSeconds int      `toml:"poll_timeout_seconds" yaml:"poll_timeout_seconds"`
}

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"
	DriverMemory   = "memory"
)

// StorageConfig selects the persistence backend.
// DSN is used by postgres; Path by sqlite and file.
type StorageConfig struct {
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
	Path   string `toml:"path" yaml:"path"`
}

// ReminderConfig configures the scheduler loop.
type ReminderConfig struct {
	Enabled          bool   `toml:"enabled" yaml:"enabled"`
	IntervalSeconds  int    `toml:"interval_seconds" yaml:"interval_seconds"`
	LookaheadSeconds int    `toml:"lookahead_seconds" yaml:"lookahead_seconds"`
	ToleranceSeconds int    `toml:"tolerance_seconds" yaml:"tolerance_seconds"`
	FireImmediately  bool   `toml:"fire_immediately" yaml:"fire_immediately"`
	Timezone         string `toml:"timezone" yaml:"timezone"`
}

// Interval returns the tick period.
func (r ReminderConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

// Lookahead returns the notification lookahead horizon.
func (r ReminderConfig) Lookahead() time.Duration {
	return time.Duration(r.LookaheadSeconds) * time.Second
}

// Tolerance returns the notification window half-width.
func (r ReminderConfig) Tolerance() time.Duration {
	return time.Duration(r.ToleranceSeconds) * time.Second
}

// Location resolves Timezone. "Local" and "" map to time.Local.
func (r ReminderConfig) Location() (*time.Location, error) {
	if r.Timezone == "" || r.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Delivery kinds.
const (
	DeliveryWebhook  = "webhook"
	DeliveryTelegram = "telegram"
	DeliveryLog      = "log"
)

// DeliveryConfig selects the reminder sink.
type DeliveryConfig struct {
	Kind           string  `toml:"kind" yaml:"kind"`
	WebhookURL     string  `toml:"webhook_url" yaml:"webhook_url"`
	ChatID         int64   `toml:"chat_id" yaml:"chat_id"`
	TimeoutSeconds int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	RatePerSecond  float64 `toml:"rate_per_second" yaml:"rate_per_second"`
}

// Timeout returns the per-send timeout.
func (d DeliveryConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// LedgerConfig configures the point ledger.
type LedgerConfig struct {
	MinutesPerPoint int `toml:"minutes_per_point" yaml:"minutes_per_point"`
}

// CommandsConfig configures chat command handling.
type CommandsConfig struct {
	Workers       int `toml:"workers" yaml:"workers"`
	QueueSize     int `toml:"queue_size" yaml:"queue_size"`
	UpcomingLimit int `toml:"upcoming_limit" yaml:"upcoming_limit"`
	PreviewCount  int `toml:"preview_count" yaml:"preview_count"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
	Namespace  string `toml:"namespace" yaml:"namespace"`
}

// MessageBusConfig configures the message bus.
type MessageBusConfig struct {
	Capacity int `toml:"capacity" yaml:"capacity"`
}
