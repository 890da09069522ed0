package config

import "github.com/aatumaykin/ipubot/internal/constants"

// applyDefaults fills zero values with their defaults.
func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = constants.DefaultTelegramSendTimeoutSeconds
	}
	if c.Telegram.PollTimeoutSeconds == 0 {
		c.Telegram.PollTimeoutSeconds = constants.DefaultTelegramPollTimeoutSeconds
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case DriverSQLite:
			c.Storage.Path = constants.DefaultSQLitePath
		case DriverFile:
			c.Storage.Path = constants.DefaultFileStorePath
		}
	}

	if c.Reminder.IntervalSeconds == 0 {
		c.Reminder.IntervalSeconds = constants.DefaultTickIntervalSeconds
	}
	if c.Reminder.LookaheadSeconds == 0 {
		c.Reminder.LookaheadSeconds = constants.DefaultLookaheadSeconds
	}
	if c.Reminder.ToleranceSeconds == 0 {
		c.Reminder.ToleranceSeconds = constants.DefaultToleranceSeconds
	}
	if c.Reminder.Timezone == "" {
		c.Reminder.Timezone = "Local"
	}

	if c.Delivery.Kind == "" {
		c.Delivery.Kind = DeliveryLog
	}
	if c.Delivery.TimeoutSeconds == 0 {
		c.Delivery.TimeoutSeconds = constants.DefaultDeliveryTimeoutSeconds
	}
	if c.Delivery.RatePerSecond == 0 {
		c.Delivery.RatePerSecond = constants.DefaultDeliveryRatePerSecond
	}

	if c.Ledger.MinutesPerPoint == 0 {
		c.Ledger.MinutesPerPoint = constants.DefaultMinutesPerPoint
	}

	if c.Commands.Workers == 0 {
		c.Commands.Workers = constants.DefaultCommandWorkers
	}
	if c.Commands.QueueSize == 0 {
		c.Commands.QueueSize = constants.DefaultCommandQueueSize
	}
	if c.Commands.UpcomingLimit == 0 {
		c.Commands.UpcomingLimit = constants.DefaultUpcomingLimit
	}
	if c.Commands.PreviewCount == 0 {
		c.Commands.PreviewCount = constants.DefaultPreviewCount
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = constants.DefaultMetricsAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = constants.DefaultMetricsNamespace
	}

	if c.MessageBus.Capacity == 0 {
		c.MessageBus.Capacity = constants.DefaultMessageBusCapacity
	}
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Reminder.Enabled = true
	applyDefaults(cfg)
	return cfg
}
