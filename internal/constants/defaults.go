package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultBuildTime is the default build time when not provided at build time
const DefaultBuildTime = "unknown"

// DefaultGitCommit is the default git commit hash when not provided at build time
const DefaultGitCommit = "unknown"

// DefaultGoVersion is the default Go version when not provided at build time
const DefaultGoVersion = "unknown"

// Reminder engine defaults.
const (
	DefaultTickIntervalSeconds = 60
	DefaultLookaheadSeconds    = 600
	DefaultToleranceSeconds    = 120
)

// Command path defaults.
const (
	DefaultMinutesPerPoint  = 10
	DefaultCommandWorkers   = 4
	DefaultCommandQueueSize = 100
	DefaultUpcomingLimit    = 10
	DefaultPreviewCount     = 5
)

// Delivery defaults.
const (
	DefaultDeliveryTimeoutSeconds = 10
	DefaultDeliveryRatePerSecond  = 1.0
)

// Telegram defaults.
const (
	DefaultTelegramSendTimeoutSeconds = 10
	DefaultTelegramPollTimeoutSeconds = 30
)

// DefaultMetricsAddr is where /metrics is served when metrics are enabled.
const DefaultMetricsAddr = ":9090"

// DefaultMetricsNamespace prefixes every exported metric name.
const DefaultMetricsNamespace = "ipubot"

// DefaultMessageBusCapacity is the buffer size of each bus queue.
const DefaultMessageBusCapacity = 1000
