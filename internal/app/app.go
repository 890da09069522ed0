// Package app wires ipubot's components together and manages their lifecycle.
// It coordinates storage, the message bus, the reminder loop, command
// handling and the Telegram channel.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/ipubot/internal/bus"
	"github.com/aatumaykin/ipubot/internal/channels/telegram"
	"github.com/aatumaykin/ipubot/internal/commands"
	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/delivery"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/metrics"
	"github.com/aatumaykin/ipubot/internal/reminder"
	"github.com/aatumaykin/ipubot/internal/storage"
	"github.com/aatumaykin/ipubot/internal/workers"
)

// DefaultShutdownTimeout bounds Run's graceful shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// App represents the main application structure.
type App struct {
	config *config.Config
	logger *logger.Logger

	// Persistence
	storage storage.Backend

	// Communication infrastructure
	messageBus *bus.MessageBus

	// Observability
	registry      *prometheus.Registry
	ownsRegistry  bool
	metrics       *metrics.Metrics
	metricsServer *metrics.Server

	// Scheduling and delivery
	expander *cron.Expander
	sink     delivery.Sink
	reminder *reminder.Loop

	// Command execution
	workerPool     *workers.WorkerPool
	commandHandler *commands.Handler

	// Channels
	bot      telegram.BotInterface
	telegram *telegram.Connector

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	shutdownTimeout time.Duration
	reminderOpts    []reminder.Option
}

// Option customizes an App.
type Option func(*App)

// WithBot supplies the Telegram client instead of dialing the Bot API.
func WithBot(bot telegram.BotInterface) Option {
	return func(a *App) { a.bot = bot }
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithReminderOptions passes extra options to the reminder loop.
func WithReminderOptions(opts ...reminder.Option) Option {
	return func(a *App) { a.reminderOpts = append(a.reminderOpts, opts...) }
}

// WithShutdownTimeout bounds the shutdown performed by Run.
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates a new App instance.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config:          cfg,
		logger:          log,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run initializes every component, blocks until ctx is done and then shuts
// the application down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	a.logger.Info("ipubot started")
	<-ctx.Done()
	a.logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Started reports whether Initialize completed and Shutdown has not run.
func (a *App) Started() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Reminder returns the reminder loop, or nil when it is disabled.
func (a *App) Reminder() *reminder.Loop {
	return a.reminder
}

// MessageBus returns the application's message bus.
func (a *App) MessageBus() *bus.MessageBus {
	return a.messageBus
}

// Storage returns the opened backend.
func (a *App) Storage() storage.Backend {
	return a.storage
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	if a.metricsServer == nil {
		return ""
	}
	return a.metricsServer.Addr()
}
