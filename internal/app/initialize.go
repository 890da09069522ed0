package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aatumaykin/ipubot/internal/bus"
	"github.com/aatumaykin/ipubot/internal/channels/telegram"
	"github.com/aatumaykin/ipubot/internal/commands"
	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/cron"
	"github.com/aatumaykin/ipubot/internal/delivery"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
	"github.com/aatumaykin/ipubot/internal/metrics"
	"github.com/aatumaykin/ipubot/internal/reminder"
	"github.com/aatumaykin/ipubot/internal/storage"
	"github.com/aatumaykin/ipubot/internal/version"
	"github.com/aatumaykin/ipubot/internal/workers"
)

// ErrAlreadyStarted is returned by Initialize on a running App.
var ErrAlreadyStarted = errors.New("application already started")

// Initialize creates and starts every component. On failure the components
// started so far are stopped again.
func (a *App) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return ErrAlreadyStarted
	}

	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.initialize(); err != nil {
		a.cancel()
		a.stopComponents(context.WithoutCancel(ctx))
		return err
	}

	a.started = true
	return nil
}

func (a *App) initialize() error {
	cfg := a.config

	// 1. Open storage
	backend, err := storage.Open(a.ctx, cfg.Storage, a.logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.storage = backend
	a.logger.Info("storage opened", logger.Field{Key: "driver", Value: cfg.Storage.Driver})

	// 2. Create and start the message bus
	a.messageBus = bus.New(cfg.MessageBus.Capacity, a.logger)
	if err := a.messageBus.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start message bus: %w", err)
	}

	// 3. Metrics
	if err := a.initMetrics(); err != nil {
		return err
	}

	// 4. Schedule expander in the configured zone
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return err
	}
	a.expander = cron.NewExpander(loc)

	// 5. Telegram client, shared by the connector and telegram delivery
	if a.bot == nil && needsBot(cfg) {
		bot, err := telegram.NewBot(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		a.bot = bot
	}

	// 6. Reminder loop
	if err := a.initReminder(); err != nil {
		return err
	}

	// 7. Command handling
	a.initCommands()

	// 8. Telegram connector
	if cfg.Telegram.Enabled {
		a.telegram = telegram.New(cfg.Telegram, a.logger, a.messageBus, a.bot)
		if err := a.telegram.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start telegram connector: %w", err)
		}
	}

	return nil
}

func needsBot(cfg *config.Config) bool {
	return cfg.Telegram.Enabled || (cfg.Reminder.Enabled && cfg.Delivery.Kind == config.DeliveryTelegram)
}

func (a *App) initMetrics() error {
	cfg := a.config.Metrics
	if !cfg.Enabled {
		return nil
	}

	if a.registry == nil {
		a.ownsRegistry = true
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	a.metrics = metrics.InitPrometheusMetrics(cfg.Namespace, a.registry)

	a.metricsServer = metrics.NewServer(cfg.ListenAddr, a.registry, a.logger)
	if err := a.metricsServer.Start(); err != nil {
		a.metricsServer = nil
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

func (a *App) initReminder() error {
	cfg := a.config
	if !cfg.Reminder.Enabled {
		a.logger.Info("reminder loop disabled")
		return nil
	}

	var sender delivery.MessageSender
	if a.bot != nil {
		sender = a.bot
	}
	sink, err := delivery.New(cfg.Delivery, sender, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create delivery sink: %w", err)
	}
	a.sink = sink

	opts := append([]reminder.Option{reminder.WithMetrics(a.metrics)}, a.reminderOpts...)
	loop, err := reminder.NewLoop(reminder.Config{
		Interval:        cfg.Reminder.Interval(),
		Lookahead:       cfg.Reminder.Lookahead(),
		Tolerance:       cfg.Reminder.Tolerance(),
		FireImmediately: cfg.Reminder.FireImmediately,
	}, a.storage, a.expander, sink, a.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create reminder loop: %w", err)
	}
	if err := loop.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start reminder loop: %w", err)
	}
	a.reminder = loop
	return nil
}

func (a *App) initCommands() {
	cfg := a.config

	a.workerPool = workers.NewPool(cfg.Commands.Workers, cfg.Commands.QueueSize, a.logger)
	a.workerPool.Start()

	a.commandHandler = commands.NewHandler(
		events.NewValidatingStore(a.storage, a.expander),
		ledger.New(a.storage, cfg.Ledger.MinutesPerPoint),
		a.expander,
		a.messageBus,
		a.logger,
		a.metrics,
		commands.Options{
			UpcomingLimit: cfg.Commands.UpcomingLimit,
			PreviewCount:  cfg.Commands.PreviewCount,
			Version:       version.Version,
		},
	)

	inbound := a.messageBus.SubscribeInbound(a.ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.commandHandler.Run(a.ctx, inbound, a.workerPool)
	}()
}
