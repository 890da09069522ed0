package app

import (
	"context"
)

// Shutdown stops every component in reverse start order:
//  1. Stops the Telegram connector
//  2. Cancels the application context and waits for the command handler
//  3. Drains the worker pool
//  4. Stops the reminder loop, letting an in-flight tick finish
//  5. Stops the metrics server
//  6. Stops the message bus
//  7. Closes storage
//
// ctx bounds the whole sequence. Shutdown is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	a.stopComponents(ctx)
	a.started = false
	a.logger.Info("ipubot stopped")
	return nil
}

// stopComponents stops whatever has been created so far.
func (a *App) stopComponents(ctx context.Context) {
	if a.telegram != nil {
		if err := a.telegram.Stop(); err != nil {
			a.logger.Error("Failed to stop telegram connector", err)
		}
		a.telegram = nil
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if a.workerPool != nil {
		if err := a.workerPool.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop worker pool", err)
		}
		a.workerPool = nil
	}

	if a.reminder != nil {
		if err := a.reminder.Stop(ctx); err != nil {
			a.logger.Error("Failed to stop reminder loop", err)
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to stop metrics server", err)
		}
		a.metricsServer = nil
	}
	if a.ownsRegistry {
		a.registry = nil
		a.ownsRegistry = false
	}

	if a.messageBus != nil && a.messageBus.IsStarted() {
		if err := a.messageBus.Stop(); err != nil {
			a.logger.Error("Failed to stop message bus", err)
		}
	}

	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Error("Failed to close storage", err)
		}
		a.storage = nil
	}
}
