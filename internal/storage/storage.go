// Package storage provides the persistence backends for periodic event
// definitions and the point ledger: sqlite, postgres, a JSONL file and memory.
package storage

import (
	"context"
	"fmt"

	"github.com/aatumaykin/ipubot/internal/config"
	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
	"github.com/aatumaykin/ipubot/internal/logger"
)

// Backend stores both events and ledger users.
type Backend interface {
	events.Store
	ledger.Store
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (Backend, error) {
	log = log.With(logger.Field{Key: "driver", Value: cfg.Driver})

	switch cfg.Driver {
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path, log)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, log)
	case config.DriverFile:
		return NewFileStore(cfg.Path, log), nil
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}
