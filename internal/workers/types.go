// Package workers provides an async worker pool for background task execution.
package workers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPoolStopped = errors.New("worker pool is stopped")
	ErrQueueFull   = errors.New("worker pool queue is full")
)

// TaskExecutor runs one task and returns a short description of its output.
type TaskExecutor func(ctx context.Context) (string, error)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Free-form label used in logs
	Run     TaskExecutor    // Work to perform
	Context context.Context // Optional; the pool context is used when nil
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Type     string
	Error    error
	Output   string
	Duration time.Duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}
