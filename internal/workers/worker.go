package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/ipubot/internal/logger"
)

// worker processes tasks until the queue is closed and drained.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for task := range p.taskQueue {
		p.processTask(id, task)
	}

	p.logger.DebugCtx(p.ctx, "worker stopping",
		logger.Field{Key: "worker_id", Value: id})
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	start := time.Now()

	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	result := Result{TaskID: task.ID, Type: task.Type}
	result.Output, result.Error = p.execute(execCtx, task)
	result.Duration = time.Since(start)
	p.recordResult(result.Error != nil, result.Duration)

	select {
	case p.resultCh <- result:
	default:
	}

	p.logger.DebugCtx(execCtx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// execute runs the task, converting a panic into an error.
func (p *WorkerPool) execute(ctx context.Context, task Task) (output string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if task.Run == nil {
		return "", fmt.Errorf("task %s has no executor", task.ID)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", err,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	return task.Run(ctx)
}
