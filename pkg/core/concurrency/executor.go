package concurrency

import (
	"context"
	"time"
)

// ExecutorStats reports executor load.
type ExecutorStats struct {
	QueuedTasks      int64
	ActiveWorkers    int
	CompletedTasks   int64
	RejectedTasks    int64
	QueueCapacity    int
	QueueUtilization float64
}

// Executor abstracts bounded goroutine-pool task execution, hiding channel
// operations and goroutine creation from callers. Used by the clustered
// NATS EventBus to bound concurrent handler execution.
type Executor interface {
	Submit(task Task) error
	SubmitWithTimeout(task Task, timeout time.Duration) error
	Shutdown(ctx context.Context) error
	Stats() ExecutorStats
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Workers   int
	QueueSize int
}

// DefaultExecutorConfig returns a modest default configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{Workers: 8, QueueSize: 1024}
}
