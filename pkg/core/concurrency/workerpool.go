package concurrency

import "context"

// WorkerPool abstracts worker-goroutine management, hiding go func() calls
// and channel lifecycle from application code.
type WorkerPool interface {
	Start() error
	Stop(ctx context.Context) error
	Submit(task Task) error
	Workers() int
	IsRunning() bool
}

// WorkerPoolConfig configures a WorkerPool.
type WorkerPoolConfig struct {
	Workers   int
	QueueSize int
}

// DefaultWorkerPoolConfig returns a modest default configuration.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{Workers: 10, QueueSize: 1000}
}
