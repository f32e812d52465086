package concurrency

import "context"

// Task is a unit of work submitted to an Executor or WorkerPool.
type Task interface {
	Execute(ctx context.Context) error
	Name() string
}

type namedTask struct {
	name string
	fn   func(ctx context.Context) error
}

// NewNamedTask wraps fn as a Task with a name (used in logs/metrics).
func NewNamedTask(name string, fn func(ctx context.Context) error) Task {
	return &namedTask{name: name, fn: fn}
}

func (t *namedTask) Execute(ctx context.Context) error { return t.fn(ctx) }
func (t *namedTask) Name() string                      { return t.name }
