package concurrency

import (
	"context"
	"testing"
	"time"
)

func TestNewExecutor(t *testing.T) {
	ctx := context.Background()
	config := DefaultExecutorConfig()

	executor := NewExecutor(ctx, config)
	if executor == nil {
		t.Error("NewExecutor() should not return nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := executor.Shutdown(shutdownCtx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestExecutor_Submit(t *testing.T) {
	ctx := context.Background()
	config := ExecutorConfig{Workers: 2, QueueSize: 10}

	executor := NewExecutor(ctx, config)
	defer executor.Shutdown(context.Background())

	if err := executor.Submit(nil); err == nil {
		t.Error("Submit() with nil task should fail")
	}

	task := NewNamedTask("test-task", func(ctx context.Context) error { return nil })
	if err := executor.Submit(task); err != nil {
		t.Errorf("Submit() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)
}

func TestExecutor_SubmitWithTimeout(t *testing.T) {
	ctx := context.Background()
	config := ExecutorConfig{Workers: 1, QueueSize: 1}

	executor := NewExecutor(ctx, config)
	defer executor.Shutdown(context.Background())

	blockingTask := NewNamedTask("blocking", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})
	executor.Submit(blockingTask)
	executor.Submit(NewNamedTask("fill", func(ctx context.Context) error { return nil }))

	time.Sleep(20 * time.Millisecond)

	task3 := NewNamedTask("task3", func(ctx context.Context) error { return nil })
	err := executor.SubmitWithTimeout(task3, 5*time.Millisecond)
	if err != nil && err.Error() == "executor is closed" {
		t.Error("SubmitWithTimeout() should not return executor closed error")
	}
}

func TestExecutor_Stats(t *testing.T) {
	ctx := context.Background()
	config := ExecutorConfig{Workers: 2, QueueSize: 10}

	executor := NewExecutor(ctx, config)
	defer executor.Shutdown(context.Background())

	stats := executor.Stats()
	if stats.ActiveWorkers != 2 {
		t.Errorf("Stats().ActiveWorkers = %d, want 2", stats.ActiveWorkers)
	}
	if stats.QueueCapacity != 10 {
		t.Errorf("Stats().QueueCapacity = %d, want 10", stats.QueueCapacity)
	}
}
