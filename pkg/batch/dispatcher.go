package batch

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/core/failfast"
	"github.com/fluxorio/grainstate/pkg/observability"
)

// maxRetryDelay caps exponential backoff, consistent with pkg/saga's
// step-retry cap (spec.md 4.I shares the same retry shape as 4.H).
const maxRetryDelay = 30 * time.Second

// Dispatcher runs batch fire requests through a bounded-concurrency
// semaphore (golang.org/x/sync/semaphore.Weighted — the teacher's own
// indirect x/sync dependency, promoted to direct here), rather than a
// fixed worker-pool channel, because batch requests need per-item
// priority ordering decided before acquisition and per-op timeouts the
// teacher's concurrency.WorkerPool does not model.
type Dispatcher struct {
	fire   FireFunc
	logger core.Logger
}

// NewDispatcher builds a Dispatcher that executes requests via fire.
func NewDispatcher(fire FireFunc) *Dispatcher {
	failfast.NotNil(fire, "fire")
	return &Dispatcher{fire: fire, logger: core.NewDefaultLogger()}
}

// Execute runs requests per opts, preserving each item's original index
// in the returned Result.Items regardless of completion order.
func (d *Dispatcher) Execute(ctx context.Context, requests []OperationRequest, opts Options) Result {
	start := time.Now().UTC()

	if opts.MaxParallelism <= 0 {
		opts.MaxParallelism = len(requests)
		if opts.MaxParallelism == 0 {
			opts.MaxParallelism = 1
		}
	}
	if opts.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.OverallTimeout)
		defer cancel()
	}

	order := make([]int, len(requests))
	for i := range order {
		order[i] = i
	}
	if opts.OrderByPriority {
		sort.SliceStable(order, func(i, j int) bool {
			return requests[order[i]].Priority > requests[order[j]].Priority
		})
	}

	items := make([]ItemResult, len(requests))
	sem := semaphore.NewWeighted(int64(opts.MaxParallelism))

	var mu sync.Mutex
	stopped := false
	var wg sync.WaitGroup

	for _, idx := range order {
		if err := sem.Acquire(ctx, 1); err != nil {
			items[idx] = ItemResult{EntityID: requests[idx].EntityID, Correlation: requests[idx].Correlation, BatchIndex: idx, Error: "skipped", Success: false}
			continue
		}

		mu.Lock()
		if stopped || ctx.Err() != nil {
			mu.Unlock()
			sem.Release(1)
			items[idx] = ItemResult{EntityID: requests[idx].EntityID, Correlation: requests[idx].Correlation, BatchIndex: idx, Error: "skipped", Success: false}
			continue
		}
		mu.Unlock()

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer sem.Release(1)

			req := requests[idx]
			result := d.executeWithRetry(ctx, req, opts, idx)

			mu.Lock()
			items[idx] = result
			if !result.Success && opts.StopOnFirstFailure {
				stopped = true
			}
			mu.Unlock()
		}(idx)
	}
	wg.Wait()

	var res Result
	res.Total = len(requests)
	res.Start = start
	metrics := observability.GetMetrics()
	for _, it := range items {
		switch {
		case it.Success:
			res.SuccessCount++
			metrics.RecordBatchItem("success")
		case it.Error == "skipped":
			res.SkippedCount++
			metrics.RecordBatchItem("skipped")
		default:
			res.FailureCount++
			metrics.RecordBatchItem("failure")
		}
	}
	res.Items = items
	res.End = time.Now().UTC()
	res.Duration = res.End.Sub(res.Start)
	metrics.RecordBatch(opts.StopOnFirstFailure, res.Duration)
	return res
}

func (d *Dispatcher) executeWithRetry(ctx context.Context, req OperationRequest, opts Options, idx int) ItemResult {
	attempts := opts.Retry + 1
	var last ItemResult

	for attempt := 1; attempt <= attempts; attempt++ {
		opCtx := ctx
		var cancel context.CancelFunc
		if opts.PerOpTimeout > 0 {
			opCtx, cancel = context.WithTimeout(ctx, opts.PerOpTimeout)
		}

		started := time.Now().UTC()
		from, to, err := d.fire(opCtx, req)
		if cancel != nil {
			cancel()
		}
		duration := time.Since(started)

		result := ItemResult{
			EntityID:    req.EntityID,
			Correlation: req.Correlation,
			BatchIndex:  idx,
			From:        from,
			To:          to,
			Duration:    duration,
		}
		if err == nil {
			result.Success = true
			return result
		}
		result.Error = err.Error()
		last = result

		if ctx.Err() != nil || attempt == attempts {
			return last
		}

		delay := opts.RetryDelay
		if opts.Exponential {
			delay = delay * time.Duration(1<<uint(attempt-1))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
		if delay <= 0 {
			continue
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return last
		}
	}
	return last
}
