// Package batch implements the bulk fire dispatcher (spec.md 4.I): N
// {entity_id, trigger, args, priority, correlation} requests fanned out
// through a bounded-concurrency semaphore, with per-item retry,
// stop-on-first-failure, and overall/per-op timeouts.
package batch

import (
	"context"
	"time"
)

// OperationRequest is one unit of batch work, matching spec.md section
// 6's field-numbered BatchOperationRequest wire contract.
type OperationRequest struct {
	EntityID      string                 // (0)
	Trigger       string                 // (1)
	Args          []interface{}          // (2)
	Correlation   string                 // (3)
	Metadata      map[string]string      // (4)
	Priority      int                    // (5)
}

// ItemResult is one request's outcome, matching spec.md section 6's
// field-numbered BatchItemResult wire contract.
type ItemResult struct {
	EntityID      string        // (0)
	Success       bool          // (1)
	From          string        // (2)
	To            string        // (3)
	Error         string        // (4)
	ExceptionType string        // (5)
	Duration      time.Duration // (6)
	Correlation   string        // (7)
	BatchIndex    int           // (8)
}

// Result is the overall batch outcome, matching spec.md section 6's
// field-numbered BatchOperationResult wire contract.
type Result struct {
	Total        int             // (0)
	SuccessCount int             // (1)
	FailureCount int             // (2)
	SkippedCount int             // (3)
	Duration     time.Duration   // (4)
	Start        time.Time       // (5)
	End          time.Time       // (6)
	Items        []ItemResult    // (7)
}

// FireFunc executes one request against its entity and reports the
// resulting transition, grounded on actor.Adapter.Fire's signature but
// kept decoupled from pkg/actor so Dispatcher has no direct dependency on
// any one entity-hosting strategy.
type FireFunc func(ctx context.Context, req OperationRequest) (from, to string, err error)

// Options configures one Dispatcher.Execute call, matching spec.md 4.I's
// options object verbatim.
type Options struct {
	MaxParallelism      int
	StopOnFirstFailure  bool
	OverallTimeout      time.Duration
	PerOpTimeout        time.Duration
	Retry               int
	RetryDelay          time.Duration
	Exponential         bool
	OrderByPriority     bool
}
