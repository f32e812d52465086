package saga

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/core/failfast"
	"github.com/fluxorio/grainstate/pkg/observability"
)

// maxRetryDelay caps the exponential backoff between step attempts
// (spec.md 4.H: "capped at 30 s").
const maxRetryDelay = 30 * time.Second

// EntityResolver resolves a cross-grain reference for saga steps that
// call into another entity, matching spec.md section 9's "cross-grain
// saga calls use the host's entity-resolver" note. ref is opaque to the
// engine; steps type-assert it to whatever the host's resolver returns.
type EntityResolver func(ctx context.Context, entityType, entityID string) (interface{}, error)

// Engine executes one WorkflowConfig's runs. Stateless and safe for
// concurrent use across independent runs; a run never calls Fire on the
// same entity twice concurrently because per-entity serialization is
// enforced by actor.Adapter (spec.md 4.H's concurrency guarantee), not by
// Engine itself.
type Engine struct {
	cfg      *WorkflowConfig
	logger   core.Logger
	resolver EntityResolver
}

// NewEngine builds an Engine bound to cfg. resolver may be nil if no step
// makes cross-grain calls.
func NewEngine(cfg *WorkflowConfig, resolver EntityResolver) *Engine {
	failfast.NotNil(cfg, "cfg")
	return &Engine{
		cfg:      cfg,
		logger:   core.NewDefaultLogger().WithFields(map[string]interface{}{"saga": cfg.Name}),
		resolver: resolver,
	}
}

// Resolver returns the cross-grain entity resolver bound to this Engine,
// for step Execute/Compensate closures that need to call into another
// entity (spec.md section 9).
func (e *Engine) Resolver() EntityResolver { return e.resolver }

// Stats returns the execution-graph statistics computed from cfg (spec.md
// 4.H step 3), independent of any particular run.
func (e *Engine) Stats() Stats {
	lv := levels(e.cfg.Steps)
	return computeStats(e.cfg.Steps, lv)
}

// Execute runs the workflow once against sagaData, following spec.md
// 4.H's execution algorithm: levels run in dependency order, steps within
// a level run concurrently, a step's business failure (or exhausted
// technical-failure retries) without continue_on_failure triggers
// compensation of every completed step in reverse completion order.
func (e *Engine) Execute(ctx context.Context, sagaData map[string]interface{}) RunResult {
	lv := levels(e.cfg.Steps)
	stats := computeStats(e.cfg.Steps, lv)

	state := RunState{
		CorrelationID: uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		StepResults:   make(map[string]StepResult),
	}
	completedSet := make(map[string]struct{})
	failedSet := make(map[string]struct{})
	var completionOrder []string

	for _, level := range lv {
		var ready []Step
		for _, s := range level {
			if s.Condition != nil && !s.Condition(completedSet, failedSet, sagaData) {
				continue
			}
			ready = append(ready, s)
		}
		if len(ready) == 0 {
			continue
		}

		results := e.runLevel(ctx, ready, sagaData)

		// Steps within a level run concurrently (runLevel), so completion
		// order must come from actual finish time, not ready's declared
		// order: a later-declared sibling can finish before an earlier one
		// (spec.md 4.H testable property #7).
		type finishedStep struct {
			name   string
			finish time.Time
		}
		var levelCompleted []finishedStep

		for i, s := range ready {
			r := results[i]
			state.StepResults[s.Name] = r
			if r.Success {
				completedSet[s.Name] = struct{}{}
				levelCompleted = append(levelCompleted, finishedStep{name: s.Name, finish: r.ExecutionTime.Add(r.Duration)})
				state.CompletedSteps = append(state.CompletedSteps, s.Name)
				continue
			}
			failedSet[s.Name] = struct{}{}
			state.FailedSteps = append(state.FailedSteps, s.Name)
		}

		sort.Slice(levelCompleted, func(a, b int) bool {
			return levelCompleted[a].finish.Before(levelCompleted[b].finish)
		})
		for _, c := range levelCompleted {
			completionOrder = append(completionOrder, c.name)
		}

		for _, s := range ready {
			r := state.StepResults[s.Name]
			if r.Success || s.ContinueOnFailure {
				continue
			}
			e.compensate(ctx, completionOrder, sagaData, state.StepResults, &state)
			observability.GetMetrics().RecordSagaRun(string(RunFailed))
			return RunResult{Status: RunFailed, State: state, Stats: stats, Err: stepErr(r)}
		}
	}

	if len(state.FailedSteps) > 0 {
		e.compensate(ctx, completionOrder, sagaData, state.StepResults, &state)
		observability.GetMetrics().RecordSagaRun(string(RunCompensated))
		return RunResult{Status: RunCompensated, State: state, Stats: stats}
	}
	observability.GetMetrics().RecordSagaRun(string(RunCompleted))
	return RunResult{Status: RunCompleted, State: state, Stats: stats}
}

// runLevel runs every ready step in parallel via errgroup, each through
// its own retry loop, and returns results aligned by index with ready.
func (e *Engine) runLevel(ctx context.Context, ready []Step, sagaData map[string]interface{}) []StepResult {
	results := make([]StepResult, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range ready {
		i, s := i, s
		g.Go(func() error {
			results[i] = e.executeWithRetry(gctx, s, sagaData)
			return nil
		})
	}
	_ = g.Wait() // per-step errors are carried in results, not propagated
	return results
}

// executeWithRetry runs s.Execute up to MaxRetries+1 times, retrying only
// technical failures with exponential backoff (spec.md 4.H:
// "retry_delay * 2^(attempt-1), capped at 30s"); business failures and
// success return immediately.
func (e *Engine) executeWithRetry(ctx context.Context, s Step, sagaData map[string]interface{}) StepResult {
	spanCtx, span := observability.StartSagaStepSpan(ctx, e.cfg.Name, s.Name)
	ctx = spanCtx
	stepStart := time.Now()
	result := e.executeWithRetryTraced(ctx, s, sagaData)
	status := StatusSuccess
	var stepErrVal error
	switch {
	case result.Success:
		status = StatusSuccess
	case result.IsBusinessFailure:
		status = StatusBusinessFailure
	case result.IsTechnicalFailure:
		status = StatusTechnicalFailure
	default:
		status = StatusCancelled
	}
	if result.ErrorMessage != "" {
		stepErrVal = &StepError{Message: result.ErrorMessage}
	}
	observability.GetMetrics().RecordSagaStep(s.Name, string(status), time.Since(stepStart))
	observability.EndSagaStepSpan(span, string(status), stepErrVal)
	return result
}

func (e *Engine) executeWithRetryTraced(ctx context.Context, s Step, sagaData map[string]interface{}) StepResult {
	attempts := s.MaxRetries + 1
	var last StepResult

	for attempt := 1; attempt <= attempts; attempt++ {
		stepCtx := ctx
		var cancel context.CancelFunc
		if s.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		}

		start := time.Now().UTC()
		result, err := s.Execute(stepCtx, sagaData)
		if cancel != nil {
			cancel()
		}
		result.ExecutionTime = start
		result.Duration = time.Since(start)
		if err != nil && result.ErrorMessage == "" {
			result.ErrorMessage = err.Error()
		}

		if ctx.Err() != nil {
			result.Success = false
			result.IsTechnicalFailure = false
			result.IsBusinessFailure = false
			result.ErrorMessage = "cancelled"
			return result
		}

		last = result
		if result.Success || result.IsBusinessFailure {
			return result
		}
		if !result.IsTechnicalFailure || attempt == attempts {
			return result
		}

		delay := s.RetryDelay * time.Duration(1<<uint(attempt-1))
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		e.logger.WithContext(ctx).Warnf("step %s attempt %d failed, retrying in %s", s.Name, attempt, delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			last.ErrorMessage = "cancelled"
			return last
		}
	}
	return last
}

// compensate invokes every completed step's CompensateFunc in reverse
// completion order, collecting per-step outcomes. A step with no
// CompensateFunc is skipped.
func (e *Engine) compensate(ctx context.Context, completionOrder []string, sagaData map[string]interface{}, results map[string]StepResult, state *RunState) {
	byName := make(map[string]Step, len(e.cfg.Steps))
	for _, s := range e.cfg.Steps {
		byName[s.Name] = s
	}
	for i := len(completionOrder) - 1; i >= 0; i-- {
		name := completionOrder[i]
		step := byName[name]
		if step.Compensate == nil {
			continue
		}
		cr := step.Compensate(ctx, sagaData, results[name])
		if !cr.Success {
			e.logger.WithContext(ctx).Errorf("compensation failed for step %s: %s", name, cr.Error)
		}
		state.CompensatedSteps = append(state.CompensatedSteps, name)
	}
}

func stepErr(r StepResult) error {
	if r.ErrorMessage == "" {
		return nil
	}
	return &StepError{Message: r.ErrorMessage}
}

// StepError wraps a failed step's message as an error value.
type StepError struct{ Message string }

func (e *StepError) Error() string { return e.Message }
