// Package saga implements the multi-entity transactional workflow
// orchestrator (spec.md 4.H): a builder yields a WorkflowConfig of Steps
// with dependencies, conditions, retry policy, and compensation; Engine
// derives execution levels via Kahn-style peeling and runs each level
// concurrently with golang.org/x/sync/errgroup, retrying technical
// failures and compensating in reverse completion order on business
// failure.
package saga

import (
	"context"
	"time"
)

// StepStatus is the outcome of one step execution.
type StepStatus string

const (
	StatusSuccess StepStatus = "Success"
	StatusBusinessFailure StepStatus = "BusinessFailure"
	StatusTechnicalFailure StepStatus = "TechnicalFailure"
	StatusCancelled StepStatus = "Cancelled"
	StatusSkipped StepStatus = "Skipped"
)

// StepResult is one step's outcome, matching the field-numbered
// SagaStepResult wire contract from spec.md section 6.
type StepResult struct {
	Success          bool // (0)
	IsBusinessFailure bool // (1)
	IsTechnicalFailure bool // (2)
	Result           interface{} // (3)
	ErrorMessage     string // (4)
	ExceptionInfo    string // (5)
	ExecutionTime    time.Time // (6)
	Duration         time.Duration // (7)
}

// CompensationResult is the outcome of one step's compensate_fn call,
// matching spec.md section 6's CompensationResult wire contract.
type CompensationResult struct {
	Success  bool // (0)
	Error    string // (1)
	Exception string // (2)
	Time     time.Time // (3)
	Duration time.Duration // (4)
}

// ExecuteFunc runs one step's business logic.
type ExecuteFunc func(ctx context.Context, sagaData map[string]interface{}) (StepResult, error)

// CompensateFunc undoes a previously successful step.
type CompensateFunc func(ctx context.Context, sagaData map[string]interface{}, original StepResult) CompensationResult

// ConditionFunc decides whether a step should run given the accumulated
// run context (completed/failed steps and saga data so far).
type ConditionFunc func(completed, failed map[string]struct{}, sagaData map[string]interface{}) bool

// Step is one vertex of the saga's execution DAG (spec.md 4: "a (V, E)
// DAG where vertices are steps").
type Step struct {
	Name              string
	Execute           ExecuteFunc
	Compensate        CompensateFunc
	DependsOn         []string
	Condition         ConditionFunc
	ContinueOnFailure bool
	MaxRetries        int
	RetryDelay        time.Duration
	Timeout           time.Duration
}

// WorkflowConfig is the frozen saga definition produced by Builder.Build.
type WorkflowConfig struct {
	Name  string
	Steps []Step
}

// RunState is the execution state per run, matching spec.md 4:
// "{correlation_id, started_at, completed_steps, failed_steps,
// step_results, compensated_steps}".
type RunState struct {
	CorrelationID     string
	StartedAt         time.Time
	CompletedSteps    []string
	FailedSteps       []string
	StepResults       map[string]StepResult
	CompensatedSteps  []string
}

// RunStatus is the overall outcome of one saga run.
type RunStatus string

const (
	RunCompleted   RunStatus = "Completed"
	RunCompensated RunStatus = "Compensated"
	RunFailed      RunStatus = "Failed"
)

// RunResult is returned by Engine.Execute.
type RunResult struct {
	Status RunStatus
	State  RunState
	Stats  Stats
	Err    error
}
