package saga

import (
	"context"
	"sync"
	"testing"
	"time"
)

func successStep(name string, deps ...string) Step {
	return Step{
		Name:      name,
		DependsOn: deps,
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: true}, nil
		},
	}
}

func TestBuilder_RejectsUnknownDependency(t *testing.T) {
	b := NewBuilder("demo").Step(successStep("a", "missing"))
	if _, err := b.Build(); err == nil {
		t.Fatalf("Build() error = nil, want ErrUnknownDependency")
	}
}

func TestBuilder_RejectsCycle(t *testing.T) {
	b := NewBuilder("demo").
		Step(Step{Name: "a", DependsOn: []string{"b"}, Execute: successStep("a").Execute}).
		Step(Step{Name: "b", DependsOn: []string{"a"}, Execute: successStep("b").Execute})
	if _, err := b.Build(); err == nil {
		t.Fatalf("Build() error = nil, want ErrCyclicDependency")
	}
}

func TestEngine_HappyPath(t *testing.T) {
	cfg, err := NewBuilder("order-fulfillment").
		Step(successStep("reserve-inventory")).
		Step(successStep("charge-payment", "reserve-inventory")).
		Step(successStep("ship-order", "charge-payment")).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine(cfg, nil)
	result := engine.Execute(context.Background(), map[string]interface{}{})
	if result.Status != RunCompleted {
		t.Fatalf("Status = %v, want Completed", result.Status)
	}
	if len(result.State.CompletedSteps) != 3 {
		t.Fatalf("CompletedSteps = %v", result.State.CompletedSteps)
	}
}

func TestEngine_BusinessFailureTriggersCompensation(t *testing.T) {
	var compensated []string

	reserve := Step{
		Name: "reserve-inventory",
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: true}, nil
		},
		Compensate: func(ctx context.Context, data map[string]interface{}, original StepResult) CompensationResult {
			compensated = append(compensated, "reserve-inventory")
			return CompensationResult{Success: true}
		},
	}
	charge := Step{
		Name:      "charge-payment",
		DependsOn: []string{"reserve-inventory"},
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: false, IsBusinessFailure: true, ErrorMessage: "card declined"}, nil
		},
	}

	cfg, err := NewBuilder("order-fulfillment").Step(reserve).Step(charge).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine(cfg, nil)
	result := engine.Execute(context.Background(), map[string]interface{}{})
	if result.Status != RunFailed {
		t.Fatalf("Status = %v, want Failed", result.Status)
	}
	if len(compensated) != 1 || compensated[0] != "reserve-inventory" {
		t.Fatalf("compensated = %v", compensated)
	}
}

func TestEngine_TechnicalFailureRetries(t *testing.T) {
	attempts := 0
	flaky := Step{
		Name:       "flaky",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			attempts++
			if attempts < 3 {
				return StepResult{Success: false, IsTechnicalFailure: true, ErrorMessage: "timeout"}, nil
			}
			return StepResult{Success: true}, nil
		},
	}

	cfg, err := NewBuilder("retry-demo").Step(flaky).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine(cfg, nil)
	result := engine.Execute(context.Background(), map[string]interface{}{})
	if result.Status != RunCompleted {
		t.Fatalf("Status = %v, want Completed after retries", result.Status)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestEngine_CompensatesInActualReverseCompletionOrder(t *testing.T) {
	var mu sync.Mutex
	var compensated []string
	record := func(name string) {
		mu.Lock()
		compensated = append(compensated, name)
		mu.Unlock()
	}

	a := Step{
		Name: "a",
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: true}, nil
		},
		Compensate: func(ctx context.Context, data map[string]interface{}, original StepResult) CompensationResult {
			record("a")
			return CompensationResult{Success: true}
		},
	}
	// b is declared before c but takes longer, so c actually finishes
	// first within their shared level.
	b := Step{
		Name:      "b",
		DependsOn: []string{"a"},
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			time.Sleep(30 * time.Millisecond)
			return StepResult{Success: true}, nil
		},
		Compensate: func(ctx context.Context, data map[string]interface{}, original StepResult) CompensationResult {
			record("b")
			return CompensationResult{Success: true}
		},
	}
	c := Step{
		Name:      "c",
		DependsOn: []string{"a"},
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: true}, nil
		},
		Compensate: func(ctx context.Context, data map[string]interface{}, original StepResult) CompensationResult {
			record("c")
			return CompensationResult{Success: true}
		},
	}
	d := Step{
		Name:      "d",
		DependsOn: []string{"b", "c"},
		Execute: func(ctx context.Context, data map[string]interface{}) (StepResult, error) {
			return StepResult{Success: false, IsBusinessFailure: true, ErrorMessage: "boom"}, nil
		},
	}

	cfg, err := NewBuilder("fan-out").Step(a).Step(b).Step(c).Step(d).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine(cfg, nil)
	result := engine.Execute(context.Background(), map[string]interface{}{})
	if result.Status != RunFailed {
		t.Fatalf("Status = %v, want Failed", result.Status)
	}

	// b finished after c, so b must compensate first, then c, then a.
	want := []string{"b", "c", "a"}
	if len(compensated) != len(want) {
		t.Fatalf("compensated = %v, want %v", compensated, want)
	}
	for i := range want {
		if compensated[i] != want[i] {
			t.Fatalf("compensated = %v, want %v", compensated, want)
		}
	}
}

func TestEngine_Stats(t *testing.T) {
	cfg, err := NewBuilder("demo").
		Step(successStep("a")).
		Step(successStep("b")).
		Step(successStep("c", "a", "b")).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	engine := NewEngine(cfg, nil)
	stats := engine.Stats()
	if stats.MaxParallelism != 2 {
		t.Fatalf("MaxParallelism = %d, want 2", stats.MaxParallelism)
	}
	if stats.LevelCount != 2 {
		t.Fatalf("LevelCount = %d, want 2", stats.LevelCount)
	}
}
