// Command example wires every grainstate component through the scenarios
// named in spec.md section 8: an order-processing happy path, a guarded
// rejection, an idempotent retry, a timer timeout, a saga happy path and
// compensation, a batch dispatch with stop-on-first-failure, and a
// version-compatibility check.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fluxorio/grainstate/pkg/actor"
	"github.com/fluxorio/grainstate/pkg/batch"
	"github.com/fluxorio/grainstate/pkg/definition"
	"github.com/fluxorio/grainstate/pkg/history"
	"github.com/fluxorio/grainstate/pkg/saga"
	"github.com/fluxorio/grainstate/pkg/storage"
	"github.com/fluxorio/grainstate/pkg/timer"
	"github.com/fluxorio/grainstate/pkg/version"
)

func main() {
	ctx := context.Background()

	runOrderHappyPath(ctx)
	runGuardedRejection(ctx)
	runIdempotentRetry(ctx)
	runTimerTimeout(ctx)
	runSagaHappyPath(ctx)
	runSagaCompensation(ctx)
	runBatchDispatch(ctx)
	runVersionCompatibility()
}

func orderDefinition() *definition.Definition {
	itemsGuard := definition.GuardFunc{
		GuardName: "items > 0",
		Fn: func(args []interface{}) bool {
			if len(args) == 0 {
				return false
			}
			n, ok := args[0].(int)
			return ok && n > 0
		},
	}

	b := definition.NewBuilder("Order", definition.Version{Major: 1})
	b.InitialState("Created")
	b.Arity("Submit", 1)
	b.State("Created").Permit("Submit", "PaymentPending").If(itemsGuard).Done()
	b.State("PaymentPending").Permit("Pay", "Paid").Done()
	b.State("Paid").Permit("Ship", "Shipped").Done()
	b.State("Shipped").Permit("Deliver", "Completed").Done()
	def, err := b.Build()
	if err != nil {
		log.Fatalf("build order definition: %v", err)
	}
	return def
}

// S1 — Order processing happy path.
func runOrderHappyPath(ctx context.Context) {
	fmt.Println("=== S1: order processing happy path ===")
	def := orderDefinition()
	store := storage.NewMemoryStore()
	a := actor.NewAdapter("order-1", def, store, actor.DefaultEventSourcingOptions())
	if err := a.Activate(ctx); err != nil {
		log.Fatalf("activate: %v", err)
	}

	mustFire(ctx, a, "Submit", []interface{}{3})
	mustFire(ctx, a, "Pay", nil)
	mustFire(ctx, a, "Ship", nil)
	mustFire(ctx, a, "Deliver", nil)

	info := a.Info()
	fmt.Printf("final state: %v, transitions: %d\n", info.CurrentStates[""], info.TransitionCount)

	events, err := history.New(store, "order-1").OrderByTimeAsc().List(ctx)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	fmt.Printf("log length: %d\n", len(events))
}

// S2 — Guarded rejection.
func runGuardedRejection(ctx context.Context) {
	fmt.Println("=== S2: guarded rejection ===")
	def := orderDefinition()
	store := storage.NewMemoryStore()
	a := actor.NewAdapter("order-2", def, store, actor.DefaultEventSourcingOptions())
	if err := a.Activate(ctx); err != nil {
		log.Fatalf("activate: %v", err)
	}

	ok, unmet, err := a.CanFire(ctx, "Submit", []interface{}{0})
	fmt.Printf("can_fire(Submit, 0 items) = %v, unmet guards = %v, err = %v\n", ok, unmet, err)

	_, fireErr := a.Fire(ctx, "Submit", []interface{}{0}, "")
	fmt.Printf("fire result: %v\n", fireErr)

	count, _ := history.New(store, "order-2").Count(ctx)
	fmt.Printf("log length after rejection: %d\n", count)
}

// S3 — Idempotent retry.
func runIdempotentRetry(ctx context.Context) {
	fmt.Println("=== S3: idempotent retry ===")
	def := orderDefinition()
	store := storage.NewMemoryStore()
	opts := actor.DefaultEventSourcingOptions()
	opts.EnableIdempotency = true

	a := actor.NewAdapter("order-3", def, store, opts)
	if err := a.Activate(ctx); err != nil {
		log.Fatalf("activate: %v", err)
	}
	mustFire(ctx, a, "Submit", []interface{}{1})

	mustFire2(ctx, a, "Pay", nil, "txn-42")
	mustFire2(ctx, a, "Pay", nil, "txn-42")

	if err := a.Deactivate(ctx); err != nil {
		log.Fatalf("deactivate: %v", err)
	}

	a2 := actor.NewAdapter("order-3", def, store, opts)
	if err := a2.Activate(ctx); err != nil {
		log.Fatalf("reactivate: %v", err)
	}
	mustFire2(ctx, a2, "Pay", nil, "txn-42")

	count, _ := history.New(store, "order-3").Count(ctx)
	fmt.Printf("log length after replayed dedupe: %d\n", count)
}

func processingDefinition() *definition.Definition {
	b := definition.NewBuilder("Widget", definition.Version{Major: 1})
	b.InitialState("Idle")
	b.State("Idle").Permit("Start", "Processing").Done()
	b.State("Processing").Permit("Timeout", "Idle").Permit("Finish", "Idle").Done()
	def, err := b.Build()
	if err != nil {
		log.Fatalf("build widget definition: %v", err)
	}
	return def
}

// S4 — Timer timeout.
func runTimerTimeout(ctx context.Context) {
	fmt.Println("=== S4: timer timeout ===")
	def := processingDefinition()
	store := storage.NewMemoryStore()
	a := actor.NewAdapter("widget-1", def, store, actor.DefaultEventSourcingOptions())

	mgr := timer.NewManager(a.FireFunc(), a.StateFunc(), nil)
	mgr.Register(timer.Configure("Processing").After(200 * time.Millisecond).TransitionTo("Timeout").WithName("processing-timeout").Build())
	a.WithTimers(mgr)

	if err := a.Activate(ctx); err != nil {
		log.Fatalf("activate: %v", err)
	}
	mustFire(ctx, a, "Start", nil)

	time.Sleep(350 * time.Millisecond)
	fmt.Printf("state after timeout window: %v\n", a.CurrentState())
}

// S5/S6 — Saga happy path and compensation, DAG A -> (B, C) -> D.
func buildSagaConfig(cFails bool) *saga.WorkflowConfig {
	step := func(name string, fail bool) saga.Step {
		return saga.Step{
			Name: name,
			Execute: func(ctx context.Context, data map[string]interface{}) (saga.StepResult, error) {
				if fail {
					return saga.StepResult{Success: false, IsBusinessFailure: true, ErrorMessage: name + " rejected"}, nil
				}
				return saga.StepResult{Success: true}, nil
			},
			Compensate: func(ctx context.Context, data map[string]interface{}, original saga.StepResult) saga.CompensationResult {
				return saga.CompensationResult{Success: true, Time: time.Now().UTC()}
			},
		}
	}

	cfg, err := saga.NewBuilder("order-fulfillment").
		Step(step("A", false)).
		Step(saga.Step{Name: "B", DependsOn: []string{"A"}, Execute: step("B", false).Execute, Compensate: step("B", false).Compensate}).
		Step(saga.Step{Name: "C", DependsOn: []string{"A"}, Execute: step("C", cFails).Execute, Compensate: step("C", cFails).Compensate}).
		Step(saga.Step{Name: "D", DependsOn: []string{"B", "C"}, Execute: step("D", false).Execute, Compensate: step("D", false).Compensate}).
		Build()
	if err != nil {
		log.Fatalf("build saga: %v", err)
	}
	return cfg
}

func runSagaHappyPath(ctx context.Context) {
	fmt.Println("=== S5: saga happy path ===")
	cfg := buildSagaConfig(false)
	engine := saga.NewEngine(cfg, nil)
	result := engine.Execute(ctx, map[string]interface{}{"order_id": "order-1"})
	fmt.Printf("status = %v, completed = %v\n", result.Status, result.State.CompletedSteps)
}

func runSagaCompensation(ctx context.Context) {
	fmt.Println("=== S6: saga failure + compensation ===")
	cfg := buildSagaConfig(true)
	engine := saga.NewEngine(cfg, nil)
	result := engine.Execute(ctx, map[string]interface{}{"order_id": "order-2"})
	fmt.Printf("status = %v, failed = %v, compensated = %v\n", result.Status, result.State.FailedSteps, result.State.CompensatedSteps)
}

// S7 — Batch dispatch with stop-on-first-failure.
func runBatchDispatch(ctx context.Context) {
	fmt.Println("=== S7: batch dispatch, stop on first failure ===")
	fire := func(ctx context.Context, req batch.OperationRequest) (string, string, error) {
		if req.EntityID == "order-5" {
			return "", "", fmt.Errorf("insufficient inventory")
		}
		return "Created", "PaymentPending", nil
	}
	d := batch.NewDispatcher(fire)

	requests := make([]batch.OperationRequest, 10)
	for i := range requests {
		requests[i] = batch.OperationRequest{EntityID: fmt.Sprintf("order-%d", i+1), Trigger: "Submit"}
	}
	result := d.Execute(ctx, requests, batch.Options{MaxParallelism: 3, StopOnFirstFailure: true})
	fmt.Printf("success=%d failure=%d skipped=%d total=%d\n", result.SuccessCount, result.FailureCount, result.SkippedCount, result.Total)
}

// S8 — Version compatibility.
func runVersionCompatibility() {
	fmt.Println("=== S8: version compatibility ===")
	from := buildVersionedDef(definition.Version{Major: 1, Minor: 2, Patch: 3}, true)
	to := buildVersionedDef(definition.Version{Major: 2, Minor: 0, Patch: 0}, false)

	report := version.NewEngine().Compare(from, to)
	fmt.Printf("IsCompatible=%v Level=%v breaking_changes=%d\n", report.IsCompatible, report.Level, len(report.BreakingChanges))
	fmt.Printf("migration plan: %d step(s), estimated %d minutes\n", len(report.Plan.Steps), report.Plan.EstimatedDuration)
}

func buildVersionedDef(v definition.Version, withDraft bool) *definition.Definition {
	b := definition.NewBuilder("Order", v)
	b.InitialState("Created")
	if withDraft {
		b.State("Draft").Permit("Submit", "Created").Done()
	}
	b.State("Created").Permit("Submit", "PaymentPending").Done()
	b.State("PaymentPending").Done()
	def, err := b.Build()
	if err != nil {
		log.Fatalf("build versioned definition: %v", err)
	}
	return def
}

func mustFire(ctx context.Context, a *actor.Adapter, t definition.Trigger, args []interface{}) {
	mustFire2(ctx, a, t, args, "")
}

func mustFire2(ctx context.Context, a *actor.Adapter, t definition.Trigger, args []interface{}, dedupeKey string) {
	if _, err := a.Fire(ctx, t, args, dedupeKey); err != nil {
		log.Fatalf("fire %s: %v", t, err)
	}
}
