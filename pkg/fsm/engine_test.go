package fsm

import (
	"context"
	"testing"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/definition"
)

func buildOrderDefinition(t *testing.T, itemsPresent bool) *definition.Definition {
	t.Helper()
	guard := definition.GuardFunc{
		GuardName: "items > 0",
		Fn:        func(args []interface{}) bool { return itemsPresent },
	}
	d, err := definition.NewBuilder("Order", definition.Version{Major: 1}).
		InitialState("Draft").
		State("Draft").Permit("Submit", "Submitted").If(guard).Done().
		State("Submitted").Permit("Ship", "Shipped").Done().
		State("Shipped").Done().
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return d
}

func TestEngine_FireHappyPath(t *testing.T) {
	def := buildOrderDefinition(t, true)
	e := NewEngine(def)

	res, err := e.Fire(context.Background(), "Submit", nil)
	if err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if res.NewState[defaultRegion] != "Submitted" {
		t.Fatalf("NewState = %v, want Submitted", res.NewState[defaultRegion])
	}
	if e.CurrentState() != "Submitted" {
		t.Fatalf("CurrentState() = %v, want Submitted", e.CurrentState())
	}
}

func TestEngine_GuardRejected(t *testing.T) {
	def := buildOrderDefinition(t, false)
	e := NewEngine(def)

	_, err := e.Fire(context.Background(), "Submit", nil)
	var gr *ErrGuardRejected
	if !asErr(err, &gr) {
		t.Fatalf("Fire() error = %v, want ErrGuardRejected", err)
	}
	if len(gr.UnmetGuards) != 1 || gr.UnmetGuards[0] != "items > 0" {
		t.Fatalf("UnmetGuards = %v", gr.UnmetGuards)
	}
	if e.CurrentState() != "Draft" {
		t.Fatalf("CurrentState() changed after rejected guard: %v", e.CurrentState())
	}
}

func TestEngine_NoTransition(t *testing.T) {
	def := buildOrderDefinition(t, true)
	e := NewEngine(def)

	_, err := e.Fire(context.Background(), "Ship", nil)
	var nt *ErrNoTransition
	if !asErr(err, &nt) {
		t.Fatalf("Fire() error = %v, want ErrNoTransition", err)
	}
}

func TestEngine_Reentrancy(t *testing.T) {
	def := buildOrderDefinition(t, true)
	e := NewEngine(def)

	ctx := core.WithHookExecuting(context.Background())
	_, err := e.Fire(ctx, "Submit", nil)
	var re *ErrReentrancy
	if !asErr(err, &re) {
		t.Fatalf("Fire() error = %v, want ErrReentrancy", err)
	}
}

func TestEngine_CanFire(t *testing.T) {
	def := buildOrderDefinition(t, true)
	e := NewEngine(def)

	ok, unmet, err := e.CanFire(context.Background(), "Submit", nil)
	if err != nil {
		t.Fatalf("CanFire() error = %v", err)
	}
	if !ok || len(unmet) != 0 {
		t.Fatalf("CanFire() = (%v, %v), want (true, nil)", ok, unmet)
	}
}

func TestEngine_Fire_MultiRegion_GuardRejectionAbortsAllRegions(t *testing.T) {
	rejecting := definition.GuardFunc{
		GuardName: "never",
		Fn:        func(args []interface{}) bool { return false },
	}
	d, err := definition.NewBuilder("Workflow", definition.Version{Major: 1}).
		InitialState("Idle").
		Region("payment", "Pending", "Paid").
		Region("shipping", "Awaiting", "Packed").
		State("Pending").Permit("Sync", "Paid").Done().
		State("Awaiting").Permit("Sync", "Packed").If(rejecting).Done().
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	e := NewEngine(d)

	_, err = e.Fire(context.Background(), "Sync", nil)
	var gr *ErrGuardRejected
	if !asErr(err, &gr) {
		t.Fatalf("Fire() error = %v, want ErrGuardRejected", err)
	}

	states := e.CurrentStates()
	if states["payment"] != "Pending" {
		t.Fatalf("payment region state = %v, want unchanged Pending (no partial mutation)", states["payment"])
	}
	if states["shipping"] != "Awaiting" {
		t.Fatalf("shipping region state = %v, want unchanged Awaiting", states["shipping"])
	}
}

func asErr(err error, target interface{}) bool {
	switch t := target.(type) {
	case **ErrGuardRejected:
		if v, ok := err.(*ErrGuardRejected); ok {
			*t = v
			return true
		}
	case **ErrNoTransition:
		if v, ok := err.(*ErrNoTransition); ok {
			*t = v
			return true
		}
	case **ErrReentrancy:
		if v, ok := err.(*ErrReentrancy); ok {
			*t = v
			return true
		}
	}
	return false
}
