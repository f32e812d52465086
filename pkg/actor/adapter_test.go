package actor

import (
	"context"
	"testing"

	"github.com/fluxorio/grainstate/pkg/definition"
	"github.com/fluxorio/grainstate/pkg/storage"
)

func buildOrderDefinition(t *testing.T) *definition.Definition {
	t.Helper()
	b := definition.NewBuilder("Order", definition.Version{Major: 1})
	b.InitialState("Draft")
	b.State("Draft").Permit("Submit", "Submitted").Done()
	b.State("Submitted").Permit("Ship", "Shipped").Done()
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return def
}

func TestAdapter_FirePersistsAndConfirms(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()
	a := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())

	ctx := context.Background()
	if err := a.Activate(ctx); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	result, err := a.Fire(ctx, "Submit", nil, "")
	if err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if result.NewState[""] != "Submitted" {
		t.Fatalf("NewState = %v, want Submitted", result.NewState)
	}

	events, err := store.Read(ctx, "order-1", 0, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 1 || events[0].To != "Submitted" {
		t.Fatalf("events = %+v", events)
	}
}

func TestAdapter_IdempotentDedupe(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()
	opts := DefaultEventSourcingOptions()
	opts.EnableIdempotency = true
	a := NewAdapter("order-1", def, store, opts)

	ctx := context.Background()
	if err := a.Activate(ctx); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if _, err := a.Fire(ctx, "Submit", nil, "req-1"); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if _, err := a.Fire(ctx, "Submit", nil, "req-1"); err != nil {
		t.Fatalf("Fire() (replay) error = %v", err)
	}

	events, err := store.Read(ctx, "order-1", 0, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %+v, want exactly one (second fire deduped)", events)
	}
}

func TestAdapter_ActivateReplaysFromSnapshotAndLog(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()

	first := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())
	ctx := context.Background()
	if err := first.Activate(ctx); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if _, err := first.Fire(ctx, "Submit", nil, ""); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if err := first.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	second := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())
	if err := second.Activate(ctx); err != nil {
		t.Fatalf("Activate() (rehydrate) error = %v", err)
	}
	if second.CurrentState() != "Submitted" {
		t.Fatalf("CurrentState() = %v, want Submitted", second.CurrentState())
	}
}

func TestAdapter_NotActiveRejectsFire(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()
	a := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())

	_, err := a.Fire(context.Background(), "Submit", nil, "")
	if _, ok := err.(*ErrNotActive); !ok {
		t.Fatalf("err = %v, want ErrNotActive", err)
	}
}
