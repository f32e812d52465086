package actor

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/storage"
)

func TestExposeOverEventBus_FireRequestRoundTrip(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()
	a := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())

	ctx := context.Background()
	if err := a.Activate(ctx); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	bus := core.NewLocalEventBus()
	defer bus.Close()
	ExposeOverEventBus(bus, "order-1.fire", a)

	reply, err := bus.Request("order-1.fire", FireRequest{Trigger: "Submit"}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	var resp FireResponse
	if err := reply.DecodeBody(&resp); err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("resp.Error = %q, want empty", resp.Error)
	}
	if resp.NewState[""] != "Submitted" {
		t.Fatalf("resp.NewState = %v, want Submitted", resp.NewState)
	}
	if a.CurrentState() != "Submitted" {
		t.Fatalf("CurrentState() = %v, want Submitted", a.CurrentState())
	}
}

func TestExposeOverEventBus_InvalidTriggerReportsError(t *testing.T) {
	def := buildOrderDefinition(t)
	store := storage.NewMemoryStore()
	a := NewAdapter("order-1", def, store, DefaultEventSourcingOptions())

	ctx := context.Background()
	if err := a.Activate(ctx); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	bus := core.NewLocalEventBus()
	defer bus.Close()
	ExposeOverEventBus(bus, "order-1.fire", a)

	reply, err := bus.Request("order-1.fire", FireRequest{Trigger: "Ship"}, 2*time.Second)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	var resp FireResponse
	if err := reply.DecodeBody(&resp); err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if resp.Error == "" {
		t.Fatal("resp.Error = empty, want an error for an unpermitted trigger")
	}
}
