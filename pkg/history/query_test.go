package history

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/grainstate/pkg/eventlog"
	"github.com/fluxorio/grainstate/pkg/storage"
)

func seedEvents(t *testing.T, store *storage.MemoryStore, entityID string) {
	t.Helper()
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	events := []eventlog.StateTransitionEvent{
		{From: "Draft", To: "Submitted", Trigger: "Submit", TimestampUTC: base, CorrelationID: "c1", DefinitionVersion: "1.0.0"},
		{From: "Submitted", To: "Shipped", Trigger: "Ship", TimestampUTC: base.Add(time.Hour), CorrelationID: "c1", DefinitionVersion: "1.0.0"},
		{From: "Shipped", To: "Delivered", Trigger: "Deliver", TimestampUTC: base.Add(3 * time.Hour), CorrelationID: "c1", DefinitionVersion: "1.0.0"},
	}
	if _, err := store.Append(context.Background(), entityID, events, 0); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
}

func TestQuery_FilterAndOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	seedEvents(t, store, "order-1")

	got, err := New(store, "order-1").WithTrigger("Ship").List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].To != "Shipped" {
		t.Fatalf("got = %+v", got)
	}

	ordered, err := New(store, "order-1").OrderByTimeDesc().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if ordered[0].Trigger != "Deliver" {
		t.Fatalf("ordered[0] = %+v, want Deliver first", ordered[0])
	}
}

func TestQuery_SkipTake(t *testing.T) {
	store := storage.NewMemoryStore()
	seedEvents(t, store, "order-1")

	got, err := New(store, "order-1").Skip(1).Take(1).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Trigger != "Ship" {
		t.Fatalf("got = %+v", got)
	}
}

func TestQuery_GroupByState(t *testing.T) {
	store := storage.NewMemoryStore()
	seedEvents(t, store, "order-1")

	residency, err := New(store, "order-1").GroupByState(context.Background())
	if err != nil {
		t.Fatalf("GroupByState() error = %v", err)
	}
	shipped := residency["Shipped"]
	if shipped.EntryCount != 1 || shipped.ExitCount != 1 {
		t.Fatalf("Shipped residency = %+v", shipped)
	}
	if shipped.Total != 2*time.Hour {
		t.Fatalf("Shipped total = %v, want 2h", shipped.Total)
	}
}

func TestQuery_GroupByTrigger(t *testing.T) {
	store := storage.NewMemoryStore()
	seedEvents(t, store, "order-1")

	stats, err := New(store, "order-1").GroupByTrigger(context.Background())
	if err != nil {
		t.Fatalf("GroupByTrigger() error = %v", err)
	}
	ship := stats["Ship"]
	if ship.FireCount != 1 {
		t.Fatalf("Ship stats = %+v", ship)
	}
	if _, ok := ship.SourceStates["Submitted"]; !ok {
		t.Fatalf("Ship source states = %v", ship.SourceStates)
	}
}

func TestQuery_GroupByTime(t *testing.T) {
	store := storage.NewMemoryStore()
	seedEvents(t, store, "order-1")

	buckets, err := New(store, "order-1").GroupByTime(context.Background(), PeriodDay)
	if err != nil {
		t.Fatalf("GroupByTime() error = %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("buckets = %v, want all three events in one day bucket", buckets)
	}
}
