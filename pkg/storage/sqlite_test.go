package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

func TestSQLiteStore_AppendReadSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	confirmed, err := s.Append(ctx, "order-1", []eventlog.StateTransitionEvent{
		{From: "Draft", To: "Submitted", Trigger: "Submit", TimestampUTC: time.Now().UTC(), DefinitionVersion: "1.0.0"},
	}, 0)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if confirmed != 1 {
		t.Fatalf("confirmed = %d, want 1", confirmed)
	}

	events, err := s.Read(ctx, "order-1", 0, 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 1 || events[0].To != "Submitted" {
		t.Fatalf("Read() = %+v, want one Submitted event", events)
	}

	snap := eventlog.Snapshot{CurrentState: map[string]string{"": "Submitted"}, LastSeq: 1}
	if err := s.PutSnapshot(ctx, "order-1", snap); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	got, ok, err := s.GetSnapshot(ctx, "order-1")
	if err != nil || !ok {
		t.Fatalf("GetSnapshot() = (%v, %v, %v)", got, ok, err)
	}
	if got.CurrentState[""] != "Submitted" {
		t.Fatalf("GetSnapshot().CurrentState = %v", got.CurrentState)
	}
}

func TestSQLiteStore_VersionConflict(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if _, err := s.Append(ctx, "order-1", []eventlog.StateTransitionEvent{{From: "Draft", To: "Submitted", Trigger: "Submit", DefinitionVersion: "1.0.0"}}, 0); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := s.Append(ctx, "order-1", []eventlog.StateTransitionEvent{{From: "Submitted", To: "Shipped", Trigger: "Ship", DefinitionVersion: "1.0.0"}}, 0); err != eventlog.ErrVersionConflict {
		t.Fatalf("Append() error = %v, want ErrVersionConflict", err)
	}
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig("test-dsn", "sqlite3")
	if cfg.DSN != "test-dsn" || cfg.DriverName != "sqlite3" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Fatalf("cfg = %+v, want HikariCP-style defaults", cfg)
	}
}
