package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

func TestFileStore_AppendReadSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	confirmed, err := s.Append(ctx, "order-1", []eventlog.StateTransitionEvent{
		{From: "Draft", To: "Submitted", Trigger: "Submit", TimestampUTC: time.Now().UTC(), DefinitionVersion: "1.0.0", Metadata: map[string]string{"k": "v"}},
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
	if len(events) != 1 || events[0].Metadata["k"] != "v" {
		t.Fatalf("Read() = %+v", events)
	}

	snap := eventlog.Snapshot{CurrentState: map[string]string{"": "Submitted"}, LastSeq: 1, DefinitionVersion: "1.0.0"}
	if err := s.PutSnapshot(ctx, "order-1", snap); err != nil {
		t.Fatalf("PutSnapshot() error = %v", err)
	}
	got, ok, err := s.GetSnapshot(ctx, "order-1")
	if err != nil || !ok || got.LastSeq != 1 {
		t.Fatalf("GetSnapshot() = (%+v, %v, %v)", got, ok, err)
	}
}
