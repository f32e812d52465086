package eventlog

import (
	"context"
	"errors"
)

// Store is the event-sourced storage contract consumed by pkg/actor,
// generalized from the teacher's appendlog.Store (raw []byte segments)
// to typed StateTransitionEvent records keyed per entity (spec.md 4.D,
// "host runtime consumed" section).
type Store interface {
	// Append confirms events for entityID, failing with ErrVersionConflict
	// if expectedVersion doesn't match the entity's last confirmed Seq.
	// Returns the new confirmed version (== last event's Seq) on success.
	Append(ctx context.Context, entityID string, events []StateTransitionEvent, expectedVersion uint64) (confirmedVersion uint64, err error)
	// Read returns confirmed events for entityID with Seq in [fromSeq, toSeq],
	// toSeq == 0 meaning "through the latest".
	Read(ctx context.Context, entityID string, fromSeq, toSeq uint64) ([]StateTransitionEvent, error)
	// PutSnapshot overwrites entityID's snapshot slot.
	PutSnapshot(ctx context.Context, entityID string, snap Snapshot) error
	// GetSnapshot returns entityID's snapshot, if any.
	GetSnapshot(ctx context.Context, entityID string) (*Snapshot, bool, error)
	// Stats returns operational counters, mirroring appendlog.Stats.
	Stats() Stats
	Close() error
}

// Stats exposes basic operational counters, grounded on the teacher's
// appendlog.Stats shape.
type Stats struct {
	AppendedEvents  int64
	RejectedAppends int64
	SnapshotsWritten int64
}

var (
	// ErrVersionConflict is returned by Append when expectedVersion doesn't
	// match the entity's current confirmed version (optimistic concurrency).
	ErrVersionConflict = errors.New("eventlog: version conflict")
	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("eventlog: store closed")
	// ErrNotFound is returned by GetSnapshot when no snapshot is present
	// (also returned as (nil, false, nil) — ErrNotFound is for store
	// implementations that prefer explicit errors internally).
	ErrNotFound = errors.New("eventlog: not found")
)
