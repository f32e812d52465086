// Package eventlog implements the append-only event log and snapshot
// protocol (spec.md 4.D): StateTransitionEvent records keyed by a dense
// per-entity sequence number, snapshot markers, and idempotency dedupe.
package eventlog

import "time"

// StateTransitionEvent is an immutable, append-only record of one
// confirmed transition. Field numbers are part of the wire contract
// (spec.md section 6) and must not be renumbered even as fields are added:
//
//	(0) From, (1) To, (2) Trigger, (3) TimestampUTC, (4) CorrelationID,
//	(5) DedupeKey, (6) DefinitionVersion, (7) Metadata
type StateTransitionEvent struct {
	Seq              uint64            `json:"seq"`
	From             string            `json:"from"`             // (0)
	To               string            `json:"to"`               // (1)
	Trigger          string            `json:"trigger"`          // (2)
	TimestampUTC     time.Time         `json:"timestamp_utc"`    // (3)
	CorrelationID    string            `json:"correlation_id,omitempty"` // (4)
	DedupeKey        string            `json:"dedupe_key,omitempty"`    // (5)
	DefinitionVersion string           `json:"definition_version"`      // (6)
	Metadata         map[string]string `json:"metadata,omitempty"`      // (7)
}

// Snapshot is the periodic checkpoint written after snapshot_interval
// confirmed events (spec.md 4.D). Replay starts from the most recent
// snapshot and applies subsequent events in Seq order.
type Snapshot struct {
	CurrentState              map[string]string `json:"current_state"` // region -> leaf state
	TransitionCount           uint64            `json:"transition_count"`
	LastSeq                   uint64            `json:"last_seq"`
	DefinitionVersion         string            `json:"definition_version"`
	ActiveDurableReminderConfigs []string       `json:"active_durable_reminder_configs,omitempty"`
}
