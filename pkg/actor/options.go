package actor

// EventSourcingOptions configures one Adapter's persistence behavior,
// matching the recognized-options map named in spec.md section 6's
// programmatic surface: configure_event_sourcing(opts).
type EventSourcingOptions struct {
	// AutoConfirmEvents durably confirms every transition before Fire
	// returns, the recommended mode (spec.md 4.D). When false, transitions
	// accumulate in memory and are confirmed on Checkpoint or Deactivate.
	AutoConfirmEvents bool

	EnableSnapshots  bool
	SnapshotInterval int

	PublishToStream  bool
	StreamNamespace  string

	EnableIdempotency      bool
	MaxDedupeKeysInMemory int
}

// DefaultEventSourcingOptions returns the documented defaults:
// auto_confirm_events=true, enable_snapshots=true, snapshot_interval=100,
// max_dedupe_keys_in_memory=1000.
func DefaultEventSourcingOptions() EventSourcingOptions {
	return EventSourcingOptions{
		AutoConfirmEvents:     true,
		EnableSnapshots:       true,
		SnapshotInterval:      100,
		MaxDedupeKeysInMemory: 1000,
	}
}
