package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

// placeholderStyle abstracts the two dialects wired here: Postgres uses
// $1,$2,... positional placeholders, SQLite uses plain "?".
type placeholderStyle int

const (
	placeholderDollar placeholderStyle = iota
	placeholderQuestion
)

func (p placeholderStyle) arg(n int) string {
	if p == placeholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// relationalStore is the shared eventlog.Store implementation behind
// PostgresStore and SQLiteStore: one (entity_id, seq)-keyed events table
// plus a snapshots table, per SPEC_FULL.md 4.D.
type relationalStore struct {
	pool        *Pool
	ph          placeholderStyle
	appended    int64
	rejected    int64
	snapshotted int64
}

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS grainstate_events (
	entity_id TEXT NOT NULL,
	seq BIGINT NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	trigger TEXT NOT NULL,
	timestamp_utc TIMESTAMPTZ NOT NULL,
	correlation_id TEXT,
	dedupe_key TEXT,
	definition_version TEXT NOT NULL,
	metadata TEXT,
	PRIMARY KEY (entity_id, seq)
);
CREATE TABLE IF NOT EXISTS grainstate_snapshots (
	entity_id TEXT PRIMARY KEY,
	current_state TEXT NOT NULL,
	transition_count BIGINT NOT NULL,
	last_seq BIGINT NOT NULL,
	definition_version TEXT NOT NULL,
	active_durable_reminder_configs TEXT
);`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS grainstate_events (
	entity_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	from_state TEXT NOT NULL,
	to_state TEXT NOT NULL,
	trigger TEXT NOT NULL,
	timestamp_utc DATETIME NOT NULL,
	correlation_id TEXT,
	dedupe_key TEXT,
	definition_version TEXT NOT NULL,
	metadata TEXT,
	PRIMARY KEY (entity_id, seq)
);
CREATE TABLE IF NOT EXISTS grainstate_snapshots (
	entity_id TEXT PRIMARY KEY,
	current_state TEXT NOT NULL,
	transition_count INTEGER NOT NULL,
	last_seq INTEGER NOT NULL,
	definition_version TEXT NOT NULL,
	active_durable_reminder_configs TEXT
);`

func (s *relationalStore) lastSeq(ctx context.Context, entityID string) (uint64, error) {
	q := fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) FROM grainstate_events WHERE entity_id = %s", s.ph.arg(1))
	var seq uint64
	if err := s.pool.DB().QueryRowContext(ctx, q, entityID).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *relationalStore) Append(ctx context.Context, entityID string, events []eventlog.StateTransitionEvent, expectedVersion uint64) (uint64, error) {
	current, err := s.lastSeq(ctx, entityID)
	if err != nil {
		return 0, err
	}
	if current != expectedVersion {
		atomic.AddInt64(&s.rejected, 1)
		return current, eventlog.ErrVersionConflict
	}

	tx, err := s.pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return current, err
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(
		`INSERT INTO grainstate_events
			(entity_id, seq, from_state, to_state, trigger, timestamp_utc, correlation_id, dedupe_key, definition_version, metadata)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.ph.arg(1), s.ph.arg(2), s.ph.arg(3), s.ph.arg(4), s.ph.arg(5),
		s.ph.arg(6), s.ph.arg(7), s.ph.arg(8), s.ph.arg(9), s.ph.arg(10))

	seq := current
	for i := range events {
		seq++
		events[i].Seq = seq
		metadata, err := json.Marshal(events[i].Metadata)
		if err != nil {
			return current, err
		}
		if _, err := tx.ExecContext(ctx, insert,
			entityID, events[i].Seq, events[i].From, events[i].To, events[i].Trigger,
			events[i].TimestampUTC, events[i].CorrelationID, events[i].DedupeKey,
			events[i].DefinitionVersion, string(metadata),
		); err != nil {
			return current, err
		}
	}
	if err := tx.Commit(); err != nil {
		return current, err
	}
	atomic.AddInt64(&s.appended, int64(len(events)))
	return seq, nil
}

func (s *relationalStore) Read(ctx context.Context, entityID string, fromSeq, toSeq uint64) ([]eventlog.StateTransitionEvent, error) {
	var q string
	var args []interface{}
	if toSeq == 0 {
		q = fmt.Sprintf("SELECT seq, from_state, to_state, trigger, timestamp_utc, correlation_id, dedupe_key, definition_version, metadata FROM grainstate_events WHERE entity_id = %s AND seq >= %s ORDER BY seq",
			s.ph.arg(1), s.ph.arg(2))
		args = []interface{}{entityID, fromSeq}
	} else {
		q = fmt.Sprintf("SELECT seq, from_state, to_state, trigger, timestamp_utc, correlation_id, dedupe_key, definition_version, metadata FROM grainstate_events WHERE entity_id = %s AND seq >= %s AND seq <= %s ORDER BY seq",
			s.ph.arg(1), s.ph.arg(2), s.ph.arg(3))
		args = []interface{}{entityID, fromSeq, toSeq}
	}

	rows, err := s.pool.DB().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eventlog.StateTransitionEvent
	for rows.Next() {
		var e eventlog.StateTransitionEvent
		var metadata sql.NullString
		var correlationID, dedupeKey sql.NullString
		if err := rows.Scan(&e.Seq, &e.From, &e.To, &e.Trigger, &e.TimestampUTC, &correlationID, &dedupeKey, &e.DefinitionVersion, &metadata); err != nil {
			return nil, err
		}
		e.CorrelationID = correlationID.String
		e.DedupeKey = dedupeKey.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *relationalStore) PutSnapshot(ctx context.Context, entityID string, snap eventlog.Snapshot) error {
	currentState, err := json.Marshal(snap.CurrentState)
	if err != nil {
		return err
	}
	reminders, err := json.Marshal(snap.ActiveDurableReminderConfigs)
	if err != nil {
		return err
	}

	var q string
	if s.ph == placeholderDollar {
		q = `INSERT INTO grainstate_snapshots (entity_id, current_state, transition_count, last_seq, definition_version, active_durable_reminder_configs)
		     VALUES ($1, $2, $3, $4, $5, $6)
		     ON CONFLICT (entity_id) DO UPDATE SET current_state = $2, transition_count = $3, last_seq = $4, definition_version = $5, active_durable_reminder_configs = $6`
	} else {
		q = `INSERT INTO grainstate_snapshots (entity_id, current_state, transition_count, last_seq, definition_version, active_durable_reminder_configs)
		     VALUES (?, ?, ?, ?, ?, ?)
		     ON CONFLICT (entity_id) DO UPDATE SET current_state = excluded.current_state, transition_count = excluded.transition_count, last_seq = excluded.last_seq, definition_version = excluded.definition_version, active_durable_reminder_configs = excluded.active_durable_reminder_configs`
	}

	if _, err := s.pool.DB().ExecContext(ctx, q, entityID, string(currentState), snap.TransitionCount, snap.LastSeq, snap.DefinitionVersion, string(reminders)); err != nil {
		return err
	}
	atomic.AddInt64(&s.snapshotted, 1)
	return nil
}

func (s *relationalStore) GetSnapshot(ctx context.Context, entityID string) (*eventlog.Snapshot, bool, error) {
	q := fmt.Sprintf("SELECT current_state, transition_count, last_seq, definition_version, active_durable_reminder_configs FROM grainstate_snapshots WHERE entity_id = %s", s.ph.arg(1))
	row := s.pool.DB().QueryRowContext(ctx, q, entityID)

	var currentState, reminders sql.NullString
	var snap eventlog.Snapshot
	if err := row.Scan(&currentState, &snap.TransitionCount, &snap.LastSeq, &snap.DefinitionVersion, &reminders); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	if currentState.Valid && currentState.String != "" {
		if err := json.Unmarshal([]byte(currentState.String), &snap.CurrentState); err != nil {
			return nil, false, err
		}
	}
	if reminders.Valid && reminders.String != "" {
		if err := json.Unmarshal([]byte(reminders.String), &snap.ActiveDurableReminderConfigs); err != nil {
			return nil, false, err
		}
	}
	return &snap, true, nil
}

func (s *relationalStore) Stats() eventlog.Stats {
	return eventlog.Stats{
		AppendedEvents:   atomic.LoadInt64(&s.appended),
		RejectedAppends:  atomic.LoadInt64(&s.rejected),
		SnapshotsWritten: atomic.LoadInt64(&s.snapshotted),
	}
}

func (s *relationalStore) Close() error { return s.pool.Close() }
