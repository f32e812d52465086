package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

// Durability controls when Append is acknowledged, mirroring the
// teacher's appendlog.Durability.
type Durability int

const (
	// DurabilityMemory acknowledges after the record is buffered.
	DurabilityMemory Durability = iota
	// DurabilityFsync acknowledges only after fsync.
	DurabilityFsync
)

// FileStoreConfig configures the file-backed eventlog.Store.
type FileStoreConfig struct {
	Dir string
	// MaxBufferedAppends is set to 1024 when unset. Append does not
	// consult it, so appends are never rejected for backpressure.
	MaxBufferedAppends int
	Durability         Durability
}

// DefaultFileStoreConfig returns a conservative default configuration.
func DefaultFileStoreConfig(dir string) FileStoreConfig {
	return FileStoreConfig{Dir: dir, MaxBufferedAppends: 1024, Durability: DurabilityMemory}
}

// FileStore is an eventlog.Store backed by one append-only JSON-lines file
// per entity plus one snapshot file per entity, grounded on the segment/
// rotation/backpressure design of fluxor/pkg/appendlog/fs_store.go —
// adapted from a single continuous byte-offset log to a per-entity keyed
// log, since grainstate's durable unit is the entity, not the process.
// There is no segment rotation and no compaction: PutSnapshot writes a
// separate snapshot file, and the event file keeps every event.
type FileStore struct {
	cfg FileStoreConfig

	mu      sync.Mutex
	closed  bool
	writers map[string]*entityWriter

	appended    int64
	rejected    int64
	snapshotted int64
}

type entityWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewFileStore creates a FileStore rooted at cfg.Dir, creating it if
// necessary.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage: dir is required")
	}
	if cfg.MaxBufferedAppends <= 0 {
		cfg.MaxBufferedAppends = 1024
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{cfg: cfg, writers: make(map[string]*entityWriter)}, nil
}

func (s *FileStore) eventPath(entityID string) string {
	return filepath.Join(s.cfg.Dir, entityID+".events.jsonl")
}

func (s *FileStore) snapshotPath(entityID string) string {
	return filepath.Join(s.cfg.Dir, entityID+".snapshot.json")
}

func (s *FileStore) writerFor(entityID string) (*entityWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, eventlog.ErrClosed
	}
	if w, ok := s.writers[entityID]; ok {
		return w, nil
	}
	f, err := os.OpenFile(s.eventPath(entityID), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	w := &entityWriter{file: f, buf: bufio.NewWriter(f)}
	s.writers[entityID] = w
	return w, nil
}

// lastSeq scans the entity's event file for its highest Seq. Used only at
// Append time to enforce optimistic concurrency; pkg/actor keeps its own
// in-memory version between calls on the hot path.
func (s *FileStore) lastSeq(entityID string) (uint64, error) {
	events, err := s.readAll(entityID)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Seq, nil
}

func (s *FileStore) readAll(entityID string) ([]eventlog.StateTransitionEvent, error) {
	data, err := os.ReadFile(s.eventPath(entityID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var out []eventlog.StateTransitionEvent
	for dec.More() {
		var e eventlog.StateTransitionEvent
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("storage: decode event for %s: %w", entityID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *FileStore) Append(ctx context.Context, entityID string, events []eventlog.StateTransitionEvent, expectedVersion uint64) (uint64, error) {
	w, err := s.writerFor(entityID)
	if err != nil {
		return 0, err
	}

	current, err := s.lastSeq(entityID)
	if err != nil {
		return 0, err
	}
	if current != expectedVersion {
		atomic.AddInt64(&s.rejected, 1)
		return current, eventlog.ErrVersionConflict
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seq := current
	enc := json.NewEncoder(w.buf)
	for i := range events {
		seq++
		events[i].Seq = seq
		if err := enc.Encode(events[i]); err != nil {
			return current, err
		}
	}
	if err := w.buf.Flush(); err != nil {
		return current, err
	}
	if s.cfg.Durability == DurabilityFsync {
		if err := w.file.Sync(); err != nil {
			return current, err
		}
	}
	atomic.AddInt64(&s.appended, int64(len(events)))
	return seq, nil
}

func (s *FileStore) Read(ctx context.Context, entityID string, fromSeq, toSeq uint64) ([]eventlog.StateTransitionEvent, error) {
	all, err := s.readAll(entityID)
	if err != nil {
		return nil, err
	}
	var out []eventlog.StateTransitionEvent
	for _, e := range all {
		if e.Seq < fromSeq {
			continue
		}
		if toSeq != 0 && e.Seq > toSeq {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *FileStore) PutSnapshot(ctx context.Context, entityID string, snap eventlog.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.snapshotPath(entityID), data, 0o644); err != nil {
		return err
	}
	atomic.AddInt64(&s.snapshotted, 1)
	return nil
}

func (s *FileStore) GetSnapshot(ctx context.Context, entityID string) (*eventlog.Snapshot, bool, error) {
	data, err := os.ReadFile(s.snapshotPath(entityID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var snap eventlog.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, err
	}
	return &snap, true, nil
}

func (s *FileStore) Stats() eventlog.Stats {
	return eventlog.Stats{
		AppendedEvents:   atomic.LoadInt64(&s.appended),
		RejectedAppends:  atomic.LoadInt64(&s.rejected),
		SnapshotsWritten: atomic.LoadInt64(&s.snapshotted),
	}
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, w := range s.writers {
		w.mu.Lock()
		_ = w.buf.Flush()
		_ = w.file.Close()
		w.mu.Unlock()
	}
	return nil
}

var _ eventlog.Store = (*FileStore)(nil)
