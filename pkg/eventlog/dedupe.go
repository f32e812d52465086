package eventlog

import (
	"container/list"
	"sync"
)

// DefaultDedupeCapacity is the default recent-keys LRU capacity (spec.md
// 4.D idempotency: "capacity K, default 1000").
const DefaultDedupeCapacity = 1000

// DedupeLRU is a fixed-capacity recent-keys cache used by pkg/actor to
// implement fire's idempotency contract: a dedupe_key already present is a
// no-op. Built on container/list rather than a third-party LRU package —
// no LRU library appears in the teacher's dependency graph or anywhere
// else in the pack, and the stdlib list+map combination is the idiomatic
// Go shape for this (see DESIGN.md).
type DedupeLRU struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[string]*list.Element
}

// NewDedupeLRU constructs a DedupeLRU with the given capacity (<=0 uses
// DefaultDedupeCapacity).
func NewDedupeLRU(capacity int) *DedupeLRU {
	if capacity <= 0 {
		capacity = DefaultDedupeCapacity
	}
	return &DedupeLRU{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Contains reports whether key is present, without affecting recency.
func (d *DedupeLRU) Contains(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[key]
	return ok
}

// Add inserts key, evicting the least-recently-used entry if over capacity.
// Returns true if key was newly inserted, false if it was already present
// (in which case it is moved to most-recently-used).
func (d *DedupeLRU) Add(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.index[key]; ok {
		d.ll.MoveToFront(el)
		return false
	}
	el := d.ll.PushFront(key)
	d.index[key] = el
	if d.ll.Len() > d.capacity {
		oldest := d.ll.Back()
		if oldest != nil {
			d.ll.Remove(oldest)
			delete(d.index, oldest.Value.(string))
		}
	}
	return true
}

// Len returns the current number of entries.
func (d *DedupeLRU) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ll.Len()
}

// Rebuild replaces the cache contents with keys, oldest first, used to
// reconstruct dedupe state during replay (spec.md 4.D: "keys are rebuilt
// during replay from the events' dedupe_key fields").
func (d *DedupeLRU) Rebuild(keys []string) {
	d.mu.Lock()
	d.ll = list.New()
	d.index = make(map[string]*list.Element)
	d.mu.Unlock()
	for _, k := range keys {
		if k == "" {
			continue
		}
		d.Add(k)
	}
}
