package fsm

import (
	"sync"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// triggerArityCache memoizes parameterized-trigger arities per definition
// hash, keyed by (definitionHash, trigger), avoiding re-validating arity on
// every parameterized Fire (spec.md 4.C). Thread-safe via explicit
// double-checked locking, mirroring the teacher's repeated RWMutex-then-
// Lock pattern in Engine.RegisterMachine/GetInstance rather than sync.Map.
type triggerArityCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]int
}

type cacheKey struct {
	definitionHash string
	trigger        definition.Trigger
}

func newTriggerArityCache() *triggerArityCache {
	return &triggerArityCache{entries: make(map[cacheKey]int)}
}

// getOrInsert returns the cached arity for (defHash, trigger), computing
// and inserting it via compute on first access.
func (c *triggerArityCache) getOrInsert(defHash string, t definition.Trigger, compute func() int) int {
	key := cacheKey{definitionHash: defHash, trigger: t}

	c.mu.RLock()
	if arity, ok := c.entries[key]; ok {
		c.mu.RUnlock()
		return arity
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if arity, ok := c.entries[key]; ok {
		return arity
	}
	arity := compute()
	c.entries[key] = arity
	return arity
}
