// Package fsm implements the pure, synchronous FSM engine (spec.md 4.B)
// and the trigger-parameter cache (4.C). Engine never touches storage, the
// event bus, or clocks — those concerns live in pkg/actor and pkg/timer,
// which call into Engine under a per-entity mutex.
package fsm

import (
	"context"
	"sync"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/definition"
)

// defaultRegion is the key used for machines with no declared orthogonal
// regions, so the region-fan-out logic in Fire has a single uniform path.
const defaultRegion = ""

// RegionState is a snapshot of the current leaf state per region.
type RegionState map[string]definition.State

// Engine evaluates one definition against one entity's live state.
// Safe for concurrent pure reads; Fire must be externally serialized per
// entity (the actor adapter's per-entity mutex provides this — Engine
// itself does not re-derive that guarantee).
type Engine struct {
	def   *definition.Definition
	cache *triggerArityCache

	mu    sync.RWMutex
	state RegionState
}

// NewEngine constructs an Engine at its definition's declared initial
// state. Orthogonal regions (if any) start at the first state declared in
// each region.
func NewEngine(def *definition.Definition) *Engine {
	return NewEngineAt(def, initialRegionState(def))
}

// NewEngineAt constructs an Engine at an explicit RegionState, used when
// rehydrating an entity from a snapshot (spec.md 4.D replay).
func NewEngineAt(def *definition.Definition, state RegionState) *Engine {
	cp := make(RegionState, len(state))
	for k, v := range state {
		cp[k] = v
	}
	return &Engine{def: def, cache: newTriggerArityCache(), state: cp}
}

func initialRegionState(def *definition.Definition) RegionState {
	state := RegionState{defaultRegion: def.Initial()}
	for _, r := range def.Regions() {
		if len(r.States) > 0 {
			state[r.Name] = r.States[0]
		}
	}
	return state
}

// Definition returns the definition this engine evaluates against.
func (e *Engine) Definition() *definition.Definition { return e.def }

// CurrentStates returns a snapshot of every region's current leaf state.
// Lock-free to callers in the sense that it never suspends; it still
// takes the engine's internal RWMutex for a point-in-time copy.
func (e *Engine) CurrentStates() RegionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(RegionState, len(e.state))
	for k, v := range e.state {
		out[k] = v
	}
	return out
}

// CurrentState returns the default region's leaf state, for machines with
// no declared orthogonal regions.
func (e *Engine) CurrentState() definition.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state[defaultRegion]
}

// IsIn reports whether s is the current leaf state, or an ancestor of it,
// in any region.
func (e *Engine) IsIn(s definition.State) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, leaf := range e.state {
		for _, anc := range chain(e.def, leaf) {
			if anc == s {
				return true
			}
		}
	}
	return false
}

// arity validates args against t's declared arity via the memoized cache.
func (e *Engine) arity(t definition.Trigger) int {
	return e.cache.getOrInsert(e.def.Hash(), t, func() int {
		return e.def.Arity(t)
	})
}

func (e *Engine) checkArgs(t definition.Trigger, args []interface{}) error {
	want := e.arity(t)
	if len(args) != want {
		return &ErrArityMismatch{Trigger: t, Want: want, Got: len(args)}
	}
	return nil
}

// CanFire reports whether t can fire from the current state in at least
// one region, and the unmet-guard descriptions from regions that declare
// t but reject every guard.
func (e *Engine) CanFire(ctx context.Context, t definition.Trigger, args []interface{}) (bool, []string, error) {
	if !e.def.HasTrigger(t) {
		return false, nil, &ErrUnknownTrigger{Trigger: t}
	}
	if err := e.checkArgs(t, args); err != nil {
		return false, nil, err
	}
	state := e.CurrentStates()

	var unmet []string
	anyDeclared := false
	for region, leaf := range state {
		candidates := e.def.TransitionsFor(leaf, t)
		if len(candidates) == 0 {
			continue
		}
		anyDeclared = true
		ok, u := e.def.Permits(leaf, t, args)
		if ok {
			return true, nil, nil
		}
		_ = region
		unmet = append(unmet, u...)
	}
	if !anyDeclared {
		return false, nil, nil
	}
	return false, unmet, nil
}

// Permitted returns every trigger permitted from the current state across
// all regions, given probe args per trigger (empty/nil args for
// zero-arity triggers).
func (e *Engine) Permitted(argsByTrigger map[definition.Trigger][]interface{}) []definition.Trigger {
	state := e.CurrentStates()
	seen := make(map[definition.Trigger]struct{})
	var out []definition.Trigger
	for _, leaf := range state {
		for _, t := range e.def.PermittedTriggers(leaf, argsByTrigger) {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// FireResult is the outcome of a successful Fire: every region's applied
// TransitionPlan and the resulting full-state snapshot.
type FireResult struct {
	Plans    []TransitionPlan
	NewState RegionState
}

// Fire evaluates t against the current state across every region that
// declares it, applies the first-satisfied-guard transition in each
// accepting region (in declared region order), and runs the associated
// exit/entry hooks. If no region accepts, no state changes anywhere
// (spec.md 4.B orthogonal-region "all or nothing" contract).
//
// Hooks are invoked with ctx wrapped by core.WithHookExecuting; a Fire
// call made from inside that wrapped context returns ErrReentrancy before
// evaluating anything else.
func (e *Engine) Fire(ctx context.Context, t definition.Trigger, args []interface{}) (*FireResult, error) {
	if core.HookExecuting(ctx) {
		return nil, &ErrReentrancy{Trigger: t}
	}
	if !e.def.HasTrigger(t) {
		return nil, &ErrUnknownTrigger{Trigger: t}
	}
	if err := e.checkArgs(t, args); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	regionOrder := e.orderedRegions()

	var plans []TransitionPlan
	for _, region := range regionOrder {
		leaf := e.state[region]
		candidates := e.def.TransitionsFor(leaf, t)
		if len(candidates) == 0 {
			continue
		}
		var chosen *definition.Transition
		var unmet []string
		for i := range candidates {
			ok, u := candidates[i].Satisfied(args)
			if ok {
				chosen = &candidates[i]
				break
			}
			unmet = append(unmet, u...)
		}
		if chosen == nil {
			// A guard rejection in any region aborts the whole call: no
			// partial state mutation across sibling regions.
			return nil, &ErrGuardRejected{State: leaf, Trigger: t, UnmetGuards: unmet}
		}
		plans = append(plans, buildPlan(e.def, region, *chosen))
	}

	if len(plans) == 0 {
		return nil, &ErrNoTransition{State: e.state[defaultRegion], Trigger: t}
	}

	hookCtx := core.WithHookExecuting(ctx)
	var hookErr error
	for _, plan := range plans {
		for _, h := range plan.ExitHooks(e.def) {
			if err := h.OnExit(newHookContext(hookCtx, t, plan), args); err != nil && hookErr == nil {
				hookErr = err
			}
		}
	}
	for _, plan := range plans {
		e.state[plan.Region] = plan.To
	}
	for _, plan := range plans {
		for _, h := range plan.EntryHooks(e.def) {
			if err := h.OnEnter(newHookContext(hookCtx, t, plan), args); err != nil && hookErr == nil {
				hookErr = err
			}
		}
	}

	return &FireResult{Plans: plans, NewState: e.CurrentStates()}, hookErr
}

// orderedRegions returns region names in the declared order from the
// definition (default region first, then declared regions in order).
func (e *Engine) orderedRegions() []string {
	out := []string{defaultRegion}
	for _, r := range e.def.Regions() {
		out = append(out, r.Name)
	}
	return out
}

type hookContext struct {
	ctx     context.Context
	trigger definition.Trigger
	plan    TransitionPlan
}

func newHookContext(ctx context.Context, t definition.Trigger, plan TransitionPlan) definition.HookContext {
	return &hookContext{ctx: ctx, trigger: t, plan: plan}
}

func (h *hookContext) EntityID() string        { return core.GetRequestID(h.ctx) }
func (h *hookContext) Trigger() definition.Trigger { return h.trigger }
func (h *hookContext) From() definition.State  { return h.plan.From }
func (h *hookContext) To() definition.State    { return h.plan.To }
