package definition

import "sort"

// Definition is the immutable, value-typed, hashable state machine
// definition identified by (GrainType, Version). Loaded once and shared
// read-only across every entity activation (spec.md 4.A).
type Definition struct {
	GrainType string
	Version   Version

	initial      State
	states       map[State]struct{}
	triggers     map[Trigger]struct{}
	arities      map[Trigger]int
	transitions  map[transitionKey][]Transition
	parents      map[State]State // child -> parent, forest (no entry = root)
	regions      []Region
	stateRegion  map[State]string // state -> owning region name, if any
	hooks        map[State]stateHooks
}

type transitionKey struct {
	from    State
	trigger Trigger
}

// States returns the declared state set.
func (d *Definition) States() []State {
	out := make([]State, 0, len(d.states))
	for s := range d.states {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Triggers returns the declared trigger set.
func (d *Definition) Triggers() []Trigger {
	out := make([]Trigger, 0, len(d.triggers))
	for t := range d.triggers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Initial returns the machine's initial state.
func (d *Definition) Initial() State { return d.initial }

// HasState reports whether s is declared.
func (d *Definition) HasState(s State) bool {
	_, ok := d.states[s]
	return ok
}

// HasTrigger reports whether t is declared.
func (d *Definition) HasTrigger(t Trigger) bool {
	_, ok := d.triggers[t]
	return ok
}

// Arity returns the declared parameter count (0-3) for t.
func (d *Definition) Arity(t Trigger) int { return d.arities[t] }

// Parent returns the immediate parent of s and whether s has one.
func (d *Definition) Parent(s State) (State, bool) {
	p, ok := d.parents[s]
	return p, ok
}

// Ancestors returns s's ancestor chain, nearest first, root last.
func (d *Definition) Ancestors(s State) []State {
	var out []State
	cur := s
	for {
		p, ok := d.parents[cur]
		if !ok {
			return out
		}
		out = append(out, p)
		cur = p
	}
}

// Regions returns the declared orthogonal regions.
func (d *Definition) Regions() []Region { return d.regions }

// RegionOf returns the region name owning s, if any.
func (d *Definition) RegionOf(s State) (string, bool) {
	name, ok := d.stateRegion[s]
	return name, ok
}

// Hooks returns the entry/exit hooks declared for s.
func (d *Definition) Hooks(s State) (onEnter []EntryHook, onExit []ExitHook) {
	h := d.hooks[s]
	return h.onEnter, h.onExit
}

// Permits reports whether (s, t) has at least one transition whose guard
// is satisfied by args, and returns the descriptions of any unmet guards
// encountered along the way (spec.md 4.B can_fire contract).
func (d *Definition) Permits(s State, t Trigger, args []interface{}) (bool, []string) {
	candidates := d.transitions[transitionKey{from: s, trigger: t}]
	var unmet []string
	for _, tr := range candidates {
		ok, u := tr.Satisfied(args)
		if ok {
			return true, nil
		}
		unmet = append(unmet, u...)
	}
	return false, unmet
}

// TransitionsFor returns the declared transitions for (s, t) in declaration
// order, used by the engine to pick the first-satisfied-guard winner.
func (d *Definition) TransitionsFor(s State, t Trigger) []Transition {
	return d.transitions[transitionKey{from: s, trigger: t}]
}

// PermittedTriggers returns every trigger with at least one transition out
// of s whose guard is satisfied by the given probe args (used for
// permitted_triggers probes per spec.md 4.B).
func (d *Definition) PermittedTriggers(s State, argsByTrigger map[Trigger][]interface{}) []Trigger {
	var out []Trigger
	seen := make(map[Trigger]struct{})
	for key, list := range d.transitions {
		if key.from != s {
			continue
		}
		if _, ok := seen[key.trigger]; ok {
			continue
		}
		args := argsByTrigger[key.trigger]
		for _, tr := range list {
			if ok, _ := tr.Satisfied(args); ok {
				out = append(out, key.trigger)
				seen[key.trigger] = struct{}{}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
