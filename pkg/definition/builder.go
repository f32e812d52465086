package definition

import "github.com/fluxorio/grainstate/pkg/core/failfast"

// Builder is the fluent construction API for a Definition, mirroring the
// teacher's StateMachineBuilder fluent style but emitting a frozen,
// hashable value instead of a JSON-serializable action-lookup tree.
//
//	d, err := NewBuilder("Order", Version{1, 0, 0}).
//		InitialState("Draft").
//		State("Draft").Permit("Submit", "Submitted").If(itemsGuard).Done().
//		State("Submitted").OnEnter(notifyHook).Done().
//		Build()
type Builder struct {
	grainType string
	version   Version
	initial   State
	err       error

	states      map[State]struct{}
	triggers    map[Trigger]struct{}
	arities     map[Trigger]int
	transitions map[transitionKey][]Transition
	parents     map[State]State
	regions     []Region
	stateRegion map[State]string
	hooks       map[State]stateHooks

	cur *stateBuilder
}

// NewBuilder starts a Definition builder for (grainType, version).
func NewBuilder(grainType string, version Version) *Builder {
	return &Builder{
		grainType:   grainType,
		version:     version,
		states:      make(map[State]struct{}),
		triggers:    make(map[Trigger]struct{}),
		arities:     make(map[Trigger]int),
		transitions: make(map[transitionKey][]Transition),
		parents:     make(map[State]State),
		stateRegion: make(map[State]string),
		hooks:       make(map[State]stateHooks),
	}
}

// InitialState declares the machine's initial state.
func (b *Builder) InitialState(s State) *Builder {
	b.initial = s
	b.states[s] = struct{}{}
	return b
}

// Arity declares the parameter count (0-3) for a trigger. Triggers not
// declared default to arity 0.
func (b *Builder) Arity(t Trigger, n int) *Builder {
	if n < 0 || n > 3 {
		b.err = errBadArity(t, n)
		return b
	}
	b.triggers[t] = struct{}{}
	b.arities[t] = n
	return b
}

// SubstateOf declares child as a nested substate of parent.
func (b *Builder) SubstateOf(child, parent State) *Builder {
	b.states[child] = struct{}{}
	b.states[parent] = struct{}{}
	b.parents[child] = parent
	return b
}

// Region declares an orthogonal region: the named set of sibling states
// execute independently under their shared parent (spec.md 4.B).
func (b *Builder) Region(name string, states ...State) *Builder {
	for _, s := range states {
		b.states[s] = struct{}{}
		b.stateRegion[s] = name
	}
	b.regions = append(b.regions, Region{Name: name, States: states})
	return b
}

// State starts configuring s; call Done to return to the Builder.
func (b *Builder) State(s State) *stateBuilder {
	b.states[s] = struct{}{}
	b.cur = &stateBuilder{parent: b, state: s}
	return b.cur
}

// Build validates every invariant and returns the frozen Definition.
func (b *Builder) Build() (*Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.states) == 0 {
		return nil, errNoStates()
	}
	if b.initial == "" {
		return nil, errNoInitialState()
	}
	if !b.has(b.initial) {
		return nil, errUnknownState(b.initial)
	}

	for child := range b.parents {
		if err := b.checkAcyclic(child, make(map[State]bool)); err != nil {
			return nil, err
		}
	}

	seenInRegion := make(map[State]int)
	for _, r := range b.regions {
		for _, s := range r.States {
			seenInRegion[s]++
			if seenInRegion[s] > 1 {
				return nil, errDuplicateRegionState(s)
			}
		}
	}

	for key, list := range b.transitions {
		if !b.has(key.from) {
			return nil, errUnknownState(key.from)
		}
		if !b.hasTrigger(key.trigger) {
			return nil, errUnknownTrigger(key.trigger)
		}
		for _, tr := range list {
			if !b.has(tr.To) {
				return nil, errUnknownState(tr.To)
			}
		}
	}

	d := &Definition{
		GrainType:   b.grainType,
		Version:     b.version,
		initial:     b.initial,
		states:      copyStateSet(b.states),
		triggers:    copyTriggerSet(b.triggers),
		arities:     copyArities(b.arities),
		transitions: copyTransitions(b.transitions),
		parents:     copyParents(b.parents),
		regions:     append([]Region(nil), b.regions...),
		stateRegion: copyStateRegion(b.stateRegion),
		hooks:       copyHooks(b.hooks),
	}
	return d, nil
}

func (b *Builder) has(s State) bool {
	_, ok := b.states[s]
	return ok
}

func (b *Builder) hasTrigger(t Trigger) bool {
	_, ok := b.triggers[t]
	return ok
}

func (b *Builder) checkAcyclic(s State, visiting map[State]bool) error {
	if visiting[s] {
		return errCyclicHierarchy(s)
	}
	visiting[s] = true
	if parent, ok := b.parents[s]; ok {
		return b.checkAcyclic(parent, visiting)
	}
	return nil
}

// stateBuilder configures one state's hooks and outgoing transitions.
type stateBuilder struct {
	parent *Builder
	state  State

	pendingGuards []Guard
	pendingTo     State
	pendingTrig   Trigger
	havePending   bool
}

// OnEnter registers an entry hook for this state. A nil hook is a
// programmer error, not a recoverable build error, and fails fast.
func (sb *stateBuilder) OnEnter(h EntryHook) *stateBuilder {
	failfast.NotNil(h, "entry hook")
	hk := sb.parent.hooks[sb.state]
	hk.onEnter = append(hk.onEnter, h)
	sb.parent.hooks[sb.state] = hk
	return sb
}

// OnExit registers an exit hook for this state. A nil hook is a
// programmer error, not a recoverable build error, and fails fast.
func (sb *stateBuilder) OnExit(h ExitHook) *stateBuilder {
	failfast.NotNil(h, "exit hook")
	hk := sb.parent.hooks[sb.state]
	hk.onExit = append(hk.onExit, h)
	sb.parent.hooks[sb.state] = hk
	return sb
}

// Permit declares a transition (this.state, trigger) -> target. Call If to
// attach a guard before the next Permit/Done; transitions with no guard
// attached are unconditional.
func (sb *stateBuilder) Permit(trigger Trigger, target State) *stateBuilder {
	sb.flush()
	sb.parent.triggers[trigger] = struct{}{}
	sb.parent.states[target] = struct{}{}
	sb.pendingTrig = trigger
	sb.pendingTo = target
	sb.havePending = true
	return sb
}

// If attaches a guard to the transition most recently declared by Permit.
// A nil guard is a programmer error, not a recoverable build error, and
// fails fast rather than silently producing an always-true transition.
func (sb *stateBuilder) If(g Guard) *stateBuilder {
	failfast.NotNil(g, "guard")
	sb.pendingGuards = append(sb.pendingGuards, g)
	return sb
}

func (sb *stateBuilder) flush() {
	if !sb.havePending {
		return
	}
	key := transitionKey{from: sb.state, trigger: sb.pendingTrig}
	sb.parent.transitions[key] = append(sb.parent.transitions[key], Transition{
		From:    sb.state,
		Trigger: sb.pendingTrig,
		To:      sb.pendingTo,
		Guards:  append([]Guard(nil), sb.pendingGuards...),
	})
	sb.pendingGuards = nil
	sb.havePending = false
}

// Done flushes any pending transition and returns to the Builder.
func (sb *stateBuilder) Done() *Builder {
	sb.flush()
	return sb.parent
}

func copyStateSet(m map[State]struct{}) map[State]struct{} {
	out := make(map[State]struct{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTriggerSet(m map[Trigger]struct{}) map[Trigger]struct{} {
	out := make(map[Trigger]struct{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyArities(m map[Trigger]int) map[Trigger]int {
	out := make(map[Trigger]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTransitions(m map[transitionKey][]Transition) map[transitionKey][]Transition {
	out := make(map[transitionKey][]Transition, len(m))
	for k, v := range m {
		out[k] = append([]Transition(nil), v...)
	}
	return out
}

func copyParents(m map[State]State) map[State]State {
	out := make(map[State]State, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStateRegion(m map[State]string) map[State]string {
	out := make(map[State]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyHooks(m map[State]stateHooks) map[State]stateHooks {
	out := make(map[State]stateHooks, len(m))
	for k, v := range m {
		out[k] = stateHooks{
			onEnter: append([]EntryHook(nil), v.onEnter...),
			onExit:  append([]ExitHook(nil), v.onExit...),
		}
	}
	return out
}
