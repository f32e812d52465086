package fsm

import (
	"fmt"
	"strings"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// ErrNoTransition is returned when (state, trigger) declares no transition
// rule at all (spec.md 4.B failure semantics).
type ErrNoTransition struct {
	State   definition.State
	Trigger definition.Trigger
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("fsm: no transition for trigger %q in state %q", e.Trigger, e.State)
}

// ErrGuardRejected is returned when every declared transition for
// (state, trigger) had a guard that evaluated false.
type ErrGuardRejected struct {
	State       definition.State
	Trigger     definition.Trigger
	UnmetGuards []string
}

func (e *ErrGuardRejected) Error() string {
	return fmt.Sprintf("fsm: guard rejected for trigger %q in state %q: unmet [%s]",
		e.Trigger, e.State, strings.Join(e.UnmetGuards, ", "))
}

// ErrReentrancy is returned when Fire is called from within a hook or
// guard currently executing on the same context (spec.md 4.B contract).
type ErrReentrancy struct {
	Trigger definition.Trigger
}

func (e *ErrReentrancy) Error() string {
	return fmt.Sprintf("fsm: reentrant fire(%q) attempted from inside a hook or guard", e.Trigger)
}

// ErrUnknownTrigger is returned when a trigger was never declared on the
// definition at all (distinct from NoTransition, which means the trigger
// exists but has no rule from this state).
type ErrUnknownTrigger struct {
	Trigger definition.Trigger
}

func (e *ErrUnknownTrigger) Error() string {
	return fmt.Sprintf("fsm: unknown trigger %q", e.Trigger)
}

// ErrArityMismatch is returned when the argument count passed to Fire does
// not match the trigger's declared arity (component C, spec.md 4.C).
type ErrArityMismatch struct {
	Trigger  definition.Trigger
	Want     int
	Got      int
}

func (e *ErrArityMismatch) Error() string {
	return fmt.Sprintf("fsm: trigger %q expects %d args, got %d", e.Trigger, e.Want, e.Got)
}
