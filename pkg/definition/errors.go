package definition

import "fmt"

// DefinitionError is a fatal error raised by Builder.Build when an
// invariant is violated. It is always caught at build time, never at
// runtime (spec.md 4.A invariants).
type DefinitionError struct {
	Reason string
}

func (e *DefinitionError) Error() string { return "definition: " + e.Reason }

func errUnknownState(s State) error {
	return &DefinitionError{Reason: fmt.Sprintf("unknown state %q referenced", s)}
}

func errUnknownTrigger(t Trigger) error {
	return &DefinitionError{Reason: fmt.Sprintf("unknown trigger %q referenced", t)}
}

func errCyclicHierarchy(s State) error {
	return &DefinitionError{Reason: fmt.Sprintf("cyclic substate hierarchy detected at %q", s)}
}

func errDuplicateRegionState(s State) error {
	return &DefinitionError{Reason: fmt.Sprintf("state %q declared in more than one region", s)}
}

func errNoInitialState() error {
	return &DefinitionError{Reason: "no initial state declared"}
}

func errNoStates() error {
	return &DefinitionError{Reason: "definition has no states"}
}

func errBadArity(t Trigger, arity int) error {
	return &DefinitionError{Reason: fmt.Sprintf("trigger %q declares invalid arity %d (must be 0-3)", t, arity)}
}
