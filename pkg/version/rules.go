package version

import (
	"fmt"

	"github.com/fluxorio/grainstate/pkg/definition"
)

func stateSet(def *definition.Definition) map[definition.State]struct{} {
	out := make(map[definition.State]struct{})
	for _, s := range def.States() {
		out[s] = struct{}{}
	}
	return out
}

func triggerSet(def *definition.Definition) map[definition.Trigger]struct{} {
	out := make(map[definition.Trigger]struct{})
	for _, t := range def.Triggers() {
		out[t] = struct{}{}
	}
	return out
}

// allTransitions enumerates every declared transition by probing every
// (state, trigger) pair, since Definition exposes no bulk accessor (it is
// deliberately keyed for point lookups, not enumeration).
func allTransitions(def *definition.Definition) []definition.Transition {
	var out []definition.Transition
	for _, s := range def.States() {
		for _, t := range def.Triggers() {
			out = append(out, def.TransitionsFor(s, t)...)
		}
	}
	return out
}

func ruleMajor() Rule {
	return Rule{Name: "Major", Evaluate: func(from, to *definition.Definition) RuleResult {
		if to.Version.Major > from.Version.Major {
			return RuleResult{OK: true, Warnings: []string{"major version bump: assume breaking changes are intentional"}}
		}
		return RuleResult{OK: true}
	}}
}

func ruleMinor() Rule {
	return Rule{Name: "Minor", Evaluate: func(from, to *definition.Definition) RuleResult {
		if to.Version.Major == from.Version.Major && to.Version.Minor > from.Version.Minor {
			return RuleResult{OK: true, Warnings: []string{"minor version bump: expected additive, non-breaking changes"}}
		}
		return RuleResult{OK: true}
	}}
}

func rulePatch() Rule {
	return Rule{Name: "Patch", Evaluate: func(from, to *definition.Definition) RuleResult {
		if to.Version.Compare(from.Version) == 0 {
			return RuleResult{OK: false, BreakingChanges: []BreakingChange{{
				Rule: "Patch", Description: "definition changed with no version bump at all", Impact: ImpactWarning,
			}}}
		}
		return RuleResult{OK: true}
	}}
}

// ruleBackward checks that every state and trigger the old definition
// knew about still exists in the new one (an already-running entity,
// still at an old state or about to fire an old trigger, can still be
// driven forward). StateRemoval already reports the authoritative
// breaking change for a removed state, so this rule only reports
// OK/Warnings, never a duplicate BreakingChange.
func ruleBackward() Rule {
	return Rule{Name: "Backward", Evaluate: func(from, to *definition.Definition) RuleResult {
		toStates := stateSet(to)
		toTriggers := triggerSet(to)
		var warnings []string
		for s := range stateSet(from) {
			if _, ok := toStates[s]; !ok {
				warnings = append(warnings, fmt.Sprintf("state %q removed: entities already in that state cannot be driven forward under the new definition", s))
			}
		}
		for tr := range triggerSet(from) {
			if _, ok := toTriggers[tr]; !ok {
				warnings = append(warnings, fmt.Sprintf("trigger %q removed: an already-running caller can no longer fire it", tr))
			}
		}
		return RuleResult{OK: len(warnings) == 0, Warnings: warnings}
	}}
}

// ruleForward checks that every state and trigger the new definition
// declares was already known to the old one (an old host can still make
// sense of events produced by the new definition). OK is false when the
// new definition adds a state or trigger an old reader wouldn't
// recognize, so Compare can surface ForwardCompatible as a distinct
// verdict from BackwardCompatible.
func ruleForward() Rule {
	return Rule{Name: "Forward", Evaluate: func(from, to *definition.Definition) RuleResult {
		fromStates := stateSet(from)
		fromTriggers := triggerSet(from)
		var warnings []string
		for s := range stateSet(to) {
			if _, ok := fromStates[s]; !ok {
				warnings = append(warnings, fmt.Sprintf("state %q is new; older readers will not recognize it", s))
			}
		}
		for tr := range triggerSet(to) {
			if _, ok := fromTriggers[tr]; !ok {
				warnings = append(warnings, fmt.Sprintf("trigger %q is new; older callers will not recognize it", tr))
			}
		}
		return RuleResult{OK: len(warnings) == 0, Warnings: warnings}
	}}
}

func ruleStateAddition() Rule {
	return Rule{Name: "StateAddition", Evaluate: func(from, to *definition.Definition) RuleResult {
		fromStates := stateSet(from)
		var steps []MigrationStep
		for s := range stateSet(to) {
			if _, ok := fromStates[s]; !ok {
				steps = append(steps, MigrationStep{
					Description: fmt.Sprintf("deploy support for new state %q before routing entities into it", s),
					Effort:      EffortLow, Priority: 10,
				})
			}
		}
		return RuleResult{OK: true, SuggestedSteps: steps}
	}}
}

func ruleStateRemoval() Rule {
	return Rule{Name: "StateRemoval", Evaluate: func(from, to *definition.Definition) RuleResult {
		toStates := stateSet(to)
		var breaking []BreakingChange
		var steps []MigrationStep
		for s := range stateSet(from) {
			if _, ok := toStates[s]; !ok {
				breaking = append(breaking, BreakingChange{
					Rule: "StateRemoval", Description: fmt.Sprintf("state %q removed", s), Impact: ImpactHigh,
				})
				steps = append(steps, MigrationStep{
					Description: fmt.Sprintf("migrate entities still in state %q before removing it", s),
					Effort:      EffortHigh, Priority: 1,
				})
			}
		}
		return RuleResult{OK: len(breaking) == 0, BreakingChanges: breaking, SuggestedSteps: steps}
	}}
}

func ruleTriggerModification() Rule {
	return Rule{Name: "TriggerModification", Evaluate: func(from, to *definition.Definition) RuleResult {
		var breaking []BreakingChange
		var warnings []string
		toTriggers := triggerSet(to)
		for t := range triggerSet(from) {
			if _, ok := toTriggers[t]; !ok {
				warnings = append(warnings, fmt.Sprintf("trigger %q removed", t))
				continue
			}
			if from.Arity(t) != to.Arity(t) {
				breaking = append(breaking, BreakingChange{
					Rule: "TriggerModification", Description: fmt.Sprintf("trigger %q arity changed from %d to %d", t, from.Arity(t), to.Arity(t)), Impact: ImpactCritical,
				})
			}
		}
		return RuleResult{OK: len(breaking) == 0, BreakingChanges: breaking, Warnings: warnings}
	}}
}

// ruleGuardCondition flags transitions whose guard set changed (added or
// removed guards), since a guard that newly rejects can silently strand
// in-flight callers.
func ruleGuardCondition() Rule {
	return Rule{Name: "GuardCondition", Evaluate: func(from, to *definition.Definition) RuleResult {
		fromByKey := transitionsByKey(from)
		toByKey := transitionsByKey(to)
		var warnings []string
		for key, fromList := range fromByKey {
			toList, ok := toByKey[key]
			if !ok {
				continue
			}
			if len(fromList) > 0 && len(toList) > 0 && len(fromList[0].Guards) != len(toList[0].Guards) {
				warnings = append(warnings, fmt.Sprintf("guard count changed for %s/%s", key.from, key.trigger))
			}
		}
		return RuleResult{OK: true, Warnings: warnings}
	}}
}

type transitionKeyView struct {
	from    definition.State
	trigger definition.Trigger
}

func transitionsByKey(def *definition.Definition) map[transitionKeyView][]definition.Transition {
	out := make(map[transitionKeyView][]definition.Transition)
	for _, tr := range allTransitions(def) {
		key := transitionKeyView{from: tr.From, trigger: tr.Trigger}
		out[key] = append(out[key], tr)
	}
	return out
}

func ruleTransitionModification() Rule {
	return Rule{Name: "TransitionModification", Evaluate: func(from, to *definition.Definition) RuleResult {
		fromByKey := transitionsByKey(from)
		toByKey := transitionsByKey(to)
		var breaking []BreakingChange
		for key, fromList := range fromByKey {
			toList, ok := toByKey[key]
			if !ok {
				breaking = append(breaking, BreakingChange{
					Rule: "TransitionModification", Description: fmt.Sprintf("transition %s/%s removed", key.from, key.trigger), Impact: ImpactCritical,
				})
				continue
			}
			targets := make(map[definition.State]struct{}, len(fromList))
			for _, tr := range fromList {
				targets[tr.To] = struct{}{}
			}
			for _, tr := range toList {
				if _, ok := targets[tr.To]; !ok {
					breaking = append(breaking, BreakingChange{
						Rule: "TransitionModification", Description: fmt.Sprintf("transition %s/%s now targets %s, previously not possible", key.from, key.trigger, tr.To), Impact: ImpactWarning,
					})
				}
			}
		}
		return RuleResult{OK: len(breaking) == 0, BreakingChanges: breaking}
	}}
}

// ruleSerializationCompat always reports OK and flags nothing: grainstate
// events are From/To/Trigger strings, so this rule is a placeholder gate
// (spec.md's data_format_changed diff-context field), since the FSM layer
// itself carries no binary schema beyond those strings.
func ruleSerializationCompat() Rule {
	return Rule{Name: "SerializationCompat", Evaluate: func(from, to *definition.Definition) RuleResult {
		return RuleResult{OK: true}
	}}
}

func ruleDataMigration() Rule {
	return Rule{Name: "DataMigration", Evaluate: func(from, to *definition.Definition) RuleResult {
		removed := ruleStateRemoval().Evaluate(from, to)
		if len(removed.BreakingChanges) == 0 {
			return RuleResult{OK: true}
		}
		return RuleResult{OK: false, SuggestedSteps: []MigrationStep{{
			Description: "run a data migration to move entities off removed states before activating the new definition",
			Effort:      EffortHigh, Priority: 1,
			Validations: []string{"no entity remains in a removed state", "snapshot replay succeeds against the new definition"},
		}}}
	}}
}

// DefaultRules returns the fixed, ordered rule set from spec.md 4.J.
func DefaultRules() []Rule {
	return []Rule{
		ruleMajor(),
		ruleMinor(),
		rulePatch(),
		ruleBackward(),
		ruleForward(),
		ruleStateAddition(),
		ruleStateRemoval(),
		ruleTriggerModification(),
		ruleGuardCondition(),
		ruleTransitionModification(),
		ruleSerializationCompat(),
		ruleDataMigration(),
	}
}
