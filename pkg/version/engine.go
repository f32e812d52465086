package version

import (
	"sort"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// Engine runs a fixed, ordered Rule set over two definitions and rolls up
// a single CompatibilityReport.
type Engine struct {
	rules []Rule
}

// NewEngine builds an Engine over DefaultRules. Callers who need a custom
// rule set (e.g. tests exercising one rule in isolation) can construct an
// Engine with rules set directly.
func NewEngine() *Engine {
	return &Engine{rules: DefaultRules()}
}

// WithRules overrides the rule set, for narrowed or extended compliance
// checks.
func (e *Engine) WithRules(rules []Rule) *Engine {
	e.rules = rules
	return e
}

// Compare runs every rule over (from, to) and aggregates the result.
func (e *Engine) Compare(from, to *definition.Definition) CompatibilityReport {
	report := CompatibilityReport{
		IsCompatible: true,
	}

	var steps []MigrationStep
	hasCritical := false
	hasBreaking := false
	backwardOK := true
	forwardOK := true

	for _, rule := range e.rules {
		result := rule.Evaluate(from, to)
		report.Warnings = append(report.Warnings, result.Warnings...)
		report.BreakingChanges = append(report.BreakingChanges, result.BreakingChanges...)
		steps = append(steps, result.SuggestedSteps...)

		if !result.OK {
			hasBreaking = true
		}
		for _, bc := range result.BreakingChanges {
			// High (e.g. a removed state requiring a data migration) is as
			// blocking as Critical for IsCompatible purposes; the two
			// labels distinguish cause, not whether an upgrade is safe.
			if bc.Impact == ImpactCritical || bc.Impact == ImpactHigh {
				hasCritical = true
			}
		}
		switch rule.Name {
		case "Backward":
			backwardOK = result.OK
		case "Forward":
			forwardOK = result.OK
		}
	}

	report.IsCompatible = !hasCritical
	report.Level = deriveLevel(hasCritical, backwardOK, forwardOK, hasBreaking, len(report.Warnings) > 0)

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Priority < steps[j].Priority })
	report.Plan = MigrationPlan{
		FromVersion: from.Version.String(),
		ToVersion:   to.Version.String(),
		Steps:       steps,
	}
	for _, s := range steps {
		report.Plan.EstimatedDuration += s.Effort.minutes()
	}

	return report
}

// deriveLevel rolls the ruleset up into one of the four verdicts.
// backwardOK means an entity still at an old state can keep running
// under the new definition; forwardOK means an old reader still
// understands everything the new definition can produce. The two are
// independent axes: a definition can lose one without the other.
func deriveLevel(hasCritical, backwardOK, forwardOK, hasBreaking, hasWarnings bool) Level {
	switch {
	case hasCritical:
		return LevelIncompatible
	case backwardOK && forwardOK && !hasBreaking && !hasWarnings:
		return LevelFullyCompatible
	case !backwardOK && forwardOK:
		return LevelForwardCompatible
	default:
		return LevelBackwardCompatible
	}
}
