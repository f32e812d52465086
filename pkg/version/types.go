// Package version implements the definition versioning/compatibility
// engine (spec.md 4.J): an ordered rule set diffs two definition.Definition
// values and rolls up a compatibility verdict plus a migration plan.
package version

import "github.com/fluxorio/grainstate/pkg/definition"

// Impact is a breaking change's severity.
type Impact string

const (
	ImpactInfo     Impact = "Info"
	ImpactWarning  Impact = "Warning"
	ImpactHigh     Impact = "High"
	ImpactCritical Impact = "Critical"
)

// BreakingChange is one incompatibility surfaced by a Rule.
type BreakingChange struct {
	Rule        string
	Description string
	Impact      Impact
}

// Effort is a migration step's estimated-effort band (spec.md 4.J:
// "{Low=30m, Medium=2h, High=8h}").
type Effort string

const (
	EffortLow    Effort = "Low"
	EffortMedium Effort = "Medium"
	EffortHigh   Effort = "High"
)

func (e Effort) minutes() int {
	switch e {
	case EffortLow:
		return 30
	case EffortMedium:
		return 120
	case EffortHigh:
		return 480
	default:
		return 0
	}
}

// MigrationStep is one ordered action in a MigrationPlan.
type MigrationStep struct {
	Description string
	Effort      Effort
	Priority    int
	Validations []string
}

// RuleResult is one rule's verdict over (defFrom, defTo).
type RuleResult struct {
	OK             bool
	BreakingChanges []BreakingChange
	Warnings       []string
	SuggestedSteps []MigrationStep
}

// Rule is a single named compatibility check, a value type (not a
// closure) so the rule set is inspectable/testable in isolation —
// mirroring the teacher's registry style
// (Engine.RegisterGuard/RegisterAction map-of-named-functions)
// generalized to a slice of typed rule structs, since this rule set is
// fixed and ordered, not dynamically registered by callers.
type Rule struct {
	Name     string
	Evaluate func(from, to *definition.Definition) RuleResult
}

// Level is the overall compatibility verdict (spec.md 4.J).
type Level string

const (
	LevelFullyCompatible    Level = "FullyCompatible"
	LevelBackwardCompatible Level = "BackwardCompatible"
	LevelForwardCompatible  Level = "ForwardCompatible"
	LevelIncompatible       Level = "Incompatible"
)

// CompatibilityReport is Engine.Compare's full result.
type CompatibilityReport struct {
	IsCompatible    bool
	Level           Level
	BreakingChanges []BreakingChange
	Warnings        []string
	Plan            MigrationPlan
}

// MigrationPlan is the concatenation of every rule's suggested steps,
// ordered by declared priority, with a summed estimated duration.
type MigrationPlan struct {
	FromVersion       string `json:"from_version" yaml:"from_version"`
	ToVersion         string `json:"to_version" yaml:"to_version"`
	Steps             []MigrationStep `json:"steps" yaml:"steps"`
	EstimatedDuration int `json:"estimated_duration_minutes" yaml:"estimated_duration_minutes"`
}
