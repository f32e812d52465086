package version

import (
	"testing"

	"github.com/fluxorio/grainstate/pkg/definition"
)

func buildDef(t *testing.T, v definition.Version, configure func(b *definition.Builder)) *definition.Definition {
	t.Helper()
	b := definition.NewBuilder("Order", v)
	b.InitialState("Draft")
	configure(b)
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return def
}

func baseDef(t *testing.T, v definition.Version) *definition.Definition {
	return buildDef(t, v, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
		b.State("Submitted").Permit("Ship", "Shipped").Done()
	})
}

func TestEngine_IdenticalDefinitionsAreFullyCompatible(t *testing.T) {
	from := baseDef(t, definition.Version{Major: 1, Minor: 0, Patch: 0})
	to := baseDef(t, definition.Version{Major: 1, Minor: 0, Patch: 1})

	report := NewEngine().Compare(from, to)
	if !report.IsCompatible || report.Level != LevelFullyCompatible {
		t.Fatalf("report = %+v, want FullyCompatible", report)
	}
}

func TestEngine_StateRemovalIsIncompatible(t *testing.T) {
	from := baseDef(t, definition.Version{Major: 1})
	to := buildDef(t, definition.Version{Major: 2}, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
	})

	report := NewEngine().Compare(from, to)
	if report.IsCompatible {
		t.Fatalf("report.IsCompatible = true, want false after removing state Shipped")
	}
	if report.Level != LevelIncompatible {
		t.Fatalf("report.Level = %v, want Incompatible", report.Level)
	}
	if len(report.Plan.Steps) == 0 {
		t.Fatalf("report.Plan.Steps is empty, want a migration step for the removed state")
	}
	if report.Plan.EstimatedDuration == 0 {
		t.Fatalf("report.Plan.EstimatedDuration = 0, want > 0")
	}
}

func TestEngine_StateAdditionStaysCompatible(t *testing.T) {
	from := baseDef(t, definition.Version{Major: 1})
	to := buildDef(t, definition.Version{Major: 1, Minor: 1}, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
		b.State("Submitted").Permit("Ship", "Shipped").Done()
		b.State("Shipped").Permit("Refund", "Refunded").Done()
	})

	report := NewEngine().Compare(from, to)
	if !report.IsCompatible {
		t.Fatalf("report.IsCompatible = false, want true for additive change: %+v", report)
	}
	found := false
	for _, s := range report.Plan.Steps {
		if s.Priority == 10 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a StateAddition migration step in plan: %+v", report.Plan)
	}
}

func TestEngine_TriggerArityChangeIsBreaking(t *testing.T) {
	from := buildDef(t, definition.Version{Major: 1}, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
	})
	to := buildDef(t, definition.Version{Major: 2}, func(b *definition.Builder) {
		b.Arity("Submit", 1)
		b.State("Draft").Permit("Submit", "Submitted").Done()
	})

	report := NewEngine().Compare(from, to)
	if report.IsCompatible {
		t.Fatalf("expected arity change to be incompatible: %+v", report)
	}
}

func TestEngine_StateRemovalReportsExactlyOneHighImpactBreakingChange(t *testing.T) {
	from := buildDef(t, definition.Version{Major: 1, Minor: 2, Patch: 3}, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
		b.State("Submitted").Done()
	})
	// buildDef always seeds InitialState("Draft"), so build "to" directly
	// to actually drop the Draft state rather than just leaving it unused.
	to, err := definition.NewBuilder("Order", definition.Version{Major: 2}).
		InitialState("Submitted").
		State("Submitted").Done().
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	report := NewEngine().Compare(from, to)
	if report.IsCompatible {
		t.Fatalf("report.IsCompatible = true, want false after removing state Draft")
	}

	var stateRemovals []BreakingChange
	for _, bc := range report.BreakingChanges {
		if bc.Rule == "StateRemoval" {
			stateRemovals = append(stateRemovals, bc)
		}
	}
	if len(stateRemovals) != 1 {
		t.Fatalf("StateRemoval breaking changes = %+v, want exactly 1", stateRemovals)
	}
	if stateRemovals[0].Impact != ImpactHigh {
		t.Fatalf("StateRemoval impact = %v, want High", stateRemovals[0].Impact)
	}

	found := false
	for _, s := range report.Plan.Steps {
		if s.Effort == EffortHigh {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a StateRemoval migration step of High effort: %+v", report.Plan)
	}
}

func TestEngine_RemovingAnUnusedTriggerIsForwardCompatible(t *testing.T) {
	from := buildDef(t, definition.Version{Major: 1}, func(b *definition.Builder) {
		b.Arity("Annotate", 0)
		b.State("Draft").Permit("Submit", "Submitted").Done()
		b.State("Submitted").Done()
	})
	to := buildDef(t, definition.Version{Major: 1, Minor: 1}, func(b *definition.Builder) {
		b.State("Draft").Permit("Submit", "Submitted").Done()
		b.State("Submitted").Done()
	})

	report := NewEngine().Compare(from, to)
	if report.Level != LevelForwardCompatible {
		t.Fatalf("report.Level = %v, want ForwardCompatible: %+v", report.Level, report)
	}
}

func TestDefaultRules_AreOrderedPerSpec(t *testing.T) {
	rules := DefaultRules()
	want := []string{
		"Major", "Minor", "Patch", "Backward", "Forward",
		"StateAddition", "StateRemoval", "TriggerModification",
		"GuardCondition", "TransitionModification", "SerializationCompat", "DataMigration",
	}
	if len(rules) != len(want) {
		t.Fatalf("len(rules) = %d, want %d", len(rules), len(want))
	}
	for i, r := range rules {
		if r.Name != want[i] {
			t.Fatalf("rules[%d].Name = %q, want %q", i, r.Name, want[i])
		}
	}
}
