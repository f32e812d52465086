package config

import (
	"fmt"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// DefinitionSpec is the YAML/JSON-loadable schema for a state machine
// definition (spec.md 4.A "ambient config" surface). Guards and hooks are
// referenced by symbolic name and resolved against a Registry supplied by
// the caller, since a Definition's Guard/EntryHook/ExitHook values cannot
// themselves be serialized.
type DefinitionSpec struct {
	GrainType string             `yaml:"grain_type" json:"grain_type"`
	Version   VersionSpec        `yaml:"version" json:"version"`
	Initial   string             `yaml:"initial" json:"initial"`
	States    []StateSpec        `yaml:"states" json:"states"`
	Triggers  []TriggerSpec      `yaml:"triggers" json:"triggers"`
	Regions   []RegionSpec       `yaml:"regions" json:"regions"`
}

// VersionSpec is the YAML form of definition.Version.
type VersionSpec struct {
	Major int `yaml:"major" json:"major"`
	Minor int `yaml:"minor" json:"minor"`
	Patch int `yaml:"patch" json:"patch"`
}

// StateSpec declares one state: its optional parent, hooks, and outgoing
// transitions.
type StateSpec struct {
	Name        string            `yaml:"name" json:"name"`
	Parent      string            `yaml:"parent,omitempty" json:"parent,omitempty"`
	OnEnter     []string          `yaml:"on_enter,omitempty" json:"on_enter,omitempty"`
	OnExit      []string          `yaml:"on_exit,omitempty" json:"on_exit,omitempty"`
	Transitions []TransitionSpec  `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// TransitionSpec declares one (state, trigger) -> target rule, optionally
// guarded. Guards are tried in declared order.
type TransitionSpec struct {
	Trigger string   `yaml:"trigger" json:"trigger"`
	Target  string   `yaml:"target" json:"target"`
	Guards  []string `yaml:"guards,omitempty" json:"guards,omitempty"`
}

// TriggerSpec declares a trigger's parameter arity.
type TriggerSpec struct {
	Name  string `yaml:"name" json:"name"`
	Arity int    `yaml:"arity" json:"arity"`
}

// RegionSpec declares one orthogonal region.
type RegionSpec struct {
	Name   string   `yaml:"name" json:"name"`
	States []string `yaml:"states" json:"states"`
}

// Registry resolves symbolic guard/hook names to their implementations
// when building a Definition from a DefinitionSpec.
type Registry struct {
	Guards   map[string]definition.Guard
	OnEnters map[string]definition.EntryHook
	OnExits  map[string]definition.ExitHook
}

// LoadDefinitionYAML loads a DefinitionSpec from path and builds a
// definition.Definition against it, resolving guard/hook references
// through reg.
func LoadDefinitionYAML(path string, reg Registry) (*definition.Definition, error) {
	var spec DefinitionSpec
	if err := LoadYAML(path, &spec); err != nil {
		return nil, err
	}
	return BuildDefinition(spec, reg)
}

// BuildDefinition constructs a definition.Definition from an already
// loaded DefinitionSpec.
func BuildDefinition(spec DefinitionSpec, reg Registry) (*definition.Definition, error) {
	b := definition.NewBuilder(spec.GrainType, definition.Version{
		Major: spec.Version.Major,
		Minor: spec.Version.Minor,
		Patch: spec.Version.Patch,
	})
	b.InitialState(definition.State(spec.Initial))

	for _, t := range spec.Triggers {
		b.Arity(definition.Trigger(t.Name), t.Arity)
	}

	for _, r := range spec.Regions {
		states := make([]definition.State, len(r.States))
		for i, s := range r.States {
			states[i] = definition.State(s)
		}
		b.Region(r.Name, states...)
	}

	for _, s := range spec.States {
		if s.Parent != "" {
			b.SubstateOf(definition.State(s.Name), definition.State(s.Parent))
		}
		sb := b.State(definition.State(s.Name))
		for _, name := range s.OnEnter {
			h, ok := reg.OnEnters[name]
			if !ok {
				return nil, fmt.Errorf("config: unresolved on_enter hook %q for state %q", name, s.Name)
			}
			sb.OnEnter(h)
		}
		for _, name := range s.OnExit {
			h, ok := reg.OnExits[name]
			if !ok {
				return nil, fmt.Errorf("config: unresolved on_exit hook %q for state %q", name, s.Name)
			}
			sb.OnExit(h)
		}
		for _, tr := range s.Transitions {
			sb.Permit(definition.Trigger(tr.Trigger), definition.State(tr.Target))
			for _, gname := range tr.Guards {
				g, ok := reg.Guards[gname]
				if !ok {
					return nil, fmt.Errorf("config: unresolved guard %q on %s/%s", gname, s.Name, tr.Trigger)
				}
				sb.If(g)
			}
		}
		sb.Done()
	}

	return b.Build()
}
