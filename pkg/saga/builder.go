package saga

import "time"

// Builder is the fluent API named in spec.md section 6:
// configure_saga_steps(), generalized to grainstate's Step/WorkflowConfig
// shape, mirroring definition.Builder's chained-method style.
type Builder struct {
	name  string
	steps []Step
	err   error
}

// NewBuilder starts a saga builder named name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Step appends a step to the workflow. DependsOn names may reference
// steps added before or after this one; Build resolves them over the
// whole step set.
func (b *Builder) Step(s Step) *Builder {
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	}
	b.steps = append(b.steps, s)
	return b
}

// Build validates the DAG (every DependsOn names a declared step, no
// cycles) and freezes a WorkflowConfig.
func (b *Builder) Build() (*WorkflowConfig, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.steps) == 0 {
		return nil, &ErrEmptyWorkflow{}
	}

	names := make(map[string]struct{}, len(b.steps))
	for _, s := range b.steps {
		if s.Name == "" {
			return nil, &ErrInvalidStep{Reason: "step name is required"}
		}
		if _, dup := names[s.Name]; dup {
			return nil, &ErrInvalidStep{Reason: "duplicate step name " + s.Name}
		}
		names[s.Name] = struct{}{}
	}
	for _, s := range b.steps {
		for _, dep := range s.DependsOn {
			if _, ok := names[dep]; !ok {
				return nil, &ErrUnknownDependency{Step: s.Name, Dependency: dep}
			}
		}
	}
	if err := checkAcyclic(b.steps); err != nil {
		return nil, err
	}

	out := make([]Step, len(b.steps))
	copy(out, b.steps)
	for i := range out {
		if out[i].RetryDelay <= 0 {
			out[i].RetryDelay = time.Second
		}
	}
	return &WorkflowConfig{Name: b.name, Steps: out}, nil
}
