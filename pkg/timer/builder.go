package timer

import (
	"time"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// ConfigBuilder is the fluent timer-configuration API named in spec.md
// section 6's programmatic surface:
// configure_timeout(state).after(d).transition_to(t).use_timer()|
// use_durable_reminder().repeat()?.with_name(n).build().
type ConfigBuilder struct {
	state     definition.State
	timeout   time.Duration
	trigger   definition.Trigger
	name      string
	repeating bool
	durable   *bool
}

// Configure starts building a timer configuration bound to state.
func Configure(state definition.State) *ConfigBuilder {
	return &ConfigBuilder{state: state}
}

// After sets the timeout duration.
func (b *ConfigBuilder) After(d time.Duration) *ConfigBuilder {
	b.timeout = d
	return b
}

// TransitionTo sets the trigger fired when the timer elapses.
func (b *ConfigBuilder) TransitionTo(t definition.Trigger) *ConfigBuilder {
	b.trigger = t
	return b
}

// UseTimer forces in-memory-timer selection, overriding the default
// duration-based rule.
func (b *ConfigBuilder) UseTimer() *ConfigBuilder {
	f := false
	b.durable = &f
	return b
}

// UseDurableReminder forces durable-reminder selection.
func (b *ConfigBuilder) UseDurableReminder() *ConfigBuilder {
	t := true
	b.durable = &t
	return b
}

// Repeat marks the timer as repeating rather than one-shot.
func (b *ConfigBuilder) Repeat() *ConfigBuilder {
	b.repeating = true
	return b
}

// WithName sets the timer's name, used as the map key in Manager.
func (b *ConfigBuilder) WithName(name string) *ConfigBuilder {
	b.name = name
	return b
}

// Build finalizes the Config, applying the default durable-selection rule
// if UseTimer/UseDurableReminder was never called.
func (b *ConfigBuilder) Build() Config {
	return Config{
		Name:      b.name,
		State:     b.state,
		Timeout:   b.timeout,
		Repeating: b.repeating,
		Durable:   selectDurable(b.timeout, b.durable),
		Trigger:   b.trigger,
	}
}
