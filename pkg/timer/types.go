// Package timer implements the time-triggered transition layer (spec.md
// 4.F): in-memory timers and durable reminders bound to states, started
// on state entry and cancelled on state exit, firing fire() calls from
// outside any hook through the same per-entity serialization as
// user-initiated transitions.
package timer

import (
	"time"

	"github.com/fluxorio/grainstate/pkg/definition"
)

// durableReminderThreshold is the default selection-rule boundary: timeouts
// above this default to durable reminders, shorter ones to in-memory
// timers (spec.md 4.F selection rule).
const durableReminderThreshold = 5 * time.Minute

// Config binds one timer/reminder to a state.
type Config struct {
	Name      string
	State     definition.State
	Timeout   time.Duration
	Repeating bool
	Durable   bool
	Trigger   definition.Trigger
}

// selectDurable applies the default selection rule unless the builder
// explicitly overrode it.
func selectDurable(timeout time.Duration, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return timeout > durableReminderThreshold
}
