package timer

import (
	"context"
	"sync"
	"time"

	"github.com/fluxorio/grainstate/pkg/core/failfast"
	"github.com/fluxorio/grainstate/pkg/definition"
	"github.com/fluxorio/grainstate/pkg/observability"
)

// FireFunc is injected by the owning actor adapter so Manager can trigger a
// fire() without importing pkg/actor (which imports pkg/timer), avoiding a
// cycle.
type FireFunc func(ctx context.Context, entityID string, trigger definition.Trigger, args []interface{}) error

// StateFunc reports the entity's current leaf state so a firing timer can
// re-check it before firing, per spec.md 4.F ("a timer firing re-checks the
// current leaf state before firing, to avoid racing a human-initiated
// transition").
type StateFunc func(entityID string) definition.State

// ReminderService persists due reminders so they survive process restarts.
// Manager delegates all Durable configs to it; non-durable configs run as
// plain in-memory timers owned by Manager itself. due fires each time the
// reminder elapses; period repeats it (zero means one-shot).
type ReminderService interface {
	Register(ctx context.Context, entityID, name string, due time.Time, period time.Duration, fire func()) error
	Unregister(ctx context.Context, entityID, name string) error
}

// Manager owns the in-memory timers and durable reminders bound to one
// grain's definition. One Manager instance is shared across all entities of
// a grain type; per-entity timer sets are keyed by entityID within it.
type Manager struct {
	fire     FireFunc
	state    StateFunc
	reminder ReminderService

	byState map[definition.State][]Config

	mu     sync.Mutex
	timers map[string]map[string]*time.Timer // entityID -> name -> timer
}

// NewManager builds a Manager bound to fire/state callbacks supplied by the
// owning actor adapter and the reminder service used for Durable configs.
func NewManager(fire FireFunc, state StateFunc, reminder ReminderService) *Manager {
	failfast.NotNil(fire, "fire")
	failfast.NotNil(state, "state")
	return &Manager{
		fire:     fire,
		state:    state,
		reminder: reminder,
		byState:  make(map[definition.State][]Config),
		timers:   make(map[string]map[string]*time.Timer),
	}
}

// Register binds a timer configuration to the state it starts on. Call
// during grain/definition setup, before any entity enters the state.
func (m *Manager) Register(cfg Config) {
	m.byState[cfg.State] = append(m.byState[cfg.State], cfg)
}

// OnEnterState starts every timer/reminder configuration bound to state for
// entityID. Intended to be wired as an EntryHook by the actor adapter.
func (m *Manager) OnEnterState(ctx context.Context, entityID string, state definition.State) {
	for _, cfg := range m.byState[state] {
		m.start(ctx, entityID, cfg)
	}
}

// OnExitState cancels every timer/reminder configuration bound to state for
// entityID. Intended to be wired as an ExitHook by the actor adapter.
func (m *Manager) OnExitState(ctx context.Context, entityID string, state definition.State) {
	for _, cfg := range m.byState[state] {
		m.cancel(ctx, entityID, cfg.Name)
	}
}

func (m *Manager) start(ctx context.Context, entityID string, cfg Config) {
	if cfg.Durable {
		if m.reminder == nil {
			return
		}
		period := time.Duration(0)
		if cfg.Repeating {
			period = cfg.Timeout
		}
		_ = m.reminder.Register(ctx, entityID, cfg.Name, time.Now().Add(cfg.Timeout), period, func() {
			m.fireReminder(entityID, cfg)
		})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.timers[entityID]
	if !ok {
		set = make(map[string]*time.Timer)
		m.timers[entityID] = set
	}
	if existing, ok := set[cfg.Name]; ok {
		existing.Stop()
	}
	set[cfg.Name] = time.AfterFunc(cfg.Timeout, func() { m.fireTimer(entityID, cfg) })
}

func (m *Manager) fireTimer(entityID string, cfg Config) {
	if m.state != nil && m.state(entityID) != cfg.State {
		return
	}
	observability.GetMetrics().RecordTimerFire("timer")
	_ = m.fire(context.Background(), entityID, cfg.Trigger, nil)

	if cfg.Repeating {
		m.mu.Lock()
		if set, ok := m.timers[entityID]; ok {
			set[cfg.Name] = time.AfterFunc(cfg.Timeout, func() { m.fireTimer(entityID, cfg) })
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if set, ok := m.timers[entityID]; ok {
		delete(set, cfg.Name)
	}
	m.mu.Unlock()
}

// fireReminder is invoked by the ReminderService when a durable reminder
// elapses. Re-checks leaf state before firing, same rule as in-memory
// timers, then fires unconditionally; the ReminderService owns rescheduling
// for repeating reminders.
func (m *Manager) fireReminder(entityID string, cfg Config) {
	if m.state != nil && m.state(entityID) != cfg.State {
		return
	}
	observability.GetMetrics().RecordTimerFire("reminder")
	_ = m.fire(context.Background(), entityID, cfg.Trigger, nil)
}

func (m *Manager) cancel(ctx context.Context, entityID, name string) {
	m.mu.Lock()
	if set, ok := m.timers[entityID]; ok {
		if tmr, ok := set[name]; ok {
			tmr.Stop()
			delete(set, name)
		}
	}
	m.mu.Unlock()

	if m.reminder != nil {
		_ = m.reminder.Unregister(ctx, entityID, name)
	}
}

// CancelAll stops every in-memory timer and durable reminder for entityID,
// used when an entity is deactivated or deleted.
func (m *Manager) CancelAll(ctx context.Context, entityID string) {
	m.mu.Lock()
	set := m.timers[entityID]
	delete(m.timers, entityID)
	m.mu.Unlock()

	for _, tmr := range set {
		tmr.Stop()
	}
	if m.reminder == nil {
		return
	}
	for _, cfgs := range m.byState {
		for _, cfg := range cfgs {
			if cfg.Durable {
				_ = m.reminder.Unregister(ctx, entityID, cfg.Name)
			}
		}
	}
}
