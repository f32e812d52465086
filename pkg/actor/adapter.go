// Package actor implements the per-entity composition root (spec.md 4.E):
// one Adapter binds one fsm.Engine to one entity id, wiring eventlog.Store
// persistence, optional timer.Manager timeout binding, and optional
// core.EventBus stream publication under a single per-entity mutex. This
// replaces the teacher's inheritance chain (StateMachineGrain ->
// EventSourced... -> TimerEnabled... -> Hierarchical...) with composed
// facets, per spec.md section 9's design note.
package actor

import (
	"context"
	"sync"
	"time"

	"github.com/fluxorio/grainstate/pkg/core"
	"github.com/fluxorio/grainstate/pkg/core/failfast"
	"github.com/fluxorio/grainstate/pkg/definition"
	"github.com/fluxorio/grainstate/pkg/eventlog"
	"github.com/fluxorio/grainstate/pkg/fsm"
	"github.com/fluxorio/grainstate/pkg/observability"
	"github.com/fluxorio/grainstate/pkg/timer"
)

// Info is a read-only copy of an Adapter's bookkeeping. Info() takes the
// per-entity mutex to copy it, so it waits while a Fire is in flight.
type Info struct {
	EntityID          string
	CurrentStates     fsm.RegionState
	TransitionCount   uint64
	LastConfirmedSeq  uint64
	DefinitionVersion string
	Active            bool
}

// Adapter binds one definition.Definition to one entity id. At most one
// Fire is in flight at a time, enforced by mu, held across the engine
// fire, storage append, timer rebind, and stream publish — exactly the
// per-entity serialization spec.md section 5 requires.
type Adapter struct {
	entityID string
	def      *definition.Definition
	store    eventlog.Store
	bus      core.EventBus
	timers   *timer.Manager
	opts     EventSourcingOptions
	logger   core.Logger

	mu              sync.Mutex
	active          bool
	engine          *fsm.Engine
	dedupe          *eventlog.DedupeLRU
	transitionCount uint64
	lastConfirmed   uint64
	pending         []eventlog.StateTransitionEvent
	correlationID   string
}

// NewAdapter constructs an inactive Adapter. Call Activate before Fire.
func NewAdapter(entityID string, def *definition.Definition, store eventlog.Store, opts EventSourcingOptions) *Adapter {
	failfast.NotNil(def, "def")
	failfast.NotNil(store, "store")
	failfast.If(entityID != "", "entityID must not be empty")
	return &Adapter{
		entityID: entityID,
		def:      def,
		store:    store,
		opts:     opts,
		logger:   core.NewDefaultLogger().WithFields(map[string]interface{}{"entity_id": entityID, "grain_type": def.GrainType}),
		dedupe:   eventlog.NewDedupeLRU(opts.MaxDedupeKeysInMemory),
	}
}

// WithEventBus attaches the stream-publication collaborator. Must be
// called before Activate.
func (a *Adapter) WithEventBus(bus core.EventBus) *Adapter {
	a.bus = bus
	return a
}

// WithTimers attaches the timer/reminder collaborator. Must be called
// before Activate.
func (a *Adapter) WithTimers(m *timer.Manager) *Adapter {
	a.timers = m
	return a
}

// FireFunc adapts Adapter to timer.FireFunc, letting a timer.Manager drive
// fires without importing pkg/actor.
func (a *Adapter) FireFunc() timer.FireFunc {
	return func(ctx context.Context, entityID string, trigger definition.Trigger, args []interface{}) error {
		_, err := a.Fire(ctx, trigger, args, "")
		return err
	}
}

// StateFunc adapts Adapter to timer.StateFunc.
func (a *Adapter) StateFunc() timer.StateFunc {
	return func(entityID string) definition.State { return a.CurrentState() }
}

// SetCorrelation sets the correlation id stamped onto every event this
// Adapter appends until changed again.
func (a *Adapter) SetCorrelation(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.correlationID = id
}

// Activate loads the entity's snapshot (if any), builds the FSM at that
// state, replays subsequent events to rebuild leaf state, and rebuilds
// the dedupe LRU from the keys of every event in the log (spec.md 4.E
// activation contract).
func (a *Adapter) Activate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active {
		return &ErrAlreadyActive{EntityID: a.entityID}
	}

	var regionState fsm.RegionState
	var transitionCount, lastSeq uint64

	snap, ok, err := a.store.GetSnapshot(ctx, a.entityID)
	if err != nil {
		return err
	}
	if ok {
		regionState = make(fsm.RegionState, len(snap.CurrentState))
		for k, v := range snap.CurrentState {
			regionState[k] = definition.State(v)
		}
		transitionCount = snap.TransitionCount
		lastSeq = snap.LastSeq
	}

	// The whole log is read so the dedupe LRU is rebuilt from every recorded
	// key; only events after the snapshot are applied to the state.
	events, err := a.store.Read(ctx, a.entityID, 0, 0)
	if err != nil {
		return err
	}
	var dedupeKeys []string
	for _, ev := range events {
		if ev.DedupeKey != "" {
			dedupeKeys = append(dedupeKeys, ev.DedupeKey)
		}
		if ev.Seq <= lastSeq {
			continue
		}
		if regionState == nil {
			regionState = fsm.RegionState{}
		}
		regionState[""] = definition.State(ev.To)
		transitionCount++
		lastSeq = ev.Seq
	}

	if regionState != nil {
		a.engine = fsm.NewEngineAt(a.def, regionState)
	} else {
		a.engine = fsm.NewEngine(a.def)
	}
	a.dedupe = eventlog.NewDedupeLRU(a.opts.MaxDedupeKeysInMemory)
	a.dedupe.Rebuild(dedupeKeys)
	a.transitionCount = transitionCount
	a.lastConfirmed = lastSeq
	a.active = true
	observability.GetMetrics().ActiveEntities.Inc()

	if a.timers != nil {
		for _, s := range a.engine.CurrentStates() {
			a.timers.OnEnterState(ctx, a.entityID, s)
		}
	}
	return nil
}

// Deactivate confirms any pending batch-confirm events, optionally takes a
// final snapshot, and cancels outstanding timers/reminders.
func (a *Adapter) Deactivate(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return &ErrNotActive{EntityID: a.entityID}
	}
	if err := a.checkpointLocked(ctx); err != nil {
		return err
	}
	if a.opts.EnableSnapshots {
		if err := a.snapshotLocked(ctx); err != nil {
			return err
		}
	}
	if a.timers != nil {
		a.timers.CancelAll(ctx, a.entityID)
	}
	a.active = false
	observability.GetMetrics().ActiveEntities.Dec()
	return nil
}

// Checkpoint confirms accumulated batch-confirm events and then publishes
// them to the event stream. A no-op in
// auto-confirm mode, where every event is already confirmed.
func (a *Adapter) Checkpoint(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return &ErrNotActive{EntityID: a.entityID}
	}
	return a.checkpointLocked(ctx)
}

func (a *Adapter) checkpointLocked(ctx context.Context) error {
	if len(a.pending) == 0 {
		return nil
	}
	confirmed, err := a.store.Append(ctx, a.entityID, a.pending, a.lastConfirmed)
	if err != nil {
		return err
	}
	a.lastConfirmed = confirmed
	for _, ev := range a.pending {
		a.publish(ctx, ev)
	}
	a.pending = nil
	return nil
}

// CurrentState returns the default region's leaf state.
func (a *Adapter) CurrentState() definition.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return ""
	}
	return a.engine.CurrentState()
}

// IsIn reports whether s is the current leaf state, or an ancestor of it.
func (a *Adapter) IsIn(s definition.State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return false
	}
	return a.engine.IsIn(s)
}

// CanFire reports whether t can fire from the current state.
func (a *Adapter) CanFire(ctx context.Context, t definition.Trigger, args []interface{}) (bool, []string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return false, nil, &ErrNotActive{EntityID: a.entityID}
	}
	return a.engine.CanFire(ctx, t, args)
}

// Permitted returns every trigger permitted from the current state.
func (a *Adapter) Permitted(argsByTrigger map[definition.Trigger][]interface{}) []definition.Trigger {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return nil
	}
	return a.engine.Permitted(argsByTrigger)
}

// Info returns a read-only snapshot of adapter bookkeeping.
func (a *Adapter) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	info := Info{
		EntityID:          a.entityID,
		TransitionCount:   a.transitionCount,
		LastConfirmedSeq:  a.lastConfirmed,
		DefinitionVersion: a.def.Version.String(),
		Active:            a.active,
	}
	if a.active {
		info.CurrentStates = a.engine.CurrentStates()
	}
	return info
}

// Fire evaluates trigger against the current state, exactly like
// fsm.Engine.Fire, then persists, snapshots, rebinds timers, and publishes
// the event to the event stream once it is confirmed (in batch-confirm
// mode that happens in Checkpoint or Deactivate) — all under the
// per-entity mutex. dedupeKey, if
// non-empty and EnableIdempotency is set, makes repeated calls no-ops
// returning the current result without re-evaluating the engine.
func (a *Adapter) Fire(ctx context.Context, t definition.Trigger, args []interface{}, dedupeKey string) (fireResult *fsm.FireResult, fireReturnErr error) {
	start := time.Now()
	ctx, span := observability.StartFireSpan(ctx, a.entityID, string(t))
	defer func() {
		result := "ok"
		if fireReturnErr != nil {
			result = "error"
		}
		observability.GetMetrics().RecordFire(result, time.Since(start))
		var from, to string
		if fireResult != nil {
			to = string(fireResult.NewState[""])
			if len(fireResult.Plans) > 0 {
				from = string(defaultOrFirstPlan(fireResult.Plans).From)
			}
		}
		observability.EndFireSpan(span, from, to, fireReturnErr)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return nil, &ErrNotActive{EntityID: a.entityID}
	}

	if a.opts.EnableIdempotency && dedupeKey != "" && a.dedupe.Contains(dedupeKey) {
		return &fsm.FireResult{NewState: a.engine.CurrentStates()}, nil
	}

	result, fireErr := a.engine.Fire(ctx, t, args)
	if result == nil {
		return nil, fireErr
	}

	a.transitionCount++
	plan := defaultOrFirstPlan(result.Plans)
	event := eventlog.StateTransitionEvent{
		Seq:               a.lastConfirmed + uint64(len(a.pending)) + 1,
		From:              string(plan.From),
		To:                string(plan.To),
		Trigger:           string(t),
		TimestampUTC:      time.Now().UTC(),
		CorrelationID:     a.correlationID,
		DedupeKey:         dedupeKey,
		DefinitionVersion: a.def.Version.String(),
	}

	if a.opts.AutoConfirmEvents {
		confirmed, err := a.store.Append(ctx, a.entityID, []eventlog.StateTransitionEvent{event}, a.lastConfirmed)
		if err != nil {
			a.transitionCount--
			return nil, err
		}
		a.lastConfirmed = confirmed
	} else {
		a.pending = append(a.pending, event)
	}

	if dedupeKey != "" {
		a.dedupe.Add(dedupeKey)
	}

	if a.opts.EnableSnapshots && a.opts.SnapshotInterval > 0 && a.transitionCount%uint64(a.opts.SnapshotInterval) == 0 {
		if err := a.snapshotLocked(ctx); err != nil {
			a.logger.WithContext(ctx).Warnf("snapshot failed: %v", err)
		}
	}

	if a.timers != nil {
		for _, p := range result.Plans {
			for _, s := range p.ExitPath {
				a.timers.OnExitState(ctx, a.entityID, s)
			}
			for _, s := range p.EntryPath {
				a.timers.OnEnterState(ctx, a.entityID, s)
			}
		}
	}

	if a.opts.AutoConfirmEvents {
		a.publish(ctx, event)
	}

	return result, fireErr
}

func (a *Adapter) snapshotLocked(ctx context.Context) error {
	states := a.engine.CurrentStates()
	snap := eventlog.Snapshot{
		CurrentState:      make(map[string]string, len(states)),
		TransitionCount:   a.transitionCount,
		LastSeq:           a.lastConfirmed,
		DefinitionVersion: a.def.Version.String(),
	}
	for k, v := range states {
		snap.CurrentState[k] = string(v)
	}
	if err := a.store.PutSnapshot(ctx, a.entityID, snap); err != nil {
		return err
	}
	observability.GetMetrics().SnapshotsTotal.Inc()
	return nil
}

func (a *Adapter) publish(ctx context.Context, event eventlog.StateTransitionEvent) {
	if !a.opts.PublishToStream || a.bus == nil {
		return
	}
	address := a.opts.StreamNamespace + "." + a.entityID
	if err := a.bus.Publish(address, event); err != nil {
		a.logger.WithContext(ctx).Warnf("event stream publish failed: %v", err)
	}
}

func defaultOrFirstPlan(plans []fsm.TransitionPlan) fsm.TransitionPlan {
	for _, p := range plans {
		if p.Region == "" {
			return p
		}
	}
	return plans[0]
}
