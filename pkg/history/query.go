// Package history implements the read-only query/history engine (spec.md
// 4.G): a filter pipeline over an eventlog.Store's Read, streaming the
// whole entity log into process memory, filtering, ordering, and
// aggregating — never a separate store of its own.
package history

import (
	"context"
	"sort"
	"time"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

// Query builds a filter/order/paginate pipeline over one entity's event
// log. Zero value is not usable; construct with New.
type Query struct {
	store    eventlog.Store
	entityID string

	predicates []func(eventlog.StateTransitionEvent) bool
	descending bool
	skip       int
	take       int // 0 means unbounded
}

// New starts a Query over entityID's full log read from store.
func New(store eventlog.Store, entityID string) *Query {
	return &Query{store: store, entityID: entityID}
}

func (q *Query) where(pred func(eventlog.StateTransitionEvent) bool) *Query {
	q.predicates = append(q.predicates, pred)
	return q
}

// InRange keeps events with TimestampUTC in [from, to].
func (q *Query) InRange(from, to time.Time) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool {
		return !e.TimestampUTC.Before(from) && !e.TimestampUTC.After(to)
	})
}

// After keeps events strictly after t.
func (q *Query) After(t time.Time) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.TimestampUTC.After(t) })
}

// Before keeps events strictly before t.
func (q *Query) Before(t time.Time) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.TimestampUTC.Before(t) })
}

// Today keeps events whose TimestampUTC falls on the current UTC day.
func (q *Query) Today() *Query {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return q.InRange(start, start.Add(24*time.Hour))
}

// LastHours keeps events within the last n hours of now.
func (q *Query) LastHours(n int) *Query {
	return q.After(time.Now().UTC().Add(-time.Duration(n) * time.Hour))
}

// LastDays keeps events within the last n days of now.
func (q *Query) LastDays(n int) *Query {
	return q.After(time.Now().UTC().Add(-time.Duration(n) * 24 * time.Hour))
}

// From keeps events whose From state equals s.
func (q *Query) From(s string) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.From == s })
}

// To keeps events whose To state equals s.
func (q *Query) To(s string) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.To == s })
}

// WithTrigger keeps events fired by exactly trigger.
func (q *Query) WithTrigger(trigger string) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.Trigger == trigger })
}

// WithTriggers keeps events fired by any of triggers.
func (q *Query) WithTriggers(triggers ...string) *Query {
	set := make(map[string]struct{}, len(triggers))
	for _, t := range triggers {
		set[t] = struct{}{}
	}
	return q.where(func(e eventlog.StateTransitionEvent) bool {
		_, ok := set[e.Trigger]
		return ok
	})
}

// WithCorrelation keeps events stamped with the given correlation id.
func (q *Query) WithCorrelation(correlationID string) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.CorrelationID == correlationID })
}

// WithMetadata keeps events whose Metadata[key] equals value.
func (q *Query) WithMetadata(key, value string) *Query {
	return q.where(func(e eventlog.StateTransitionEvent) bool { return e.Metadata[key] == value })
}

// InVersionRange keeps events whose DefinitionVersion is one of versions.
func (q *Query) InVersionRange(versions ...string) *Query {
	set := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		set[v] = struct{}{}
	}
	return q.where(func(e eventlog.StateTransitionEvent) bool {
		_, ok := set[e.DefinitionVersion]
		return ok
	})
}

// OrderByTimeAsc orders results oldest first (the default, explicit form).
func (q *Query) OrderByTimeAsc() *Query {
	q.descending = false
	return q
}

// OrderByTimeDesc orders results newest first.
func (q *Query) OrderByTimeDesc() *Query {
	q.descending = true
	return q
}

// Skip drops the first n results after ordering.
func (q *Query) Skip(n int) *Query {
	q.skip = n
	return q
}

// Take limits the result count after Skip. 0 means unbounded.
func (q *Query) Take(n int) *Query {
	q.take = n
	return q
}

func (q *Query) evaluate(ctx context.Context) ([]eventlog.StateTransitionEvent, error) {
	events, err := q.store.Read(ctx, q.entityID, 0, 0)
	if err != nil {
		return nil, err
	}

	out := events[:0:0]
	for _, e := range events {
		keep := true
		for _, pred := range q.predicates {
			if !pred(e) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if q.descending {
			return out[i].TimestampUTC.After(out[j].TimestampUTC)
		}
		return out[i].TimestampUTC.Before(out[j].TimestampUTC)
	})

	if q.skip > 0 {
		if q.skip >= len(out) {
			return nil, nil
		}
		out = out[q.skip:]
	}
	if q.take > 0 && q.take < len(out) {
		out = out[:q.take]
	}
	return out, nil
}

// List runs the pipeline and returns every matching event.
func (q *Query) List(ctx context.Context) ([]eventlog.StateTransitionEvent, error) {
	return q.evaluate(ctx)
}

// First returns the first matching event, or (zero, false).
func (q *Query) First(ctx context.Context) (eventlog.StateTransitionEvent, bool, error) {
	events, err := q.evaluate(ctx)
	if err != nil || len(events) == 0 {
		return eventlog.StateTransitionEvent{}, false, err
	}
	return events[0], true, nil
}

// Count returns the number of matching events.
func (q *Query) Count(ctx context.Context) (int, error) {
	events, err := q.evaluate(ctx)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Any reports whether at least one event matches.
func (q *Query) Any(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}
