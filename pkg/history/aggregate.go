package history

import (
	"context"
	"time"
)

// StateResidency reports how long the entity spent in one state across
// every entry/exit pair observed in the queried window (spec.md 4.G
// group_by_state).
type StateResidency struct {
	State       string
	EntryCount  int
	ExitCount   int
	Total       time.Duration
	Average     time.Duration
	Min         time.Duration
	Max         time.Duration
	samples     int
}

// GroupByState pairs each entry into a state with its matching exit, in
// sequence, and reports entry/exit counts plus total/avg/min/max
// residency per state.
func (q *Query) GroupByState(ctx context.Context) (map[string]StateResidency, error) {
	events, err := q.OrderByTimeAsc().evaluate(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]StateResidency)
	entered := make(map[string]time.Time)

	bump := func(state string, f func(r *StateResidency)) {
		r := out[state]
		r.State = state
		f(&r)
		out[state] = r
	}

	for _, e := range events {
		if since, ok := entered[e.From]; ok {
			d := e.TimestampUTC.Sub(since)
			bump(e.From, func(r *StateResidency) {
				r.ExitCount++
				r.Total += d
				r.samples++
				if r.samples == 1 || d < r.Min {
					r.Min = d
				}
				if d > r.Max {
					r.Max = d
				}
			})
			delete(entered, e.From)
		}
		bump(e.To, func(r *StateResidency) { r.EntryCount++ })
		entered[e.To] = e.TimestampUTC
	}

	for state, r := range out {
		if r.samples > 0 {
			r.Average = r.Total / time.Duration(r.samples)
			out[state] = r
		}
	}
	return out, nil
}

// TriggerStats reports how often a trigger fired, and the distinct source/
// target states it fired from/to (spec.md 4.G group_by_trigger).
type TriggerStats struct {
	Trigger       string
	FireCount     int
	SourceStates  map[string]struct{}
	TargetStates  map[string]struct{}
	First         time.Time
	Last          time.Time
}

// GroupByTrigger reports per-trigger fire counts, distinct source/target
// cardinality, and first/last fire time.
func (q *Query) GroupByTrigger(ctx context.Context) (map[string]TriggerStats, error) {
	events, err := q.OrderByTimeAsc().evaluate(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]TriggerStats)
	for _, e := range events {
		s := out[e.Trigger]
		s.Trigger = e.Trigger
		s.FireCount++
		if s.SourceStates == nil {
			s.SourceStates = make(map[string]struct{})
			s.TargetStates = make(map[string]struct{})
			s.First = e.TimestampUTC
		}
		s.SourceStates[e.From] = struct{}{}
		s.TargetStates[e.To] = struct{}{}
		s.Last = e.TimestampUTC
		out[e.Trigger] = s
	}
	return out, nil
}

// TimePeriod is a group_by_time bucketing granularity.
type TimePeriod string

const (
	PeriodHour  TimePeriod = "hour"
	PeriodDay   TimePeriod = "day"
	PeriodWeek  TimePeriod = "week"
	PeriodMonth TimePeriod = "month"
)

// GroupByTime buckets matching events into UTC-truncated periods and
// returns the per-bucket event count.
func (q *Query) GroupByTime(ctx context.Context, period TimePeriod) (map[time.Time]int, error) {
	events, err := q.evaluate(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[time.Time]int)
	for _, e := range events {
		out[truncate(e.TimestampUTC, period)]++
	}
	return out, nil
}

func truncate(t time.Time, period TimePeriod) time.Time {
	t = t.UTC()
	switch period {
	case PeriodHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case PeriodDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday-anchored week
		return day.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}
