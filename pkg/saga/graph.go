package saga

import "sort"

// checkAcyclic runs a standard three-color DFS over the DependsOn edges
// and reports the first cycle found.
func checkAcyclic(steps []Step) error {
	byName := make(map[string]Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		for _, dep := range byName[name].DependsOn {
			switch color[dep] {
			case gray:
				return &ErrCyclicDependency{Step: name}
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for _, s := range steps {
		if color[s.Name] == white {
			if err := visit(s.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// levels derives execution levels by repeated Kahn-style peeling (spec.md
// 4.H step 2): level n is every unprocessed step whose DependsOn are all
// satisfied by earlier levels. Steps within a level are sorted by name
// for deterministic stats/logging.
func levels(steps []Step) [][]Step {
	byName := make(map[string]Step, len(steps))
	remaining := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
		remaining[s.Name] = struct{}{}
	}

	var out [][]Step
	satisfied := make(map[string]struct{}, len(steps))

	for len(remaining) > 0 {
		var level []string
		for name := range remaining {
			ready := true
			for _, dep := range byName[name].DependsOn {
				if _, ok := satisfied[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, name)
			}
		}
		if len(level) == 0 {
			// Build validates acyclicity first, so this should not happen;
			// break to avoid an infinite loop if called directly on an
			// unvalidated step slice.
			break
		}
		sort.Strings(level)

		var levelSteps []Step
		for _, name := range level {
			levelSteps = append(levelSteps, byName[name])
			delete(remaining, name)
			satisfied[name] = struct{}{}
		}
		out = append(out, levelSteps)
	}
	return out
}

// Stats reports execution-graph statistics for observability (spec.md
// 4.H step 3).
type Stats struct {
	StepCount         int
	LevelCount        int
	CriticalPathLength int
	MaxParallelism    int
	ComplexityScore   float64
}

// computeStats derives critical path length (longest dependency chain),
// max parallelism (largest level), and a simple complexity score
// (edges-to-steps ratio scaled by depth) from the leveled DAG.
func computeStats(steps []Step, lv [][]Step) Stats {
	maxParallelism := 0
	for _, level := range lv {
		if len(level) > maxParallelism {
			maxParallelism = len(level)
		}
	}

	edgeCount := 0
	for _, s := range steps {
		edgeCount += len(s.DependsOn)
	}

	depth := make(map[string]int, len(steps))
	byName := make(map[string]Step, len(steps))
	for _, s := range steps {
		byName[s.Name] = s
	}
	var order []string
	for _, level := range lv {
		for _, s := range level {
			order = append(order, s.Name)
		}
	}
	critical := 0
	for _, name := range order {
		d := 0
		for _, dep := range byName[name].DependsOn {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[name] = d
		if d+1 > critical {
			critical = d + 1
		}
	}

	complexity := 0.0
	if len(steps) > 0 {
		complexity = float64(edgeCount) / float64(len(steps)) * float64(len(lv))
	}

	return Stats{
		StepCount:          len(steps),
		LevelCount:         len(lv),
		CriticalPathLength: critical,
		MaxParallelism:     maxParallelism,
		ComplexityScore:    complexity,
	}
}
