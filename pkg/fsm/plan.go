package fsm

import "github.com/fluxorio/grainstate/pkg/definition"

// TransitionPlan lists the exit hooks (from the current leaf up to, but
// excluding, the least-common-ancestor of from/to), the transition itself,
// the entry hooks (from the LCA's child down to the target leaf), and the
// resulting leaf state, scoped to one region (spec.md 4.B).
type TransitionPlan struct {
	Region     string
	From       definition.State
	To         definition.State
	Trigger    definition.Trigger
	Transition definition.Transition
	ExitPath   []definition.State // leaf -> ... -> LCA-exclusive, exit order
	EntryPath  []definition.State // LCA-child -> ... -> target, entry order
}

// ExitHooks resolves ExitPath to the declared exit hooks, in exit order.
func (p TransitionPlan) ExitHooks(def *definition.Definition) []definition.ExitHook {
	var out []definition.ExitHook
	for _, s := range p.ExitPath {
		_, hooks := def.Hooks(s)
		out = append(out, hooks...)
	}
	return out
}

// EntryHooks resolves EntryPath to the declared entry hooks, in entry order.
func (p TransitionPlan) EntryHooks(def *definition.Definition) []definition.EntryHook {
	var out []definition.EntryHook
	for _, s := range p.EntryPath {
		hooks, _ := def.Hooks(s)
		out = append(out, hooks...)
	}
	return out
}

// chain returns s and its ancestors, nearest first, root last.
func chain(def *definition.Definition, s definition.State) []definition.State {
	out := []definition.State{s}
	return append(out, def.Ancestors(s)...)
}

// leastCommonAncestor returns the LCA of from and to on the parent forest,
// and whether one exists (false means from/to live in disjoint trees, so
// every ancestor up to each root is on the path).
func leastCommonAncestor(def *definition.Definition, from, to definition.State) (definition.State, bool) {
	fromChain := chain(def, from)
	toSet := make(map[definition.State]int, len(chain(def, to)))
	for i, s := range chain(def, to) {
		toSet[s] = i
	}
	for _, s := range fromChain {
		if _, ok := toSet[s]; ok {
			return s, true
		}
	}
	return "", false
}

// buildPlan computes the exit/entry paths for one region's transition.
func buildPlan(def *definition.Definition, region string, tr definition.Transition) TransitionPlan {
	from, to := tr.From, tr.To

	lca, hasLCA := leastCommonAncestor(def, from, to)

	var exitPath []definition.State
	for _, s := range chain(def, from) {
		if hasLCA && s == lca {
			break
		}
		exitPath = append(exitPath, s)
	}

	var entryPath []definition.State
	for _, s := range chain(def, to) {
		if hasLCA && s == lca {
			break
		}
		entryPath = append(entryPath, s)
	}
	// chain(to) runs leaf-to-root; entry order is root-to-leaf (LCA-child
	// down to target), so reverse it.
	for i, j := 0, len(entryPath)-1; i < j; i, j = i+1, j-1 {
		entryPath[i], entryPath[j] = entryPath[j], entryPath[i]
	}

	return TransitionPlan{
		Region:     region,
		From:       from,
		To:         to,
		Trigger:    tr.Trigger,
		Transition: tr,
		ExitPath:   exitPath,
		EntryPath:  entryPath,
	}
}
