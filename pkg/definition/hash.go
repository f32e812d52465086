package definition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash returns a stable content hash over states, triggers, transitions,
// the parent map, and regions. Used by the versioning engine (component J)
// to detect structural drift between two loaded definitions cheaply,
// before running the full rule-based diff (SPEC_FULL.md 4.A).
func (d *Definition) Hash() string {
	var b strings.Builder
	fmt.Fprintf(&b, "grain:%s\n", d.GrainType)
	fmt.Fprintf(&b, "version:%s\n", d.Version.String())
	fmt.Fprintf(&b, "initial:%s\n", d.initial)

	states := d.States()
	for _, s := range states {
		fmt.Fprintf(&b, "state:%s\n", s)
	}

	triggers := d.Triggers()
	for _, t := range triggers {
		fmt.Fprintf(&b, "trigger:%s:%d\n", t, d.arities[t])
	}

	parents := make([]State, 0, len(d.parents))
	for c := range d.parents {
		parents = append(parents, c)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })
	for _, c := range parents {
		fmt.Fprintf(&b, "parent:%s:%s\n", c, d.parents[c])
	}

	regionNames := append([]Region(nil), d.regions...)
	sort.Slice(regionNames, func(i, j int) bool { return regionNames[i].Name < regionNames[j].Name })
	for _, r := range regionNames {
		states := append([]State(nil), r.States...)
		sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
		strs := make([]string, len(states))
		for i, s := range states {
			strs[i] = string(s)
		}
		fmt.Fprintf(&b, "region:%s:%s\n", r.Name, strings.Join(strs, ","))
	}

	keys := make([]transitionKey, 0, len(d.transitions))
	for k := range d.transitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].trigger < keys[j].trigger
	})
	for _, k := range keys {
		for idx, tr := range d.transitions[k] {
			guardNames := make([]string, len(tr.Guards))
			for i, g := range tr.Guards {
				guardNames[i] = g.Name()
			}
			fmt.Fprintf(&b, "transition:%s:%s:%d:%s:[%s]\n", k.from, k.trigger, idx, tr.To, strings.Join(guardNames, ","))
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
