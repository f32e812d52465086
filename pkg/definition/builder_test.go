package definition

import "testing"

func itemsGuard(satisfied bool) Guard {
	return GuardFunc{GuardName: "items > 0", Fn: func(args []interface{}) bool { return satisfied }}
}

func TestBuilder_SimpleOrderMachine(t *testing.T) {
	d, err := NewBuilder("Order", Version{Major: 1, Minor: 0, Patch: 0}).
		InitialState("Draft").
		State("Draft").Permit("Submit", "Submitted").If(itemsGuard(true)).Done().
		State("Submitted").Done().
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if d.Initial() != "Draft" {
		t.Fatalf("Initial() = %v, want Draft", d.Initial())
	}
	ok, unmet := d.Permits("Draft", "Submit", nil)
	if !ok || len(unmet) != 0 {
		t.Fatalf("Permits() = (%v, %v), want (true, nil)", ok, unmet)
	}
}

func TestBuilder_GuardRejected(t *testing.T) {
	d, err := NewBuilder("Order", Version{Major: 1}).
		InitialState("Draft").
		State("Draft").Permit("Submit", "Submitted").If(itemsGuard(false)).Done().
		State("Submitted").Done().
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	ok, unmet := d.Permits("Draft", "Submit", nil)
	if ok {
		t.Fatalf("Permits() = true, want false")
	}
	if len(unmet) != 1 || unmet[0] != "items > 0" {
		t.Fatalf("unmet = %v, want [items > 0]", unmet)
	}
}

func TestBuilder_UnknownTargetState(t *testing.T) {
	_, err := NewBuilder("Order", Version{Major: 1}).
		InitialState("Draft").
		State("Draft").Permit("Submit", "Ghost").Done().
		Build()
	if err == nil {
		t.Fatal("Build() error = nil, want unknown state error")
	}
}

func TestBuilder_CyclicHierarchy(t *testing.T) {
	b := NewBuilder("Order", Version{Major: 1}).InitialState("A")
	b.SubstateOf("A", "B")
	b.SubstateOf("B", "A")
	if _, err := b.Build(); err == nil {
		t.Fatal("Build() error = nil, want cyclic hierarchy error")
	}
}

func TestBuilder_DuplicateRegionState(t *testing.T) {
	b := NewBuilder("Order", Version{Major: 1}).InitialState("A")
	b.Region("r1", "A", "B")
	b.Region("r2", "B", "C")
	if _, err := b.Build(); err == nil {
		t.Fatal("Build() error = nil, want duplicate region state error")
	}
}

func TestDefinition_HashStable(t *testing.T) {
	build := func() *Definition {
		d, err := NewBuilder("Order", Version{Major: 1}).
			InitialState("Draft").
			State("Draft").Permit("Submit", "Submitted").Done().
			State("Submitted").Done().
			Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		return d
	}
	a, b := build(), build()
	if a.Hash() != b.Hash() {
		t.Fatalf("Hash() not stable across identical builds: %s != %s", a.Hash(), b.Hash())
	}
}

func TestVersion_Compare(t *testing.T) {
	v1 := Version{Major: 1, Minor: 2, Patch: 3}
	v2 := Version{Major: 2, Minor: 0, Patch: 0}
	if v1.Compare(v2) >= 0 {
		t.Fatalf("v1.Compare(v2) = %d, want negative", v1.Compare(v2))
	}
	if v1.Compare(v1) != 0 {
		t.Fatalf("v1.Compare(v1) != 0")
	}
}
