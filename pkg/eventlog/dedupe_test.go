package eventlog

import "testing"

func TestDedupeLRU_AddAndContains(t *testing.T) {
	d := NewDedupeLRU(2)
	if d.Add("a") != true {
		t.Fatal("Add(a) = false on first insert")
	}
	if !d.Contains("a") {
		t.Fatal("Contains(a) = false after Add")
	}
	d.Add("b")
	d.Add("c") // evicts "a" (LRU, capacity 2)
	if d.Contains("a") {
		t.Fatal("Contains(a) = true after eviction")
	}
	if !d.Contains("b") || !d.Contains("c") {
		t.Fatal("expected b and c to remain")
	}
}

func TestDedupeLRU_Rebuild(t *testing.T) {
	d := NewDedupeLRU(10)
	d.Rebuild([]string{"k1", "k2", ""})
	if !d.Contains("k1") || !d.Contains("k2") {
		t.Fatal("Rebuild did not restore keys")
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (empty key skipped)", d.Len())
	}
}
