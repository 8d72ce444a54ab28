package completion

import (
	"fmt"
	"testing"
)

func TestExchangeRingEvictsOldest(t *testing.T) {
	r := newExchangeRing(3)
	for i := 0; i < 5; i++ {
		r.Append(Exchange{Role: RoleUser, Text: fmt.Sprintf("m%d", i)})
	}
	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	snap := r.Snapshot()
	want := []string{"m2", "m3", "m4"}
	for i, w := range want {
		if snap[i].Text != w {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, snap[i].Text, w)
		}
	}
}

func TestExchangeRingReplace(t *testing.T) {
	r := newExchangeRing(3)
	r.Append(Exchange{Role: RoleUser, Text: "old"})

	var es []Exchange
	for i := 0; i < 7; i++ {
		es = append(es, Exchange{Role: RoleUser, Text: fmt.Sprintf("n%d", i)})
	}
	r.Replace(es)

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Len() = %d, want 3", len(snap))
	}
	want := []string{"n4", "n5", "n6"}
	for i, w := range want {
		if snap[i].Text != w {
			t.Errorf("Snapshot()[%d] = %q, want %q", i, snap[i].Text, w)
		}
	}
}

func TestExchangeRingAt(t *testing.T) {
	r := newExchangeRing(10)
	r.Append(Exchange{Role: RoleUser, Text: "q1"})
	r.Append(Exchange{Role: RoleAssistant, Text: "a1"})
	r.Append(Exchange{Role: RoleUser, Text: "q2"})
	r.Append(Exchange{Role: RoleAssistant, Text: "a2"})

	tests := []struct {
		role   Role
		offset int
		want   string
		ok     bool
	}{
		{RoleAssistant, 0, "a2", true},
		{RoleAssistant, 1, "a1", true},
		{RoleAssistant, 2, "", false},
		{RoleUser, 0, "q2", true},
		{RoleUser, 1, "q1", true},
		{RoleAssistant, -1, "", false},
	}
	for _, tt := range tests {
		e, ok := r.At(tt.role, tt.offset)
		if ok != tt.ok || e.Text != tt.want {
			t.Errorf("At(%s, %d) = (%q, %v), want (%q, %v)", tt.role, tt.offset, e.Text, ok, tt.want, tt.ok)
		}
	}
}

func TestExchangeRingEmpty(t *testing.T) {
	r := newExchangeRing(4)
	if got := r.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	if snap := r.Snapshot(); len(snap) != 0 {
		t.Fatalf("Snapshot() = %v, want empty", snap)
	}
	if _, ok := r.At(RoleAssistant, 0); ok {
		t.Fatal("At on empty ring reported ok")
	}
}
