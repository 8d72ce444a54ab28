package trie

import (
	"testing"
)

func TestTrie_SetValue_Get(t *testing.T) {
	tr := New[string]()

	if err := tr.SetValue("voice/onyx/wav", "host"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}
	if err := tr.SetValue("voice/fable/wav", "guest"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	if val, ok := tr.GetValue("voice/onyx/wav"); !ok || val != "host" {
		t.Errorf("GetValue(voice/onyx/wav) = %v, %v; want host, true", val, ok)
	}
	if val, ok := tr.GetValue("voice/fable/wav"); !ok || val != "guest" {
		t.Errorf("GetValue(voice/fable/wav) = %v, %v; want guest, true", val, ok)
	}

	// Non-existent path
	if _, ok := tr.GetValue("voice/echo/wav"); ok {
		t.Error("GetValue(voice/echo/wav) should return false")
	}
}

func TestTrie_SingleLevelWildcard(t *testing.T) {
	tr := New[string]()

	if err := tr.SetValue("voice/+/wav", "synth"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"voice/onyx/wav", "synth", true},
		{"voice/nova/wav", "synth", true},
		{"voice/abc/wav", "synth", true},
		{"voice/wav", "", false},          // Missing middle level
		{"voice/a/b/wav", "", false},      // Too many levels
		{"speech/onyx/wav", "", false},    // Wrong prefix
	}

	for _, tc := range tests {
		val, ok := tr.GetValue(tc.path)
		if ok != tc.wantOK {
			t.Errorf("GetValue(%q) ok = %v; want %v", tc.path, ok, tc.wantOK)
		}
		if ok && val != tc.want {
			t.Errorf("GetValue(%q) = %v; want %v", tc.path, val, tc.want)
		}
	}
}

func TestTrie_MultiLevelWildcard(t *testing.T) {
	tr := New[string]()

	if err := tr.SetValue("voice/#", "catchall"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	tests := []struct {
		path   string
		wantOK bool
	}{
		{"voice/onyx", true},
		{"voice/onyx/wav", true},
		{"voice/onyx/wav/24k", true},
		{"voice/a/b/c/d/e", true},
		{"speech/onyx", false}, // Wrong prefix
	}

	for _, tc := range tests {
		_, ok := tr.GetValue(tc.path)
		if ok != tc.wantOK {
			t.Errorf("GetValue(%q) ok = %v; want %v", tc.path, ok, tc.wantOK)
		}
	}
}

func TestTrie_MultiLevelWildcard_MustBeLast(t *testing.T) {
	tr := New[string]()

	err := tr.SetValue("voice/#/wav", "invalid")
	if err != ErrInvalidPattern {
		t.Errorf("SetValue with # not at end: got %v, want ErrInvalidPattern", err)
	}
}

func TestTrie_CombinedWildcards(t *testing.T) {
	tr := New[string]()

	if err := tr.SetValue("voice/+/format/#", "combined"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	tests := []struct {
		path   string
		wantOK bool
	}{
		{"voice/onyx/format/wav", true},
		{"voice/nova/format/mp3/vbr", true},
		{"voice/abc/format/a/b/c", true},
		{"voice/onyx/rate", false},          // Wrong after +
		{"voice/format/wav", false},         // Missing + level
		{"voice/a/b/format/wav", false},     // Too many levels before format
	}

	for _, tc := range tests {
		_, ok := tr.GetValue(tc.path)
		if ok != tc.wantOK {
			t.Errorf("GetValue(%q) ok = %v; want %v", tc.path, ok, tc.wantOK)
		}
	}
}

func TestTrie_MatchPriority(t *testing.T) {
	tr := New[string]()

	// Register in different order - exact should take priority
	tr.SetValue("voice/#", "catchall")
	tr.SetValue("voice/+/wav", "wildcard")
	tr.SetValue("voice/onyx/wav", "exact")

	val, ok := tr.GetValue("voice/onyx/wav")
	if !ok {
		t.Fatal("expected to match")
	}
	if val != "exact" {
		t.Errorf("GetValue = %q; want %q", val, "exact")
	}
}

func TestTrie_Match(t *testing.T) {
	tr := New[string]()

	tr.SetValue("voice/+/wav", "synth")

	route, val, ok := tr.Match("voice/onyx/wav")
	if !ok {
		t.Fatal("expected to match")
	}
	if route != "/voice/+/wav" {
		t.Errorf("Match route = %q; want /voice/+/wav", route)
	}
	if *val != "synth" {
		t.Errorf("Match value = %q; want synth", *val)
	}
}

func TestTrie_EmptyPath(t *testing.T) {
	tr := New[string]()

	if err := tr.SetValue("", "root"); err != nil {
		t.Fatalf("SetValue error: %v", err)
	}

	val, ok := tr.GetValue("")
	if !ok {
		t.Error("expected to match empty path")
	}
	if val != "root" {
		t.Errorf("GetValue = %q; want root", val)
	}
}

func TestTrie_Set_WithCallback(t *testing.T) {
	tr := New[int]()

	// First set
	err := tr.Set("counter", func(ptr *int, existed bool) error {
		if existed {
			t.Error("should not exist on first set")
		}
		*ptr = 1
		return nil
	})
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// Update existing
	err = tr.Set("counter", func(ptr *int, existed bool) error {
		if !existed {
			t.Error("should exist on second set")
		}
		*ptr = *ptr + 1
		return nil
	})
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}

	val, ok := tr.GetValue("counter")
	if !ok || val != 2 {
		t.Errorf("GetValue = %d, %v; want 2, true", val, ok)
	}
}

func TestTrie_Walk(t *testing.T) {
	tr := New[string]()

	tr.SetValue("a/b", "value1")
	tr.SetValue("a/c", "value2")
	tr.SetValue("d", "value3")

	count := 0
	tr.Walk(func(path string, value string, set bool) {
		if set {
			count++
		}
	})

	if count != 3 {
		t.Errorf("Walk counted %d set values; want 3", count)
	}
}

func TestTrie_Len(t *testing.T) {
	tr := New[string]()

	if tr.Len() != 0 {
		t.Errorf("empty trie Len = %d; want 0", tr.Len())
	}

	tr.SetValue("a", "1")
	tr.SetValue("b", "2")
	tr.SetValue("c/d", "3")

	if tr.Len() != 3 {
		t.Errorf("trie Len = %d; want 3", tr.Len())
	}
}

func TestTrie_String(t *testing.T) {
	tr := New[string]()

	tr.SetValue("a/b", "value1")
	tr.SetValue("a/+", "value2")
	tr.SetValue("a/#", "value3")

	str := tr.String()
	if str == "" {
		t.Error("String() should not be empty")
	}
	t.Logf("Trie structure:\n%s", str)
}

func TestTrie_StructValues(t *testing.T) {
	type Backend struct {
		Name string
	}

	tr := New[Backend]()

	tr.SetValue("voice/onyx", Backend{Name: "host"})
	tr.SetValue("voice/+", Backend{Name: "any"})

	if val, ok := tr.GetValue("voice/onyx"); !ok || val.Name != "host" {
		t.Errorf("GetValue(voice/onyx) = %v; want {Name: host}", val)
	}
	if val, ok := tr.GetValue("voice/echo"); !ok || val.Name != "any" {
		t.Errorf("GetValue(voice/echo) = %v; want {Name: any}", val)
	}
}

func TestTrie_TrailingSlash(t *testing.T) {
	tr := New[string]()

	tr.SetValue("a/b/", "value1")

	// Should match without trailing slash
	val, ok := tr.GetValue("a/b")
	if !ok {
		t.Error("expected to match path without trailing slash")
	}
	if val != "value1" {
		t.Errorf("GetValue = %q; want value1", val)
	}
}

func TestTrie_DoubleSlash(t *testing.T) {
	tr := New[string]()

	// Double slash creates empty segment
	tr.SetValue("a//b", "value1")

	val, ok := tr.GetValue("a//b")
	if !ok {
		t.Error("expected to match path with empty segment")
	}
	if val != "value1" {
		t.Errorf("GetValue = %q; want value1", val)
	}
}
