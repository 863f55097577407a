package fstindex

import (
	"testing"

	"github.com/opengloss/ogls/pkg/model"
)

func buildFixtureMap(t *testing.T) *Map {
	t.Helper()
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	pairs := []struct {
		surface string
		id      model.LexemeID
	}{
		{"café", 8},
		{"canine", 5},
		{"cat", 0},
		{"dog", 1},
		{"feline", 4},
		{"hound", 6},
		{"kitten", 3},
		{"kittens", 3},
		{"mammal", 2},
		{"the", 7},
	}
	for _, p := range pairs {
		if err := b.Insert(p.surface, p.id); err != nil {
			t.Fatalf("Insert(%q): %v", p.surface, err)
		}
	}
	blob, err := b.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	m, err := Load(blob)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestGetExactMatch(t *testing.T) {
	m := buildFixtureMap(t)
	id, ok, err := m.Get("cat")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || id != 0 {
		t.Fatalf("Get(cat) = (%d, %v), want (0, true)", id, ok)
	}
}

func TestGetMissingSurfaceForm(t *testing.T) {
	m := buildFixtureMap(t)
	_, ok, err := m.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get(nonexistent) unexpectedly found")
	}
}

func TestManyToOneMapping(t *testing.T) {
	m := buildFixtureMap(t)
	kitten, ok, err := m.Get("kitten")
	if err != nil || !ok {
		t.Fatalf("Get(kitten): ok=%v err=%v", ok, err)
	}
	kittens, ok, err := m.Get("kittens")
	if err != nil || !ok {
		t.Fatalf("Get(kittens): ok=%v err=%v", ok, err)
	}
	if kitten != kittens {
		t.Fatalf("expected kitten and kittens to share a LexemeID, got %d and %d", kitten, kittens)
	}
}

func TestStreamPrefix(t *testing.T) {
	m := buildFixtureMap(t)
	var got []string
	if err := m.Stream("ca", func(h Hit) bool {
		got = append(got, h.Surface)
		return true
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []string{"café", "canine", "cat"}
	if len(got) != len(want) {
		t.Fatalf("Stream(ca) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Stream(ca)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStreamPrefixRespectsEarlyStop(t *testing.T) {
	m := buildFixtureMap(t)
	var got []string
	if err := m.Stream("", func(h Hit) bool {
		got = append(got, h.Surface)
		return len(got) < 2
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected Stream to stop after 2 hits, got %d", len(got))
	}
}

func TestStreamNoMatchingPrefix(t *testing.T) {
	m := buildFixtureMap(t)
	var got []string
	if err := m.Stream("zz", func(h Hit) bool {
		got = append(got, h.Surface)
		return true
	}); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no hits for prefix zz, got %v", got)
	}
}

func TestLenCountsDistinctKeys(t *testing.T) {
	m := buildFixtureMap(t)
	if got := m.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}
}
