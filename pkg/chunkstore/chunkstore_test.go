package chunkstore

import (
	"fmt"
	"testing"

	"github.com/opengloss/ogls/pkg/model"
)

func TestBuilderAddAssignsSequentialIDs(t *testing.T) {
	b := NewBuilder(3)
	ids := make([]uint32, 0, 3)
	for _, s := range []string{"first chunk of prose", "second chunk", "third, longer chunk of text"} {
		ids = append(ids, b.Add(s))
	}
	for i, id := range ids {
		if int(id) != i {
			t.Fatalf("expected sequential id %d, got %d", i, id)
		}
	}
	if b.Len() != 3 {
		t.Fatalf("expected Len()=3, got %d", b.Len())
	}
}

func TestOpenResolveRoundTrip(t *testing.T) {
	b := NewBuilder(3)
	want := []string{
		"A café is a type of restaurant serving coffee and light meals.",
		"Cats are small domesticated carnivorous mammals.",
		"",
	}
	ids := make([]uint32, len(want))
	for i, s := range want {
		ids[i] = b.Add(s)
	}
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	store, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i, s := range want {
		got, err := store.Resolve(model.ChunkID(ids[i]))
		if err != nil {
			t.Fatalf("Resolve(%d): %v", ids[i], err)
		}
		if got != s {
			t.Fatalf("Resolve(%d) = %q, want %q", ids[i], got, s)
		}
	}
}

func TestResolveOutOfRangeErrors(t *testing.T) {
	b := NewBuilder(3)
	b.Add("only chunk")
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	store, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Resolve(model.ChunkID(42)); err == nil {
		t.Fatal("expected error resolving out-of-range ChunkID")
	}
}

func TestConcurrentResolveDistinctChunks(t *testing.T) {
	b := NewBuilder(3)
	want := []string{"alpha prose", "beta prose", "gamma prose", "delta prose"}
	ids := make([]uint32, len(want))
	for i, s := range want {
		ids[i] = b.Add(s)
	}
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	store, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, len(want))
	for i := range want {
		i := i
		go func() {
			got, err := store.Resolve(model.ChunkID(ids[i]))
			if err != nil {
				done <- err
				return
			}
			if got != want[i] {
				done <- fmt.Errorf("Resolve(%d) = %q, want %q", ids[i], got, want[i])
				return
			}
			done <- nil
		}()
	}
	for range want {
		if err := <-done; err != nil {
			t.Fatalf("concurrent resolve: %v", err)
		}
	}
}
