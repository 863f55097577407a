package arena

import (
	"fmt"
	"testing"

	"github.com/opengloss/ogls/pkg/model"
)

func TestBuilderAddAssignsSequentialIDs(t *testing.T) {
	b := NewBuilder(0, 3)
	ids := make([]uint32, 0, 4)
	for _, s := range []string{"alpha", "beta", "gamma", "delta"} {
		ids = append(ids, b.Add(s))
	}
	for i, id := range ids {
		if int(id) != i {
			t.Fatalf("expected sequential id %d, got %d", i, id)
		}
	}
	if b.Len() != 4 {
		t.Fatalf("expected Len()=4, got %d", b.Len())
	}
}

func TestOpenResolveRoundTrip(t *testing.T) {
	b := NewBuilder(16, 3) // small frame size forces multiple frames
	want := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}
	ids := make([]uint32, len(want))
	for i, s := range want {
		ids[i] = b.Add(s)
	}
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for i, s := range want {
		got, err := a.Resolve(model.StrID(ids[i]))
		if err != nil {
			t.Fatalf("Resolve(%d): %v", ids[i], err)
		}
		if got != s {
			t.Fatalf("Resolve(%d) = %q, want %q", ids[i], got, s)
		}
	}
}

func TestResolveOutOfRangeErrors(t *testing.T) {
	b := NewBuilder(0, 3)
	b.Add("only")
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := a.Resolve(model.StrID(99)); err == nil {
		t.Fatal("expected error resolving out-of-range StrID")
	}
}

func TestConcurrentResolveOfSameFrame(t *testing.T) {
	b := NewBuilder(8, 3) // tiny frames so several strings share one frame
	want := []string{"one", "two", "three", "four", "five", "six"}
	ids := make([]uint32, len(want))
	for i, s := range want {
		ids[i] = b.Add(s)
	}
	blob, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, err := Open(blob, 1<<20)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := make(chan error, len(want))
	for i := range want {
		i := i
		go func() {
			got, err := a.Resolve(model.StrID(ids[i]))
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
