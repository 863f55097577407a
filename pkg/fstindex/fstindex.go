// Package fstindex implements the FST Map (spec.md §4.5): an immutable
// finite-state transducer over byte-sorted, NFC+lowercased surface forms,
// mapping to a dense LexemeID. Backed by github.com/blevesearch/vellum,
// built offline in strictly ascending key order and queried at runtime
// without deserialization.
package fstindex

import (
	"bytes"
	"errors"

	"github.com/blevesearch/vellum"

	"github.com/opengloss/ogls/pkg/model"
)

// Builder inserts (surface, LexemeID) pairs in strictly ascending byte
// order, as vellum.Builder itself requires — this enforces spec.md §3
// invariant 1 without extra bookkeeping in the build pipeline.
type Builder struct {
	buf     bytes.Buffer
	builder *vellum.Builder
}

// NewBuilder creates an FST builder.
func NewBuilder() (*Builder, error) {
	b := &Builder{}
	vb, err := vellum.New(&b.buf, nil)
	if err != nil {
		return nil, err
	}
	b.builder = vb
	return b, nil
}

// Insert adds one (surface, id) pair. surface must sort strictly after the
// previous key inserted; multiple surfaces may map to the same id (many-
// to-one per spec.md §3 invariant 2).
func (b *Builder) Insert(surface string, id model.LexemeID) error {
	return b.builder.Insert([]byte(surface), uint64(id))
}

// Close finalizes the builder and returns the serialized FST blob.
func (b *Builder) Close() ([]byte, error) {
	if err := b.builder.Close(); err != nil {
		return nil, err
	}
	return b.buf.Bytes(), nil
}

// Map is the runtime, read-only FST wrapper.
type Map struct {
	fst *vellum.FST
}

// Load parses a previously-built FST blob. The blob is held in memory as-is
// (vellum reads it without deserializing into a separate structure).
func Load(blob []byte) (*Map, error) {
	fst, err := vellum.Load(blob)
	if err != nil {
		return nil, err
	}
	return &Map{fst: fst}, nil
}

// Get performs an exact lookup of an already-normalized surface form.
func (m *Map) Get(surface string) (model.LexemeID, bool, error) {
	v, exists, err := m.fst.Get([]byte(surface))
	if err != nil {
		return 0, false, err
	}
	return model.LexemeID(v), exists, nil
}

// Hit pairs a surface form with the LexemeID an FST key resolved to.
type Hit struct {
	Surface string
	ID      model.LexemeID
}

// prefixUpperBound computes the exclusive upper bound for a "starts with
// prefix" range query, the standard vellum idiom since vellum has no
// built-in StartsWith automaton: increment the last non-0xFF byte and
// truncate, or return nil (unbounded) if prefix is all 0xFF.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xFF {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Stream visits every key with the given prefix in byte-lexicographic
// order, calling fn for each until fn returns false or the range is
// exhausted.
func (m *Map) Stream(prefix string, fn func(Hit) bool) error {
	start := []byte(prefix)
	end := prefixUpperBound(start)
	itr, err := m.fst.Iterator(start, end)
	if err != nil {
		if errors.Is(err, vellum.ErrIteratorDone) {
			return nil
		}
		return err
	}
	defer itr.Close()
	for {
		key, val := itr.Current()
		if !fn(Hit{Surface: string(key), ID: model.LexemeID(val)}) {
			return nil
		}
		if err := itr.Next(); err != nil {
			if errors.Is(err, vellum.ErrIteratorDone) {
				return nil
			}
			return err
		}
	}
}

// All visits every key in the FST in byte order.
func (m *Map) All(fn func(Hit) bool) error {
	itr, err := m.fst.Iterator(nil, nil)
	if err != nil {
		if errors.Is(err, vellum.ErrIteratorDone) {
			return nil
		}
		return err
	}
	defer itr.Close()
	for {
		key, val := itr.Current()
		if !fn(Hit{Surface: string(key), ID: model.LexemeID(val)}) {
			return nil
		}
		if err := itr.Next(); err != nil {
			if errors.Is(err, vellum.ErrIteratorDone) {
				return nil
			}
			return err
		}
	}
}

// Len reports the number of keys in the FST (for diagnostics/tests).
func (m *Map) Len() int {
	count := 0
	_ = m.All(func(Hit) bool { count++; return true })
	return count
}

// Close releases the FST's resources.
func (m *Map) Close() error {
	return m.fst.Close()
}
