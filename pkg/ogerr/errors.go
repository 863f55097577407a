// Package ogerr holds the sentinel errors shared across the engine's
// packages, per spec.md §7's error-kind taxonomy. NotFound and
// CapacityExceeded are values, not errors, and have no sentinel here.
package ogerr

import "errors"

// ErrInvalidArgument is returned when a query is malformed: out-of-range
// limit, unknown relation kind, depth beyond the graph cap. An empty query
// is not refused with this error; the query operations return an empty
// result for it.
var ErrInvalidArgument = errors.New("ogls: invalid argument")

// ErrCorpusCorrupt is returned when the embedded archive fails to validate
// at construction time: bad magic, version mismatch, an offset out of
// bounds, or a decompression failure. Construction refuses to proceed.
var ErrCorpusCorrupt = errors.New("ogls: corpus corrupt")
