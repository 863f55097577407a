// Package archive implements the Entry Archive (spec.md §4.4): the packed
// record store addressable by LexemeID in O(1), plus the loader contract
// for the single embedded "opengloss_data.archive.zst" blob that also
// carries the String Arena and Chunk Store sub-regions (SPEC_FULL.md §5.4).
package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/opengloss/ogls/pkg/arena"
	"github.com/opengloss/ogls/pkg/chunkstore"
	"github.com/opengloss/ogls/pkg/model"
	"github.com/opengloss/ogls/pkg/ogerr"
)

// Magic is the 8-byte header magic required by spec.md §6:
// "OGLS\0\0\0\1".
var Magic = [8]byte{'O', 'G', 'L', 'S', 0, 0, 0, 1}

// Version is the current archive format version.
const Version = 1

// HeaderSize is the fixed byte length of the archive header.
const HeaderSize = 8 + 4 + 4 + 8 + 8 + 8

// Header mirrors spec.md §6's layout exactly, all fields little-endian.
type Header struct {
	Magic               [8]byte
	Version             uint32
	NLexemes            uint32
	OffsetsTableOffset  uint64
	ArenaOffset         uint64
	ChunkOffset         uint64
}

// Options tunes the Arena/Chunk Store inflation caches.
type Options struct {
	ArenaCacheBytes int64
	ChunkCacheBytes int64
}

// Archive is the loaded, validated Entry Archive plus its Arena and Chunk
// Store sub-components.
type Archive struct {
	header  Header
	entries []byte // entries region, offsets relative to this slice
	offsets []uint64
	arena   *arena.Arena
	chunks  *chunkstore.Store
}

// Load decompresses the outer Zstd layer, validates the header, and opens
// the Arena/Chunk Store sub-regions. Any structural problem is reported as
// ogerr.ErrCorpusCorrupt, refusing construction per spec.md §7.
func Load(compressed []byte, opts Options) (*Archive, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("archive: building decoder: %w", err)
	}
	defer dec.Close()

	buf, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: decompressing archive: %w", ogerr.ErrCorpusCorrupt)
	}
	return parse(buf, opts)
}

func parse(buf []byte, opts Options) (*Archive, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("archive: buffer shorter than header: %w", ogerr.ErrCorpusCorrupt)
	}
	var h Header
	copy(h.Magic[:], buf[0:8])
	if h.Magic != Magic {
		return nil, fmt.Errorf("archive: bad magic %q: %w", h.Magic, ogerr.ErrCorpusCorrupt)
	}
	h.Version = binary.LittleEndian.Uint32(buf[8:12])
	if h.Version != Version {
		return nil, fmt.Errorf("archive: version %d unsupported: %w", h.Version, ogerr.ErrCorpusCorrupt)
	}
	h.NLexemes = binary.LittleEndian.Uint32(buf[12:16])
	h.OffsetsTableOffset = binary.LittleEndian.Uint64(buf[16:24])
	h.ArenaOffset = binary.LittleEndian.Uint64(buf[24:32])
	h.ChunkOffset = binary.LittleEndian.Uint64(buf[32:40])

	if h.OffsetsTableOffset > uint64(len(buf)) || h.ArenaOffset > uint64(len(buf)) || h.ChunkOffset > uint64(len(buf)) {
		return nil, fmt.Errorf("archive: region offset out of bounds: %w", ogerr.ErrCorpusCorrupt)
	}
	if !(HeaderSize <= h.OffsetsTableOffset && h.OffsetsTableOffset <= h.ArenaOffset && h.ArenaOffset <= h.ChunkOffset) {
		return nil, fmt.Errorf("archive: region offsets out of order: %w", ogerr.ErrCorpusCorrupt)
	}

	entries := buf[HeaderSize:h.OffsetsTableOffset]

	offsetsRegion := buf[h.OffsetsTableOffset:h.ArenaOffset]
	if uint64(len(offsetsRegion)) < uint64(h.NLexemes)*8 {
		return nil, fmt.Errorf("archive: offsets table truncated: %w", ogerr.ErrCorpusCorrupt)
	}
	offsets := make([]uint64, h.NLexemes)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(offsetsRegion[i*8 : i*8+8])
	}

	arenaBlob := buf[h.ArenaOffset:h.ChunkOffset]
	a, err := arena.Open(arenaBlob, opts.ArenaCacheBytes)
	if err != nil {
		return nil, err
	}

	chunkBlob := buf[h.ChunkOffset:]
	cs, err := chunkstore.Open(chunkBlob, opts.ChunkCacheBytes)
	if err != nil {
		return nil, err
	}

	return &Archive{
		header:  h,
		entries: entries,
		offsets: offsets,
		arena:   a,
		chunks:  cs,
	}, nil
}

// NumLexemes reports N, the number of dense lexeme ids in the archive.
func (a *Archive) NumLexemes() int { return int(a.header.NLexemes) }

// Entry decodes and returns the record for id, an O(1) lookup via the
// offsets table per spec.md §3 invariant 5.
func (a *Archive) Entry(id model.LexemeID) (*model.Entry, error) {
	idx := int(id)
	if idx < 0 || idx >= len(a.offsets) {
		return nil, fmt.Errorf("archive: LexemeID %d out of range", id)
	}
	start := a.offsets[idx]
	if start > uint64(len(a.entries)) {
		return nil, fmt.Errorf("archive: entry %d offset out of bounds: %w", id, ogerr.ErrCorpusCorrupt)
	}
	entry, _, err := decodeEntry(a.entries[start:])
	if err != nil {
		return nil, fmt.Errorf("archive: decoding entry %d: %w", id, err)
	}
	return entry, nil
}

// ResolveString resolves a StrID through the Arena.
func (a *Archive) ResolveString(id model.StrID) (string, error) {
	return a.arena.Resolve(id)
}

// ResolveChunk resolves a ChunkID through the Chunk Store.
func (a *Archive) ResolveChunk(id model.ChunkID) (string, error) {
	return a.chunks.Resolve(id)
}
