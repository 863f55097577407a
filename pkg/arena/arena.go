// Package arena implements the String Arena (spec.md §4.2): a single region
// holding every short interned string (surface forms, relation labels,
// part-of-speech tags) as independently inflatable Zstd frames, resolved by
// StrID through a bounded, refcount-pinned LRU cache.
//
// Grounded on the teacher's pkg/suggest/cache.go HotCache (access-time map
// plus evictLRU), generalized from a word-count ceiling to a decompressed-
// byte budget and extended with per-frame refcounting so an in-flight borrow
// can never be evicted out from under a reader.
package arena

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/opengloss/ogls/internal/logger"
	"github.com/opengloss/ogls/pkg/model"
	"github.com/opengloss/ogls/pkg/ogerr"
)

var log = logger.Default("arena")

// DefaultCacheBytes is the recommended minimum cache ceiling from spec.md
// §4.2.
const DefaultCacheBytes = 16 << 20

type stringSlot struct {
	frameID uint32
	offset  uint32
	length  uint32
}

type frameSlot struct {
	byteOffset uint32
	compLen    uint32
	rawLen     uint32
}

// Arena resolves StrID to a string, inflating the owning frame on demand.
type Arena struct {
	strings []stringSlot
	frames  []frameSlot
	raw     []byte // compressed-frames region, frames[i].byteOffset relative to raw[0]

	budget int64

	mu         sync.Mutex
	used       int64
	clock      int64
	cached     map[uint32]*cachedFrame
	accessTime map[uint32]int64
	sf         singleflight.Group
	dec        *zstd.Decoder
}

type cachedFrame struct {
	data     []byte
	refcount int32
}

// Open parses an Arena sub-blob (already sliced out of the outer decoded
// archive buffer by the caller) with the given cache byte budget.
func Open(blob []byte, cacheBudget int64) (*Arena, error) {
	if cacheBudget <= 0 {
		cacheBudget = DefaultCacheBytes
	}
	if len(blob) < 8 {
		return nil, fmt.Errorf("arena: blob too short: %w", ogerr.ErrCorpusCorrupt)
	}
	numStrings := binary.LittleEndian.Uint32(blob[0:4])
	numFrames := binary.LittleEndian.Uint32(blob[4:8])
	off := 8

	frames := make([]frameSlot, numFrames)
	for i := range frames {
		if off+16 > len(blob) {
			return nil, fmt.Errorf("arena: frame table truncated: %w", ogerr.ErrCorpusCorrupt)
		}
		frames[i] = frameSlot{
			byteOffset: binary.LittleEndian.Uint32(blob[off : off+4]),
			compLen:    binary.LittleEndian.Uint32(blob[off+4 : off+8]),
			rawLen:     binary.LittleEndian.Uint32(blob[off+8 : off+12]),
		}
		off += 16 // each frame entry is 16 bytes; the last 4 are reserved padding
	}

	strs := make([]stringSlot, numStrings)
	for i := range strs {
		if off+12 > len(blob) {
			return nil, fmt.Errorf("arena: string table truncated: %w", ogerr.ErrCorpusCorrupt)
		}
		strs[i] = stringSlot{
			frameID: binary.LittleEndian.Uint32(blob[off : off+4]),
			offset:  binary.LittleEndian.Uint32(blob[off+4 : off+8]),
			length:  binary.LittleEndian.Uint32(blob[off+8 : off+12]),
		}
		off += 12
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("arena: building decoder: %w", err)
	}

	return &Arena{
		strings:    strs,
		frames:     frames,
		raw:        blob[off:],
		budget:     cacheBudget,
		cached:     make(map[uint32]*cachedFrame),
		accessTime: make(map[uint32]int64),
		dec:        dec,
	}, nil
}

// Resolve returns a copy of the string identified by id. The returned
// string is caller-owned; it does not alias arena-internal buffers, so no
// borrow-lifetime tracking is needed on the caller's side.
func (a *Arena) Resolve(id model.StrID) (string, error) {
	idx := int(id)
	if idx < 0 || idx >= len(a.strings) {
		return "", fmt.Errorf("arena: StrID %d out of range", id)
	}
	slot := a.strings[idx]
	frame, err := a.pin(slot.frameID)
	if err != nil {
		return "", err
	}
	defer a.unpin(slot.frameID)
	if int(slot.offset+slot.length) > len(frame.data) {
		return "", fmt.Errorf("arena: string %d exceeds frame bounds: %w", id, ogerr.ErrCorpusCorrupt)
	}
	return string(frame.data[slot.offset : slot.offset+slot.length]), nil
}

func (a *Arena) pin(frameID uint32) (*cachedFrame, error) {
	a.mu.Lock()
	if cf, ok := a.cached[frameID]; ok {
		atomic.AddInt32(&cf.refcount, 1)
		a.clock++
		a.accessTime[frameID] = a.clock
		a.mu.Unlock()
		return cf, nil
	}
	a.mu.Unlock()

	v, err, _ := a.sf.Do(fmt.Sprintf("%d", frameID), func() (any, error) {
		return a.inflate(frameID)
	})
	if err != nil {
		return nil, err
	}
	cf := v.(*cachedFrame)

	a.mu.Lock()
	if existing, ok := a.cached[frameID]; ok {
		atomic.AddInt32(&existing.refcount, 1)
		a.clock++
		a.accessTime[frameID] = a.clock
		a.mu.Unlock()
		return existing, nil
	}
	atomic.AddInt32(&cf.refcount, 1)
	a.cached[frameID] = cf
	a.used += int64(len(cf.data))
	a.clock++
	a.accessTime[frameID] = a.clock
	a.evictIfNeeded()
	a.mu.Unlock()
	return cf, nil
}

func (a *Arena) unpin(frameID uint32) {
	a.mu.Lock()
	if cf, ok := a.cached[frameID]; ok {
		atomic.AddInt32(&cf.refcount, -1)
	}
	a.mu.Unlock()
}

func (a *Arena) inflate(frameID uint32) (*cachedFrame, error) {
	if int(frameID) >= len(a.frames) {
		return nil, fmt.Errorf("arena: frame %d out of range: %w", frameID, ogerr.ErrCorpusCorrupt)
	}
	fs := a.frames[frameID]
	if int(fs.byteOffset+fs.compLen) > len(a.raw) {
		return nil, fmt.Errorf("arena: frame %d exceeds blob bounds: %w", frameID, ogerr.ErrCorpusCorrupt)
	}
	compressed := a.raw[fs.byteOffset : fs.byteOffset+fs.compLen]
	raw, err := a.dec.DecodeAll(compressed, make([]byte, 0, fs.rawLen))
	if err != nil {
		return nil, fmt.Errorf("arena: inflating frame %d: %w", frameID, ogerr.ErrCorpusCorrupt)
	}
	return &cachedFrame{data: raw}, nil
}

// evictIfNeeded evicts the least-recently-used frame with zero outstanding
// borrows until usage fits the budget, or no evictable frame remains.
func (a *Arena) evictIfNeeded() {
	for a.used > a.budget {
		var victim uint32
		var victimTime int64 = -1
		found := false
		for id, cf := range a.cached {
			if atomic.LoadInt32(&cf.refcount) != 0 {
				continue
			}
			t := a.accessTime[id]
			if !found || t < victimTime {
				victim = id
				victimTime = t
				found = true
			}
		}
		if !found {
			return
		}
		cf := a.cached[victim]
		a.used -= int64(len(cf.data))
		delete(a.cached, victim)
		delete(a.accessTime, victim)
		log.Debugf("evicted arena frame %d (%d bytes)", victim, len(cf.data))
	}
}

// NumStrings reports the string table's size, mostly useful for tests.
func (a *Arena) NumStrings() int { return len(a.strings) }
