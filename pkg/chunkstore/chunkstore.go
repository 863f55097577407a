// Package chunkstore implements the Chunk Store (spec.md §4.3): long prose
// (entry bodies, encyclopedia articles) held as independently compressed
// chunks addressed by ChunkID, inflated on demand into a bounded,
// refcount-pinned LRU cache. Same coherence discipline as pkg/arena, just
// one frame per chunk since chunks are already large prose units.
package chunkstore

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

var log = logger.Default("chunkstore")

// DefaultCacheBytes is the recommended minimum cache ceiling from spec.md
// §4.3.
const DefaultCacheBytes = 32 << 20

type chunkSlot struct {
	byteOffset uint32
	compLen    uint32
	rawLen     uint32
}

// Store resolves ChunkID to inflated UTF-8 text.
type Store struct {
	chunks []chunkSlot
	raw    []byte

	budget int64

	mu         sync.Mutex
	used       int64
	clock      int64
	cached     map[uint32]*cachedChunk
	accessTime map[uint32]int64
	sf         singleflight.Group
	dec        *zstd.Decoder
}

type cachedChunk struct {
	data     []byte
	refcount int32
}

// Open parses a Chunk Store sub-blob with the given cache byte budget.
func Open(blob []byte, cacheBudget int64) (*Store, error) {
	if cacheBudget <= 0 {
		cacheBudget = DefaultCacheBytes
	}
	if len(blob) < 4 {
		return nil, fmt.Errorf("chunkstore: blob too short: %w", ogerr.ErrCorpusCorrupt)
	}
	numChunks := binary.LittleEndian.Uint32(blob[0:4])
	off := 4

	slots := make([]chunkSlot, numChunks)
	for i := range slots {
		if off+16 > len(blob) {
			return nil, fmt.Errorf("chunkstore: table truncated: %w", ogerr.ErrCorpusCorrupt)
		}
		slots[i] = chunkSlot{
			byteOffset: binary.LittleEndian.Uint32(blob[off : off+4]),
			compLen:    binary.LittleEndian.Uint32(blob[off+4 : off+8]),
			rawLen:     binary.LittleEndian.Uint32(blob[off+8 : off+12]),
		}
		off += 16
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: building decoder: %w", err)
	}

	return &Store{
		chunks:     slots,
		raw:        blob[off:],
		budget:     cacheBudget,
		cached:     make(map[uint32]*cachedChunk),
		accessTime: make(map[uint32]int64),
		dec:        dec,
	}, nil
}

// Resolve returns a copy of the inflated chunk text for id.
func (s *Store) Resolve(id model.ChunkID) (string, error) {
	idx := int(id)
	if idx < 0 || idx >= len(s.chunks) {
		return "", fmt.Errorf("chunkstore: ChunkID %d out of range", id)
	}
	cc, err := s.pin(uint32(idx))
	if err != nil {
		return "", err
	}
	defer s.unpin(uint32(idx))
	return string(cc.data), nil
}

func (s *Store) pin(id uint32) (*cachedChunk, error) {
	s.mu.Lock()
	if cc, ok := s.cached[id]; ok {
		atomic.AddInt32(&cc.refcount, 1)
		s.clock++
		s.accessTime[id] = s.clock
		s.mu.Unlock()
		return cc, nil
	}
	s.mu.Unlock()

	v, err, _ := s.sf.Do(fmt.Sprintf("%d", id), func() (any, error) {
		return s.inflate(id)
	})
	if err != nil {
		return nil, err
	}
	cc := v.(*cachedChunk)

	s.mu.Lock()
	if existing, ok := s.cached[id]; ok {
		atomic.AddInt32(&existing.refcount, 1)
		s.clock++
		s.accessTime[id] = s.clock
		s.mu.Unlock()
		return existing, nil
	}
	atomic.AddInt32(&cc.refcount, 1)
	s.cached[id] = cc
	s.used += int64(len(cc.data))
	s.clock++
	s.accessTime[id] = s.clock
	s.evictIfNeeded()
	s.mu.Unlock()
	return cc, nil
}

func (s *Store) unpin(id uint32) {
	s.mu.Lock()
	if cc, ok := s.cached[id]; ok {
		atomic.AddInt32(&cc.refcount, -1)
	}
	s.mu.Unlock()
}

func (s *Store) inflate(id uint32) (*cachedChunk, error) {
	slot := s.chunks[id]
	if int(slot.byteOffset+slot.compLen) > len(s.raw) {
		return nil, fmt.Errorf("chunkstore: chunk %d exceeds blob bounds: %w", id, ogerr.ErrCorpusCorrupt)
	}
	compressed := s.raw[slot.byteOffset : slot.byteOffset+slot.compLen]
	raw, err := s.dec.DecodeAll(compressed, make([]byte, 0, slot.rawLen))
	if err != nil {
		return nil, fmt.Errorf("chunkstore: inflating chunk %d: %w", id, ogerr.ErrCorpusCorrupt)
	}
	return &cachedChunk{data: raw}, nil
}

func (s *Store) evictIfNeeded() {
	for s.used > s.budget {
		var victim uint32
		var victimTime int64 = -1
		found := false
		for id, cc := range s.cached {
			if atomic.LoadInt32(&cc.refcount) != 0 {
				continue
			}
			t := s.accessTime[id]
			if !found || t < victimTime {
				victim = id
				victimTime = t
				found = true
			}
		}
		if !found {
			return
		}
		cc := s.cached[victim]
		s.used -= int64(len(cc.data))
		delete(s.cached, victim)
		delete(s.accessTime, victim)
		log.Debugf("evicted chunk %d (%d bytes)", victim, len(cc.data))
	}
}

// NumChunks reports the chunk table's size.
func (s *Store) NumChunks() int { return len(s.chunks) }
