// Package scanner implements the Substring Scanner (spec.md §4.6): a linear
// scan over every surface form in the FST, filtered by case-folded
// substring containment, results cached per (query, limit).
package scanner

import (
	"fmt"
	"strings"

	lru "github.com/golang/groupcache/lru"

	"github.com/opengloss/ogls/internal/utils"
	"github.com/opengloss/ogls/pkg/fstindex"
	"github.com/opengloss/ogls/pkg/model"
)

// DefaultCacheSize matches original_source's SUBSTRING_CACHE size.
const DefaultCacheSize = 64

// Hit pairs a surface form with its LexemeID.
type Hit struct {
	Surface string
	ID      model.LexemeID
}

// Scanner filters fst keys by substring match, with an optional bounded
// LRU cache keyed by (query, limit).
type Scanner struct {
	fst   *fstindex.Map
	cache *lru.Cache // nil-safe: lru.Cache works with MaxEntries 0 meaning unbounded, so we special-case 0 ourselves
}

// New creates a Scanner over fst with the given cache capacity. cacheSize 0
// disables caching — every call is a miss, never an error, per spec.md
// §4.6.
func New(fst *fstindex.Map, cacheSize int) *Scanner {
	s := &Scanner{fst: fst}
	if cacheSize > 0 {
		s.cache = lru.New(cacheSize)
	}
	return s
}

// Search returns every surface form containing q (case-insensitively),
// truncated to limit (0 means unlimited).
func (s *Scanner) Search(q string, limit int) ([]Hit, error) {
	if q == "" {
		return nil, nil
	}
	key := fmt.Sprintf("%s\x00%d", q, limit)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.([]Hit), nil
		}
	}

	// FST keys are already stored NFC+lowercased (spec.md §3 invariant 1),
	// so a folded query needs a plain byte-wise Contains against them.
	folded := utils.NormalizeSurface(q)
	var hits []Hit
	err := s.fst.All(func(h fstindex.Hit) bool {
		if strings.Contains(h.Surface, folded) {
			hits = append(hits, Hit{Surface: h.Surface, ID: h.ID})
		}
		return limit <= 0 || len(hits) < limit
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	if s.cache != nil {
		s.cache.Add(key, hits)
	}
	return hits, nil
}
