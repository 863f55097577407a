// Package index implements the public contract of the embedded query
// engine (spec.md §4.1): Index is the "logical handle" whose construction
// performs the one-time inflate, after which Get/Prefix/SearchContains/
// SearchFuzzy*/EntryByWord/EntryByID/TraverseGraph/Typeahead are pure
// functions of (Index, inputs).
package index

import (
	"context"
	"fmt"
	"os"

	"github.com/opengloss/ogls/internal/config"
	"github.com/opengloss/ogls/internal/logger"
	"github.com/opengloss/ogls/internal/utils"
	"github.com/opengloss/ogls/pkg/archive"
	"github.com/opengloss/ogls/pkg/fstindex"
	"github.com/opengloss/ogls/pkg/graph"
	"github.com/opengloss/ogls/pkg/model"
	"github.com/opengloss/ogls/pkg/ogerr"
	"github.com/opengloss/ogls/pkg/ranker"
	"github.com/opengloss/ogls/pkg/scanner"
)

var log = logger.Default("index")

// Index is the engine's logical handle: an inflated archive plus its FST,
// scanner, ranker, and graph walker, immutable after construction per
// spec.md §5.
type Index struct {
	fst     *fstindex.Map
	archive *archive.Archive
	scanner *scanner.Scanner
	ranker  *ranker.Ranker
	walker  *graph.Walker
	cfg     *config.Config
}

// Open reads the FST and archive blobs from disk and constructs an Index,
// performing the one-time inflate described in spec.md §4.4's loader
// contract. Any structural problem surfaces as ogerr.ErrCorpusCorrupt.
func Open(archivePath, fstPath string, cfg *config.Config) (*Index, error) {
	fstBytes, err := os.ReadFile(fstPath)
	if err != nil {
		return nil, fmt.Errorf("index: reading fst %s: %w", fstPath, err)
	}
	archiveBytes, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("index: reading archive %s: %w", archivePath, err)
	}
	return OpenEmbedded(archiveBytes, fstBytes, cfg)
}

// OpenEmbedded constructs an Index from already-loaded blob bytes — the
// shape a //go:embed-backed caller uses. pkg/index deliberately doesn't
// carry its own go:embed directive (that would tie the engine to one
// specific corpus build); see DESIGN.md for the rationale. A host that
// embeds the two blobs itself calls this; cmd/oglsctl reads them from disk
// through Open instead.
func OpenEmbedded(archiveBytes, fstBytes []byte, cfg *config.Config) (*Index, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	fst, err := fstindex.Load(fstBytes)
	if err != nil {
		return nil, fmt.Errorf("index: loading fst: %w", ogerr.ErrCorpusCorrupt)
	}
	arc, err := archive.Load(archiveBytes, archive.Options{
		ArenaCacheBytes: cfg.Arena.CacheBytes,
		ChunkCacheBytes: cfg.Chunks.CacheBytes,
	})
	if err != nil {
		return nil, err
	}

	idx := &Index{
		fst:     fst,
		archive: arc,
		scanner: scanner.New(fst, cfg.Scanner.CacheSize),
		ranker:  ranker.New(arc, cfg.Ranker.CacheSize),
		walker:  graph.New(arc),
		cfg:     cfg,
	}
	log.Infof("index ready: %d lexemes", arc.NumLexemes())
	return idx, nil
}

// Get performs an exact, case-insensitive lookup, returning every
// LexemeID whose canonical form equals the normalized query (typically 0
// or 1, per spec.md §4.1). An empty word degrades to an empty result
// rather than ogerr.ErrInvalidArgument, following original_source/src/
// lib.rs's search_contains/search_fuzzy_with_stats precedent of treating
// a blank query as "no results" rather than a refused call — see
// DESIGN.md's Open Question on empty-query handling.
func (idx *Index) Get(word string) ([]model.LexemeID, error) {
	if word == "" {
		return nil, nil
	}
	id, ok, err := idx.fst.Get(utils.NormalizeSurface(word))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []model.LexemeID{id}, nil
}

// PrefixHit pairs a surface form with its LexemeID, the shape Prefix and
// SearchContains both return.
type PrefixHit struct {
	Surface string
	ID      model.LexemeID
}

// resolveLimit substitutes def for the caller's "use the default" sentinel
// (limit == 0) and refuses a negative limit outright — spec.md §7's "limit
// out of range" InvalidArgument trigger. Unlike the empty-query case (which
// original_source/src/lib.rs silently degrades to an empty result, a
// precedent this module follows per DESIGN.md's Open Question on the
// matter), the original has no "out of range limit" concept to defer to:
// its `limit.max(1)` clamp only guards against a caller-supplied zero, so
// there is nothing stopping this module from refusing a genuinely
// malformed negative limit instead of silently clamping it too.
func resolveLimit(limit, def int) (int, error) {
	if limit < 0 {
		return 0, fmt.Errorf("index: limit %d out of range: %w", limit, ogerr.ErrInvalidArgument)
	}
	if limit == 0 {
		return def, nil
	}
	return limit, nil
}

// DefaultPrefixLimit is spec.md §4.1's default for Prefix.
const DefaultPrefixLimit = 10

// Prefix returns every surface form with prefix p, in FST byte order,
// truncated to limit (0 uses DefaultPrefixLimit).
func (idx *Index) Prefix(p string, limit int) ([]PrefixHit, error) {
	limit, err := resolveLimit(limit, DefaultPrefixLimit)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, nil
	}
	normalized := utils.NormalizeSurface(p)
	var hits []PrefixHit
	err = idx.fst.Stream(normalized, func(h fstindex.Hit) bool {
		hits = append(hits, PrefixHit{Surface: h.Surface, ID: h.ID})
		return len(hits) < limit
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// DefaultSubstringLimit bounds SearchContains when the caller passes 0.
const DefaultSubstringLimit = 25

// SearchContains returns every surface form containing q as a
// case-insensitive substring, truncated to limit.
func (idx *Index) SearchContains(q string, limit int) ([]PrefixHit, error) {
	limit, err := resolveLimit(limit, DefaultSubstringLimit)
	if err != nil {
		return nil, err
	}
	hits, err := idx.scanner.Search(q, limit)
	if err != nil {
		return nil, err
	}
	out := make([]PrefixHit, len(hits))
	for i, h := range hits {
		out[i] = PrefixHit{Surface: h.Surface, ID: h.ID}
	}
	return out, nil
}

// RankerConfig re-exports ranker.Config so callers don't need to import
// pkg/ranker directly for the common case.
type RankerConfig = ranker.Config

// ScoredHit re-exports ranker.ScoredHit.
type ScoredHit = ranker.ScoredHit

// FuzzyStats re-exports ranker.Stats.
type FuzzyStats = ranker.Stats

// DefaultRankerConfig returns this Index's configured ranker defaults.
func (idx *Index) DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		WeightWord:         idx.cfg.Ranker.WeightWord,
		WeightDefinitions:  idx.cfg.Ranker.WeightDefinitions,
		WeightSynonyms:     idx.cfg.Ranker.WeightSynonyms,
		WeightEntryText:    idx.cfg.Ranker.WeightEntryText,
		WeightEncyclopedia: idx.cfg.Ranker.WeightEncyclopedia,
		MinScore:           idx.cfg.Ranker.MinScore,
		Limit:              idx.cfg.Ranker.DefaultLimit,
	}
}

// SearchFuzzy performs a weighted fuzzy search across cfg's configured
// fields.
func (idx *Index) SearchFuzzy(ctx context.Context, q string, cfg RankerConfig) ([]ScoredHit, error) {
	limit, err := resolveLimit(cfg.Limit, ranker.DefaultConfig().Limit)
	if err != nil {
		return nil, err
	}
	cfg.Limit = limit
	return idx.ranker.SearchFuzzy(ctx, q, cfg)
}

// SearchFuzzyWithStats is SearchFuzzy plus per-field contributions, a
// cache-hit flag and an inflated-chunk count.
func (idx *Index) SearchFuzzyWithStats(ctx context.Context, q string, cfg RankerConfig) ([]ScoredHit, FuzzyStats, error) {
	limit, err := resolveLimit(cfg.Limit, ranker.DefaultConfig().Limit)
	if err != nil {
		return nil, FuzzyStats{}, err
	}
	cfg.Limit = limit
	return idx.ranker.SearchFuzzyWithStats(ctx, q, cfg)
}

// EntryByID resolves the full record for id.
func (idx *Index) EntryByID(id model.LexemeID) (*model.Entry, error) {
	return idx.archive.Entry(id)
}

// EntryByWord resolves w to its LexemeID then its full record. Returns a
// nil entry (not an error) when w has no exact match, per spec.md §7's
// "NotFound is a value" policy.
func (idx *Index) EntryByWord(w string) (*model.Entry, error) {
	ids, err := idx.Get(w)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return idx.EntryByID(ids[0])
}

// ResolveString resolves a StrID through the archive's String Arena.
func (idx *Index) ResolveString(id model.StrID) (string, error) {
	return idx.archive.ResolveString(id)
}

// ResolveChunk resolves a ChunkID through the archive's Chunk Store.
func (idx *Index) ResolveChunk(id model.ChunkID) (string, error) {
	return idx.archive.ResolveChunk(id)
}

// GraphConfig re-exports graph.Config.
type GraphConfig = graph.Config

// GraphTraversal re-exports graph.Traversal.
type GraphTraversal = graph.Traversal

// TraverseGraph runs a bounded BFS starting at start.
func (idx *Index) TraverseGraph(ctx context.Context, start model.LexemeID, cfg GraphConfig) (*GraphTraversal, error) {
	return idx.walker.Traverse(ctx, start, cfg)
}

// DefaultTypeaheadLimit is the limit Typeahead uses when the caller
// passes 0.
const DefaultTypeaheadLimit = 10

// Typeahead implements spec.md §4.1's UI-facing combinator: prefix match,
// falling back to a substring top-up when the query has "finished" a
// word (per SPEC_FULL.md §5.1/Open Question 2's golden-test pinning:
// length >= 3 or a trailing word-boundary character) and the prefix pass
// came up short of limit.
func (idx *Index) Typeahead(q string, limit int) ([]PrefixHit, error) {
	limit, err := resolveLimit(limit, DefaultTypeaheadLimit)
	if err != nil {
		return nil, err
	}
	if q == "" {
		return nil, nil
	}

	prefixHits, err := idx.Prefix(q, limit)
	if err != nil {
		return nil, err
	}
	if len(prefixHits) >= limit || !utils.EndsAtWordBoundary(q) {
		return prefixHits, nil
	}

	seen := utils.NewHitFilter()
	for _, h := range prefixHits {
		seen.ShouldInclude(h.Surface)
	}

	substringHits, err := idx.SearchContains(q, 0)
	if err != nil {
		return nil, err
	}
	out := prefixHits
	for _, h := range substringHits {
		if len(out) >= limit {
			break
		}
		if seen.ShouldInclude(h.Surface) {
			out = append(out, h)
		}
	}
	return out, nil
}

// NumLexemes reports N, the corpus size.
func (idx *Index) NumLexemes() int {
	return idx.archive.NumLexemes()
}
