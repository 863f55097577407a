// Package graph implements the Graph Walker (spec.md §4.8): a bounded BFS
// over pre-resolved relation edges, with depth/node/edge caps and relation
// filters.
//
// Grounded in original_source/src/lib.rs's traverse_graph (a VecDeque BFS
// over (id, depth, parent, via) tuples); the visited set is a
// github.com/RoaringBitmap/roaring/v2.Bitmap rather than a Rust HashSet,
// the concrete form spec.md §9's "compact bitset of size N, reset per
// call" design note asks for.
package graph

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/opengloss/ogls/pkg/model"
	"github.com/opengloss/ogls/pkg/ogerr"
)

// Corpus is the subset of archive.Archive the walker needs.
type Corpus interface {
	NumLexemes() int
	Entry(id model.LexemeID) (*model.Entry, error)
	ResolveString(id model.StrID) (string, error)
}

// Config bounds one traversal, mirroring original_source's GraphOptions.
// MaxNodes/MaxEdges of 0 mean unlimited, the Go idiom for the original's
// usize::MAX sentinel.
type Config struct {
	Depth     int
	MaxNodes  int
	MaxEdges  int
	Relations model.RelationSet
	NounOnly  bool
}

// NodeInfo is one visited node, carrying enough to render without a
// second lookup per spec.md §4.8.
type NodeInfo struct {
	LexemeID      model.LexemeID
	Word          string
	PartsOfSpeech []string
	Depth         int
	Parent        *model.LexemeID
	Via           *model.RelationKind
}

// Edge is one emitted relation edge.
type Edge struct {
	From model.LexemeID
	To   model.LexemeID
	Kind model.RelationKind
}

// Traversal is the result of a bounded BFS, matching original_source's
// GraphTraversal.
type Traversal struct {
	Root            model.LexemeID
	Nodes           []NodeInfo
	Edges           []Edge
	Truncated       bool
	MaxDepthReached int
}

// Walker runs bounded BFS walks over a Corpus.
type Walker struct {
	corpus Corpus
}

// New creates a Walker over corpus.
func New(corpus Corpus) *Walker {
	return &Walker{corpus: corpus}
}

type queueItem struct {
	id     model.LexemeID
	depth  int
	parent *model.LexemeID
	via    *model.RelationKind
}

// Traverse runs the bounded BFS described in spec.md §4.8, starting at
// start. depth=0 or no matching edges both legitimately yield a
// start-only, non-truncated result per spec.md §7.
func (w *Walker) Traverse(ctx context.Context, start model.LexemeID, cfg Config) (*Traversal, error) {
	if cfg.Depth < 0 || cfg.Depth > 8 {
		return nil, fmt.Errorf("graph: depth %d out of [0,8]: %w", cfg.Depth, ogerr.ErrInvalidArgument)
	}
	if _, err := w.corpus.Entry(start); err != nil {
		return nil, fmt.Errorf("graph: start lexeme %d: %w", start, err)
	}

	maxNodes := cfg.MaxNodes
	if maxNodes <= 0 {
		maxNodes = 1<<31 - 1
	}
	maxEdges := cfg.MaxEdges
	if maxEdges <= 0 {
		maxEdges = 1<<31 - 1
	}
	relations := cfg.Relations
	if relations == 0 {
		relations = model.RelAll
	}

	visited := roaring.New()
	visited.Add(uint32(start))

	queue := []queueItem{{id: start}}
	var nodes []NodeInfo
	var edges []Edge
	truncated := false
	maxDepthReached := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := queue[0]
		queue = queue[1:]

		if len(nodes) >= maxNodes {
			truncated = true
			break
		}
		entry, err := w.corpus.Entry(item.id)
		if err != nil {
			continue
		}
		word, err := w.corpus.ResolveString(entry.Word)
		if err != nil {
			return nil, err
		}
		pos, err := resolvePOS(w.corpus, entry.PartsOfSpeech)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, NodeInfo{
			LexemeID:      item.id,
			Word:          word,
			PartsOfSpeech: pos,
			Depth:         item.depth,
			Parent:        item.parent,
			Via:           item.via,
		})
		if item.depth > maxDepthReached {
			maxDepthReached = item.depth
		}

		if item.depth >= cfg.Depth {
			continue
		}

		edgeCapHit := false
		for _, kind := range []model.RelationKind{model.RelationSynonym, model.RelationAntonym, model.RelationHypernym, model.RelationHyponym} {
			if !relations.Has(kind) {
				continue
			}
			for _, neighbor := range entry.Neighbors(kind) {
				if visited.Contains(uint32(neighbor)) {
					continue
				}
				if len(edges) >= maxEdges {
					edgeCapHit = true
					break
				}
				if len(nodes)+len(queue) >= maxNodes {
					truncated = true
					continue
				}
				if cfg.NounOnly {
					isNoun, err := w.isNoun(neighbor)
					if err != nil {
						return nil, err
					}
					if !isNoun {
						continue
					}
				}
				edges = append(edges, Edge{From: item.id, To: neighbor, Kind: kind})
				visited.Add(uint32(neighbor))
				k := kind
				id := item.id
				queue = append(queue, queueItem{id: neighbor, depth: item.depth + 1, parent: &id, via: &k})
			}
			if edgeCapHit {
				break
			}
		}
		if edgeCapHit {
			truncated = true
		}
	}

	return &Traversal{
		Root:            start,
		Nodes:           nodes,
		Edges:           edges,
		Truncated:       truncated,
		MaxDepthReached: maxDepthReached,
	}, nil
}

// ParseRelations converts the relation-kind spellings accepted elsewhere
// in the engine (entries.jsonl's field names, the oglsctl -relations
// flag) into the RelationSet Config.Relations expects, rejecting any
// name model.ParseRelationKind doesn't recognize — spec.md §7's "unknown
// relation kind" InvalidArgument trigger. An empty or nil names list
// returns the zero RelationSet, which Traverse expands to all four kinds
// per its unset-defaults-to-all rule.
func ParseRelations(names []string) (model.RelationSet, error) {
	var set model.RelationSet
	for _, name := range names {
		kind, ok := model.ParseRelationKind(name)
		if !ok {
			return 0, fmt.Errorf("graph: unknown relation kind %q: %w", name, ogerr.ErrInvalidArgument)
		}
		set |= model.RelationSet(1) << kind
	}
	return set, nil
}

func (w *Walker) isNoun(id model.LexemeID) (bool, error) {
	entry, err := w.corpus.Entry(id)
	if err != nil {
		return false, err
	}
	for _, posID := range entry.PartsOfSpeech {
		tag, err := w.corpus.ResolveString(posID)
		if err != nil {
			return false, err
		}
		if equalFoldASCII(tag, "noun") {
			return true, nil
		}
	}
	return false, nil
}

func resolvePOS(corpus Corpus, ids []model.StrID) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		s, err := corpus.ResolveString(id)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
