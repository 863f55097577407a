// Package model holds the value types shared by every engine package: the
// dense identifiers from spec §3 and the decoded runtime shape of a Lexeme
// entry, independent of how the archive happens to pack it on disk.
package model

import (
	"fmt"
	"strings"
)

// LexemeID is a dense id assigned in insertion order during the build,
// in the range [0, N).
type LexemeID uint32

// StrID is an opaque handle into the String Arena.
type StrID uint32

// ChunkID is an opaque handle into the Chunk Store.
type ChunkID uint32

// SenseIdx is a zero-based position within a lexeme's sense list.
type SenseIdx int

// RelationKind is the closed, four-valued tag on a relation edge. It is a
// build-time constant set; adding a fifth kind requires an archive version
// bump per spec.md §9.
type RelationKind uint8

const (
	RelationSynonym RelationKind = iota
	RelationAntonym
	RelationHypernym
	RelationHyponym
)

func (k RelationKind) String() string {
	switch k {
	case RelationSynonym:
		return "synonym"
	case RelationAntonym:
		return "antonym"
	case RelationHypernym:
		return "hypernym"
	case RelationHyponym:
		return "hyponym"
	default:
		return fmt.Sprintf("relation(%d)", uint8(k))
	}
}

// ParseRelationKind accepts the spelling used in the build pipeline's
// entries.jsonl ("synonyms", "antonyms", "hypernyms", "hyponyms") as well as
// the singular form, case-insensitively.
func ParseRelationKind(s string) (RelationKind, bool) {
	switch strings.ToLower(s) {
	case "synonym", "synonyms", "syn":
		return RelationSynonym, true
	case "antonym", "antonyms", "ant":
		return RelationAntonym, true
	case "hypernym", "hypernyms", "hyper":
		return RelationHypernym, true
	case "hyponym", "hyponyms", "hypo":
		return RelationHyponym, true
	default:
		return 0, false
	}
}

// RelationSet is a bitmask over RelationKind, used by graph-walk configs to
// restrict which edge kinds get followed.
type RelationSet uint8

const (
	RelSynonym  RelationSet = 1 << RelationSynonym
	RelAntonym  RelationSet = 1 << RelationAntonym
	RelHypernym RelationSet = 1 << RelationHypernym
	RelHyponym  RelationSet = 1 << RelationHyponym
	RelAll                  = RelSynonym | RelAntonym | RelHypernym | RelHyponym
)

// Has reports whether kind is included in the set.
func (s RelationSet) Has(kind RelationKind) bool {
	return s&(1<<kind) != 0
}

// Edge is a directional relation edge out of some implicit source lexeme.
// Edges are not symmetrized: a synonym edge A->B does not imply B->A.
type Edge struct {
	Kind   RelationKind
	Target LexemeID
}

// Sense is one distinct meaning of a lexeme.
type Sense struct {
	Definition   StrID
	Examples     []StrID
	PartOfSpeech *StrID
	Synonyms     []LexemeID
	Antonyms     []LexemeID
}

// Entry is the fully decoded record for one lexeme, the shape returned by
// Index.EntryByID/EntryByWord regardless of how the archive packs it on
// disk. Fields beyond what spec.md §3 names (ExternalID, IsStopword,
// StopwordReason, Etymology, Cognates) are carried from original_source per
// SPEC_FULL.md §4's supplement.
type Entry struct {
	ID              LexemeID
	ExternalID      StrID
	Word            StrID
	PartsOfSpeech   []StrID
	Senses          []Sense
	Synonyms        []LexemeID
	Antonyms        []LexemeID
	Hypernyms       []LexemeID
	Hyponyms        []LexemeID
	EntryText       *ChunkID
	Encyclopedia    *ChunkID
	IsStopword      bool
	StopwordReason  *StrID
	Etymology       *StrID
	Cognates        []StrID
}

// Neighbors returns the aggregate LexemeID list for the given relation
// kind, the representation the Graph Walker iterates.
func (e *Entry) Neighbors(kind RelationKind) []LexemeID {
	switch kind {
	case RelationSynonym:
		return e.Synonyms
	case RelationAntonym:
		return e.Antonyms
	case RelationHypernym:
		return e.Hypernyms
	case RelationHyponym:
		return e.Hyponyms
	default:
		return nil
	}
}
