package build

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/opengloss/ogls/pkg/arena"
	"github.com/opengloss/ogls/pkg/chunkstore"
	"github.com/opengloss/ogls/pkg/model"
)

// senseJSON mirrors original_source/build.rs's SenseJson, one element of
// an entryJSON's senses array.
type senseJSON struct {
	PartOfSpeech string   `json:"part_of_speech"`
	SenseIndex   int      `json:"sense_index"`
	Definition   string   `json:"definition"`
	Synonyms     []string `json:"synonyms"`
	Antonyms     []string `json:"antonyms"`
	Hypernyms    []string `json:"hypernyms"`
	Hyponyms     []string `json:"hyponyms"`
	Examples     []string `json:"examples"`
}

// entryJSON mirrors original_source/build.rs's EntryJson, one line of
// entries.jsonl. Fields prefixed All* are entry-level aggregates, kept
// distinct from the per-sense relation lists above per spec.md §3's
// Sense/Entry split.
type entryJSON struct {
	LexemeID          uint32      `json:"lexeme_id"`
	EntryID           string      `json:"entry_id"`
	Word              string      `json:"word"`
	Text              string      `json:"text"`
	IsStopword        bool        `json:"is_stopword"`
	StopwordReason    string      `json:"stopword_reason"`
	PartsOfSpeech     []string    `json:"parts_of_speech"`
	Senses            []senseJSON `json:"senses"`
	HasEtymology      bool        `json:"has_etymology"`
	EtymologySummary  string      `json:"etymology_summary"`
	EtymologyCognates []string    `json:"etymology_cognates"`
	HasEncyclopedia   bool        `json:"has_encyclopedia"`
	EncyclopediaEntry string      `json:"encyclopedia_entry"`
	AllSynonyms       []string    `json:"all_synonyms"`
	AllAntonyms       []string    `json:"all_antonyms"`
	AllHypernyms      []string    `json:"all_hypernyms"`
	AllHyponyms       []string    `json:"all_hyponyms"`
}

// dataBuilder streams entries.jsonl into an Arena, a Chunk Store, and a
// slice of decoded model.Entry records, resolving relation targets
// against the surface-form lookup built from lexemes.tsv.
//
// Grounded in original_source/build.rs's DataBuilder: push_strings interns
// plain display strings (used here for Sense field text), push_neighbor_refs
// resolves a surface form through lexeme_lookup and silently drops misses
// (used here for every relation list, sense-level and entry-level alike).
// Resolving sense-level relations to LexemeIDs too — rather than leaving
// them as unresolved display strings the way original_source does — is a
// deliberate supplement recorded in DESIGN.md: it makes every relation
// edge graph-walkable, sense-level included, at the cost of silently
// dropping a sense-level synonym/antonym that names a surface form absent
// from lexemes.tsv (accounted for in the same loss counter as the
// entry-level aggregates).
type dataBuilder struct {
	lookup map[string]model.LexemeID
	arena  *arena.Builder
	chunks *chunkstore.Builder
	strIDs map[string]model.StrID
}

func newDataBuilder(lookup map[string]model.LexemeID, opts Options) *dataBuilder {
	return &dataBuilder{
		lookup: lookup,
		arena:  arena.NewBuilder(opts.ArenaFrameSize, opts.level()),
		chunks: chunkstore.NewBuilder(opts.level()),
		strIDs: make(map[string]model.StrID),
	}
}

// intern deduplicates s against strings already added to the arena,
// preserving determinism: the same input stream always produces the same
// first-seen insertion order regardless of map iteration, since this map
// is only ever consulted by content equality, never iterated.
func (db *dataBuilder) intern(s string) model.StrID {
	if id, ok := db.strIDs[s]; ok {
		return id
	}
	id := model.StrID(db.arena.Add(s))
	db.strIDs[s] = id
	return id
}

func (db *dataBuilder) internOptional(s string) *model.StrID {
	if s == "" {
		return nil
	}
	id := db.intern(s)
	return &id
}

func (db *dataBuilder) internChunk(s string) *model.ChunkID {
	if s == "" {
		return nil
	}
	id := model.ChunkID(db.chunks.Add(s))
	return &id
}

func (db *dataBuilder) internList(ss []string) []model.StrID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]model.StrID, len(ss))
	for i, s := range ss {
		out[i] = db.intern(s)
	}
	return out
}

// resolveNeighbors resolves each surface form in words through lookup,
// in order, dropping (and counting) any that don't resolve.
func (db *dataBuilder) resolveNeighbors(words []string) ([]model.LexemeID, int, int) {
	if len(words) == 0 {
		return nil, 0, 0
	}
	out := make([]model.LexemeID, 0, len(words))
	dropped := 0
	for _, w := range words {
		if id, ok := db.lookup[w]; ok {
			out = append(out, id)
		} else {
			dropped++
		}
	}
	return out, len(words), dropped
}

// streamEntries reads entries.jsonl line by line, requiring strictly
// sequential lexeme_id assignment (entry.LexemeID == len(entries)),
// matching original_source/build.rs's DataBuilder::add_entry contract.
func (db *dataBuilder) streamEntries(path string) ([]*model.Entry, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	var entries []*model.Entry
	edgeTotal, edgeDropped := 0, 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw entryJSON
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, 0, 0, fmt.Errorf("entries.jsonl:%d: %w", lineNo, err)
		}
		if int(raw.LexemeID) != len(entries) {
			return nil, 0, 0, fmt.Errorf("entries.jsonl:%d: lexeme_id %d out of sequence, expected %d", lineNo, raw.LexemeID, len(entries))
		}

		entry, total, dropped := db.buildEntry(raw)
		edgeTotal += total
		edgeDropped += dropped
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, 0, err
	}
	return entries, edgeTotal, edgeDropped, nil
}

func (db *dataBuilder) buildEntry(raw entryJSON) (*model.Entry, int, int) {
	edgeTotal, edgeDropped := 0, 0

	entry := &model.Entry{
		ID:             model.LexemeID(raw.LexemeID),
		ExternalID:     db.intern(raw.EntryID),
		Word:           db.intern(raw.Word),
		PartsOfSpeech:  db.internList(raw.PartsOfSpeech),
		IsStopword:     raw.IsStopword,
		StopwordReason: db.internOptional(raw.StopwordReason),
		Etymology:      db.internOptional(raw.EtymologySummary),
		Cognates:       db.internList(raw.EtymologyCognates),
		EntryText:      db.internChunk(raw.Text),
		Encyclopedia:   db.internChunk(raw.EncyclopediaEntry),
	}

	entry.Senses = make([]model.Sense, len(raw.Senses))
	for i, s := range raw.Senses {
		syn, t1, d1 := db.resolveNeighbors(s.Synonyms)
		ant, t2, d2 := db.resolveNeighbors(s.Antonyms)
		edgeTotal += t1 + t2
		edgeDropped += d1 + d2
		entry.Senses[i] = model.Sense{
			Definition:   db.intern(s.Definition),
			Examples:     db.internList(s.Examples),
			PartOfSpeech: db.internOptional(s.PartOfSpeech),
			Synonyms:     syn,
			Antonyms:     ant,
		}
		// Sense-level hypernyms/hyponyms aren't part of model.Sense (spec.md
		// §3 scopes hypernymy/hyponymy to the entry level only); fold their
		// targets into the entry-level aggregates below instead of dropping
		// them outright.
		raw.AllHypernyms = append(raw.AllHypernyms, s.Hypernyms...)
		raw.AllHyponyms = append(raw.AllHyponyms, s.Hyponyms...)
	}

	syn, t, d := db.resolveNeighbors(raw.AllSynonyms)
	entry.Synonyms = syn
	edgeTotal += t
	edgeDropped += d

	ant, t, d := db.resolveNeighbors(raw.AllAntonyms)
	entry.Antonyms = ant
	edgeTotal += t
	edgeDropped += d

	hyper, t, d := db.resolveNeighbors(raw.AllHypernyms)
	entry.Hypernyms = hyper
	edgeTotal += t
	edgeDropped += d

	hypo, t, d := db.resolveNeighbors(raw.AllHyponyms)
	entry.Hyponyms = hypo
	edgeTotal += t
	edgeDropped += d

	return entry, edgeTotal, edgeDropped
}
