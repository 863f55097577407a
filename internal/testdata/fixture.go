// Package testdata builds a small, hand-written fixture corpus shared by
// every package's tests: nine lexemes covering senses, examples, all four
// relation kinds (including a synonym cycle), a stopword, an entry with an
// encyclopedia chunk and etymology, and one non-ASCII surface form.
//
// Built directly against pkg/arena, pkg/chunkstore, pkg/fstindex, and
// pkg/archive rather than through pkg/build's JSON pipeline, so that
// package tests don't need a JSONL fixture file on disk and pkg/build
// keeps its own, separate test fixtures for exercising the JSON path.
package testdata

import (
	"github.com/opengloss/ogls/pkg/arena"
	"github.com/opengloss/ogls/pkg/chunkstore"
	"github.com/opengloss/ogls/pkg/fstindex"
	"github.com/opengloss/ogls/pkg/model"
)

// LexemeID constants for the fixture corpus, assigned in the same order
// Build emits them so tests can refer to entries by name.
const (
	Cat model.LexemeID = iota
	Dog
	Mammal
	Kitten
	Feline
	Canine
	Hound
	The
	Cafe
)

// NumLexemes is the fixture corpus size.
const NumLexemes = 9

type builder struct {
	strings *arena.Builder
	chunks  *chunkstore.Builder
	fst     *fstindex.Builder
	ids     map[string]model.StrID
}

func (b *builder) str(s string) model.StrID {
	if id, ok := b.ids[s]; ok {
		return id
	}
	id := model.StrID(b.strings.Add(s))
	b.ids[s] = id
	return id
}

func (b *builder) optStr(s string) *model.StrID {
	if s == "" {
		return nil
	}
	id := b.str(s)
	return &id
}

func (b *builder) strList(ss ...string) []model.StrID {
	if len(ss) == 0 {
		return nil
	}
	out := make([]model.StrID, len(ss))
	for i, s := range ss {
		out[i] = b.str(s)
	}
	return out
}

func (b *builder) chunk(s string) *model.ChunkID {
	if s == "" {
		return nil
	}
	id := model.ChunkID(b.chunks.Add(s))
	return &id
}

// Build assembles the fixture corpus and returns the built Arena blob,
// Chunk Store blob, decoded entries (in LexemeID order, ready for
// archive.Write), and the FST blob mapping every surface form (including
// a duplicate-of-canonical "kittens" plural alias) to its LexemeID.
func Build() (arenaBlob, chunkBlob []byte, entries []*model.Entry, fstBlob []byte, err error) {
	b := &builder{
		strings: arena.NewBuilder(0, 3),
		chunks:  chunkstore.NewBuilder(3),
		ids:     make(map[string]model.StrID),
	}

	entries = make([]*model.Entry, NumLexemes)

	entries[Cat] = &model.Entry{
		ID:            Cat,
		ExternalID:    b.str("wn:cat"),
		Word:          b.str("cat"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{
				Definition:   b.str("a small domesticated carnivorous mammal"),
				Examples:     b.strList("the cat sat on the mat"),
				PartOfSpeech: b.optStr("noun"),
				Synonyms:     []model.LexemeID{Feline},
			},
		},
		Synonyms:  []model.LexemeID{Feline},
		Antonyms:  []model.LexemeID{Dog},
		Hypernyms: []model.LexemeID{Mammal},
		Hyponyms:  []model.LexemeID{Kitten},
		EntryText: b.chunk("Cats are small, typically furry, carnivorous mammals often kept as pets."),
	}

	entries[Dog] = &model.Entry{
		ID:            Dog,
		ExternalID:    b.str("wn:dog"),
		Word:          b.str("dog"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{
				Definition:   b.str("a domesticated carnivorous mammal related to the wolf"),
				PartOfSpeech: b.optStr("noun"),
				Synonyms:     []model.LexemeID{Hound},
			},
		},
		Synonyms:  []model.LexemeID{Hound},
		Antonyms:  []model.LexemeID{Cat},
		Hypernyms: []model.LexemeID{Mammal, Canine},
	}

	entries[Mammal] = &model.Entry{
		ID:            Mammal,
		ExternalID:    b.str("wn:mammal"),
		Word:          b.str("mammal"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{Definition: b.str("a warm-blooded vertebrate animal that nurses its young")},
		},
	}

	entries[Kitten] = &model.Entry{
		ID:            Kitten,
		ExternalID:    b.str("wn:kitten"),
		Word:          b.str("kitten"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{Definition: b.str("a young cat")},
		},
		Hypernyms: []model.LexemeID{Cat},
	}

	entries[Feline] = &model.Entry{
		ID:            Feline,
		ExternalID:    b.str("wn:feline"),
		Word:          b.str("feline"),
		PartsOfSpeech: b.strList("noun", "adjective"),
		Senses: []model.Sense{
			{Definition: b.str("relating to cats or their characteristics")},
		},
		Synonyms: []model.LexemeID{Cat},
	}

	entries[Canine] = &model.Entry{
		ID:            Canine,
		ExternalID:    b.str("wn:canine"),
		Word:          b.str("canine"),
		PartsOfSpeech: b.strList("noun", "adjective"),
		Senses: []model.Sense{
			{Definition: b.str("relating to dogs or their characteristics")},
		},
		Hyponyms: []model.LexemeID{Dog},
	}

	entries[Hound] = &model.Entry{
		ID:            Hound,
		ExternalID:    b.str("wn:hound"),
		Word:          b.str("hound"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{Definition: b.str("a dog used for hunting")},
		},
		Synonyms: []model.LexemeID{Dog},
	}

	entries[The] = &model.Entry{
		ID:             The,
		ExternalID:     b.str("wn:the"),
		Word:           b.str("the"),
		IsStopword:     true,
		StopwordReason: b.optStr("function word"),
	}

	entries[Cafe] = &model.Entry{
		ID:            Cafe,
		ExternalID:    b.str("wn:cafe"),
		Word:          b.str("café"),
		PartsOfSpeech: b.strList("noun"),
		Senses: []model.Sense{
			{Definition: b.str("a small restaurant selling light meals and drinks")},
		},
		Etymology:    b.optStr("French, from Italian caffè"),
		Cognates:     b.strList("coffee"),
		Encyclopedia: b.chunk("A café is a type of restaurant that primarily serves coffee and light meals, distinct from a bar in its focus on non-alcoholic beverages and a relaxed, informal seating arrangement."),
	}

	arenaBlob, err = b.strings.Build()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	chunkBlob, err = b.chunks.Build()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	fst, err := fstindex.NewBuilder()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	// Inserted in strictly ascending byte order, including a second
	// surface form ("kittens") mapped to the same LexemeID as "kitten" to
	// exercise the FST's many-to-one invariant (spec.md §3 invariant 2).
	surfaces := []struct {
		surface string
		id      model.LexemeID
	}{
		{"café", Cafe},
		{"canine", Canine},
		{"cat", Cat},
		{"dog", Dog},
		{"feline", Feline},
		{"hound", Hound},
		{"kitten", Kitten},
		{"kittens", Kitten},
		{"mammal", Mammal},
		{"the", The},
	}
	for _, s := range surfaces {
		if err := fst.Insert(s.surface, s.id); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	fstBlob, err = fst.Close()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return arenaBlob, chunkBlob, entries, fstBlob, nil
}
