package index

import (
	"context"
	"errors"
	"testing"

	"github.com/opengloss/ogls/internal/config"
	"github.com/opengloss/ogls/internal/testdata"
	"github.com/opengloss/ogls/pkg/archive"
	"github.com/opengloss/ogls/pkg/ogerr"
)

func buildFixtureIndex(t *testing.T) *Index {
	t.Helper()
	arenaBlob, chunkBlob, entries, fstBlob, err := testdata.Build()
	if err != nil {
		t.Fatalf("testdata.Build: %v", err)
	}
	archiveBlob, err := archive.Write(entries, arenaBlob, chunkBlob, 3)
	if err != nil {
		t.Fatalf("archive.Write: %v", err)
	}
	idx, err := OpenEmbedded(archiveBlob, fstBlob, config.DefaultConfig())
	if err != nil {
		t.Fatalf("OpenEmbedded: %v", err)
	}
	return idx
}

func TestGetExactMatch(t *testing.T) {
	idx := buildFixtureIndex(t)
	ids, err := idx.Get("cat")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(ids) != 1 || ids[0] != testdata.Cat {
		t.Fatalf("Get(cat) = %v, want [%d]", ids, testdata.Cat)
	}
}

func TestGetIsCaseAndNormalizationInsensitive(t *testing.T) {
	idx := buildFixtureIndex(t)
	ids, err := idx.Get("CAT")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(ids) != 1 || ids[0] != testdata.Cat {
		t.Fatalf("Get(CAT) = %v, want [%d]", ids, testdata.Cat)
	}
}

func TestGetMissingWordReturnsEmptyNotError(t *testing.T) {
	idx := buildFixtureIndex(t)
	ids, err := idx.Get("nonexistent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("Get(nonexistent) = %v, want empty", ids)
	}
}

func TestPrefixReturnsEveryMatchingSurfaceForm(t *testing.T) {
	idx := buildFixtureIndex(t)
	hits, err := idx.Prefix("ca", 10)
	if err != nil {
		t.Fatalf("Prefix: %v", err)
	}
	if len(hits) != 3 { // café, canine, cat
		t.Fatalf("Prefix(ca) = %v, want 3 hits", hits)
	}
}

func TestSearchContainsFindsMidWordSubstring(t *testing.T) {
	idx := buildFixtureIndex(t)
	hits, err := idx.SearchContains("itt", 10)
	if err != nil {
		t.Fatalf("SearchContains: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.ID == testdata.Kitten {
			found = true
		}
	}
	if !found {
		t.Fatalf("SearchContains(itt) = %v, want kitten among hits", hits)
	}
}

func TestEntryByWordResolvesFullRecord(t *testing.T) {
	idx := buildFixtureIndex(t)
	entry, err := idx.EntryByWord("café")
	if err != nil {
		t.Fatalf("EntryByWord: %v", err)
	}
	if entry == nil {
		t.Fatal("EntryByWord(café) = nil, want an entry")
	}
	if entry.Etymology == nil {
		t.Fatal("expected café to carry an etymology summary")
	}
	summary, err := idx.ResolveString(*entry.Etymology)
	if err != nil {
		t.Fatalf("ResolveString: %v", err)
	}
	if summary == "" {
		t.Fatal("expected a non-empty etymology summary")
	}
}

func TestEntryByWordMissingReturnsNilNotError(t *testing.T) {
	idx := buildFixtureIndex(t)
	entry, err := idx.EntryByWord("nonexistent")
	if err != nil {
		t.Fatalf("EntryByWord: %v", err)
	}
	if entry != nil {
		t.Fatalf("EntryByWord(nonexistent) = %v, want nil", entry)
	}
}

func TestSearchFuzzyFindsApproximateMatch(t *testing.T) {
	idx := buildFixtureIndex(t)
	hits, err := idx.SearchFuzzy(context.Background(), "dogg", idx.DefaultRankerConfig())
	if err != nil {
		t.Fatalf("SearchFuzzy: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.LexemeID == testdata.Dog {
			found = true
		}
	}
	if !found {
		t.Fatalf("SearchFuzzy(dogg) = %v, want dog among hits", hits)
	}
}

func TestTraverseGraphFromIndex(t *testing.T) {
	idx := buildFixtureIndex(t)
	tr, err := idx.TraverseGraph(context.Background(), testdata.Dog, GraphConfig{Depth: 1})
	if err != nil {
		t.Fatalf("TraverseGraph: %v", err)
	}
	if len(tr.Nodes) < 2 {
		t.Fatalf("expected dog's depth-1 traversal to have neighbors, got %v", tr.Nodes)
	}
}

func TestTypeaheadFallsBackToSubstringAtWordBoundary(t *testing.T) {
	idx := buildFixtureIndex(t)
	hits, err := idx.Typeahead("itten", 10)
	if err != nil {
		t.Fatalf("Typeahead: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.ID == testdata.Kitten {
			found = true
		}
	}
	if !found {
		t.Fatalf("Typeahead(itten) = %v, want kitten via substring fallback", hits)
	}
}

func TestPrefixNegativeLimitRejected(t *testing.T) {
	idx := buildFixtureIndex(t)
	if _, err := idx.Prefix("ca", -1); !errors.Is(err, ogerr.ErrInvalidArgument) {
		t.Fatalf("Prefix(ca, -1) error = %v, want ogerr.ErrInvalidArgument", err)
	}
}

func TestSearchContainsNegativeLimitRejected(t *testing.T) {
	idx := buildFixtureIndex(t)
	if _, err := idx.SearchContains("at", -1); !errors.Is(err, ogerr.ErrInvalidArgument) {
		t.Fatalf("SearchContains(at, -1) error = %v, want ogerr.ErrInvalidArgument", err)
	}
}

func TestSearchFuzzyNegativeLimitRejected(t *testing.T) {
	idx := buildFixtureIndex(t)
	cfg := idx.DefaultRankerConfig()
	cfg.Limit = -1
	if _, err := idx.SearchFuzzy(context.Background(), "cat", cfg); !errors.Is(err, ogerr.ErrInvalidArgument) {
		t.Fatalf("SearchFuzzy with limit=-1 error = %v, want ogerr.ErrInvalidArgument", err)
	}
}

func TestTypeaheadNegativeLimitRejected(t *testing.T) {
	idx := buildFixtureIndex(t)
	if _, err := idx.Typeahead("ca", -1); !errors.Is(err, ogerr.ErrInvalidArgument) {
		t.Fatalf("Typeahead(ca, -1) error = %v, want ogerr.ErrInvalidArgument", err)
	}
}

func TestPrefixZeroLimitUsesDefault(t *testing.T) {
	idx := buildFixtureIndex(t)
	hits, err := idx.Prefix("ca", 0)
	if err != nil {
		t.Fatalf("Prefix(ca, 0): %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Prefix(ca, 0) = %v, want 3 hits via DefaultPrefixLimit", hits)
	}
}

func TestNumLexemesMatchesFixtureSize(t *testing.T) {
	idx := buildFixtureIndex(t)
	if got := idx.NumLexemes(); got != testdata.NumLexemes {
		t.Fatalf("NumLexemes() = %d, want %d", got, testdata.NumLexemes)
	}
}
