package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opengloss/ogls/pkg/archive"
	"github.com/opengloss/ogls/pkg/fstindex"
	"github.com/opengloss/ogls/pkg/model"
)

const fixtureLexemesTSV = `0	cat
1	dog
2	mammal
3	kitten
3	kittens
`

const fixtureEntriesJSONL = `{"lexeme_id":0,"entry_id":"wn:cat","word":"cat","text":"Cats are small mammals.","is_stopword":false,"parts_of_speech":["noun"],"senses":[{"part_of_speech":"noun","sense_index":0,"definition":"a small domesticated carnivorous mammal","synonyms":["kitten"],"antonyms":[],"hypernyms":[],"hyponyms":[],"examples":["the cat sat on the mat"]}],"has_etymology":false,"etymology_summary":"","etymology_cognates":[],"has_encyclopedia":false,"encyclopedia_entry":"","all_synonyms":["kitten"],"all_antonyms":["dog"],"all_hypernyms":["mammal"],"all_hyponyms":["unknownword"]}
{"lexeme_id":1,"entry_id":"wn:dog","word":"dog","text":"","is_stopword":false,"parts_of_speech":["noun"],"senses":[{"part_of_speech":"noun","sense_index":0,"definition":"a domesticated carnivorous mammal","synonyms":[],"antonyms":[],"hypernyms":[],"hyponyms":[],"examples":[]}],"has_etymology":false,"etymology_summary":"","etymology_cognates":[],"has_encyclopedia":false,"encyclopedia_entry":"","all_synonyms":[],"all_antonyms":["cat"],"all_hypernyms":["mammal"],"all_hyponyms":[]}
{"lexeme_id":2,"entry_id":"wn:mammal","word":"mammal","text":"","is_stopword":false,"parts_of_speech":["noun"],"senses":[{"part_of_speech":"noun","sense_index":0,"definition":"a warm-blooded vertebrate animal","synonyms":[],"antonyms":[],"hypernyms":[],"hyponyms":[],"examples":[]}],"has_etymology":false,"etymology_summary":"","etymology_cognates":[],"has_encyclopedia":false,"encyclopedia_entry":"","all_synonyms":[],"all_antonyms":[],"all_hypernyms":[],"all_hyponyms":[]}
{"lexeme_id":3,"entry_id":"wn:kitten","word":"kitten","text":"","is_stopword":false,"parts_of_speech":["noun"],"senses":[{"part_of_speech":"noun","sense_index":0,"definition":"a young cat","synonyms":[],"antonyms":[],"hypernyms":[],"hyponyms":[],"examples":[]}],"has_etymology":false,"etymology_summary":"","etymology_cognates":[],"has_encyclopedia":false,"encyclopedia_entry":"","all_synonyms":[],"all_antonyms":[],"all_hypernyms":["cat"],"all_hyponyms":[]}
`

func writeFixture(t *testing.T, dir string) (lexemesPath, entriesPath string) {
	t.Helper()
	lexemesPath = filepath.Join(dir, "lexemes.tsv")
	entriesPath = filepath.Join(dir, "entries.jsonl")
	if err := os.WriteFile(lexemesPath, []byte(fixtureLexemesTSV), 0644); err != nil {
		t.Fatalf("writing lexemes.tsv: %v", err)
	}
	if err := os.WriteFile(entriesPath, []byte(fixtureEntriesJSONL), 0644); err != nil {
		t.Fatalf("writing entries.jsonl: %v", err)
	}
	return lexemesPath, entriesPath
}

func TestRunProducesLoadableArtifacts(t *testing.T) {
	dir := t.TempDir()
	lexemesPath, entriesPath := writeFixture(t, dir)
	outDir := filepath.Join(dir, "out")

	stats, err := Run(lexemesPath, entriesPath, outDir, Options{CompressionLevel: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.NumLexemes != 4 {
		t.Fatalf("NumLexemes = %d, want 4", stats.NumLexemes)
	}

	fstBytes, err := os.ReadFile(filepath.Join(outDir, FSTFileName))
	if err != nil {
		t.Fatalf("reading fst: %v", err)
	}
	fst, err := fstindex.Load(fstBytes)
	if err != nil {
		t.Fatalf("fstindex.Load: %v", err)
	}
	id, ok, err := fst.Get("cat")
	if err != nil || !ok || id != 0 {
		t.Fatalf("fst.Get(cat) = (%d, %v, %v), want (0, true, nil)", id, ok, err)
	}

	archiveBytes, err := os.ReadFile(filepath.Join(outDir, ArchiveFileName))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	arc, err := archive.Load(archiveBytes, archive.Options{})
	if err != nil {
		t.Fatalf("archive.Load: %v", err)
	}
	if arc.NumLexemes() != 4 {
		t.Fatalf("arc.NumLexemes() = %d, want 4", arc.NumLexemes())
	}
}

func TestRunResolvesRelationEdgesAndCountsDrops(t *testing.T) {
	dir := t.TempDir()
	lexemesPath, entriesPath := writeFixture(t, dir)

	stats, err := Run(lexemesPath, entriesPath, filepath.Join(dir, "out"), Options{CompressionLevel: 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// "unknownword" (cat's all_hyponyms target) never appears in
	// lexemes.tsv and must be dropped, not resolved.
	if stats.NumEdgesDropped == 0 {
		t.Fatal("expected at least one dropped relation edge for the unresolved hyponym target")
	}
	if stats.NumEdgesDropped >= stats.NumEdgesTotal {
		t.Fatalf("expected some edges to resolve, got %d/%d dropped", stats.NumEdgesDropped, stats.NumEdgesTotal)
	}
}

func TestRunSenseLevelSynonymResolvesToLexemeID(t *testing.T) {
	dir := t.TempDir()
	lexemesPath, entriesPath := writeFixture(t, dir)
	outDir := filepath.Join(dir, "out")

	if _, err := Run(lexemesPath, entriesPath, outDir, Options{CompressionLevel: 3}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	archiveBytes, err := os.ReadFile(filepath.Join(outDir, ArchiveFileName))
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}
	arc, err := archive.Load(archiveBytes, archive.Options{})
	if err != nil {
		t.Fatalf("archive.Load: %v", err)
	}
	cat, err := arc.Entry(model.LexemeID(0))
	if err != nil {
		t.Fatalf("Entry(0): %v", err)
	}
	if len(cat.Senses) != 1 || len(cat.Senses[0].Synonyms) != 1 || cat.Senses[0].Synonyms[0] != model.LexemeID(3) {
		t.Fatalf("expected cat's sense-level synonym to resolve to kitten's LexemeID 3, got %+v", cat.Senses)
	}
}

func TestRunRejectsOutOfSequenceLexemeID(t *testing.T) {
	dir := t.TempDir()
	lexemesPath, _ := writeFixture(t, dir)
	badEntries := filepath.Join(dir, "bad_entries.jsonl")
	content := `{"lexeme_id":0,"entry_id":"a","word":"cat"}
{"lexeme_id":5,"entry_id":"b","word":"dog"}
`
	if err := os.WriteFile(badEntries, []byte(content), 0644); err != nil {
		t.Fatalf("writing bad entries: %v", err)
	}
	if _, err := Run(lexemesPath, badEntries, filepath.Join(dir, "out"), Options{}); err == nil {
		t.Fatal("expected an error for an out-of-sequence lexeme_id")
	}
}

func TestRunRejectsDuplicateSurfaceForm(t *testing.T) {
	dir := t.TempDir()
	dupLexemes := filepath.Join(dir, "dup_lexemes.tsv")
	if err := os.WriteFile(dupLexemes, []byte("0\tcat\n1\tcat\n"), 0644); err != nil {
		t.Fatalf("writing dup lexemes: %v", err)
	}
	_, entriesPath := writeFixture(t, dir)
	if _, err := Run(dupLexemes, entriesPath, filepath.Join(dir, "out"), Options{}); err == nil {
		t.Fatal("expected an error for a duplicate surface form")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	lexemesPath, entriesPath := writeFixture(t, dir)

	out1 := filepath.Join(dir, "out1")
	out2 := filepath.Join(dir, "out2")
	if _, err := Run(lexemesPath, entriesPath, out1, Options{CompressionLevel: 3}); err != nil {
		t.Fatalf("Run (1st): %v", err)
	}
	if _, err := Run(lexemesPath, entriesPath, out2, Options{CompressionLevel: 3}); err != nil {
		t.Fatalf("Run (2nd): %v", err)
	}

	a1, err := os.ReadFile(filepath.Join(out1, ArchiveFileName))
	if err != nil {
		t.Fatalf("reading archive 1: %v", err)
	}
	a2, err := os.ReadFile(filepath.Join(out2, ArchiveFileName))
	if err != nil {
		t.Fatalf("reading archive 2: %v", err)
	}
	if len(a1) != len(a2) {
		t.Fatalf("archive lengths differ: %d vs %d", len(a1), len(a2))
	}
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("archive bytes differ at offset %d", i)
		}
	}
}
