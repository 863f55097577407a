// Package build implements the offline Build Pipeline (spec.md §4.9):
// streams the source lexemes.tsv and entries.jsonl, assigns dense ids,
// builds the FST in sorted order, resolves relation edges, and writes the
// two compressed artifacts the runtime index embeds.
//
// Grounded in original_source/build.rs, translated from a Cargo build
// script into an ordinary offline Go entry point (build.Run), since Go
// has no build-script analogue worth imitating structurally — only the
// data-flow and ordering discipline carries over.
package build

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/opengloss/ogls/internal/logger"
	"github.com/opengloss/ogls/internal/utils"
	"github.com/opengloss/ogls/pkg/archive"
	"github.com/opengloss/ogls/pkg/fstindex"
	"github.com/opengloss/ogls/pkg/model"
)

var log = logger.Default("build")

// FSTFileName and ArchiveFileName are the two artifacts spec.md §6 names.
const (
	FSTFileName     = "lexemes.fst"
	ArchiveFileName = "opengloss_data.archive.zst"
)

// ReleaseCompressionLevel is the Zstd level spec.md §4.9 step 7 specifies
// for release builds. DevCompressionLevel matches original_source's
// faster dev-mode rebuild level; Options.CompressionLevel defaults to the
// release level, not the original's dev default, since the determinism
// property (S6) is about byte-equality at a fixed level, not about
// matching the original's dev-mode tuning (SPEC_FULL.md §5.9 step 6).
const (
	ReleaseCompressionLevel = 19
	DevCompressionLevel     = 4
)

// MaxEdgeLossRatio is the loss-accounting threshold from spec.md §4.9
// step 6: if more than this fraction of relation edges fail to resolve,
// Run logs a warning.
const MaxEdgeLossRatio = 0.001

// Options tunes one build run.
type Options struct {
	CompressionLevel int
	ArenaFrameSize   int
}

// Stats summarizes one build run.
type Stats struct {
	NumLexemes     int
	NumEdgesTotal  int
	NumEdgesDropped int
	NumStrings     int
	NumChunks      int
	ArchiveBytes   int
	FSTBytes       int
}

func (o Options) level() int {
	if o.CompressionLevel <= 0 {
		return ReleaseCompressionLevel
	}
	return o.CompressionLevel
}

// Run executes the full pipeline described in spec.md §4.9 and writes
// lexemes.fst and opengloss_data.archive.zst into outDir.
func Run(lexemesPath, entriesPath, outDir string, opts Options) (Stats, error) {
	rows, err := loadLexemes(lexemesPath)
	if err != nil {
		return Stats{}, fmt.Errorf("build: loading lexemes: %w", err)
	}

	sorted, err := sortAndDedupe(rows)
	if err != nil {
		return Stats{}, fmt.Errorf("build: sorting lexemes: %w", err)
	}

	lookup := make(map[string]model.LexemeID, len(sorted))
	for _, r := range sorted {
		lookup[r.word] = r.id
	}

	fstBytes, err := buildFST(sorted)
	if err != nil {
		return Stats{}, fmt.Errorf("build: building fst: %w", err)
	}

	db := newDataBuilder(lookup, opts)
	entries, edgeTotal, edgeDropped, err := db.streamEntries(entriesPath)
	if err != nil {
		return Stats{}, fmt.Errorf("build: streaming entries: %w", err)
	}

	if edgeTotal > 0 && float64(edgeDropped)/float64(edgeTotal) > MaxEdgeLossRatio {
		log.Warnf("relation edge loss %.3f%% (%d/%d) exceeds %.3f%% threshold",
			100*float64(edgeDropped)/float64(edgeTotal), edgeDropped, edgeTotal, 100*MaxEdgeLossRatio)
	}

	arenaBlob, err := db.arena.Build()
	if err != nil {
		return Stats{}, fmt.Errorf("build: building arena: %w", err)
	}
	chunkBlob, err := db.chunks.Build()
	if err != nil {
		return Stats{}, fmt.Errorf("build: building chunk store: %w", err)
	}

	archiveBlob, err := archive.Write(entries, arenaBlob, chunkBlob, opts.level())
	if err != nil {
		return Stats{}, fmt.Errorf("build: writing archive: %w", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		return Stats{}, fmt.Errorf("build: creating outDir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, FSTFileName), fstBytes, 0644); err != nil {
		return Stats{}, fmt.Errorf("build: writing fst: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ArchiveFileName), archiveBlob, 0644); err != nil {
		return Stats{}, fmt.Errorf("build: writing archive: %w", err)
	}

	log.Infof("built %d lexemes, %d strings, %d chunks, %d/%d edges resolved",
		len(entries), db.arena.Len(), db.chunks.Len(), edgeTotal-edgeDropped, edgeTotal)

	return Stats{
		NumLexemes:      len(entries),
		NumEdgesTotal:   edgeTotal,
		NumEdgesDropped: edgeDropped,
		NumStrings:      db.arena.Len(),
		NumChunks:       db.chunks.Len(),
		ArchiveBytes:    len(archiveBlob),
		FSTBytes:        len(fstBytes),
	}, nil
}

type lexemeRow struct {
	word string
	id   model.LexemeID
}

// loadLexemes reads the two-column lexemes.tsv described in spec.md §6.
// Lines are expected sorted by id, per the build-time input contract, but
// loadLexemes itself does not enforce that — sortAndDedupe resorts by
// surface form regardless, the order the FST builder actually needs.
func loadLexemes(path string) ([]lexemeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []lexemeRow
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		tab := indexByte(line, '\t')
		if tab < 0 {
			return nil, fmt.Errorf("lexemes.tsv:%d: missing tab separator", lineNo)
		}
		idStr, word := line[:tab], line[tab+1:]
		if word == "" {
			continue
		}
		id, err := parseUint32(idStr)
		if err != nil {
			return nil, fmt.Errorf("lexemes.tsv:%d: bad lexeme_id %q: %w", lineNo, idStr, err)
		}
		rows = append(rows, lexemeRow{word: utils.NormalizeSurface(word), id: model.LexemeID(id)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// sortAndDedupe sorts rows ascending by surface form (stable, ties broken
// by id, matching original_source's sort_by), then rejects duplicate
// surface forms — a deliberate deviation from original_source's panic,
// recorded in DESIGN.md: an automated build pipeline should return an
// error, not abort the process.
func sortAndDedupe(rows []lexemeRow) ([]lexemeRow, error) {
	sorted := make([]lexemeRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].word != sorted[j].word {
			return sorted[i].word < sorted[j].word
		}
		return sorted[i].id < sorted[j].id
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].word == sorted[i-1].word {
			return nil, fmt.Errorf("duplicate surface form %q (lexeme ids %d and %d)", sorted[i].word, sorted[i-1].id, sorted[i].id)
		}
	}
	return sorted, nil
}

func buildFST(sorted []lexemeRow) ([]byte, error) {
	b, err := fstindex.NewBuilder()
	if err != nil {
		return nil, err
	}
	for _, r := range sorted {
		if err := b.Insert(r.word, r.id); err != nil {
			return nil, fmt.Errorf("inserting %q: %w", r.word, err)
		}
	}
	return b.Close()
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func parseUint32(s string) (uint32, error) {
	var v uint64
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a digit: %q", s)
		}
		v = v*10 + uint64(c-'0')
		if v > 1<<32-1 {
			return 0, fmt.Errorf("overflows uint32: %q", s)
		}
	}
	return uint32(v), nil
}
