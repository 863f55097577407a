/*
oglsctl is a debug CLI over the embedded query engine, grounded in the
teacher's cmd/wordserve layout: a flag-parsed main that does no logic of
its own beyond wiring, plus the subcommand surface original_source's
CLI exposes (get, prefix, search, show, graph), with a build subcommand
added for running the offline pipeline.

	oglsctl -archive data/opengloss_data.archive.zst -fst data/lexemes.fst get hello
	oglsctl -archive ... -fst ... -limit 10 prefix hel
	oglsctl -archive ... -fst ... -limit 5 search defenestrate
	oglsctl -archive ... -fst ... show 42
	oglsctl -archive ... -fst ... -depth 2 graph 42
	oglsctl build -lexemes data/lexemes.tsv -entries data/entries.jsonl -out data/

Flags come before the subcommand: flag parsing stops at the first
positional argument.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/opengloss/ogls/internal/config"
	"github.com/opengloss/ogls/pkg/build"
	"github.com/opengloss/ogls/pkg/graph"
	"github.com/opengloss/ogls/pkg/index"
	"github.com/opengloss/ogls/pkg/model"
)

const (
	Version = "0.1.0"
	AppName = "oglsctl"
	gh      = "https://github.com/opengloss/ogls"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "build" {
		runBuild(os.Args[2:])
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "version" {
		printVersion()
		return
	}

	fs := flag.NewFlagSet(AppName, flag.ExitOnError)
	archivePath := fs.String("archive", "data/opengloss_data.archive.zst", "Path to the archive blob")
	fstPath := fs.String("fst", "data/lexemes.fst", "Path to the FST blob")
	debug := fs.Bool("d", false, "Enable debug logging")
	limit := fs.Int("limit", 10, "Result limit")
	depth := fs.Int("depth", 2, "Graph traversal depth")
	relations := fs.String("relations", "", "Comma-separated relation kinds to follow for graph (default: all)")
	fs.Parse(os.Args[1:])

	args := fs.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: oglsctl [-archive path] [-fst path] <get|prefix|search|show|graph> <arg> [...]")
		os.Exit(1)
	}

	if *debug {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	idx, err := index.Open(*archivePath, *fstPath, config.DefaultConfig())
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "get":
		runGet(idx, rest)
	case "prefix":
		runPrefix(idx, rest, *limit)
	case "search":
		runSearch(idx, rest, *limit)
	case "show":
		runShow(idx, rest)
	case "graph":
		runGraph(idx, rest, *depth, *relations)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
		os.Exit(1)
	}
}

func runGet(idx *index.Index, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: get <word>")
	}
	ids, err := idx.Get(args[0])
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	if len(ids) == 0 {
		fmt.Println("(not found)")
		return
	}
	for _, id := range ids {
		fmt.Printf("%d\n", id)
	}
}

func runPrefix(idx *index.Index, args []string, limit int) {
	if len(args) != 1 {
		log.Fatal("usage: prefix <query>")
	}
	hits, err := idx.Prefix(args[0], limit)
	if err != nil {
		log.Fatalf("prefix: %v", err)
	}
	for _, h := range hits {
		fmt.Printf("%-24s %d\n", h.Surface, h.ID)
	}
}

func runSearch(idx *index.Index, args []string, limit int) {
	if len(args) != 1 {
		log.Fatal("usage: search <query>")
	}
	cfg := idx.DefaultRankerConfig()
	cfg.Limit = limit
	hits, err := idx.SearchFuzzy(context.Background(), args[0], cfg)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		fmt.Printf("%-24s %d   %.4f\n", h.Word, h.LexemeID, h.Score)
	}
}

func runShow(idx *index.Index, args []string) {
	if len(args) != 1 {
		log.Fatal("usage: show <lexeme_id>")
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		log.Fatalf("show: bad lexeme id: %v", err)
	}
	entry, err := idx.EntryByID(model.LexemeID(n))
	if err != nil {
		log.Fatalf("show: %v", err)
	}
	word, _ := idx.ResolveString(entry.Word)
	fmt.Printf("word: %s\n", word)
	fmt.Printf("stopword: %v\n", entry.IsStopword)
	for i, s := range entry.Senses {
		def, _ := idx.ResolveString(s.Definition)
		fmt.Printf("sense %d: %s\n", i, def)
	}
	fmt.Printf("synonyms: %v\n", entry.Synonyms)
	fmt.Printf("antonyms: %v\n", entry.Antonyms)
	fmt.Printf("hypernyms: %v\n", entry.Hypernyms)
	fmt.Printf("hyponyms: %v\n", entry.Hyponyms)
}

func runGraph(idx *index.Index, args []string, depth int, relations string) {
	if len(args) != 1 {
		log.Fatal("usage: [-relations synonym,antonym,...] graph <lexeme_id>")
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		log.Fatalf("graph: bad lexeme id: %v", err)
	}
	var names []string
	if relations != "" {
		names = strings.Split(relations, ",")
	}
	relSet, err := graph.ParseRelations(names)
	if err != nil {
		log.Fatalf("graph: %v", err)
	}
	t, err := idx.TraverseGraph(context.Background(), model.LexemeID(n), index.GraphConfig{Depth: depth, Relations: relSet})
	if err != nil {
		log.Fatalf("graph: %v", err)
	}
	for _, node := range t.Nodes {
		fmt.Printf("depth=%d %-24s %d\n", node.Depth, node.Word, node.LexemeID)
	}
	if t.Truncated {
		fmt.Println("(truncated)")
	}
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	lexemesPath := fs.String("lexemes", "data/lexemes.tsv", "Path to lexemes.tsv")
	entriesPath := fs.String("entries", "data/entries.jsonl", "Path to entries.jsonl")
	outDir := fs.String("out", "data/", "Output directory for the built artifacts")
	level := fs.Int("level", build.ReleaseCompressionLevel, "Zstd compression level")
	fs.Parse(args)

	stats, err := build.Run(*lexemesPath, *entriesPath, *outDir, build.Options{CompressionLevel: *level})
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	log.Infof("built %d lexemes (%d bytes archive, %d bytes fst), %d/%d relation edges resolved",
		stats.NumLexemes, stats.ArchiveBytes, stats.FSTBytes, stats.NumEdgesTotal-stats.NumEdgesDropped, stats.NumEdgesTotal)
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ oglsctl ] debug CLI for the embedded lexical query engine")
	logger.Print("", "version", Version)
	logger.Print("Github Repo", "gh", gh)
}
