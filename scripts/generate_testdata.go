//go:build ignore

// generate_testdata.go creates standard item datasets for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/small.jsonl   (100 items)
//	tests/testdata/benchmark/medium.jsonl  (1000 items)
//	tests/testdata/benchmark/medium.db     (1000 items, SQLite)
//	tests/testdata/benchmark/large.jsonl   (5000 items)
//	tests/testdata/benchmark/huge.jsonl    (20000 items)
//	tests/testdata/benchmark/notes/        (100 Markdown items)
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/virtlist/internal/datasource"
	"github.com/vanderheijden86/virtlist/pkg/fixture"
)

type datasetSpec struct {
	name   string
	size   int
	sqlite bool
}

var datasets = []datasetSpec{
	{"small", 100, false},
	{"medium", 1000, true},
	{"large", 5000, false},
	{"huge", 20000, false},
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d items)...\n", ds.name, ds.size)

		// Larger sets get shorter bodies to keep file sizes reasonable
		gen := fixture.New(fixture.GeneratorConfig{
			Seed:     uint64(ds.size), // Reproducible per-size
			IDPrefix: "bench",
			MaxBody:  maxBody(ds.size),
			Markdown: true,
		})
		items := gen.Items(ds.size)

		jsonl := fixture.ToJSONL(items)
		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes)\n", outputPath, len(jsonl))

		if ds.sqlite {
			dbPath := filepath.Join(outputDir, ds.name+".db")
			_ = os.Remove(dbPath)
			if err := datasource.WriteSQLite(context.Background(), dbPath, items); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", dbPath, err)
				os.Exit(1)
			}
			fmt.Printf("  Written %s\n", dbPath)
		}
	}

	notesDir := filepath.Join(outputDir, "notes")
	if err := os.MkdirAll(notesDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", notesDir, err)
		os.Exit(1)
	}
	gen := fixture.New(fixture.GeneratorConfig{Seed: 1, IDPrefix: "note", MaxBody: 8, Markdown: true})
	for _, item := range gen.Items(100) {
		path := filepath.Join(notesDir, item.ID+".md")
		if err := os.WriteFile(path, []byte(fixture.ToMarkdown(item)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Written 100 notes to %s\n", notesDir)

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

func maxBody(size int) int {
	switch {
	case size <= 100:
		return 12
	case size <= 1000:
		return 8
	case size <= 5000:
		return 4
	default:
		return 2
	}
}
