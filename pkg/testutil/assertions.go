// Package testutil holds assertion, golden file and source file helpers
// shared by the package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/virtlist/pkg/fixture"
	"github.com/vanderheijden86/virtlist/pkg/model"
)

// AssertItemCount verifies the expected number of items.
func AssertItemCount(t *testing.T, items []model.Item, expected int) {
	t.Helper()
	if len(items) != expected {
		t.Errorf("expected %d items, got %d", expected, len(items))
	}
}

// AssertNoDuplicateIDs verifies all item IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, items []model.Item) {
	t.Helper()
	seen := make(map[string]bool)
	for _, item := range items {
		if seen[item.ID] {
			t.Errorf("duplicate item ID: %s", item.ID)
		}
		seen[item.ID] = true
	}
}

// AssertAllValid verifies all items pass validation.
func AssertAllValid(t *testing.T, items []model.Item) {
	t.Helper()
	for i, item := range items {
		if err := item.Validate(); err != nil {
			t.Errorf("item %d (%s) invalid: %v", i, item.ID, err)
		}
	}
}

// AssertOrder verifies the items carry exactly the given IDs, in order.
func AssertOrder(t *testing.T, items []model.Item, ids ...string) {
	t.Helper()
	got := GetIDs(items)
	if strings.Join(got, ",") != strings.Join(ids, ",") {
		t.Errorf("item order mismatch:\nexpected: %v\nactual:   %v", ids, got)
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Golden file helpers

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if line, exp, act, ok := firstDiff(string(expected), actual); !ok {
		g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", line, exp, act)
	}
}

// firstDiff reports the first differing line, 1-based.
func firstDiff(expected, actual string) (line int, exp, act string, same bool) {
	if expected == actual {
		return 0, "", "", true
	}
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			return i + 1, e, a, false
		}
	}
	// Only a trailing newline differs.
	return len(expectedLines), fmt.Sprintf("%d lines", len(expectedLines)), fmt.Sprintf("%d lines", len(actualLines)), false
}

// Source file helpers

// WriteJSONLFile writes items to a JSONL file at path and returns the path.
func WriteJSONLFile(t *testing.T, path string, items []model.Item) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(fixture.ToJSONL(items)), 0o644); err != nil {
		t.Fatalf("failed to write items file: %v", err)
	}
	return path
}

// WriteMarkdownDir writes one Markdown file per item into dir, named after
// the item ID, and returns dir.
func WriteMarkdownDir(t *testing.T, dir string, items []model.Item) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	for _, item := range items {
		path := filepath.Join(dir, item.ID+".md")
		if err := os.WriteFile(path, []byte(fixture.ToMarkdown(item)), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

// GetIDs returns the IDs of items, in order.
func GetIDs(items []model.Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
