// Package datasource detects and loads list items from JSONL files, SQLite
// databases and directories of Markdown files, and diffs successive loads.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeJSONL is a file with one JSON object per line
	SourceTypeJSONL SourceType = "jsonl"
	// SourceTypeSQLite is a SQLite database with an items table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeMarkdown is a directory of *.md files, one item per file
	SourceTypeMarkdown SourceType = "markdown"
)

// ErrUnknownSource is returned when a path is not a supported source.
var ErrUnknownSource = errors.New("unknown source type")

// Source describes a detected data source.
type Source struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the file or directory
	Path string `json:"path"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes (0 for directories)
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s Source) String() string {
	return fmt.Sprintf("%s (%s, mod=%s)", s.Path, s.Type, s.ModTime.Format(time.RFC3339))
}

// DetectSource classifies path by extension, or as a Markdown directory.
func DetectSource(path string) (Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Source{}, fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Source{}, fmt.Errorf("stat source: %w", err)
	}

	src := Source{Path: abs, ModTime: info.ModTime()}
	if info.IsDir() {
		src.Type = SourceTypeMarkdown
		return src, nil
	}
	src.Size = info.Size()

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".jsonl":
		src.Type = SourceTypeJSONL
	case ".db", ".sqlite", ".sqlite3":
		src.Type = SourceTypeSQLite
	default:
		return Source{}, fmt.Errorf("%s: %w", path, ErrUnknownSource)
	}
	return src, nil
}
