package datasource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/model"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 10 * 1024 * 1024

// jsonlRecord accepts beads-style "description" as an alias for body.
type jsonlRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Description string `json:"description"`
}

// LoadJSONL reads items from a JSONL file.
func LoadJSONL(path string) ([]model.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open items file: %w", err)
	}
	defer file.Close()

	return ParseJSONL(file)
}

// ParseJSONL parses one item per line. Blank lines are skipped, malformed
// lines and duplicate IDs are skipped with a debug log, and items without an
// ID get "line-N".
func ParseJSONL(r io.Reader) ([]model.Item, error) {
	var items []model.Item
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if lineNum == 1 {
			line = stripBOM(line)
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			debug.Log("datasource: skipping malformed JSON on line %d: %v", lineNum, err)
			continue
		}

		item := model.Item{
			ID:    strings.TrimSpace(rec.ID),
			Title: rec.Title,
			Body:  rec.Body,
		}
		if item.Body == "" {
			item.Body = rec.Description
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("line-%d", lineNum)
		}
		if seen[item.ID] {
			debug.Log("datasource: skipping duplicate id %q on line %d", item.ID, lineNum)
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading items stream: %w", err)
	}
	return items, nil
}

// WriteJSONL writes items one per line.
func WriteJSONL(w io.Writer, items []model.Item) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return fmt.Errorf("encoding %s: %w", it.ID, err)
		}
	}
	return nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
