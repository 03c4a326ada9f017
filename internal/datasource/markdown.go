package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/virtlist/pkg/model"
)

// markdownLoadLimit caps concurrent file reads.
const markdownLoadLimit = 8

// LoadMarkdownDir reads every *.md file in dir (not recursive), sorted by
// name. The item ID is the file stem; the title is the first "# " heading,
// or the stem if there is none.
func LoadMarkdownDir(ctx context.Context, dir string) ([]model.Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	items := make([]model.Item, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(markdownLoadLimit)

	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			items[i] = parseMarkdownItem(strings.TrimSuffix(name, filepath.Ext(name)), string(data))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// parseMarkdownItem lifts the first level-one heading into the title and
// keeps the rest as the body.
func parseMarkdownItem(stem, content string) model.Item {
	item := model.Item{ID: stem, Title: stem}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# ") {
			item.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			lines = append(lines[:i:i], lines[i+1:]...)
			break
		}
	}
	item.Body = strings.TrimSpace(strings.Join(lines, "\n"))
	return item
}
