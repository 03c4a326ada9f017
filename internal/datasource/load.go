package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/virtlist/pkg/debug"
	"github.com/vanderheijden86/virtlist/pkg/metrics"
	"github.com/vanderheijden86/virtlist/pkg/model"
)

// Load detects the source at path and loads its items.
func Load(ctx context.Context, path string) ([]model.Item, Source, error) {
	src, err := DetectSource(path)
	if err != nil {
		return nil, Source{}, err
	}
	items, err := LoadFromSource(ctx, src)
	if err != nil {
		return nil, src, err
	}
	return items, src, nil
}

// LoadFromSource loads items from a specific Source, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source Source) ([]model.Item, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	var (
		items []model.Item
		err   error
	)
	switch source.Type {
	case SourceTypeSQLite:
		var reader *SQLiteReader
		reader, err = NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()
		items, err = reader.LoadItems(ctx)

	case SourceTypeJSONL:
		items, err = LoadJSONL(source.Path)

	case SourceTypeMarkdown:
		items, err = LoadMarkdownDir(ctx, source.Path)

	default:
		return nil, fmt.Errorf("%s: %w", source.Type, ErrUnknownSource)
	}
	if err != nil {
		return nil, err
	}
	debug.Log("datasource: loaded %d items from %s", len(items), source)
	return items, nil
}
