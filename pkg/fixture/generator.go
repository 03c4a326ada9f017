// Package fixture generates item lists of varying heights for the --fixture
// mode, benchmark datasets and tests. The same seed always yields the same
// items.
package fixture

import (
	"fmt"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/virtlist/pkg/model"
)

// GeneratorConfig controls item generation.
type GeneratorConfig struct {
	Seed     uint64 // Random seed for determinism (0 = random)
	IDPrefix string // Prefix for item IDs (default: "item")
	MinBody  int    // Minimum body sentences
	MaxBody  int    // Maximum body sentences
	Markdown bool   // Emit Markdown bodies (lists, emphasis)
}

// DefaultConfig returns the config QuickItems uses.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42, // Deterministic
		IDPrefix: "item",
		MinBody:  0,
		MaxBody:  4,
	}
}

// Generator creates item fixtures of varying heights.
type Generator struct {
	cfg   GeneratorConfig
	faker *gofakeit.Faker
	next  int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "item"
	}
	if cfg.MaxBody < cfg.MinBody {
		cfg.MaxBody = cfg.MinBody
	}
	return &Generator{
		cfg:   cfg,
		faker: gofakeit.New(cfg.Seed),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ID returns the ID of the i-th generated item.
func (g *Generator) ID(i int) string {
	return fmt.Sprintf("%s-%d", g.cfg.IDPrefix, i)
}

// Item generates the next item.
func (g *Generator) Item() model.Item {
	id := g.ID(g.next)
	g.next++
	return model.Item{
		ID:    id,
		Title: g.title(),
		Body:  g.body(),
	}
}

// Items generates n items with consecutive IDs.
func (g *Generator) Items(n int) []model.Item {
	items := make([]model.Item, 0, max(n, 0))
	for i := 0; i < n; i++ {
		items = append(items, g.Item())
	}
	return items
}

// Mutate returns a new generation of items: roughly one in ten removed, one
// in ten rewritten, and a few new items inserted at random positions. The
// input slice is not modified.
func (g *Generator) Mutate(items []model.Item) []model.Item {
	out := make([]model.Item, 0, len(items)+len(items)/10+1)
	for _, it := range items {
		switch g.faker.Number(0, 9) {
		case 0:
			continue
		case 1:
			it.Body = g.body()
		}
		out = append(out, it)
	}
	for k := 0; k < len(items)/10+1; k++ {
		pos := g.faker.Number(0, len(out))
		out = slices.Insert(out, pos, g.Item())
	}
	return out
}

func (g *Generator) title() string {
	if g.faker.Number(0, 3) == 0 {
		return strings.TrimSuffix(g.faker.Sentence(g.faker.Number(3, 8)), ".")
	}
	return g.faker.HackerPhrase()
}

func (g *Generator) body() string {
	n := g.faker.Number(g.cfg.MinBody, g.cfg.MaxBody)
	if n == 0 {
		return ""
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s := g.faker.Sentence(g.faker.Number(4, 16))
		if g.cfg.Markdown {
			switch i % 3 {
			case 1:
				s = "- " + s
			case 2:
				s = fmt.Sprintf("**%s** %s", g.faker.Noun(), s)
			}
		}
		lines = append(lines, s)
	}
	if g.cfg.Markdown {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines, " ")
}

// ToJSONL converts items to JSONL format (one JSON object per line).
func ToJSONL(items []model.Item) string {
	var sb strings.Builder
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToMarkdown renders an item as a Markdown file with a level-one heading.
func ToMarkdown(item model.Item) string {
	var sb strings.Builder
	if item.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(item.Title)
		sb.WriteString("\n\n")
	}
	sb.WriteString(item.Body)
	sb.WriteByte('\n')
	return sb.String()
}

// QuickItems generates n items with the default config.
func QuickItems(n int) []model.Item {
	return NewDefault().Items(n)
}
