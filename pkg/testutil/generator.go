// Package testutil generates content folders for tests and benchmarks.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"path"
	"slices"
	"strings"
	"testing/fstest"
	"time"
)

// GeneratorConfig controls page generation.
type GeneratorConfig struct {
	Seed       int64     // Random seed for determinism (0 = use current time)
	BaseTime   time.Time // Date of the newest page (default: fixed time)
	DatedRatio float64   // Share of pages with a date (default: all)
	DraftRatio float64   // Share of pages marked draft
	IndexName  string    // When set, every folder gets an index page with this name
	Tags       []string  // Tag pool; pages pick up to two
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:       42,
		BaseTime:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		DatedRatio: 1,
		Tags:       []string{"go", "docs", "howto", "release"},
	}
}

// Page is one generated markdown file.
type Page struct {
	Rel   string // slash path relative to the content folder
	Title string
	Date  string
	Draft bool
	Tags  []string
	Body  string
}

// Markdown renders the page with its front matter block.
func (p Page) Markdown() string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", p.Title)
	if p.Date != "" {
		fmt.Fprintf(&b, "date: %q\n", p.Date)
	}
	if p.Draft {
		b.WriteString("draft: true\n")
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(p.Tags, ", "))
	}
	b.WriteString("---\n")
	b.WriteString(p.Body)
	return b.String()
}

// Content is a generated content folder.
type Content struct {
	Description string
	Pages       []Page
}

// Generator creates content folders of various shapes.
type Generator struct {
	cfg   GeneratorConfig
	rng   *rand.Rand
	count int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.BaseTime.IsZero() {
		cfg.BaseTime = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with DefaultConfig.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

var words = []string{
	"tree", "sidebar", "install", "guide", "release", "config", "render",
	"folder", "page", "search", "route", "theme", "deploy", "build", "notes",
}

func (g *Generator) sentence(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = words[g.rng.Intn(len(words))]
	}
	s := strings.Join(out, " ")
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (g *Generator) page(rel string) Page {
	g.count++
	p := Page{
		Rel:   rel,
		Title: fmt.Sprintf("Page %d %s", g.count, words[g.rng.Intn(len(words))]),
		Body:  fmt.Sprintf("## %s\n\n%s\n\n%s\n", g.sentence(3), g.sentence(12), g.sentence(8)),
	}
	if g.rng.Float64() < g.cfg.DatedRatio {
		p.Date = g.cfg.BaseTime.Add(-time.Duration(g.count) * time.Hour).Format(time.RFC3339)
	}
	if g.cfg.DraftRatio > 0 && g.rng.Float64() < g.cfg.DraftRatio {
		p.Draft = true
	}
	if len(g.cfg.Tags) > 0 {
		for range g.rng.Intn(3) {
			tag := g.cfg.Tags[g.rng.Intn(len(g.cfg.Tags))]
			if !slices.Contains(p.Tags, tag) {
				p.Tags = append(p.Tags, tag)
			}
		}
	}
	return p
}

// Flat creates n pages in the content root.
func (g *Generator) Flat(n int) Content {
	c := Content{Description: fmt.Sprintf("Flat folder with %d pages", n)}
	for i := range n {
		c.Pages = append(c.Pages, g.page(fmt.Sprintf("page-%03d.md", i)))
	}
	return c
}

// Tree creates folders nested depth levels deep, each holding breadth
// sub-folders and breadth pages.
func (g *Generator) Tree(depth, breadth int) Content {
	if depth < 1 {
		depth = 1
	}
	if breadth < 1 {
		breadth = 1
	}
	c := Content{}
	var walk func(dir string, level int)
	walk = func(dir string, level int) {
		if dir != "" && g.cfg.IndexName != "" {
			c.Pages = append(c.Pages, g.page(path.Join(dir, g.cfg.IndexName)))
		}
		for b := range breadth {
			c.Pages = append(c.Pages, g.page(path.Join(dir, fmt.Sprintf("page-%d.md", b))))
		}
		if level == depth {
			return
		}
		for b := range breadth {
			walk(path.Join(dir, fmt.Sprintf("section-%d", b)), level+1)
		}
	}
	walk("", 1)
	c.Description = fmt.Sprintf("Tree with depth=%d, breadth=%d (%d pages)", depth, breadth, len(c.Pages))
	return c
}

// Deep creates a single chain of depth folders with one page at the bottom.
func (g *Generator) Deep(depth int) Content {
	dirs := make([]string, depth)
	for i := range dirs {
		dirs[i] = fmt.Sprintf("level-%d", i+1)
	}
	rel := path.Join(append(dirs, "leaf.md")...)
	return Content{
		Description: fmt.Sprintf("Chain of %d folders", depth),
		Pages:       []Page{g.page(rel)},
	}
}

// MapFS returns the content as an in-memory file system.
func (c Content) MapFS() fstest.MapFS {
	fsys := make(fstest.MapFS, len(c.Pages))
	for _, p := range c.Pages {
		fsys[p.Rel] = &fstest.MapFile{Data: []byte(p.Markdown()), ModTime: time.Unix(0, 0)}
	}
	return fsys
}

// Size is the total number of markdown bytes.
func (c Content) Size() int {
	n := 0
	for _, p := range c.Pages {
		n += len(p.Markdown())
	}
	return n
}

// Published counts pages that are not drafts.
func (c Content) Published() int {
	n := 0
	for _, p := range c.Pages {
		if !p.Draft {
			n++
		}
	}
	return n
}

// QuickTree generates a Tree with DefaultConfig.
func QuickTree(depth, breadth int) Content {
	return NewDefault().Tree(depth, breadth)
}

// QuickFlat generates a Flat folder with DefaultConfig.
func QuickFlat(n int) Content {
	return NewDefault().Flat(n)
}
