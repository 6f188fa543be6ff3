// Package loader turns a folder of markdown files into the flat item list
// behind the sidebar tree.
//
// Every page becomes a file item whose path is the root label followed by
// its folders and its base name. Every folder holding a page becomes a
// folder item, and a single root item heads the list, so each branch point
// of the tree has an item of its own.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/metrics"
	"github.com/vanderheijden86/marktree/pkg/model"
)

// Errors returned by the loader.
var (
	ErrNoContent = errors.New("no markdown content")
	ErrNotFound  = errors.New("page not found")
)

// DefaultRootLabel is the first path segment when Options.RootLabel is empty.
const DefaultRootLabel = "posts"

// DefaultConcurrency bounds parallel file parsing.
const DefaultConcurrency = 16

// Options configures a Loader.
type Options struct {
	// RootLabel names the root item and prefixes every path.
	RootLabel string

	// Pattern selects page files (doublestar syntax, slash separated,
	// relative to the content folder). Defaults to "**/*.md".
	Pattern string

	// Ignore lists doublestar globs for files and folders to skip.
	Ignore []string

	// IndexNames are file names whose page describes their folder instead of
	// being a row of its own, e.g. "index.md".
	IndexNames []string

	// Drafts keeps pages whose front matter sets draft: true.
	Drafts bool

	// WarningHandler receives non-fatal problems such as unreadable front
	// matter. If nil, warnings go to the loader's logger.
	WarningHandler func(string)

	// Concurrency bounds parallel parsing. Defaults to DefaultConcurrency.
	Concurrency int
}

// OptionsFrom maps the site and content sections of the config.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		RootLabel:  cfg.Site.RootLabel,
		Pattern:    cfg.Content.Pattern,
		Ignore:     cfg.Content.Ignore,
		IndexNames: cfg.Content.IndexNames,
		Drafts:     cfg.Content.Drafts,
	}
}

// Loader reads a content folder.
type Loader struct {
	fsys   fs.FS
	opts   Options
	logger *log.Logger
}

// New returns a loader over fsys.
func New(fsys fs.FS, opts Options) *Loader {
	if opts.RootLabel == "" {
		opts.RootLabel = DefaultRootLabel
	}
	if strings.TrimSpace(opts.Pattern) == "" {
		opts.Pattern = "**/*.md"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Loader{
		fsys: fsys,
		opts: opts,
		// Silence by default. Callers can opt in via SetLogger.
		logger: log.New(io.Discard, "", 0),
	}
}

// SetLogger sets the logger for warnings and progress.
func (l *Loader) SetLogger(logger *log.Logger) {
	l.logger = logger
}

// LoadDir loads the content folder at dir.
func LoadDir(ctx context.Context, dir string, opts Options) (*Corpus, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", dir)
	}
	return New(os.DirFS(dir), opts).Load(ctx)
}

type source struct {
	rel     string // slash path relative to the content root
	modTime time.Time
}

// Load walks the content folder and parses every page.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	defer metrics.Timer(metrics.ContentLoad)()
	defer debug.LogEnterExit("loader.Load")()

	if err := l.validatePatterns(); err != nil {
		return nil, err
	}

	sources, err := l.discover(ctx)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoContent
	}

	pages, err := l.parseAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoContent
	}

	c := l.assemble(pages)
	l.logger.Printf("loaded %d pages, %d tree items", len(c.pages), len(c.items))
	return c, nil
}

func (l *Loader) validatePatterns() error {
	if !doublestar.ValidatePattern(l.opts.Pattern) {
		return fmt.Errorf("invalid content pattern %q", l.opts.Pattern)
	}
	for _, glob := range l.opts.Ignore {
		if !doublestar.ValidatePattern(glob) {
			return fmt.Errorf("invalid ignore pattern %q", glob)
		}
	}
	return nil
}

func (l *Loader) ignored(rel string, dir bool) bool {
	if strings.HasPrefix(path.Base(rel), ".") {
		return true
	}
	for _, glob := range l.opts.Ignore {
		if ok, _ := doublestar.Match(glob, rel); ok {
			return true
		}
		if dir {
			if ok, _ := doublestar.Match(glob, rel+"/"); ok {
				return true
			}
		}
	}
	return false
}

func (l *Loader) discover(ctx context.Context) ([]source, error) {
	var sources []source
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && l.ignored(p, true) {
				return fs.SkipDir
			}
			return nil
		}
		if l.ignored(p, false) {
			return nil
		}
		if ok, _ := doublestar.Match(l.opts.Pattern, p); !ok {
			return nil
		}
		var mod time.Time
		if info, err := d.Info(); err == nil {
			mod = info.ModTime()
		}
		sources = append(sources, source{rel: p, modTime: mod})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking content: %w", err)
	}
	return sources, nil
}

func (l *Loader) warn(msg string) {
	if l.opts.WarningHandler != nil {
		l.opts.WarningHandler(msg)
		return
	}
	l.logger.Printf("Warning: %s", msg)
}

func (l *Loader) parseAll(ctx context.Context, sources []source) ([]model.Doc, error) {
	results := make([]*model.Doc, len(sources))
	warnings := make([]string, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(l.fsys, src.rel)
			if err != nil {
				return fmt.Errorf("reading %s: %w", src.rel, err)
			}
			doc, err := ParsePage(src.rel, data)
			if err != nil {
				warnings[i] = fmt.Sprintf("skipping %s: %v", src.rel, err)
				return nil
			}
			doc.ModTime = src.modTime
			results[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]model.Doc, 0, len(results))
	for i, doc := range results {
		if warnings[i] != "" {
			l.warn(warnings[i])
			continue
		}
		if doc == nil {
			continue
		}
		if doc.Matter.Draft && !l.opts.Drafts {
			debug.Log("loader: skipping draft %s", doc.Source)
			continue
		}
		pages = append(pages, *doc)
	}
	return pages, nil
}

// ParsePage splits a markdown file into front matter and body. The returned
// doc has its Source, Slug, Matter, Body and Label set; Path and Type are
// assigned when the corpus is assembled.
func ParsePage(rel string, data []byte) (model.Doc, error) {
	data = stripBOM(data)
	var matter model.FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(data), &matter)
	if err != nil {
		return model.Doc{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	slug := strings.TrimSuffix(rel, path.Ext(rel))
	label := matter.Title
	if label == "" {
		label = path.Base(slug)
	}
	return model.Doc{
		Label:  label,
		Type:   model.DocFile,
		Slug:   slug,
		Source: rel,
		Matter: matter,
		Body:   body,
	}, nil
}

func (l *Loader) isIndex(rel string) bool {
	return slices.Contains(l.opts.IndexNames, path.Base(rel))
}

// assemble builds the item list: root first, then folders and files in
// discovery order. Folders are created for every directory on the way to a
// page. A page whose key equals a folder key (guides.md next to guides/) or
// an index file is merged into that folder row.
func (l *Loader) assemble(pages []model.Doc) *Corpus {
	root := l.opts.RootLabel
	c := &Corpus{
		root:  root,
		index: make(map[string]int),
		slugs: make(map[string]int),
	}
	c.add(model.Doc{Path: []string{root}, Label: root, Type: model.DocRoot})

	folderOf := func(dirs []string) {
		for n := 1; n <= len(dirs); n++ {
			p := append([]string{root}, dirs[:n]...)
			if _, ok := c.index[strings.Join(p, "/")]; ok {
				continue
			}
			c.add(model.Doc{Path: p, Label: dirs[n-1], Type: model.DocFolder})
		}
	}

	var merged []model.Doc
	for _, page := range pages {
		var dirs []string
		if dir := path.Dir(page.Slug); dir != "." {
			dirs = strings.Split(dir, "/")
		}

		folderOf(dirs)
		if l.isIndex(page.Source) {
			merged = append(merged, withPath(page, append([]string{root}, dirs...)))
			continue
		}
		p := append(append([]string{root}, dirs...), path.Base(page.Slug))
		merged = append(merged, withPath(page, p))
	}

	// Pages go in after the folders so a page like guides.md can merge into
	// a folder that is only discovered later in the walk.
	for _, page := range merged {
		key := page.Key()
		if i, ok := c.index[key]; ok {
			existing := c.items[i]
			if existing.IsPage() {
				l.warn(fmt.Sprintf("skipping %s: %s already provides %s", page.Source, existing.Source, key))
				continue
			}
			// The row stays a folder (or the root). Untitled pages keep the
			// folder name; the root always keeps the root label.
			page.Type = existing.Type
			if page.Matter.Title == "" || existing.Type == model.DocRoot {
				page.Label = existing.Label
			}
			c.items[i] = page
			continue
		}
		c.add(page)
	}
	c.reindex()
	return c
}

func withPath(doc model.Doc, p []string) model.Doc {
	doc.Path = slices.Clone(p)
	return doc
}

// stripBOM removes the UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
