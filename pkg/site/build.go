// Package site generates the static site: one page per markdown file, a
// home page, the sidebar tree on every page and the machine-readable
// tree.json, posts.json and sitemap.xml.
package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/metrics"
	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/render"
	"github.com/vanderheijden86/marktree/pkg/search"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// DefaultConcurrency bounds parallel page writes.
const DefaultConcurrency = 16

// DefaultRecentPosts is the number of posts listed on the home page.
const DefaultRecentPosts = 10

// manifestName records the files of the last build so stale ones can be
// removed.
const manifestName = ".marktree-manifest.json"

// Options configures a Builder.
type Options struct {
	OutDir    string
	Title     string
	BaseURL   string
	HomeRoute string

	// SearchIndex writes search.sqlite3 next to the pages.
	SearchIndex bool
	RecentPosts int

	// Node renders sidebar labels. Defaults to LinkNode.
	Node        NodeRenderer
	Concurrency int
}

// OptionsFrom maps the site section of the config.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		OutDir:    cfg.Site.OutDir,
		Title:     cfg.Site.Title,
		BaseURL:   cfg.Site.BaseURL,
		HomeRoute: cfg.Site.HomeRoute,
	}
}

// Result summarizes a build.
type Result struct {
	Pages    int
	Files    []string // slash paths relative to OutDir, sorted
	Removed  []string // stale files from the previous build
	Duration time.Duration
}

// Builder writes a corpus to OutDir.
type Builder struct {
	opts     Options
	renderer *render.Renderer
	tmpl     *template.Template
	logger   *log.Logger
}

// NewBuilder returns a builder that renders page bodies with r.
func NewBuilder(opts Options, r *render.Renderer) (*Builder, error) {
	if opts.OutDir == "" {
		return nil, fmt.Errorf("site: output directory not set")
	}
	if opts.HomeRoute == "" {
		opts.HomeRoute = "/"
	}
	if opts.RecentPosts <= 0 {
		opts.RecentPosts = DefaultRecentPosts
	}
	if opts.Node == nil {
		opts.Node = LinkNode
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("site templates: %w", err)
	}
	return &Builder{
		opts:     opts,
		renderer: r,
		tmpl:     tmpl,
		logger:   log.New(io.Discard, "", 0),
	}, nil
}

// SetLogger sets the logger for build progress.
func (b *Builder) SetLogger(logger *log.Logger) {
	b.logger = logger
}

// OutDir returns the output folder.
func (b *Builder) OutDir() string {
	return b.opts.OutDir
}

type siteData struct {
	Title   string
	BaseURL string
}

type metaData struct {
	Author   model.Author
	Date     string
	DateTime string
}

type pageData struct {
	Site        siteData
	Title       string
	Description string
	Canonical   string
	OGImage     string
	Sidebar     template.HTML

	Meta       metaData
	CoverImage string
	Headings   []render.Heading
	Content    template.HTML
}

type postSummary struct {
	Route   string
	Title   string
	Excerpt string
	Meta    metaData
}

type homeData struct {
	pageData
	Posts []postSummary
}

// fileSet collects written files across workers.
type fileSet struct {
	mu    sync.Mutex
	files []string
}

func (s *fileSet) add(rel string) {
	s.mu.Lock()
	s.files = append(s.files, rel)
	s.mu.Unlock()
}

// Build writes every page, the home page, the assets and the data files.
// A malformed tree fails the build before anything is written.
func (b *Builder) Build(ctx context.Context, c *loader.Corpus) (*Result, error) {
	start := time.Now()
	defer metrics.Timer(metrics.SiteBuild)()
	defer debug.LogEnterExit("site.Build")()

	sorted, err := treeview.SortItems(c.Items(), model.LabelComparator())
	if err != nil {
		return nil, fmt.Errorf("sorting tree: %w", err)
	}
	if err := os.MkdirAll(b.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	written := &fileSet{}
	pages := c.Pages()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for _, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return b.writePage(sorted, page, written)
		})
	}
	g.Go(func() error { return b.writeHome(sorted, c, written) })
	g.Go(func() error { return b.writeAssets(written) })
	g.Go(func() error { return b.writeData(sorted, c, written) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.opts.SearchIndex {
		if err := search.BuildIndex(ctx, filepath.Join(b.opts.OutDir, search.FileName), search.DocumentsFromPages(pages)); err != nil {
			return nil, err
		}
		written.add(search.FileName)
	}

	slices.Sort(written.files)
	removed, err := b.prune(written.files)
	if err != nil {
		b.logger.Printf("Warning: pruning stale files: %v", err)
	}

	res := &Result{
		Pages:    len(pages),
		Files:    written.files,
		Removed:  removed,
		Duration: time.Since(start),
	}
	b.logger.Printf("built %d pages into %s in %v", res.Pages, b.opts.OutDir, res.Duration.Round(time.Millisecond))
	return res, nil
}

// newEngine returns a fresh sidebar engine with the route applied. Each
// page gets its own engine and comparator so workers share nothing.
func (b *Builder) newEngine(sorted []model.Doc, route string) (*treeview.Engine[model.Doc], error) {
	e, err := treeview.New(sorted, model.LabelComparator())
	if err != nil {
		return nil, err
	}
	ApplyRoute(e, route, b.opts.HomeRoute)
	return e, nil
}

func (b *Builder) base(sorted []model.Doc, route string) (pageData, error) {
	e, err := b.newEngine(sorted, route)
	if err != nil {
		return pageData{}, err
	}
	data := pageData{
		Site:    siteData{Title: b.opts.Title, BaseURL: b.opts.BaseURL},
		Sidebar: RenderSidebar(e, route, b.opts.Node),
	}
	if b.opts.BaseURL != "" {
		data.Canonical = b.absURL(route)
	}
	return data, nil
}

func (b *Builder) absURL(route string) string {
	return strings.TrimSuffix(b.opts.BaseURL, "/") + RouteURL(route)
}

func pageMeta(doc model.Doc) metaData {
	m := metaData{Author: doc.Matter.Author}
	if t, ok := doc.Matter.Time(); ok {
		m.Date = t.Format("January 2, 2006")
		m.DateTime = t.Format(time.RFC3339)
	}
	return m
}

func (b *Builder) writePage(sorted []model.Doc, page model.Doc, written *fileSet) error {
	rendered, err := b.renderer.Render(page.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", page.Source, err)
	}
	data, err := b.base(sorted, page.Route())
	if err != nil {
		return err
	}
	data.Title = page.Title()
	data.Description = page.Matter.Excerpt
	data.Meta = pageMeta(page)
	data.CoverImage = page.Matter.CoverImage
	data.OGImage = page.Matter.OGImage.URL
	data.Headings = rendered.Headings
	data.Content = template.HTML(rendered.HTML)

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "page.html", data); err != nil {
		return fmt.Errorf("%s: %w", page.Source, err)
	}
	return b.writeFile(path.Join(page.Key(), "index.html"), buf.Bytes(), written)
}

func (b *Builder) writeHome(sorted []model.Doc, c *loader.Corpus, written *fileSet) error {
	data, err := b.base(sorted, b.opts.HomeRoute)
	if err != nil {
		return err
	}
	home := homeData{pageData: data}
	for i, post := range c.Posts() {
		if i == b.opts.RecentPosts {
			break
		}
		home.Posts = append(home.Posts, postSummary{
			Route:   RouteURL(post.Route()),
			Title:   post.Title(),
			Excerpt: post.Matter.Excerpt,
			Meta:    pageMeta(post),
		})
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, "home.html", home); err != nil {
		return fmt.Errorf("home page: %w", err)
	}
	rel := path.Join(strings.Trim(NormalizeRoute(b.opts.HomeRoute), "/"), "index.html")
	return b.writeFile(rel, buf.Bytes(), written)
}

func (b *Builder) writeAssets(written *fileSet) error {
	return fs.WalkDir(Assets(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(Assets(), p)
		if err != nil {
			return err
		}
		return b.writeFile(path.Join("assets", p), data, written)
	})
}

func (b *Builder) writeData(sorted []model.Doc, c *loader.Corpus, written *fileSet) error {
	e, err := treeview.New(sorted, model.LabelComparator())
	if err != nil {
		return err
	}
	tree, err := TreeJSON(e)
	if err != nil {
		return fmt.Errorf("tree.json: %w", err)
	}
	if err := b.writeFile("tree.json", tree, written); err != nil {
		return err
	}

	posts, err := json.MarshalIndent(c.AllPosts(
		model.FieldSlug, model.FieldRoute, model.FieldTitle, model.FieldDate,
		model.FieldAuthor, model.FieldExcerpt, model.FieldCoverImage, model.FieldOGImage,
	), "", "  ")
	if err != nil {
		return fmt.Errorf("posts.json: %w", err)
	}
	if err := b.writeFile("posts.json", posts, written); err != nil {
		return err
	}

	sitemap, err := Sitemap(b.opts.BaseURL, c.Pages())
	if err != nil {
		return fmt.Errorf("sitemap.xml: %w", err)
	}
	return b.writeFile("sitemap.xml", sitemap, written)
}

func (b *Builder) writeFile(rel string, data []byte, written *fileSet) error {
	full := filepath.Join(b.opts.OutDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return err
	}
	written.add(rel)
	return nil
}

// prune removes files listed by the previous build's manifest that this
// build did not write, then records the new manifest.
func (b *Builder) prune(files []string) ([]string, error) {
	manifest := filepath.Join(b.opts.OutDir, manifestName)

	var previous []string
	if data, err := os.ReadFile(manifest); err == nil {
		if err := json.Unmarshal(data, &previous); err != nil {
			debug.Log("site: ignoring unreadable manifest: %v", err)
			previous = nil
		}
	}

	var removed []string
	for _, rel := range previous {
		if _, ok := slices.BinarySearch(files, rel); ok {
			continue
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			continue
		}
		full := filepath.Join(b.opts.OutDir, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, rel)
		removeEmptyParents(b.opts.OutDir, filepath.Dir(full))
	}

	data, err := json.Marshal(files)
	if err != nil {
		return removed, err
	}
	return removed, os.WriteFile(manifest, data, 0o644)
}

func removeEmptyParents(root, dir string) {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}
