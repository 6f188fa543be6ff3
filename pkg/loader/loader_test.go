package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/testutil"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func sampleFS() fstest.MapFS {
	return fstest.MapFS{
		"hello.md": file(`---
title: Hello World
date: "2021-05-01T10:00:00Z"
author:
  name: Jo
  picture: /jo.png
excerpt: First post
---
# Hello
`),
		"guides/index.md": file(`---
title: Guides Overview
---
All the guides.
`),
		"guides/install.md": file(`---
title: Install
date: "2022-01-01"
---
Run the installer.
`),
		"guides/advanced/tuning.md": file("No front matter here.\n"),
		"drafts/wip.md": file(`---
title: Work in progress
draft: true
---
`),
		"notes.txt":   file("not markdown"),
		".hidden/x.md": file("# hidden"),
	}
}

func itemKeys(items []model.Doc) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Key()
	}
	slices.Sort(out)
	return out
}

func mustLoad(t *testing.T, fsys fstest.MapFS, opts Options) *Corpus {
	t.Helper()
	c, err := New(fsys, opts).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func mustLookup(t *testing.T, c *Corpus, key string) model.Doc {
	t.Helper()
	doc, ok := c.Lookup(key)
	if !ok {
		t.Fatalf("%s not found in %v", key, itemKeys(c.Items()))
	}
	return doc
}

func assertKeys(t *testing.T, c *Corpus, want ...string) {
	t.Helper()
	slices.Sort(want)
	if got := itemKeys(c.Items()); !slices.Equal(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func assertListed(t *testing.T, c *Corpus, key string, want bool) {
	t.Helper()
	if _, ok := c.Lookup(key); ok != want {
		t.Errorf("Lookup(%q) found = %v, want %v", key, ok, want)
	}
}

func TestLoad_BuildsTree(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{IndexNames: []string{"index.md"}})

	assertKeys(t, c,
		"posts",
		"posts/guides",
		"posts/guides/advanced",
		"posts/guides/install",
		"posts/guides/advanced/tuning",
		"posts/hello",
	)

	root := mustLookup(t, c, "posts")
	if root.Type != model.DocRoot || root.Label != "posts" {
		t.Errorf("root = %v %q", root.Type, root.Label)
	}

	guides := mustLookup(t, c, "posts/guides")
	if guides.Type != model.DocFolder {
		t.Errorf("guides type = %v", guides.Type)
	}
	if guides.Label != "Guides Overview" {
		t.Errorf("guides label = %q", guides.Label)
	}
	// The index file gives the folder a page.
	if !guides.IsPage() || guides.Slug != "guides/index" {
		t.Errorf("guides page = %v slug %q", guides.IsPage(), guides.Slug)
	}

	advanced := mustLookup(t, c, "/posts/guides/advanced/")
	if advanced.Label != "advanced" || advanced.IsPage() {
		t.Errorf("advanced = %q page=%v", advanced.Label, advanced.IsPage())
	}

	tuning := mustLookup(t, c, "posts/guides/advanced/tuning")
	// Untitled pages use their file name.
	if tuning.Label != "tuning" {
		t.Errorf("tuning label = %q", tuning.Label)
	}
	if string(tuning.Body) != "No front matter here.\n" {
		t.Errorf("tuning body = %q", tuning.Body)
	}

	hello := mustLookup(t, c, "posts/hello")
	if hello.Label != "Hello World" {
		t.Errorf("hello label = %q", hello.Label)
	}
	if hello.Matter.Author.Name != "Jo" {
		t.Errorf("hello author = %q", hello.Matter.Author.Name)
	}
	if hello.Route() != "/posts/hello" {
		t.Errorf("hello route = %q", hello.Route())
	}
}

func TestLoad_ItemsFormWellFormedTree(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{})

	e, err := treeview.New(c.Items(), model.LabelComparator())
	if err != nil {
		t.Fatalf("treeview.New: %v", err)
	}
	sorted := e.SortedItems()
	if len(sorted) == 0 || sorted[0].Key() != "posts" {
		t.Fatalf("sorted = %v", itemKeys(sorted))
	}
	for _, item := range sorted {
		if err := item.Validate(); err != nil {
			t.Errorf("%s: %v", item.Key(), err)
		}
	}
}

func TestLoad_IndexFileWithoutIndexNamesIsARow(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{})

	assertListed(t, c, "posts/guides/index", true)
	if guides := mustLookup(t, c, "posts/guides"); guides.IsPage() {
		t.Error("guides folder should have no page")
	}
}

func TestLoad_Drafts(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{})
	// Drafts are skipped by default, and a folder with only drafts has no row.
	assertListed(t, c, "posts/drafts/wip", false)
	assertListed(t, c, "posts/drafts", false)

	c = mustLoad(t, sampleFS(), Options{Drafts: true})
	assertListed(t, c, "posts/drafts/wip", true)
}

func TestLoad_IgnoreGlobs(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{Ignore: []string{"guides/advanced/**"}})

	assertListed(t, c, "posts/guides/advanced/tuning", false)
	assertListed(t, c, "posts/guides/advanced", false)
	assertListed(t, c, "posts/guides/install", true)
}

func TestLoad_InvalidPattern(t *testing.T) {
	if _, err := New(sampleFS(), Options{Ignore: []string{"[unclosed"}}).Load(context.Background()); err == nil {
		t.Error("invalid ignore pattern accepted")
	}
}

func TestLoad_CustomRootLabel(t *testing.T) {
	c := mustLoad(t, sampleFS(), Options{RootLabel: "notes"})
	if c.RootLabel() != "notes" {
		t.Errorf("RootLabel = %q", c.RootLabel())
	}
	assertListed(t, c, "notes/guides/install", true)
}

func TestLoad_SiblingFileMergesIntoFolder(t *testing.T) {
	c := mustLoad(t, fstest.MapFS{
		"guides.md":   file("---\ntitle: All Guides\n---\nbody\n"),
		"guides/a.md": file("a\n"),
	}, Options{})

	assertKeys(t, c, "posts", "posts/guides", "posts/guides/a")
	guides := mustLookup(t, c, "posts/guides")
	if guides.Type != model.DocFolder || guides.Label != "All Guides" || guides.Source != "guides.md" {
		t.Errorf("guides = %v %q %q", guides.Type, guides.Label, guides.Source)
	}
}

func TestLoad_DuplicateKeyWarns(t *testing.T) {
	var warnings []string
	c := mustLoad(t, fstest.MapFS{
		"guides.md":       file("one\n"),
		"guides/index.md": file("two\n"),
		"guides/a.md":     file("a\n"),
	}, Options{
		IndexNames:     []string{"index.md"},
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})

	if len(warnings) != 1 || !strings.Contains(warnings[0], "already provides posts/guides") {
		t.Errorf("warnings = %q", warnings)
	}
	if !mustLookup(t, c, "posts/guides").IsPage() {
		t.Error("guides lost its page")
	}
}

func TestLoad_MalformedFrontMatterIsSkipped(t *testing.T) {
	var warnings []string
	c := mustLoad(t, fstest.MapFS{
		"good.md": file("---\ntitle: Good\n---\nok\n"),
		"bad.md":  file("---\ntitle: [unclosed\n---\nbody\n"),
	}, Options{
		WarningHandler: func(msg string) { warnings = append(warnings, msg) },
	})

	if len(warnings) != 1 || !strings.Contains(warnings[0], "bad.md") {
		t.Errorf("warnings = %q", warnings)
	}
	assertListed(t, c, "posts/bad", false)
	assertListed(t, c, "posts/good", true)
}

func TestLoad_NoContent(t *testing.T) {
	_, err := New(fstest.MapFS{"readme.txt": file("x")}, Options{}).Load(context.Background())
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(sampleFS(), Options{}).Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b", "c.md"), []byte("# C\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadDir(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	assertKeys(t, c, "posts", "posts/a", "posts/a/b", "posts/a/b/c")

	page, err := c.Page("a/b/c")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.ModTime.IsZero() {
		t.Error("ModTime not set for a file on disk")
	}

	if _, err := LoadDir(context.Background(), filepath.Join(dir, "missing"), Options{}); err == nil {
		t.Error("LoadDir of a missing folder succeeded")
	}
}

func TestParsePage_StripsBOM(t *testing.T) {
	doc, err := ParsePage("x.md", append([]byte{0xEF, 0xBB, 0xBF}, []byte("---\ntitle: X\n---\nbody\n")...))
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if doc.Label != "X" || doc.Slug != "x" || string(doc.Body) != "body\n" {
		t.Errorf("doc = %q %q %q", doc.Label, doc.Slug, doc.Body)
	}
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site.RootLabel = "docs"
	cfg.Content.Ignore = []string{"drafts/**"}
	cfg.Content.Drafts = true

	opts := OptionsFrom(cfg)
	if opts.RootLabel != "docs" {
		t.Errorf("RootLabel = %q", opts.RootLabel)
	}
	if opts.Pattern != "**/*.md" {
		t.Errorf("Pattern = %q", opts.Pattern)
	}
	if !slices.Equal(opts.Ignore, []string{"drafts/**"}) {
		t.Errorf("Ignore = %v", opts.Ignore)
	}
	if !slices.Equal(opts.IndexNames, []string{"index.md", "README.md"}) {
		t.Errorf("IndexNames = %v", opts.IndexNames)
	}
	if !opts.Drafts {
		t.Error("Drafts not carried over")
	}
}

func TestLoad_GeneratedTree(t *testing.T) {
	cfg := testutil.DefaultConfig()
	cfg.IndexName = "index.md"
	cfg.DraftRatio = 0.2
	content := testutil.New(cfg).Tree(3, 3)

	c := mustLoad(t, content.MapFS(), Options{IndexNames: []string{"index.md"}})
	testutil.AssertWellFormedTree(t, c.Items())
	if got, want := len(c.Pages()), content.Published(); got != want {
		t.Errorf("%d pages, want %d", got, want)
	}
}
