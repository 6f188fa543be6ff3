package loader

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
)

// Corpus is a loaded content folder.
type Corpus struct {
	root  string
	items []model.Doc
	index map[string]int // path key -> items
	slugs map[string]int // slug -> items
	pages []int
}

// NewCorpus builds a corpus from ready-made items, mostly for tests and
// hosts that assemble items themselves.
func NewCorpus(root string, items []model.Doc) *Corpus {
	c := &Corpus{root: root}
	c.items = slices.Clone(items)
	c.reindex()
	return c
}

func (c *Corpus) add(doc model.Doc) {
	c.index[doc.Key()] = len(c.items)
	c.items = append(c.items, doc)
}

func (c *Corpus) reindex() {
	c.index = make(map[string]int, len(c.items))
	c.slugs = make(map[string]int)
	c.pages = c.pages[:0]
	for i, item := range c.items {
		c.index[item.Key()] = i
		if item.IsPage() {
			c.slugs[item.Slug] = i
			c.pages = append(c.pages, i)
		}
	}
}

// RootLabel returns the first path segment shared by every item.
func (c *Corpus) RootLabel() string { return c.root }

// Items returns the tree items: root, folders and pages.
func (c *Corpus) Items() []model.Doc { return c.items }

// Lookup returns the item with the given path key.
func (c *Corpus) Lookup(key string) (model.Doc, bool) {
	i, ok := c.index[strings.Trim(key, "/")]
	if !ok {
		return model.Doc{}, false
	}
	return c.items[i], true
}

// Pages returns every item that has a page, in item order.
func (c *Corpus) Pages() []model.Doc {
	out := make([]model.Doc, len(c.pages))
	for i, idx := range c.pages {
		out[i] = c.items[idx]
	}
	return out
}

// Slugs returns the slug of every page, sorted.
func (c *Corpus) Slugs() []string {
	out := make([]string, 0, len(c.slugs))
	for slug := range c.slugs {
		out = append(out, slug)
	}
	slices.Sort(out)
	return out
}

// Page returns the page with the given slug. A trailing .md is ignored.
func (c *Corpus) Page(slug string) (model.Doc, error) {
	slug = strings.TrimSuffix(strings.Trim(slug, "/"), ".md")
	i, ok := c.slugs[slug]
	if !ok {
		return model.Doc{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return c.items[i], nil
}

// PostBySlug returns only the named fields of one page.
func (c *Corpus) PostBySlug(slug string, fields ...string) (map[string]any, error) {
	doc, err := c.Page(slug)
	if err != nil {
		return nil, err
	}
	return doc.Fields(fields...), nil
}

// Posts returns the pages newest first. Pages without a parseable date come
// last, ordered by slug.
func (c *Corpus) Posts() []model.Doc {
	posts := c.Pages()
	slices.SortStableFunc(posts, comparePosts)
	return posts
}

// AllPosts returns the named fields of every page, newest first.
func (c *Corpus) AllPosts(fields ...string) []map[string]any {
	posts := c.Posts()
	out := make([]map[string]any, len(posts))
	for i, p := range posts {
		out[i] = p.Fields(fields...)
	}
	return out
}

func comparePosts(a, b model.Doc) int {
	at, aok := a.Matter.Time()
	bt, bok := b.Matter.Time()
	switch {
	case aok && bok:
		if c := bt.Compare(at); c != 0 {
			return c
		}
	case aok:
		return -1
	case bok:
		return 1
	}
	return cmp.Compare(a.Slug, b.Slug)
}
