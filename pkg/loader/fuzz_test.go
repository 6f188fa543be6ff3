package loader

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/vanderheijden86/marktree/pkg/testutil"
)

// FuzzParsePage checks that arbitrary file contents never panic the parser
// and that accepted pages always carry a slug and a label.
//
// Run with: go test -fuzz=FuzzParsePage ./pkg/loader/
func FuzzParsePage(f *testing.F) {
	seeds := []string{
		"",
		"# just a heading\n",
		"---\ntitle: Hello\n---\nbody\n",
		"---\ntitle: [unclosed\n---\n",
		"---\n---\n",
		"---\ntitle: x\n",
		"\xEF\xBB\xBF---\ntitle: BOM\n---\n",
		"+++\ntitle = \"toml\"\n+++\nbody\n",
		"---\ndate: 2021-01-02\ntags: [a, b]\ndraft: true\n---\n",
		"---\nauthor: just a string\n---\n",
		strings.Repeat("-", 1000),
	}
	for _, s := range seeds {
		f.Add("page.md", s)
	}
	f.Add("nested/dir/page.md", testutil.QuickFlat(1).Pages[0].Markdown())

	f.Fuzz(func(t *testing.T, rel, data string) {
		if rel == "" || strings.HasPrefix(rel, "/") {
			return
		}
		doc, err := ParsePage(rel, []byte(data))
		if err != nil {
			return
		}
		if doc.Slug == "" && rel != ".md" {
			t.Errorf("empty slug for %q", rel)
		}
		if doc.Source != rel {
			t.Errorf("source = %q, want %q", doc.Source, rel)
		}
	})
}

// FuzzLoadTree checks that any set of slash paths loads into a well-formed
// tree or fails with an error.
func FuzzLoadTree(f *testing.F) {
	f.Add("a.md\nb/c.md\nb/d/e.md")
	f.Add("index.md\nx/index.md\nx.md")
	f.Add("a b.md\nété/café.md")

	f.Fuzz(func(t *testing.T, list string) {
		fsys := fstest.MapFS{}
		for _, rel := range strings.Split(list, "\n") {
			if rel == "" || !fsValidPath(rel) || !strings.HasSuffix(rel, ".md") {
				continue
			}
			fsys[rel] = &fstest.MapFile{Data: []byte("# page\n")}
		}
		c, err := New(fsys, Options{IndexNames: []string{"index.md"}, WarningHandler: func(string) {}}).Load(context.Background())
		if err != nil {
			return
		}
		testutil.AssertWellFormedTree(t, c.Items())
	})
}

func fsValidPath(rel string) bool {
	if strings.ContainsAny(rel, "\\\x00") {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
