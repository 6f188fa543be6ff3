package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/marktree/pkg/model"
)

func sampleDocs() []Document {
	return []Document{
		{Key: "posts/guides/install", Route: "/posts/guides/install", Title: "Install guide", Tags: "setup", Body: "Download the binary and run it."},
		{Key: "posts/notes", Route: "/posts/notes", Title: "Notes", Body: "Random notes. We install things sometimes."},
		{Key: "posts/hello", Route: "/posts/hello", Title: "Hello", Tags: "intro", Body: "Welcome to the site."},
	}
}

func buildSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out", FileName)
	if err := BuildIndex(context.Background(), path, sampleDocs()); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return path
}

func mustSearch(t *testing.T, path, query string, limit int) []Hit {
	t.Helper()
	hits, err := Search(context.Background(), path, query, limit)
	if err != nil {
		t.Fatalf("Search(%q): %v", query, err)
	}
	return hits
}

func hitKeys(hits []Hit) string {
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.Key
	}
	return strings.Join(keys, ",")
}

func TestSearch_TitleOutranksBody(t *testing.T) {
	hits := mustSearch(t, buildSample(t), "install", 10)
	if got := hitKeys(hits); got != "posts/guides/install,posts/notes" {
		t.Fatalf("hits = %s", got)
	}
	if hits[0].Route != "/posts/guides/install" {
		t.Errorf("route = %q", hits[0].Route)
	}
	if hits[0].Rank > hits[1].Rank {
		t.Errorf("ranks out of order: %v > %v", hits[0].Rank, hits[1].Rank)
	}
	if !strings.Contains(hits[1].Snippet, "[install]") {
		t.Errorf("snippet = %q", hits[1].Snippet)
	}
}

func TestSearch_PrefixAndTags(t *testing.T) {
	path := buildSample(t)

	if got := hitKeys(mustSearch(t, path, "welc", 10)); got != "posts/hello" {
		t.Errorf("prefix hits = %s", got)
	}
	hits := mustSearch(t, path, "setup", 10)
	if len(hits) != 1 || hits[0].Title != "Install guide" {
		t.Errorf("tag hits = %+v", hits)
	}
}

func TestSearch_AllWordsMustMatch(t *testing.T) {
	if got := hitKeys(mustSearch(t, buildSample(t), "install binary", 10)); got != "posts/guides/install" {
		t.Errorf("hits = %s", got)
	}
}

func TestSearch_Limit(t *testing.T) {
	if hits := mustSearch(t, buildSample(t), "install", 1); len(hits) != 1 {
		t.Errorf("%d hits, want 1", len(hits))
	}
}

func TestSearch_EmptyAndOddQueries(t *testing.T) {
	path := buildSample(t)

	if hits := mustSearch(t, path, "   ", 10); len(hits) != 0 {
		t.Errorf("blank query hits = %+v", hits)
	}
	// FTS syntax in the query is quoted away.
	mustSearch(t, path, `c++ "quoted AND (`, 10)
}

func TestSearch_MissingIndex(t *testing.T) {
	_, err := Search(context.Background(), filepath.Join(t.TempDir(), FileName), "x", 10)
	if !errors.Is(err, ErrNoIndex) {
		t.Errorf("err = %v, want ErrNoIndex", err)
	}
}

func TestBuildIndex_Replaces(t *testing.T) {
	path := buildSample(t)
	if err := BuildIndex(context.Background(), path, []Document{
		{Key: "posts/only", Route: "/posts/only", Title: "Only page"},
	}); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	if hits := mustSearch(t, path, "install", 10); len(hits) != 0 {
		t.Errorf("old pages still indexed: %s", hitKeys(hits))
	}
	if hits := mustSearch(t, path, "only", 10); len(hits) != 1 {
		t.Errorf("%d hits for the new page, want 1", len(hits))
	}
}

func TestMatchExpr(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"install", `"install"*`},
		{"go  modules", `"go" "modules"*`},
		{`say "hi"`, `"say" """hi"""*`},
		{"a ( -", `"a"*`},
		{"( )", ""},
	}
	for _, tt := range tests {
		if got := MatchExpr(tt.in); got != tt.want {
			t.Errorf("MatchExpr(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDocumentsFromPages(t *testing.T) {
	items := []model.Doc{
		{Path: []string{"posts"}, Label: "posts", Type: model.DocRoot},
		{Path: []string{"posts", "guides"}, Label: "guides", Type: model.DocFolder},
		{
			Path: []string{"posts", "hello"}, Label: "hello", Type: model.DocFile,
			Slug: "hello", Source: "hello.md", Body: []byte("  body  "),
			Matter: model.FrontMatter{Title: " Hello ", Tags: []string{"a", "b"}},
		},
	}
	docs := DocumentsFromPages(items)
	if len(docs) != 1 {
		t.Fatalf("%d documents, want 1", len(docs))
	}
	want := Document{Key: "posts/hello", Route: "/posts/hello", Title: "Hello", Tags: "a b", Body: "body"}
	if docs[0] != want {
		t.Errorf("document = %+v, want %+v", docs[0], want)
	}
}
