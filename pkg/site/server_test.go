package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/marktree/pkg/loader"
)

func newTestServer(t *testing.T, liveReload bool) (*Server, string) {
	t.Helper()
	content := t.TempDir()
	writeContent(t, content, map[string]string{
		"hello.md":          "---\ntitle: Hello\n---\nHi.\n",
		"guides/install.md": "Install.\n",
	})
	b := newBuilder(t, Options{})
	s := NewServer(ServerOptions{
		ContentDir: content,
		Load:       loader.Options{},
		LiveReload: liveReload,
	}, b)
	return s, content
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return rec.Code, string(body)
}

func TestServer_RebuildAndServe(t *testing.T) {
	s, content := newTestServer(t, true)
	if err := s.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if n := s.Builds(); n != 1 {
		t.Errorf("Builds = %d, want 1", n)
	}

	h := s.Handler()
	code, body := get(t, h, "/posts/hello/")
	if code != http.StatusOK {
		t.Fatalf("GET /posts/hello/ = %d", code)
	}
	assertContains(t, body, "<title>Hello | Notes</title>")
	assertContains(t, body, EventsPath)

	code, body = get(t, h, "/assets/site.css")
	if code != http.StatusOK {
		t.Errorf("GET site.css = %d", code)
	}
	assertNotContains(t, body, EventsPath)

	// New content shows up after the next rebuild.
	writeContent(t, content, map[string]string{"notes.md": "Notes.\n"})
	if err := s.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if code, _ = get(t, h, "/posts/notes/"); code != http.StatusOK {
		t.Errorf("GET /posts/notes/ = %d", code)
	}
}

func TestServer_FailedRebuildKeepsOutput(t *testing.T) {
	s, content := newTestServer(t, false)
	if err := s.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if err := os.RemoveAll(content); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(content, 0o755); err != nil {
		t.Fatal(err)
	}
	err := s.Rebuild(context.Background())
	if err == nil {
		t.Fatal("Rebuild of empty content succeeded")
	}
	if s.LastError() != err {
		t.Errorf("LastError = %v, want %v", s.LastError(), err)
	}
	if n := s.Builds(); n != 1 {
		t.Errorf("Builds = %d, want 1", n)
	}

	code, body := get(t, s.Handler(), "/posts/hello/")
	if code != http.StatusOK {
		t.Errorf("GET /posts/hello/ = %d", code)
	}
	// Live reload is off.
	assertNotContains(t, body, EventsPath)
}

func TestServer_SkipOutputInsideContent(t *testing.T) {
	content := t.TempDir()
	b := newBuilder(t, Options{OutDir: filepath.Join(content, "public")})
	s := NewServer(ServerOptions{ContentDir: content}, b)

	skip := s.skipOutput()
	tests := []struct {
		rel  string
		dir  bool
		want bool
	}{
		{"public", true, true},
		{"public/index.html", false, true},
		{"publications/a.md", false, false},
	}
	for _, tc := range tests {
		if got := skip(tc.rel, tc.dir); got != tc.want {
			t.Errorf("skip(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}

	outside := NewServer(ServerOptions{ContentDir: content}, newBuilder(t, Options{}))
	if outside.skipOutput()("public", true) {
		t.Error("output outside the content folder should not be skipped")
	}
}
