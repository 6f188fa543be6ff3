package render

import (
	"slices"
	"strings"
	"testing"

	"github.com/vanderheijden86/marktree/pkg/config"
)

func mustRenderer(t *testing.T, opts Options) *Renderer {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func mustHTML(t *testing.T, r *Renderer, src string) string {
	t.Helper()
	html, err := r.HTML([]byte(src))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	return string(html)
}

func assertContains(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Errorf("missing %q in:\n%s", sub, s)
	}
}

func TestRender_HeadingsGetIDs(t *testing.T) {
	r := mustRenderer(t, Options{})
	page, err := r.Render([]byte("# Hello World\n\nSome *text*.\n\n## Second `part`\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := string(page.HTML)
	assertContains(t, html, `<h1 id="hello-world">Hello World</h1>`)
	assertContains(t, html, "<em>text</em>")
	want := []Heading{
		{Level: 1, ID: "hello-world", Text: "Hello World"},
		{Level: 2, ID: "second-part", Text: "Second part"},
	}
	if !slices.Equal(page.Headings, want) {
		t.Errorf("Headings = %+v, want %+v", page.Headings, want)
	}
}

func TestRender_DefaultExtensions(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n\nNote[^1].\n\n[^1]: The footnote.\n"
	html := mustHTML(t, mustRenderer(t, Options{}), src)
	assertContains(t, html, "<table>")
	assertContains(t, html, `class="footnotes"`)
}

func TestRender_RawHTML(t *testing.T) {
	src := "<div class=\"note\">hi</div>\n"
	assertContains(t, mustHTML(t, mustRenderer(t, Options{}), src), "raw HTML omitted")
	assertContains(t, mustHTML(t, mustRenderer(t, Options{Unsafe: true}), src), `<div class="note">hi</div>`)
}

func TestRender_Sanitize(t *testing.T) {
	r := mustRenderer(t, Options{Unsafe: true, Sanitize: true})
	out := mustHTML(t, r, "# Title\n\n<script>alert(1)</script>\n\n[link](https://example.com)\n\n```go\nx := 1\n```\n")

	if strings.Contains(out, "<script>") {
		t.Errorf("script survived sanitizing:\n%s", out)
	}
	assertContains(t, out, `id="title"`)
	assertContains(t, out, `rel="nofollow"`)
	assertContains(t, out, `class="language-go"`)
}

func TestRender_HardWraps(t *testing.T) {
	assertContains(t, mustHTML(t, mustRenderer(t, Options{HardWraps: true}), "one\ntwo\n"), "<br>")
}

func TestRender_Typographer(t *testing.T) {
	html := mustHTML(t, mustRenderer(t, Options{Extensions: []string{"typographer"}}), "wait... \"quoted\"\n")
	assertContains(t, html, "&hellip;")
	assertContains(t, html, "&ldquo;")
}

func TestNew_UnknownExtension(t *testing.T) {
	_, err := New(Options{Extensions: []string{"gfm", "mermaid"}})
	if err == nil || !strings.Contains(err.Error(), "mermaid") {
		t.Errorf("err = %v, want unknown extension mermaid", err)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Markdown
	opts := OptionsFrom(cfg)
	if !slices.Equal(opts.Extensions, cfg.Extensions) {
		t.Errorf("Extensions = %v, want %v", opts.Extensions, cfg.Extensions)
	}
	if !opts.Unsafe {
		t.Error("Unsafe not carried over")
	}
	if _, err := New(opts); err != nil {
		t.Errorf("New with default config: %v", err)
	}
}

func TestKnownExtensionsAreRegistered(t *testing.T) {
	known := KnownExtensions()
	if len(known) != len(extensionRegistry) {
		t.Errorf("%d known, %d registered", len(known), len(extensionRegistry))
	}
	for _, name := range known {
		if _, ok := extensionRegistry[name]; !ok {
			t.Errorf("%s not registered", name)
		}
	}
	if !slices.IsSorted(known) {
		t.Errorf("KnownExtensions not sorted: %v", known)
	}
}
