// Package render turns page bodies into HTML.
//
// A Renderer is built once from Options and is safe for concurrent use, so a
// site build can share one across its workers.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/metrics"
)

// Options selects markdown features.
type Options struct {
	// Extensions names goldmark extensions. Empty means gfm and footnote.
	Extensions []string
	HardWraps  bool
	// Unsafe passes raw HTML in the markdown through to the output.
	Unsafe bool
	// Sanitize runs the output through a user-generated-content policy.
	Sanitize bool
}

// OptionsFrom maps the markdown section of the site config.
func OptionsFrom(cfg config.MarkdownConfig) Options {
	return Options{
		Extensions: cfg.Extensions,
		HardWraps:  cfg.HardWraps,
		Unsafe:     cfg.Unsafe,
		Sanitize:   cfg.Sanitize,
	}
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":             extension.GFM,
	"table":           extension.Table,
	"tables":          extension.Table,
	"strikethrough":   extension.Strikethrough,
	"linkify":         extension.Linkify,
	"autolink":        extension.Linkify,
	"tasklist":        extension.TaskList,
	"footnote":        extension.Footnote,
	"definition":      extension.DefinitionList,
	"definition_list": extension.DefinitionList,
	"typographer":     extension.Typographer,
}

// KnownExtensions lists the accepted extension names, sorted.
func KnownExtensions() []string {
	return []string{
		"autolink", "definition", "definition_list", "footnote", "gfm",
		"linkify", "strikethrough", "table", "tables", "tasklist", "typographer",
	}
}

func collectExtensions(names []string) ([]goldmark.Extender, error) {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM, extension.Footnote}, nil
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			return nil, fmt.Errorf("unknown markdown extension %q", name)
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders, nil
}

// Heading is one heading of a rendered page.
type Heading struct {
	Level int    `json:"level"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// Page is a rendered page body.
type Page struct {
	HTML     []byte
	Headings []Heading
}

// Renderer converts markdown to HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// New builds a renderer. Unknown extension names are an error.
func New(opts Options) (*Renderer, error) {
	exts, err := collectExtensions(opts.Extensions)
	if err != nil {
		return nil, err
	}

	var rendererOptions []renderer.Option
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(exts...),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(rendererOptions...),
		),
	}
	if opts.Sanitize {
		r.policy = newPolicy()
	}
	return r, nil
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre", "span", "div")
	p.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6", "li", "sup")
	return p
}

// Render converts src and collects its headings.
func (r *Renderer) Render(src []byte) (Page, error) {
	defer metrics.Timer(metrics.PageRender)()

	doc := r.md.Parser().Parse(text.NewReader(src))
	headings := collectHeadings(doc, src)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return Page{}, fmt.Errorf("markdown render: %w", err)
	}
	out := buf.Bytes()
	if r.policy != nil {
		out = r.policy.SanitizeBytes(out)
	}
	return Page{HTML: out, Headings: headings}, nil
}

// HTML is Render without the headings.
func (r *Renderer) HTML(src []byte) ([]byte, error) {
	page, err := r.Render(src)
	if err != nil {
		return nil, err
	}
	return page.HTML, nil
}

func collectHeadings(doc ast.Node, src []byte) []Heading {
	var out []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		heading := Heading{Level: h.Level, Text: plainText(h, src)}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				heading.ID = string(b)
			}
		}
		out = append(out, heading)
		return ast.WalkSkipChildren, nil
	})
	return out
}

func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(plainText(c, src))
		}
	}
	return sb.String()
}
