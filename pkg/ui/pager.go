package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/marktree/pkg/model"
)

// Pager shows one page rendered with glamour in a scrolling viewport.
type Pager struct {
	vp       viewport.Model
	renderer *glamour.TermRenderer
	style    string
	wrap     int // configured word wrap; 0 means the pane width

	source string // markdown currently shown
	width  int
}

// NewPager returns an empty pager. style is a glamour standard style name
// or "auto".
func NewPager(style string, wrap int) *Pager {
	return &Pager{
		vp:    viewport.New(40, 10),
		style: style,
		wrap:  wrap,
	}
}

// SetSize resizes the viewport and re-renders for the new width.
func (p *Pager) SetSize(width, height int) {
	p.vp.Width = width
	p.vp.Height = height
	if width == p.width && p.renderer != nil {
		return
	}
	p.width = width
	p.renderer = nil
	p.render()
}

func (p *Pager) wordWrap() int {
	w := p.width - 2
	if p.wrap > 0 && p.wrap < w {
		w = p.wrap
	}
	if w < 20 {
		w = 20
	}
	return w
}

func (p *Pager) termRenderer() (*glamour.TermRenderer, error) {
	if p.renderer != nil {
		return p.renderer, nil
	}
	styleOpt := glamour.WithAutoStyle()
	if p.style != "" && p.style != "auto" {
		styleOpt = glamour.WithStandardStyle(p.style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(p.wordWrap()))
	if err != nil {
		return nil, err
	}
	p.renderer = r
	return r, nil
}

// SetMarkdown shows src and scrolls to the top.
func (p *Pager) SetMarkdown(src string) {
	p.source = src
	p.render()
	p.vp.GotoTop()
}

func (p *Pager) render() {
	if p.source == "" {
		p.vp.SetContent("")
		return
	}
	r, err := p.termRenderer()
	if err != nil {
		p.vp.SetContent(p.source)
		return
	}
	out, err := r.Render(p.source)
	if err != nil {
		p.vp.SetContent(p.source)
		return
	}
	p.vp.SetContent(strings.TrimRight(out, "\n "))
}

// Update scrolls the viewport.
func (p *Pager) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.vp, cmd = p.vp.Update(msg)
	return cmd
}

// View renders the visible part of the page.
func (p *Pager) View() string {
	return p.vp.View()
}

// ScrollPercent reports how far the page is scrolled.
func (p *Pager) ScrollPercent() float64 {
	return p.vp.ScrollPercent()
}

// pageMarkdown builds the markdown shown for one page: title, byline and
// body.
func pageMarkdown(doc model.Doc) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title())

	var meta []string
	if t, ok := doc.Matter.Time(); ok {
		meta = append(meta, t.Format("January 2, 2006"))
	}
	if doc.Matter.Author.Name != "" {
		meta = append(meta, doc.Matter.Author.Name)
	}
	if len(doc.Matter.Tags) > 0 {
		meta = append(meta, strings.Join(doc.Matter.Tags, ", "))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&sb, "*%s*\n\n", strings.Join(meta, " · "))
	}
	sb.Write(doc.Body)
	return sb.String()
}

// homeMarkdown lists the most recent posts.
func homeMarkdown(title string, posts []model.Doc, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if len(posts) == 0 {
		sb.WriteString("No pages yet.\n")
		return sb.String()
	}
	sb.WriteString("## Recent posts\n\n")
	for i, post := range posts {
		if i == limit {
			break
		}
		line := "- **" + post.Title() + "**"
		if t, ok := post.Matter.Time(); ok {
			line += " (" + t.Format("2006-01-02") + ")"
		}
		if post.Matter.Excerpt != "" {
			line += ": " + post.Matter.Excerpt
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
