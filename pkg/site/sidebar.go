package site

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// Row is the render state of one sidebar item.
type Row struct {
	Item      model.Doc
	Props     treeview.ItemProps
	Group     bool
	Collapsed bool
	Hidden    bool
	Focused   bool
	Active    bool // the item is the page being rendered
}

// Indent is the left padding per depth level, in pixels.
const Indent = 16

// Classes returns the CSS classes of the row.
func (r Row) Classes() string {
	classes := []string{"tree-item"}
	if r.Focused {
		classes = append(classes, "focused-item")
	}
	if r.Collapsed {
		classes = append(classes, "collapsed-item")
	}
	if r.Hidden {
		classes = append(classes, "hidden")
	}
	if r.Active {
		classes = append(classes, "active")
	}
	return strings.Join(classes, " ")
}

// NodeRenderer renders the label part of a row.
type NodeRenderer func(Row) template.HTML

// LabelNode prints the label.
func LabelNode(r Row) template.HTML {
	return template.HTML(template.HTMLEscapeString(r.Item.Label))
}

// LinkNode makes leaf labels links to their page and group labels toggles.
// A group that has a page of its own links to it instead.
func LinkNode(r Row) template.HTML {
	label := template.HTMLEscapeString(r.Item.Label)
	if r.Item.IsPage() {
		return template.HTML(fmt.Sprintf(`<a href="%s">%s</a>`, template.HTMLEscapeString(RouteURL(r.Item.Route())), label))
	}
	if r.Group {
		return template.HTML(`<span class="tree-label" data-toggle>` + label + `</span>`)
	}
	return template.HTML(label)
}

// Rows returns the render state of every sorted item. route is the page
// being rendered and marks the active row.
func Rows(e *treeview.Engine[model.Doc], route string) []Row {
	route = NormalizeRoute(route)
	sorted := e.SortedItems()
	rows := make([]Row, len(sorted))
	for i, item := range sorted {
		rows[i] = Row{
			Item:      item,
			Props:     e.ItemProps(item),
			Group:     e.IsGroupItem(item),
			Collapsed: e.IsCollapsedItem(item),
			Hidden:    e.IsHiddenItem(item),
			Focused:   e.IsFocusedItem(item),
			Active:    item.IsPage() && item.Route() == route,
		}
	}
	return rows
}

// RenderSidebar renders the tree as a list. A nil node prints labels.
func RenderSidebar(e *treeview.Engine[model.Doc], route string, node NodeRenderer) template.HTML {
	if node == nil {
		node = LabelNode
	}
	e.BeginRender()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<ul class="tree" role="%s" aria-label="Pages">`, e.RootProps().Role)
	sb.WriteByte('\n')
	for _, r := range Rows(e, route) {
		writeRow(&sb, r, node)
	}
	sb.WriteString("</ul>\n")
	return template.HTML(sb.String())
}

func writeRow(sb *strings.Builder, r Row, node NodeRenderer) {
	fmt.Fprintf(sb, `<li class="%s"`, r.Classes())
	for _, a := range r.Props.Attrs() {
		fmt.Fprintf(sb, ` %s="%s"`, a.Name, template.HTMLEscapeString(a.Value))
	}
	key := r.Item.Key()
	fmt.Fprintf(sb, ` data-key="%s"`, template.HTMLEscapeString(key))
	if parent := r.Item.Path[:len(r.Item.Path)-1]; len(parent) > 0 {
		fmt.Fprintf(sb, ` data-parent="%s"`, template.HTMLEscapeString(treeview.PathKey(parent)))
	}
	fmt.Fprintf(sb, ` style="padding-left: %dpx">`, Indent*r.Props.Level)
	if r.Group {
		sign := "-"
		if r.Collapsed {
			sign = "+"
		}
		fmt.Fprintf(sb, `<button type="button" class="tree-toggle" tabindex="-1" aria-hidden="true">%s</button>`, sign)
	}
	sb.WriteString(string(node(r)))
	sb.WriteString("</li>\n")
}
