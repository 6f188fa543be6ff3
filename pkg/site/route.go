package site

import (
	"net/url"
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// NormalizeRoute trims trailing slashes and .html suffixes so "/a/b/",
// "/a/b/index.html" and "/a/b" compare equal. The empty route is "/".
func NormalizeRoute(route string) string {
	route = strings.TrimSuffix(route, "index.html")
	route = strings.TrimSuffix(route, ".html")
	route = "/" + strings.Trim(route, "/")
	return route
}

// ApplyRoute prepares the sidebar for the page at route. On the home route
// the first item is toggled. On a page route every group outside the branch
// holding the page is collapsed and the page becomes the selection, which
// moves focus to it. Unknown routes leave the engine as it is.
func ApplyRoute(e *treeview.Engine[model.Doc], route, homeRoute string) {
	route = NormalizeRoute(route)
	if route == NormalizeRoute(homeRoute) {
		if sorted := e.SortedItems(); len(sorted) > 0 {
			e.ToggleItem(sorted[0])
		}
		return
	}
	item, ok := e.Lookup(strings.TrimPrefix(route, "/"))
	if !ok {
		return
	}
	e.CollapseOutside(item)
	e.SetSelected(item)
}

// RouteURL percent-escapes every segment of route for use in an href.
// Segments with spaces, '?' or '#' stay part of the path.
func RouteURL(route string) string {
	segs := strings.Split(strings.TrimPrefix(route, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segs, "/")
}
