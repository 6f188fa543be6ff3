package site

import (
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// TreeNode is one entry of tree.json.
type TreeNode struct {
	Key       string        `json:"key"`
	Label     string        `json:"label"`
	Type      model.DocType `json:"type"`
	Depth     int           `json:"depth"`
	Group     bool          `json:"group"`
	Collapsed bool          `json:"collapsed,omitempty"`
	Hidden    bool          `json:"hidden,omitempty"`
	Route     string        `json:"route,omitempty"`
	Title     string        `json:"title,omitempty"`
	Date      string        `json:"date,omitempty"`
}

// TreeNodes returns the sorted items with their derived state.
func TreeNodes(e *treeview.Engine[model.Doc]) []TreeNode {
	sorted := e.SortedItems()
	out := make([]TreeNode, len(sorted))
	for i, item := range sorted {
		group := e.IsGroupItem(item)
		node := TreeNode{
			Key:       item.Key(),
			Label:     item.Label,
			Type:      item.Type,
			Depth:     treeview.Depth(item),
			Group:     group,
			Collapsed: group && e.IsCollapsedItem(item),
			Hidden:    e.IsHiddenItem(item),
		}
		if item.IsPage() {
			node.Route = item.Route()
			node.Title = item.Title()
			node.Date = item.Matter.Date
		}
		out[i] = node
	}
	return out
}

// TreeJSON encodes TreeNodes as indented JSON.
func TreeJSON(e *treeview.Engine[model.Doc]) ([]byte, error) {
	return json.MarshalIndent(TreeNodes(e), "", "  ")
}
