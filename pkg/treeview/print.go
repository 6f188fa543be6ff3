package treeview

import (
	"io"

	"github.com/xlab/treeprint"
)

// PrintOptions controls Print.
type PrintOptions[T Item] struct {
	// Label renders one row. Defaults to the last path segment.
	Label func(T) string
	// All prints items hidden under collapsed groups too.
	All bool
	// Markers prefixes group rows with [+] when collapsed and [-] when
	// expanded.
	Markers bool
}

// Tree builds a treeprint tree from the engine's sorted order.
func Tree[T Item](e *Engine[T], opts PrintOptions[T]) treeprint.Tree {
	label := opts.Label
	if label == nil {
		label = func(item T) string {
			path := item.ItemPath()
			return path[len(path)-1]
		}
	}

	root := treeprint.New()
	branches := make(map[string]treeprint.Tree)
	for _, item := range e.SortedItems() {
		if !opts.All && e.IsHiddenItem(item) {
			continue
		}
		parent := root
		path := item.ItemPath()
		for n := len(path) - 1; n > 0; n-- {
			if b, ok := branches[PathKey(path[:n])]; ok {
				parent = b
				break
			}
		}

		text := label(item)
		if !e.IsGroupItem(item) {
			parent.AddNode(text)
			continue
		}
		if opts.Markers {
			if e.IsCollapsedItem(item) {
				text = "[+] " + text
			} else {
				text = "[-] " + text
			}
		}
		branches[Key(item)] = parent.AddBranch(text)
	}
	return root
}

// Print writes the tree as indented text.
func Print[T Item](w io.Writer, e *Engine[T], opts PrintOptions[T]) error {
	_, err := io.WriteString(w, Tree(e, opts).String())
	return err
}
