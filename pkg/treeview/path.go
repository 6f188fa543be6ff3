package treeview

import "strings"

// Separator joins path segments into a path key.
const Separator = "/"

// Item is anything that can be placed in the tree.
type Item interface {
	// ItemPath returns the non-empty path of the item. Every strict prefix
	// of the path names an ancestor.
	ItemPath() []string
}

// PathKey returns the canonical identity of a path.
func PathKey(path []string) string {
	return strings.Join(path, Separator)
}

// Key returns the path key of an item.
func Key[T Item](item T) string {
	return PathKey(item.ItemPath())
}

// Depth returns the number of segments in the item's path.
func Depth[T Item](item T) int {
	return len(item.ItemPath())
}

// IsAncestorPath reports whether parent is a strict prefix of child.
// An empty parent is the conceptual root and is an ancestor of every
// non-empty child.
func IsAncestorPath(parent, child []string) bool {
	if len(parent) >= len(child) {
		return false
	}
	for i, seg := range parent {
		if child[i] != seg {
			return false
		}
	}
	return true
}

// IsAncestor reports whether parent is a strict ancestor of child.
// An item is never its own ancestor.
func IsAncestor[T Item](parent, child T) bool {
	return IsAncestorPath(parent.ItemPath(), child.ItemPath())
}

// IsDescendant reports whether child is a strict descendant of parent.
func IsDescendant[T Item](child, parent T) bool {
	return IsAncestorPath(parent.ItemPath(), child.ItemPath())
}

// ItemByKey returns the first item in items whose path key equals key.
func ItemByKey[T Item](items []T, key string) (T, bool) {
	for _, item := range items {
		if Key(item) == key {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// FilterKeepingParents returns the items matching keep together with every
// ancestor of a match, in input order.
func FilterKeepingParents[T Item](items []T, keep func(T) bool) []T {
	matches := matching(items, keep)
	out := make([]T, 0, len(matches))
	for _, item := range items {
		for _, m := range matches {
			if Key(m) == Key(item) || IsAncestor(item, m) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// FilterKeepingParentsAndChildren is FilterKeepingParents that also keeps
// every descendant of a match.
func FilterKeepingParentsAndChildren[T Item](items []T, keep func(T) bool) []T {
	matches := matching(items, keep)
	out := make([]T, 0, len(matches))
	for _, item := range items {
		for _, m := range matches {
			if Key(m) == Key(item) || IsAncestor(item, m) || IsDescendant(item, m) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

func matching[T Item](items []T, keep func(T) bool) []T {
	var out []T
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
