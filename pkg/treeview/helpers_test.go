package treeview

import (
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

type node struct {
	path  []string
	label string
}

func (n node) ItemPath() []string { return n.path }

func n(key string) node {
	return node{path: strings.Split(key, "/")}
}

func nodes(keys ...string) []node {
	out := make([]node, len(keys))
	for i, k := range keys {
		out[i] = n(k)
	}
	return out
}

func keys[T Item](items []T) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = Key(item)
	}
	return out
}

func byLastSegment(a, b node) int {
	return strings.Compare(a.path[len(a.path)-1], b.path[len(b.path)-1])
}

func mustEngine(t *testing.T, items []node, opts ...Option[node]) *Engine[node] {
	t.Helper()
	e, err := New(items, byLastSegment, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func focusedKey(e *Engine[node]) string {
	item, ok := e.FocusedItem()
	if !ok {
		return ""
	}
	return Key(item)
}

// forestGen draws a well-formed forest: every prefix of every path is
// itself an item, keys are unique and the order is shuffled.
func forestGen() *rapid.Generator[[]node] {
	return rapid.Custom(func(t *rapid.T) []node {
		segment := rapid.SampledFrom([]string{"a", "b", "c", "d"})
		path := rapid.SliceOfN(segment, 1, 4)
		paths := rapid.SliceOfN(path, 1, 12).Draw(t, "paths")

		seen := make(map[string]bool)
		var out []node
		for _, p := range paths {
			for i := 1; i <= len(p); i++ {
				prefix := slices.Clone(p[:i])
				key := PathKey(prefix)
				if seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, node{path: prefix})
			}
		}
		return rapid.Permutation(out).Draw(t, "order")
	})
}
