// Package treeview is the state engine behind the sidebar tree.
//
// Items carry nothing but a path of string segments. Every relationship
// between items (ancestor, descendant, sibling, depth) is derived from path
// comparison on demand, so the tree is a flat slice and never a graph of
// pointers:
//
//	posts                 path: [posts]
//	  getting-started     path: [posts getting-started]
//	  guides              path: [posts guides]
//	    install           path: [posts guides install]
//
// An Engine owns three pieces of state: the memoized sorted order, the
// collapse set and the focus pointer. Renderers read derived predicates
// (IsGroupItem, IsCollapsedItem, IsHiddenItem) and binding descriptors
// (RootProps, ItemProps) from it; the selection callback is the only event
// that flows back to the caller.
//
// An Engine is not safe for concurrent use. Each view owns its own.
package treeview
