package treeview

import (
	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/metrics"
)

// Option configures an Engine.
type Option[T Item] func(*Engine[T])

// WithSelected seeds focus with the caller's selected item, as if
// SetSelected had been called right after construction.
func WithSelected[T Item](item T) Option[T] {
	return func(e *Engine[T]) {
		e.pendingSelected = &item
	}
}

// WithOnSelectedItemChange sets the callback invoked when an item is
// committed by a click or by Enter/Space.
func WithOnSelectedItemChange[T Item](fn func(T)) Option[T] {
	return func(e *Engine[T]) {
		e.onSelectedItemChange = fn
	}
}

// WithVisibleNavigation makes the arrow-key bindings skip items hidden
// under a collapsed ancestor. By default ArrowUp/ArrowDown walk the full
// sorted order.
func WithVisibleNavigation[T Item](on bool) Option[T] {
	return func(e *Engine[T]) {
		e.visibleNavigation = on
	}
}

// Engine holds the state of one tree view: the sorted items, the collapse
// set and the focused item.
type Engine[T Item] struct {
	items  []T
	cmp    CompareFunc[T]
	sorted []T
	index  map[string]int // path key -> position in sorted

	collapsed map[string]T

	focused    T
	hasFocused bool

	selectedKey     string
	hasSelected     bool
	pendingSelected *T

	onSelectedItemChange func(T)
	visibleNavigation    bool

	// Binding state, see bindings.go.
	treeFocused bool
	elements    map[string]Focusable
}

// New builds an engine over items ordered by cmp. Focus starts on the first
// sorted item. A malformed hierarchy fails construction.
func New[T Item](items []T, cmp CompareFunc[T], opts ...Option[T]) (*Engine[T], error) {
	e := &Engine[T]{
		cmp:       cmp,
		collapsed: make(map[string]T),
		elements:  make(map[string]Focusable),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.SetItems(items); err != nil {
		return nil, err
	}
	if e.pendingSelected != nil {
		e.SetSelected(*e.pendingSelected)
		e.pendingSelected = nil
	}
	return e, nil
}

// SetItems replaces the item list and recomputes the sorted order. On error
// the previous state is kept. Focus stays on its item when that item is still
// listed; a stale focus keeps no position and is not reported by
// FocusedItem. An empty list clears focus. An engine without focus focuses
// the first item.
func (e *Engine[T]) SetItems(items []T) error {
	return e.resort(items, e.cmp)
}

// SetComparator replaces the leaf comparator and recomputes the sorted order.
func (e *Engine[T]) SetComparator(cmp CompareFunc[T]) error {
	return e.resort(e.items, cmp)
}

func (e *Engine[T]) resort(items []T, cmp CompareFunc[T]) error {
	defer metrics.Timer(metrics.TreeSort)()

	sorted, err := SortItems(items, cmp)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(sorted))
	for i, item := range sorted {
		index[Key(item)] = i
	}

	e.items = items
	e.cmp = cmp
	e.sorted = sorted
	e.index = index

	switch {
	case len(sorted) == 0:
		var zero T
		e.focused, e.hasFocused = zero, false
	case !e.hasFocused:
		e.setFocused(sorted[0])
	}
	debug.Log("treeview: sorted %d items", len(sorted))
	return nil
}

// SortedItems returns the memoized display order. Callers must not modify
// the returned slice.
func (e *Engine[T]) SortedItems() []T {
	return e.sorted
}

// Len returns the number of items.
func (e *Engine[T]) Len() int {
	return len(e.sorted)
}

// Lookup returns the listed item with the given key.
func (e *Engine[T]) Lookup(key string) (T, bool) {
	if i, ok := e.index[key]; ok {
		return e.sorted[i], true
	}
	var zero T
	return zero, false
}

// IndexOf returns the sorted position of item, or -1 when it is not listed.
func (e *Engine[T]) IndexOf(item T) int {
	if i, ok := e.index[Key(item)]; ok {
		return i
	}
	return -1
}

// IsGroupItem reports whether any listed item is a strict descendant of item.
func (e *Engine[T]) IsGroupItem(item T) bool {
	for _, other := range e.items {
		if IsAncestor(item, other) {
			return true
		}
	}
	return false
}

// IsCollapsedItem reports whether item is in the collapse set. Leaves have
// nothing to expand and always report collapsed.
func (e *Engine[T]) IsCollapsedItem(item T) bool {
	if _, ok := e.collapsed[Key(item)]; ok {
		return true
	}
	return !e.IsGroupItem(item)
}

// IsExpandedItem reports whether item is a group item showing its children.
func (e *Engine[T]) IsExpandedItem(item T) bool {
	return !e.IsCollapsedItem(item)
}

// IsHiddenItem reports whether some listed ancestor of item is collapsed.
func (e *Engine[T]) IsHiddenItem(item T) bool {
	path := item.ItemPath()
	for n := 1; n < len(path); n++ {
		ancestor, ok := e.Lookup(PathKey(path[:n]))
		if ok && e.IsCollapsedItem(ancestor) {
			return true
		}
	}
	return false
}

// ToggleItem expands item when it reports collapsed and collapses it
// otherwise. A leaf always reports collapsed, so toggling one only removes it
// from the collapse set.
func (e *Engine[T]) ToggleItem(item T) {
	key := Key(item)
	if e.IsCollapsedItem(item) {
		delete(e.collapsed, key)
		debug.Log("treeview: expand %s", key)
		return
	}
	e.collapsed[key] = item
	debug.Log("treeview: collapse %s", key)
}

// SetCollapsedItems replaces the collapse set.
func (e *Engine[T]) SetCollapsedItems(items []T) {
	e.collapsed = make(map[string]T, len(items))
	for _, item := range items {
		e.collapsed[Key(item)] = item
	}
}

// CollapsedItems returns the collapse set in sorted order, followed by
// members that are no longer listed.
func (e *Engine[T]) CollapsedItems() []T {
	out := make([]T, 0, len(e.collapsed))
	seen := make(map[string]bool, len(e.collapsed))
	for _, item := range e.sorted {
		key := Key(item)
		if _, ok := e.collapsed[key]; ok {
			out = append(out, item)
			seen[key] = true
		}
	}
	for key, item := range e.collapsed {
		if !seen[key] {
			out = append(out, item)
		}
	}
	return out
}

// CollapseAll collapses every group item.
func (e *Engine[T]) CollapseAll() {
	var groups []T
	for _, item := range e.sorted {
		if e.IsGroupItem(item) {
			groups = append(groups, item)
		}
	}
	e.SetCollapsedItems(groups)
}

// CollapseOutside collapses every group item except item and its ancestors,
// so the branch holding item is the only one left open.
func (e *Engine[T]) CollapseOutside(item T) {
	key := Key(item)
	var groups []T
	for _, other := range e.sorted {
		if Key(other) == key || IsAncestor(other, item) {
			continue
		}
		if e.IsGroupItem(other) {
			groups = append(groups, other)
		}
	}
	e.SetCollapsedItems(groups)
}

// ExpandAll empties the collapse set.
func (e *Engine[T]) ExpandAll() {
	e.SetCollapsedItems(nil)
}

// VisibleItems returns the sorted items that are not hidden.
func (e *Engine[T]) VisibleItems() []T {
	out := make([]T, 0, len(e.sorted))
	for _, item := range e.sorted {
		if !e.IsHiddenItem(item) {
			out = append(out, item)
		}
	}
	return out
}

// FocusedItem returns the focused item. ok is false when the list is empty
// or the focused item is no longer listed.
func (e *Engine[T]) FocusedItem() (item T, ok bool) {
	if e.focusedIndex() < 0 {
		return item, false
	}
	return e.focused, true
}

// IsFocusedItem reports whether item is the focused item.
func (e *Engine[T]) IsFocusedItem(item T) bool {
	return e.hasFocused && Key(e.focused) == Key(item)
}

// focusedIndex returns the sorted position of the focused item, or -1 when
// nothing is focused or the focused item is no longer listed.
func (e *Engine[T]) focusedIndex() int {
	if !e.hasFocused {
		return -1
	}
	return e.IndexOf(e.focused)
}

// SetSelected re-seeds focus from the caller's selection. Focus only moves
// when the selection differs from the last one seen and the item is listed.
func (e *Engine[T]) SetSelected(item T) {
	key := Key(item)
	if e.hasSelected && e.selectedKey == key {
		return
	}
	e.selectedKey = key
	e.hasSelected = true
	if i, ok := e.index[key]; ok {
		e.setFocused(e.sorted[i])
	}
}

// ClearSelected forgets the caller's selection.
func (e *Engine[T]) ClearSelected() {
	e.selectedKey = ""
	e.hasSelected = false
}

// SelectedKey returns the key of the caller's selection.
func (e *Engine[T]) SelectedKey() (string, bool) {
	return e.selectedKey, e.hasSelected
}

// IsSelectedItem reports whether item is the caller's selection.
func (e *Engine[T]) IsSelectedItem(item T) bool {
	return e.hasSelected && e.selectedKey == Key(item)
}

// Select commits item through the selection callback.
func (e *Engine[T]) Select(item T) {
	debug.Log("treeview: select %s", Key(item))
	if e.onSelectedItemChange != nil {
		e.onSelectedItemChange(item)
	}
}

// FocusItem moves focus to item if it is listed.
func (e *Engine[T]) FocusItem(item T) bool {
	i, ok := e.index[Key(item)]
	if !ok {
		return false
	}
	e.setFocused(e.sorted[i])
	return true
}

// FocusNextItem moves focus to the next sorted item. It does nothing on the
// last item. A stale focus moves to the first item.
func (e *Engine[T]) FocusNextItem() {
	i := e.focusedIndex()
	if i+1 >= len(e.sorted) {
		return
	}
	e.setFocused(e.sorted[i+1])
}

// FocusPrevItem moves focus to the previous sorted item. It does nothing on
// the first item or when focus is stale.
func (e *Engine[T]) FocusPrevItem() {
	i := e.focusedIndex()
	if i <= 0 {
		return
	}
	e.setFocused(e.sorted[i-1])
}

// FocusNextVisibleItem is FocusNextItem skipping hidden items.
func (e *Engine[T]) FocusNextVisibleItem() {
	for i := e.focusedIndex() + 1; i < len(e.sorted); i++ {
		if !e.IsHiddenItem(e.sorted[i]) {
			e.setFocused(e.sorted[i])
			return
		}
	}
}

// FocusPrevVisibleItem is FocusPrevItem skipping hidden items.
func (e *Engine[T]) FocusPrevVisibleItem() {
	start := e.focusedIndex()
	if start < 0 {
		return
	}
	for i := start - 1; i >= 0; i-- {
		if !e.IsHiddenItem(e.sorted[i]) {
			e.setFocused(e.sorted[i])
			return
		}
	}
}

// FocusFirstItem moves focus to the first sorted item.
func (e *Engine[T]) FocusFirstItem() {
	if len(e.sorted) > 0 {
		e.setFocused(e.sorted[0])
	}
}

// FocusLastItem moves focus to the last item that is not hidden.
func (e *Engine[T]) FocusLastItem() {
	for i := len(e.sorted) - 1; i >= 0; i-- {
		if !e.IsHiddenItem(e.sorted[i]) {
			e.setFocused(e.sorted[i])
			return
		}
	}
}

// FocusParentItem moves focus to the item whose path is the focused path
// without its last segment. It does nothing when that item is not listed.
func (e *Engine[T]) FocusParentItem() {
	if !e.hasFocused {
		return
	}
	path := e.focused.ItemPath()
	if len(path) < 2 {
		return
	}
	if parent, ok := e.Lookup(PathKey(path[:len(path)-1])); ok {
		e.setFocused(parent)
	}
}

// FocusFirstChildItem moves focus to the first sorted descendant of the
// focused item. It does nothing when there is none.
func (e *Engine[T]) FocusFirstChildItem() {
	if !e.hasFocused {
		return
	}
	for _, item := range e.sorted {
		if IsAncestor(e.focused, item) {
			e.setFocused(item)
			return
		}
	}
}

func (e *Engine[T]) setFocused(item T) {
	changed := !e.hasFocused || Key(e.focused) != Key(item)
	e.focused = item
	e.hasFocused = true
	if changed {
		e.focusElement()
	}
}
