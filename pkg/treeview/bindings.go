package treeview

import (
	"strconv"

	"github.com/vanderheijden86/marktree/pkg/debug"
)

// Key names understood by the root key handler. They follow the browser
// KeyboardEvent.key values so the same strings work in the generated
// site script and in the terminal browser.
const (
	KeyEnter      = "Enter"
	KeySpace      = " "
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
)

// Widget roles.
const (
	RoleTree     = "tree"
	RoleTreeItem = "treeitem"
)

// KeyEvent is a key press delivered to the tree root.
type KeyEvent struct {
	Key string

	defaultPrevented bool
}

// PreventDefault marks the key as consumed by the tree.
func (e *KeyEvent) PreventDefault() {
	e.defaultPrevented = true
}

// DefaultPrevented reports whether a handler consumed the key.
func (e *KeyEvent) DefaultPrevented() bool {
	return e.defaultPrevented
}

// FocusEvent is a focus or blur notification for one item row. Bubbled is
// set when the event started on an element nested inside the row.
type FocusEvent struct {
	Bubbled bool
}

// Focusable is the UI element backing an item row.
type Focusable interface {
	Focus()
}

// FocusFunc adapts a plain function to Focusable.
type FocusFunc func()

// Focus calls f.
func (f FocusFunc) Focus() { f() }

// RootProps binds the tree container.
type RootProps struct {
	Role      string
	OnKeyDown func(*KeyEvent)
}

// ItemProps binds one item row.
type ItemProps struct {
	Role  string
	Level int
	// Expanded is nil for leaves, which have no expanded state.
	Expanded *bool
	Selected bool
	TabIndex int

	Ref     func(Focusable)
	OnClick func()
	OnFocus func(FocusEvent)
	OnBlur  func(FocusEvent)
}

// Attr is one rendered attribute of a row.
type Attr struct {
	Name  string
	Value string
}

// Attrs returns the role, ARIA state and tab index in a fixed order.
func (p ItemProps) Attrs() []Attr {
	attrs := []Attr{
		{Name: "role", Value: p.Role},
		{Name: "aria-level", Value: strconv.Itoa(p.Level)},
	}
	if p.Expanded != nil {
		attrs = append(attrs, Attr{Name: "aria-expanded", Value: strconv.FormatBool(*p.Expanded)})
	}
	attrs = append(attrs,
		Attr{Name: "aria-selected", Value: strconv.FormatBool(p.Selected)},
		Attr{Name: "tabindex", Value: strconv.Itoa(p.TabIndex)},
	)
	return attrs
}

// RootProps returns the bindings for the tree container.
func (e *Engine[T]) RootProps() RootProps {
	return RootProps{
		Role:      RoleTree,
		OnKeyDown: e.handleKeyDown,
	}
}

// HandleKey feeds a key name through the root bindings and reports whether
// the tree consumed it.
func (e *Engine[T]) HandleKey(key string) bool {
	ev := &KeyEvent{Key: key}
	e.handleKeyDown(ev)
	return ev.DefaultPrevented()
}

func (e *Engine[T]) handleKeyDown(ev *KeyEvent) {
	switch ev.Key {
	case KeyEnter, KeySpace:
		ev.PreventDefault()
		if e.focusedIndex() >= 0 {
			e.Select(e.focused)
		}
	case KeyArrowDown:
		ev.PreventDefault()
		if e.visibleNavigation {
			e.FocusNextVisibleItem()
		} else {
			e.FocusNextItem()
		}
	case KeyArrowUp:
		ev.PreventDefault()
		if e.visibleNavigation {
			e.FocusPrevVisibleItem()
		} else {
			e.FocusPrevItem()
		}
	case KeyArrowLeft:
		ev.PreventDefault()
		if e.focusedIndex() < 0 {
			return
		}
		if !e.IsCollapsedItem(e.focused) {
			e.ToggleItem(e.focused)
			return
		}
		e.FocusParentItem()
	case KeyArrowRight:
		ev.PreventDefault()
		if e.focusedIndex() < 0 {
			return
		}
		if e.IsCollapsedItem(e.focused) {
			e.ToggleItem(e.focused)
			return
		}
		e.FocusFirstChildItem()
	}
}

// ItemProps returns the bindings for one item row.
func (e *Engine[T]) ItemProps(item T) ItemProps {
	key := Key(item)
	props := ItemProps{
		Role:     RoleTreeItem,
		Level:    Depth(item),
		Selected: e.IsSelectedItem(item),
		TabIndex: -1,
		Ref: func(el Focusable) {
			if el != nil {
				e.elements[key] = el
			}
		},
		OnClick: func() {
			e.Select(item)
		},
		OnFocus: func(ev FocusEvent) {
			if !ev.Bubbled {
				e.treeFocused = true
			}
		},
		OnBlur: func(ev FocusEvent) {
			if !ev.Bubbled {
				e.treeFocused = false
			}
		},
	}
	if e.IsGroupItem(item) {
		expanded := !e.IsCollapsedItem(item)
		props.Expanded = &expanded
	}
	if e.IsFocusedItem(item) {
		props.TabIndex = 0
	}
	return props
}

// BeginRender clears the element registry. Call it before each render pass;
// Ref callbacks repopulate it.
func (e *Engine[T]) BeginRender() {
	clear(e.elements)
}

// TreeHasFocus reports whether input focus is on one of the item rows.
func (e *Engine[T]) TreeHasFocus() bool {
	return e.treeFocused
}

// SetTreeFocus sets the tree-has-focus flag for hosts without per-row focus
// events, such as the terminal browser switching panes.
func (e *Engine[T]) SetTreeFocus(focused bool) {
	e.treeFocused = focused
}

// focusElement moves input focus to the row of the focused item when the
// tree has focus. A row that has not been rendered yet is skipped.
func (e *Engine[T]) focusElement() {
	if !e.treeFocused || !e.hasFocused {
		return
	}
	key := Key(e.focused)
	el, ok := e.elements[key]
	if !ok {
		debug.Log("treeview: no element for %s", key)
		return
	}
	el.Focus()
}
