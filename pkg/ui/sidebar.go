package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

// Sidebar renders a tree engine as a scrolling list of rows. Only rows that
// are not hidden under a collapsed folder are listed.
type Sidebar struct {
	engine *treeview.Engine[model.Doc]
	theme  Theme

	width  int
	height int // rows, excluding the header
	offset int

	opened  *model.Doc // set by the engine's selection callback
	title   string
	noItems string
}

// NewSidebar builds a sidebar over items. Committing a row (Enter, Space or
// a click) is reported through TakeOpened.
func NewSidebar(items []model.Doc, title string, theme Theme) (*Sidebar, error) {
	s := &Sidebar{theme: theme, title: title, noItems: "No pages"}
	e, err := treeview.New(items, model.LabelComparator(),
		treeview.WithVisibleNavigation[model.Doc](true),
		treeview.WithOnSelectedItemChange(func(doc model.Doc) {
			s.opened = &doc
		}),
	)
	if err != nil {
		return nil, err
	}
	e.SetTreeFocus(true)
	s.engine = e
	return s, nil
}

// Engine returns the tree engine behind the sidebar.
func (s *Sidebar) Engine() *treeview.Engine[model.Doc] {
	return s.engine
}

// SetSize sets the outer width and the number of rows below the header.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.ensureFocusVisible()
}

// SetItems replaces the listed items. Focus and collapse state carry over
// for items that are still listed.
func (s *Sidebar) SetItems(items []model.Doc) error {
	if err := s.engine.SetItems(items); err != nil {
		return err
	}
	if s.engine.IndexOf(s.focused()) < 0 {
		s.engine.FocusFirstItem()
	}
	s.ensureFocusVisible()
	return nil
}

// HandleKey feeds a tree key name to the engine.
func (s *Sidebar) HandleKey(name string) bool {
	ok := s.engine.HandleKey(name)
	s.ensureFocusVisible()
	return ok
}

// TakeOpened returns the row committed since the last call.
func (s *Sidebar) TakeOpened() (model.Doc, bool) {
	if s.opened == nil {
		return model.Doc{}, false
	}
	doc := *s.opened
	s.opened = nil
	return doc, true
}

// Rows returns the rows that are not hidden, in display order.
func (s *Sidebar) Rows() []model.Doc {
	return s.engine.VisibleItems()
}

// RowAt returns the row at line y of the sidebar, where line 0 is the
// header.
func (s *Sidebar) RowAt(y int) (model.Doc, bool) {
	i := y - 1 + s.offset
	rows := s.Rows()
	if y < 1 || i < 0 || i >= len(rows) {
		return model.Doc{}, false
	}
	return rows[i], true
}

// Click focuses and commits the row at line y.
func (s *Sidebar) Click(y int) bool {
	doc, ok := s.RowAt(y)
	if !ok {
		return false
	}
	s.engine.FocusItem(doc)
	s.engine.ItemProps(doc).OnClick()
	return true
}

// Scroll moves the window by delta rows.
func (s *Sidebar) Scroll(delta int) {
	s.offset += delta
	s.clampOffset(len(s.Rows()))
}

// FocusedKey returns the key of the focused row.
func (s *Sidebar) FocusedKey() string {
	if doc, ok := s.engine.FocusedItem(); ok {
		return doc.Key()
	}
	return ""
}

func (s *Sidebar) focused() model.Doc {
	doc, _ := s.engine.FocusedItem()
	return doc
}

func (s *Sidebar) clampOffset(rows int) {
	maxOffset := rows - s.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
	if s.offset < 0 {
		s.offset = 0
	}
}

func (s *Sidebar) ensureFocusVisible() {
	rows := s.Rows()
	if s.height > 0 {
		key := s.FocusedKey()
		for i, doc := range rows {
			if doc.Key() != key {
				continue
			}
			if i < s.offset {
				s.offset = i
			} else if i >= s.offset+s.height {
				s.offset = i - s.height + 1
			}
			break
		}
	}
	s.clampOffset(len(rows))
}

// View renders the header and the rows in the current window.
func (s *Sidebar) View() string {
	inner := s.width - 1 // right border
	if inner < 1 {
		inner = 1
	}
	var sb strings.Builder
	sb.WriteString(s.theme.Header.Render(truncate(s.title, inner-2)))

	rows := s.Rows()
	if len(rows) == 0 {
		sb.WriteString("\n")
		sb.WriteString(s.theme.MutedText.Render(truncate(" "+s.noItems, inner)))
	}

	end := len(rows)
	if s.height > 0 && s.offset+s.height < end {
		end = s.offset + s.height
	}
	for i := s.offset; i < end; i++ {
		sb.WriteString("\n")
		sb.WriteString(s.renderRow(rows[i], inner))
	}

	lines := strings.Count(sb.String(), "\n") + 1
	for ; s.height > 0 && lines <= s.height; lines++ {
		sb.WriteString("\n")
	}
	return s.theme.Sidebar.Width(inner).Render(sb.String())
}

func (s *Sidebar) renderRow(doc model.Doc, width int) string {
	props := s.engine.ItemProps(doc)
	indent := strings.Repeat("  ", max(props.Level-1, 0))

	marker := "  "
	if props.Expanded != nil {
		if *props.Expanded {
			marker = "- "
		} else {
			marker = "+ "
		}
	}
	label := truncate(doc.Label, width-len(indent)-len(marker))
	line := padRight(indent+marker+label, width)

	focused := s.engine.IsFocusedItem(doc)
	switch {
	case focused && s.engine.TreeHasFocus():
		return s.theme.Selected.Render(line)
	case focused:
		return s.theme.Cursor.Render(line)
	case props.Selected:
		return s.theme.Active.Render(line)
	case props.Expanded != nil:
		return indent + s.theme.Marker.Render(marker) + s.theme.Group.Render(padRight(label, width-len(indent)-len(marker)))
	}
	return line
}

// positionInfo describes the window, e.g. "3-20 of 41".
func (s *Sidebar) positionInfo() string {
	rows := len(s.Rows())
	if rows == 0 {
		return ""
	}
	end := rows
	if s.height > 0 && s.offset+s.height < end {
		end = s.offset + s.height
	}
	return fmt.Sprintf("%d-%d of %d", s.offset+1, end, rows)
}
