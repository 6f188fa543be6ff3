// Package ui implements the terminal browser: a sidebar tree of the content
// folder next to the rendered page.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/metrics"
	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/treeview"
	"github.com/vanderheijden86/marktree/pkg/watcher"
)

// Default layout values.
const (
	DefaultSidebarWidth = 32
	DefaultRecentPosts  = 10
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

type focus int

const (
	focusTree focus = iota
	focusPage
)

// Options configures the browser.
type Options struct {
	Title string

	// ContentDir enables reloading. Without it the browser shows the corpus
	// it was started with.
	ContentDir string
	Load       loader.Options

	// Watch reloads when files under ContentDir change.
	Watch     bool
	ForcePoll bool

	SidebarWidth int
	WordWrap     int
	GlamourStyle string
}

// contentChangedMsg is sent by the watcher after a debounced change.
type contentChangedMsg struct{}

// reloadedMsg carries the result of reloading the content folder.
type reloadedMsg struct {
	corpus *loader.Corpus
	err    error
}

// Model is the bubbletea model of the browser.
type Model struct {
	opts  Options
	keys  KeyMap
	theme Theme

	corpus *loader.Corpus
	tree   *Sidebar
	pager  *Pager
	filter textinput.Model

	focus     focus
	filtering bool
	openedKey string

	width  int
	height int

	status    string
	statusErr bool

	watcher *watcher.Watcher
	changes chan struct{}
}

// NewModel builds the browser over c.
func NewModel(c *loader.Corpus, opts Options) (Model, error) {
	if opts.Title == "" {
		opts.Title = c.RootLabel()
	}
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = DefaultSidebarWidth
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	tree, err := NewSidebar(c.Items(), opts.Title, theme)
	if err != nil {
		return Model{}, fmt.Errorf("building tree: %w", err)
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter pages"
	ti.CharLimit = 100

	m := Model{
		opts:   opts,
		keys:   DefaultKeyMap(),
		theme:  theme,
		corpus: c,
		tree:   tree,
		pager:  NewPager(opts.GlamourStyle, opts.WordWrap),
		filter: ti,
		width:  100,
		height: 30,
	}
	m.pager.SetMarkdown(homeMarkdown(opts.Title, c.Posts(), DefaultRecentPosts))
	m.resize()

	if opts.Watch && opts.ContentDir != "" {
		if err := m.startWatcher(); err != nil {
			// Non-fatal: the browser still works, just without live reload.
			m.setStatus(fmt.Sprintf("watcher: %v", err), true)
		}
	}
	return m, nil
}

func (m *Model) startWatcher() error {
	changes := make(chan struct{}, 1)
	w, err := watcher.NewWatcher(m.opts.ContentDir,
		watcher.WithForcePoll(m.opts.ForcePoll),
		watcher.WithOnChange(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
		watcher.WithOnError(func(err error) {
			debug.Log("ui: watcher: %v", err)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	m.watcher = w
	m.changes = changes
	return nil
}

// Stop releases the watcher.
func (m Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return contentChangedMsg{}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	dir, opts := m.opts.ContentDir, m.opts.Load
	return func() tea.Msg {
		c, err := loader.LoadDir(context.Background(), dir, opts)
		return reloadedMsg{corpus: c, err: err}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.changes != nil {
		return waitForChange(m.changes)
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case contentChangedMsg:
		return m, tea.Batch(m.reloadCmd(), waitForChange(m.changes))

	case reloadedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("reload failed: %v", msg.err), true)
			return m, nil
		}
		if err := m.setCorpus(msg.corpus); err != nil {
			m.setStatus(fmt.Sprintf("reload failed: %v", err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("reloaded %d pages", len(msg.corpus.Pages())), false)
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.SwitchPane):
		m.setFocus(1 - m.focus)
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		m.setFocus(focusTree)
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.ClearFilter):
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
		}
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		m.copyRoute()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if m.opts.ContentDir == "" {
			m.setStatus("nothing to reload", false)
			return m, nil
		}
		m.setStatus("reloading…", false)
		return m, m.reloadCmd()
	}

	if m.focus == focusPage {
		return m, m.pager.Update(msg)
	}

	e := m.tree.Engine()
	switch {
	case key.Matches(msg, m.keys.Top):
		e.FocusFirstItem()
	case key.Matches(msg, m.keys.Bottom):
		e.FocusLastItem()
	case key.Matches(msg, m.keys.ExpandAll):
		e.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		e.CollapseAll()
		// Focus may now be hidden; move it to its visible ancestor.
		for e.IsHiddenItem(m.focusedDoc()) {
			before := m.tree.FocusedKey()
			e.FocusParentItem()
			if m.tree.FocusedKey() == before {
				break
			}
		}
	default:
		if name, ok := m.keys.treeKey(msg); ok {
			m.tree.HandleKey(name)
			m.openCommitted()
		}
		return m, nil
	}
	m.tree.ensureFocusVisible()
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	inTree := msg.X < m.sidebarWidth()
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := 3
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -3
		}
		if inTree {
			m.tree.Scroll(delta)
			return m, nil
		}
		return m, m.pager.Update(msg)
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if !inTree {
			m.setFocus(focusPage)
			return m, nil
		}
		m.setFocus(focusTree)
		if m.tree.Click(msg.Y) {
			m.openCommitted()
		}
	}
	return m, nil
}

// openCommitted acts on a row committed through the tree bindings: pages
// open in the pager with every other folder collapsed; folders without a
// page toggle.
func (m *Model) openCommitted() {
	doc, ok := m.tree.TakeOpened()
	if !ok {
		return
	}
	e := m.tree.Engine()
	if !doc.IsPage() {
		e.ToggleItem(doc)
		m.tree.ensureFocusVisible()
		return
	}
	m.open(doc)
	e.CollapseOutside(doc)
	m.tree.ensureFocusVisible()
}

func (m *Model) open(doc model.Doc) {
	m.openedKey = doc.Key()
	m.tree.Engine().SetSelected(doc)
	m.pager.SetMarkdown(pageMarkdown(doc))
	m.setStatus(doc.Route(), false)
}

func (m *Model) focusedDoc() model.Doc {
	doc, _ := m.tree.Engine().FocusedItem()
	return doc
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.tree.Engine().SetTreeFocus(f == focusTree)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) copyRoute() {
	doc, ok := m.tree.Engine().FocusedItem()
	if !ok {
		return
	}
	if err := writeClipboard(doc.Route()); err != nil {
		m.setStatus(fmt.Sprintf("clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s to clipboard", doc.Route()), false)
}

// filterItems returns the corpus items whose label or slug contains query,
// with their ancestors.
func filterItems(items []model.Doc, query string) []model.Doc {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	return treeview.FilterKeepingParents(items, func(d model.Doc) bool {
		return strings.Contains(strings.ToLower(d.Label), q) ||
			(d.Slug != "" && strings.Contains(strings.ToLower(d.Slug), q))
	})
}

func (m *Model) applyFilter() {
	query := m.filter.Value()
	if err := m.tree.SetItems(filterItems(m.corpus.Items(), query)); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if strings.TrimSpace(query) != "" {
		m.tree.Engine().ExpandAll()
		m.tree.noItems = "No matches"
	} else {
		m.tree.noItems = "No pages"
	}
	m.tree.ensureFocusVisible()
}

// setCorpus swaps in a reloaded corpus, keeping the filter, the collapse
// state and the open page when it still exists.
func (m *Model) setCorpus(c *loader.Corpus) error {
	old := m.corpus
	m.corpus = c
	if err := m.tree.SetItems(filterItems(c.Items(), m.filter.Value())); err != nil {
		m.corpus = old
		return err
	}
	if m.openedKey == "" {
		m.pager.SetMarkdown(homeMarkdown(m.opts.Title, c.Posts(), DefaultRecentPosts))
		return nil
	}
	doc, ok := c.Lookup(m.openedKey)
	if !ok || !doc.IsPage() {
		m.openedKey = ""
		m.tree.Engine().ClearSelected()
		m.pager.SetMarkdown(homeMarkdown(m.opts.Title, c.Posts(), DefaultRecentPosts))
		return nil
	}
	m.pager.SetMarkdown(pageMarkdown(doc))
	return nil
}

func (m Model) sidebarWidth() int {
	w := m.opts.SidebarWidth
	if half := m.width / 2; w > half {
		w = half
	}
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) resize() {
	body := m.height - 1 // status bar
	if body < 2 {
		body = 2
	}
	sw := m.sidebarWidth()
	m.tree.SetSize(sw, body-1)
	m.pager.SetSize(max(m.width-sw-1, 10), body)
}

// View implements tea.Model.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.tree.View(),
		" ",
		m.pager.View(),
	)
	return body + "\n" + m.statusView()
}

func (m Model) statusView() string {
	if m.filtering {
		return m.filter.View()
	}
	var parts []string
	if q := m.filter.Value(); q != "" {
		parts = append(parts, "filter: "+q)
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, m.theme.ErrorText.Render(m.status))
		} else {
			parts = append(parts, m.status)
		}
	}
	if pos := m.tree.positionInfo(); pos != "" {
		parts = append(parts, pos)
	}
	parts = append(parts, helpLine(m.keys.ShortHelp()))
	return m.theme.StatusBar.Render(truncate(strings.Join(parts, " │ "), max(m.width-2, 1)))
}

// FocusState returns "tree" or "page".
func (m Model) FocusState() string {
	if m.focus == focusPage {
		return "page"
	}
	return "tree"
}

// FocusedKey returns the path key of the focused row.
func (m Model) FocusedKey() string {
	return m.tree.FocusedKey()
}

// OpenedKey returns the path key of the page shown in the pager.
func (m Model) OpenedKey() string {
	return m.openedKey
}

// VisibleKeys returns the keys of the rows that are not hidden.
func (m Model) VisibleKeys() []string {
	rows := m.tree.Rows()
	out := make([]string, len(rows))
	for i, doc := range rows {
		out[i] = doc.Key()
	}
	return out
}

// TreeHasFocus reports the tree engine's focus flag.
func (m Model) TreeHasFocus() bool {
	return m.tree.Engine().TreeHasFocus()
}

// Filtering reports whether the filter input is active.
func (m Model) Filtering() bool {
	return m.filtering
}

// Status returns the status bar message.
func (m Model) Status() string {
	return m.status
}
