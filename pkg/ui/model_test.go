package ui_test

import (
	"context"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/ui"
)

// testCorpus loads:
//
//	posts
//	  guides
//	    Install
//	    Tuning
//	  Hello World
//	  zeta
func testCorpus(t *testing.T) *loader.Corpus {
	t.Helper()
	fsys := fstest.MapFS{
		"hello.md":          {Data: []byte("---\ntitle: Hello World\ndate: \"2021-05-01\"\n---\nHi there.\n")},
		"guides/install.md": {Data: []byte("---\ntitle: Install\n---\nRun it.\n")},
		"guides/tuning.md":  {Data: []byte("---\ntitle: Tuning\n---\nTune it.\n")},
		"zeta.md":           {Data: []byte("Last.\n")},
	}
	c, err := loader.New(fsys, loader.Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func newModel(t *testing.T) ui.Model {
	t.Helper()
	m, err := ui.NewModel(testCorpus(t), ui.Options{Title: "Notes", GlamourStyle: "notty"})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	newM, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return newM.(ui.Model)
}

func sendKey(t *testing.T, m ui.Model, key string) ui.Model {
	t.Helper()
	newM, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	return newM.(ui.Model)
}

func sendSpecialKey(t *testing.T, m ui.Model, keyType tea.KeyType) ui.Model {
	t.Helper()
	newM, _ := m.Update(tea.KeyMsg{Type: keyType})
	return newM.(ui.Model)
}

func assertKeys(t *testing.T, got, want []string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Errorf("visible keys = %v, want %v", got, want)
	}
}

var allKeys = []string{
	"posts",
	"posts/guides",
	"posts/guides/install",
	"posts/guides/tuning",
	"posts/hello",
	"posts/zeta",
}

func TestNewModelFocusesRoot(t *testing.T) {
	m := newModel(t)
	if m.FocusedKey() != "posts" {
		t.Errorf("FocusedKey = %q, want posts", m.FocusedKey())
	}
	if m.FocusState() != "tree" || !m.TreeHasFocus() {
		t.Error("tree pane should start focused")
	}
	assertKeys(t, m.VisibleKeys(), allKeys)
	if m.OpenedKey() != "" {
		t.Errorf("no page should be open, got %q", m.OpenedKey())
	}
}

func TestArrowAndVimKeysMoveFocus(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "j")
	if m.FocusedKey() != "posts/guides" {
		t.Fatalf("after j: %q", m.FocusedKey())
	}
	m = sendSpecialKey(t, m, tea.KeyDown)
	if m.FocusedKey() != "posts/guides/install" {
		t.Fatalf("after down: %q", m.FocusedKey())
	}
	m = sendSpecialKey(t, m, tea.KeyUp)
	m = sendKey(t, m, "k")
	if m.FocusedKey() != "posts" {
		t.Errorf("after up,k: %q", m.FocusedKey())
	}
	m = sendKey(t, m, "k")
	if m.FocusedKey() != "posts" {
		t.Errorf("k on the first row should stay, got %q", m.FocusedKey())
	}
}

func TestLeftCollapsesRightExpands(t *testing.T) {
	m := newModel(t)
	m = sendSpecialKey(t, m, tea.KeyLeft)
	assertKeys(t, m.VisibleKeys(), []string{"posts"})

	// Down skips hidden rows.
	m = sendSpecialKey(t, m, tea.KeyDown)
	if m.FocusedKey() != "posts" {
		t.Errorf("down with everything hidden moved to %q", m.FocusedKey())
	}

	m = sendKey(t, m, "l")
	assertKeys(t, m.VisibleKeys(), allKeys)
	m = sendKey(t, m, "l")
	if m.FocusedKey() != "posts/guides" {
		t.Errorf("right on an expanded row should focus its first child, got %q", m.FocusedKey())
	}
}

func TestEnterOpensPageAndCollapsesOtherFolders(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "j")
	m = sendKey(t, m, "j")
	m = sendSpecialKey(t, m, tea.KeyEnter)
	if m.OpenedKey() != "posts/guides/install" {
		t.Fatalf("OpenedKey = %q", m.OpenedKey())
	}
	if m.Status() != "/posts/guides/install" {
		t.Errorf("Status = %q", m.Status())
	}
	assertKeys(t, m.VisibleKeys(), allKeys)

	m = sendKey(t, m, "G")
	if m.FocusedKey() != "posts/zeta" {
		t.Fatalf("G focused %q", m.FocusedKey())
	}
	m = sendSpecialKey(t, m, tea.KeySpace)
	if m.OpenedKey() != "posts/zeta" {
		t.Fatalf("OpenedKey = %q", m.OpenedKey())
	}
	assertKeys(t, m.VisibleKeys(), []string{"posts", "posts/guides", "posts/hello", "posts/zeta"})
}

func TestEnterOnFolderWithoutPageToggles(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "j")
	m = sendSpecialKey(t, m, tea.KeyEnter)
	if m.OpenedKey() != "" {
		t.Errorf("folder without a page opened %q", m.OpenedKey())
	}
	assertKeys(t, m.VisibleKeys(), []string{"posts", "posts/guides", "posts/hello", "posts/zeta"})

	m = sendSpecialKey(t, m, tea.KeyEnter)
	assertKeys(t, m.VisibleKeys(), allKeys)
}

func TestCollapseAllMovesFocusToVisibleRow(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "j")
	m = sendKey(t, m, "j")
	m = sendKey(t, m, "C")
	assertKeys(t, m.VisibleKeys(), []string{"posts"})
	if m.FocusedKey() != "posts" {
		t.Errorf("FocusedKey = %q, want posts", m.FocusedKey())
	}
	m = sendKey(t, m, "E")
	assertKeys(t, m.VisibleKeys(), allKeys)
}

func TestTabSwitchesPaneAndTreeFocus(t *testing.T) {
	m := newModel(t)
	m = sendSpecialKey(t, m, tea.KeyTab)
	if m.FocusState() != "page" || m.TreeHasFocus() {
		t.Fatalf("after tab: focus=%s treeHasFocus=%v", m.FocusState(), m.TreeHasFocus())
	}

	// Navigation keys scroll the page instead of moving tree focus.
	m = sendKey(t, m, "j")
	if m.FocusedKey() != "posts" {
		t.Errorf("j in the page pane moved tree focus to %q", m.FocusedKey())
	}

	m = sendSpecialKey(t, m, tea.KeyTab)
	if m.FocusState() != "tree" || !m.TreeHasFocus() {
		t.Error("second tab should return to the tree")
	}
}

func TestFilterKeepsParents(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "/")
	if !m.Filtering() {
		t.Fatal("/ should start filtering")
	}
	for _, r := range "tun" {
		m = sendKey(t, m, string(r))
	}
	assertKeys(t, m.VisibleKeys(), []string{"posts", "posts/guides", "posts/guides/tuning"})

	m = sendSpecialKey(t, m, tea.KeyEnter)
	if m.Filtering() {
		t.Error("enter should leave the filter input")
	}
	assertKeys(t, m.VisibleKeys(), []string{"posts", "posts/guides", "posts/guides/tuning"})
	if !strings.Contains(m.View(), "filter: tun") {
		t.Error("status bar should show the active filter")
	}

	m = sendSpecialKey(t, m, tea.KeyEsc)
	assertKeys(t, m.VisibleKeys(), allKeys)
}

func TestFilterWithoutMatches(t *testing.T) {
	m := newModel(t)
	m = sendKey(t, m, "/")
	for _, r := range "nothing" {
		m = sendKey(t, m, string(r))
	}
	if keys := m.VisibleKeys(); len(keys) != 0 {
		t.Errorf("expected no rows, got %v", keys)
	}
	if !strings.Contains(m.View(), "No matches") {
		t.Error("empty filter result should say so")
	}
	m = sendSpecialKey(t, m, tea.KeyEsc)
	if m.Filtering() {
		t.Error("esc should leave the filter input")
	}
	assertKeys(t, m.VisibleKeys(), allKeys)
}

func TestMouseClickOpensRow(t *testing.T) {
	m := newModel(t)
	// Line 0 is the sidebar header; line 5 is the fifth row.
	newM, _ := m.Update(tea.MouseMsg{X: 3, Y: 5, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = newM.(ui.Model)
	if m.FocusedKey() != "posts/hello" || m.OpenedKey() != "posts/hello" {
		t.Errorf("focused=%q opened=%q, want posts/hello", m.FocusedKey(), m.OpenedKey())
	}

	newM, _ = m.Update(tea.MouseMsg{X: 80, Y: 5, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	m = newM.(ui.Model)
	if m.FocusState() != "page" {
		t.Error("clicking the page pane should focus it")
	}
}

func TestViewShowsTreeAndHome(t *testing.T) {
	m := newModel(t)
	view := m.View()
	for _, want := range []string{"Notes", "guides", "Hello World", "Recent posts"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = sendKey(t, m, "j")
	m = sendKey(t, m, "j")
	m = sendSpecialKey(t, m, tea.KeyEnter)
	if !strings.Contains(m.View(), "Run it.") {
		t.Error("opened page body should be shown")
	}
}

func TestReloadWithoutContentDir(t *testing.T) {
	m := newModel(t)
	newM, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = newM.(ui.Model)
	if cmd != nil {
		t.Error("reload without a content dir should not run a command")
	}
	if m.Status() != "nothing to reload" {
		t.Errorf("Status = %q", m.Status())
	}
}

func TestQuit(t *testing.T) {
	m := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
