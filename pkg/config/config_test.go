package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Site.ContentDir != "_posts" {
		t.Errorf("expected content dir '_posts', got %q", cfg.Site.ContentDir)
	}
	if cfg.Site.RootLabel != "posts" {
		t.Errorf("expected root label 'posts', got %q", cfg.Site.RootLabel)
	}
	if cfg.Serve.Debounce != 200*time.Millisecond {
		t.Errorf("expected debounce 200ms, got %v", cfg.Serve.Debounce)
	}
	if !cfg.Serve.LiveReloadEnabled() {
		t.Error("expected live reload on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/marktree.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Site.OutDir != "public" {
		t.Errorf("expected default config, got out dir %q", cfg.Site.OutDir)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktree.yaml")

	content := `
site:
  title: Field Notes
  content_dir: ~/notes
  root_label: notes
content:
  ignore:
    - "drafts/**"
markdown:
  hard_wraps: true
serve:
  addr: ":8080"
  live_reload: false
  debounce: 500ms
ui:
  sidebar_width: 40
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Site.Title != "Field Notes" {
		t.Errorf("expected title 'Field Notes', got %q", cfg.Site.Title)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "notes"); cfg.Site.ContentDir != want {
		t.Errorf("expected expanded content dir %q, got %q", want, cfg.Site.ContentDir)
	}
	// Unset fields keep defaults.
	if cfg.Site.OutDir != "public" {
		t.Errorf("expected default out dir, got %q", cfg.Site.OutDir)
	}
	if len(cfg.Content.Ignore) != 1 || cfg.Content.Ignore[0] != "drafts/**" {
		t.Errorf("unexpected ignore list %v", cfg.Content.Ignore)
	}
	if !cfg.Markdown.HardWraps {
		t.Error("expected hard_wraps true")
	}
	if cfg.Serve.LiveReloadEnabled() {
		t.Error("expected live reload disabled")
	}
	if cfg.Serve.Debounce != 500*time.Millisecond {
		t.Errorf("expected debounce 500ms, got %v", cfg.Serve.Debounce)
	}
	if cfg.UI.SidebarWidth != 40 {
		t.Errorf("expected sidebar width 40, got %d", cfg.UI.SidebarWidth)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktree.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_InvalidRootLabel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktree.yaml")

	if err := os.WriteFile(path, []byte("site:\n  root_label: a/b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for root label containing a separator")
	}
}

func TestLoadFrom_Deploy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktree.yaml")

	if err := os.WriteFile(path, []byte("deploy:\n  target: github\n  remote: me/site\n  cname: docs.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Deploy.Target != "github" || cfg.Deploy.Remote != "me/site" || cfg.Deploy.CNAME != "docs.example.com" {
		t.Errorf("deploy = %+v", cfg.Deploy)
	}

	if err := os.WriteFile(path, []byte("deploy:\n  target: ftp\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for unknown deploy target")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "marktree.yaml")

	cfg := DefaultConfig()
	cfg.Site.Title = "Round Trip"
	cfg.Content.Ignore = []string{"**/_*.md"}
	cfg.Serve.Debounce = time.Second

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if loaded.Site.Title != "Round Trip" {
		t.Errorf("expected 'Round Trip', got %q", loaded.Site.Title)
	}
	if loaded.Serve.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", loaded.Serve.Debounce)
	}
	if len(loaded.Content.Ignore) != 1 {
		t.Errorf("expected 1 ignore glob, got %v", loaded.Content.Ignore)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "marktree.yaml")
	if err := os.WriteFile(path, []byte("site:\n  content_dir: docs\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ContentDirEnvVar, "/srv/content")
	t.Setenv(OutDirEnvVar, "/srv/out")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Site.ContentDir != "/srv/content" {
		t.Errorf("expected env content dir, got %q", cfg.Site.ContentDir)
	}
	if cfg.Site.OutDir != "/srv/out" {
		t.Errorf("expected env out dir, got %q", cfg.Site.OutDir)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("custom.yaml"); got != "custom.yaml" {
		t.Errorf("explicit path ignored, got %q", got)
	}

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	if got, want := Resolve(""), filepath.Join(dir, "xdg", "marktree", "config.yaml"); got != want {
		t.Errorf("expected user config %q, got %q", want, got)
	}
	if err := os.WriteFile(FileName, []byte("site: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != FileName {
		t.Errorf("expected %q, got %q", FileName, got)
	}
}

func TestForcePoll(t *testing.T) {
	for _, tt := range []struct {
		value string
		want  bool
	}{
		{"", false},
		{"0", false},
		{"1", true},
		{"TRUE", true},
		{"yes", true},
	} {
		t.Setenv(ForcePollEnvVar, tt.value)
		if got := ForcePoll(); got != tt.want {
			t.Errorf("ForcePoll with %q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestSave_NoConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "")
	if ConfigPath() != "" {
		t.Skip("home directory still resolvable")
	}
	if err := Save(DefaultConfig()); !errors.Is(err, ErrNoConfigDir) {
		t.Errorf("expected ErrNoConfigDir, got %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "marktree")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
