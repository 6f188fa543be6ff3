// Package config loads and saves marktree configuration.
//
// A site is configured by marktree.yaml in the working directory. User-wide
// defaults live in the XDG config directory:
//   - Config: ~/.config/marktree/config.yaml
//
// Missing files are not an error; DefaultConfig applies.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-site config file looked up in the working directory.
const FileName = "marktree.yaml"

// Environment overrides.
const (
	ContentDirEnvVar = "MT_CONTENT_DIR"
	OutDirEnvVar     = "MT_OUT_DIR"
	ForcePollEnvVar  = "MT_FORCE_POLL"
)

// ErrNoConfigDir is returned by Save when no config directory can be
// determined.
var ErrNoConfigDir = errors.New("cannot determine config directory")

// SiteConfig describes the generated site.
type SiteConfig struct {
	Title      string `yaml:"title,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	ContentDir string `yaml:"content_dir,omitempty"` // Markdown source folder
	OutDir     string `yaml:"out_dir,omitempty"`     // Build output folder
	RootLabel  string `yaml:"root_label,omitempty"`  // First path segment of every tree item
	HomeRoute  string `yaml:"home_route,omitempty"`  // Route that renders the home page
}

// ContentConfig controls which files become pages.
type ContentConfig struct {
	Pattern    string   `yaml:"pattern,omitempty"`     // doublestar glob for pages
	Ignore     []string `yaml:"ignore,omitempty"`      // doublestar globs to skip
	IndexNames []string `yaml:"index_names,omitempty"` // Files that describe their folder
	Drafts     bool     `yaml:"drafts,omitempty"`      // Include draft pages
}

// MarkdownConfig controls markdown rendering.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions,omitempty"` // gfm, footnote, definition_list, typographer
	HardWraps  bool     `yaml:"hard_wraps,omitempty"`
	Unsafe     bool     `yaml:"unsafe,omitempty"`   // Pass raw HTML through
	Sanitize   bool     `yaml:"sanitize,omitempty"` // Run output through a UGC policy
}

// ServeConfig controls mt serve.
type ServeConfig struct {
	Addr       string        `yaml:"addr,omitempty"`
	LiveReload *bool         `yaml:"live_reload,omitempty"`
	Debounce   time.Duration `yaml:"debounce,omitempty"`
}

// LiveReloadEnabled reports whether browsers should be told to reload.
func (s ServeConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// UIConfig holds terminal browser preferences.
type UIConfig struct {
	SidebarWidth int    `yaml:"sidebar_width,omitempty"`
	WordWrap     int    `yaml:"word_wrap,omitempty"`
	GlamourStyle string `yaml:"glamour_style,omitempty"` // auto, dark, light, notty
}

// DeployConfig controls mt deploy.
type DeployConfig struct {
	Target  string `yaml:"target,omitempty"`  // github or cloudflare
	Remote  string `yaml:"remote,omitempty"`  // git URL or owner/repo for github
	Branch  string `yaml:"branch,omitempty"`  // gh-pages for github, main for cloudflare
	CNAME   string `yaml:"cname,omitempty"`   // Custom domain written to CNAME
	Project string `yaml:"project,omitempty"` // Cloudflare Pages project
}

// Config is the top-level configuration.
type Config struct {
	Site     SiteConfig     `yaml:"site,omitempty"`
	Content  ContentConfig  `yaml:"content,omitempty"`
	Markdown MarkdownConfig `yaml:"markdown,omitempty"`
	Serve    ServeConfig    `yaml:"serve,omitempty"`
	UI       UIConfig       `yaml:"ui,omitempty"`
	Deploy   DeployConfig   `yaml:"deploy,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Title:      "Notes",
			ContentDir: "_posts",
			OutDir:     "public",
			RootLabel:  "posts",
			HomeRoute:  "/",
		},
		Content: ContentConfig{
			Pattern:    "**/*.md",
			IndexNames: []string{"index.md", "README.md"},
		},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm", "footnote"},
			Unsafe:     true,
		},
		Serve: ServeConfig{
			Addr:     "127.0.0.1:4000",
			Debounce: 200 * time.Millisecond,
		},
		UI: UIConfig{
			SidebarWidth: 32,
			WordWrap:     100,
			GlamourStyle: "auto",
		},
	}
}

// ConfigDir returns the XDG config directory for marktree.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "marktree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "marktree")
}

// ConfigPath returns the full path to the user config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Resolve returns the config file to use: explicit when set, else
// ./marktree.yaml when present, else the user config path.
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	return ConfigPath()
}

// Load reads the config chosen by Resolve and applies environment
// overrides.
func Load(explicit string) (Config, error) {
	path := Resolve(explicit)
	if path == "" {
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, nil
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFrom reads config from a specific path. Fields missing from the file
// keep their defaults. A missing file yields DefaultConfig.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Site.ContentDir = expandHome(cfg.Site.ContentDir)
	cfg.Site.OutDir = expandHome(cfg.Site.OutDir)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would break a build.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Site.RootLabel) == "" {
		return errors.New("site.root_label must not be empty")
	}
	if strings.Contains(c.Site.RootLabel, "/") {
		return fmt.Errorf("site.root_label %q must not contain '/'", c.Site.RootLabel)
	}
	if c.Site.ContentDir == "" {
		return errors.New("site.content_dir must not be empty")
	}
	if c.Site.OutDir == "" {
		return errors.New("site.out_dir must not be empty")
	}
	if c.Serve.Debounce < 0 {
		return errors.New("serve.debounce must not be negative")
	}
	switch c.Deploy.Target {
	case "", "github", "cloudflare":
	default:
		return fmt.Errorf("deploy.target %q must be github or cloudflare", c.Deploy.Target)
	}
	return nil
}

func (c *Config) applyEnv() {
	if dir := os.Getenv(ContentDirEnvVar); dir != "" {
		c.Site.ContentDir = expandHome(dir)
	}
	if dir := os.Getenv(OutDirEnvVar); dir != "" {
		c.Site.OutDir = expandHome(dir)
	}
}

// ForcePoll reports whether MT_FORCE_POLL asks the watcher to poll.
func ForcePoll() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(ForcePollEnvVar)))
	return v == "1" || v == "true" || v == "yes"
}

// Save writes the config to the user config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return ErrNoConfigDir
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
