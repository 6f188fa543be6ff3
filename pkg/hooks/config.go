// Package hooks runs shell commands around `mt build`.
//
// Hooks live in .marktree/hooks.yaml in the project folder:
//
//	hooks:
//	  pre-build:
//	    - name: lint
//	      command: markdownlint content
//	  post-build:
//	    - name: deploy
//	      command: rsync -a public/ host:/srv/site
//	      timeout: 2m
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Phase is when a hook runs.
type Phase string

const (
	// PreBuild runs before any output is written. Failure cancels the build.
	PreBuild Phase = "pre-build"
	// PostBuild runs after the site is written. Failure is reported but the
	// build still counts as done.
	PostBuild Phase = "post-build"
)

// Error policies.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout bounds a hook without an explicit timeout.
const DefaultTimeout = 30 * time.Second

// FileName is the hooks file, relative to the project folder.
const FileName = ".marktree/hooks.yaml"

// Hook is one configured command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Config is the parsed hooks file.
type Config struct {
	Hooks ByPhase `yaml:"hooks" json:"hooks"`
}

// ByPhase groups hooks by phase.
type ByPhase struct {
	PreBuild  []Hook `yaml:"pre-build,omitempty" json:"pre-build,omitempty"`
	PostBuild []Hook `yaml:"post-build,omitempty" json:"post-build,omitempty"`
}

// BuildContext is exported to every hook as MT_* environment variables.
type BuildContext struct {
	ContentDir string
	OutDir     string
	PageCount  int // zero for pre-build hooks
	FileCount  int // zero for pre-build hooks
	Timestamp  time.Time
}

// ToEnv returns the context as KEY=value pairs.
func (c BuildContext) ToEnv() []string {
	return []string{
		"MT_CONTENT_DIR=" + c.ContentDir,
		"MT_OUT_DIR=" + c.OutDir,
		fmt.Sprintf("MT_PAGE_COUNT=%d", c.PageCount),
		fmt.Sprintf("MT_FILE_COUNT=%d", c.FileCount),
		"MT_TIMESTAMP=" + c.Timestamp.UTC().Format(time.RFC3339),
	}
}

// Loader reads the hooks file of a project folder.
type Loader struct {
	projectDir string
	config     *Config
	warnings   []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProjectDir sets the project folder (default: current directory).
func WithProjectDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.projectDir = dir
	}
}

// NewLoader returns a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.projectDir == "" {
		l.projectDir, _ = os.Getwd()
	}
	return l
}

// Path returns the hooks file location.
func (l *Loader) Path() string {
	return filepath.Join(l.projectDir, filepath.FromSlash(FileName))
}

// Load reads the hooks file. A missing file means no hooks.
func (l *Loader) Load() error {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.config = &Config{}
			return nil
		}
		return fmt.Errorf("reading hooks config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	l.warnings = nil
	config.Hooks.PreBuild, l.warnings = normalizeHooks(config.Hooks.PreBuild, PreBuild, l.warnings)
	config.Hooks.PostBuild, l.warnings = normalizeHooks(config.Hooks.PostBuild, PostBuild, l.warnings)
	l.config = &config
	return nil
}

// normalizeHooks fills defaults and drops hooks without a command.
func normalizeHooks(hooks []Hook, phase Phase, warnings []string) ([]Hook, []string) {
	var out []Hook
	for i, hook := range hooks {
		if strings.TrimSpace(hook.Command) == "" {
			warnings = append(warnings, fmt.Sprintf("%s hook %d has empty command; skipping", phase, i+1))
			continue
		}
		if hook.Timeout <= 0 {
			hook.Timeout = DefaultTimeout
		}
		switch hook.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			if phase == PreBuild {
				hook.OnError = OnErrorFail
			} else {
				hook.OnError = OnErrorContinue
			}
		default:
			warnings = append(warnings, fmt.Sprintf("%s hook %q: unknown on_error %q, using fail", phase, hook.Name, hook.OnError))
			hook.OnError = OnErrorFail
		}
		if hook.Name == "" {
			hook.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		out = append(out, hook)
	}
	return out, warnings
}

// Config returns the loaded configuration, empty before Load.
func (l *Loader) Config() *Config {
	if l.config == nil {
		return &Config{}
	}
	return l.config
}

// HasHooks reports whether any hook is configured.
func (l *Loader) HasHooks() bool {
	if l.config == nil {
		return false
	}
	return len(l.config.Hooks.PreBuild) > 0 || len(l.config.Hooks.PostBuild) > 0
}

// GetHooks returns the hooks of one phase.
func (l *Loader) GetHooks(phase Phase) []Hook {
	if l.config == nil {
		return nil
	}
	switch phase {
	case PreBuild:
		return l.config.Hooks.PreBuild
	case PostBuild:
		return l.config.Hooks.PostBuild
	default:
		return nil
	}
}

// Warnings returns problems found while loading.
func (l *Loader) Warnings() []string {
	return l.warnings
}

// UnmarshalYAML accepts timeouts as durations ("5s") or bare seconds (30).
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	// Must mirror Hook, with Timeout as a string.
	type hookDTO struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout,omitempty"`
		Env     map[string]string `yaml:"env,omitempty"`
		OnError string            `yaml:"on_error,omitempty"`
	}

	var dto hookDTO
	if err := node.Decode(&dto); err != nil {
		return err
	}

	h.Name = dto.Name
	h.Command = dto.Command
	h.Env = dto.Env
	h.OnError = dto.OnError

	if dto.Timeout != "" {
		d, err := time.ParseDuration(dto.Timeout)
		if err != nil {
			var seconds float64
			if _, scanErr := fmt.Sscanf(dto.Timeout, "%f", &seconds); scanErr != nil {
				return fmt.Errorf("invalid timeout %q: %w", dto.Timeout, err)
			}
			d = time.Duration(seconds * float64(time.Second))
		}
		h.Timeout = d
	}
	return nil
}
