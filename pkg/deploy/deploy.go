// Package deploy publishes a built site to GitHub Pages or Cloudflare Pages.
//
// Both targets shell out to the tools users already have (git, wrangler).
// Nothing is installed and no credentials are handled here.
package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Runner runs an external command in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Status reports which deploy tools are on PATH.
type Status struct {
	Git      bool
	Wrangler bool
}

// CheckTools looks up git and wrangler.
func CheckTools() Status {
	_, gitErr := lookPath("git")
	_, wranglerErr := lookPath("wrangler")
	return Status{Git: gitErr == nil, Wrangler: wranglerErr == nil}
}

// Result describes a finished deployment.
type Result struct {
	Target       string
	URL          string
	Branch       string
	DeploymentID string
}

// Deployer publishes one output folder.
type Deployer struct {
	runner Runner
	out    io.Writer
}

// New returns a deployer that reports progress to out. A nil runner uses
// ExecRunner.
func New(runner Runner, out io.Writer) *Deployer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if out == nil {
		out = io.Discard
	}
	return &Deployer{runner: runner, out: out}
}

func (d *Deployer) step(format string, args ...any) {
	fmt.Fprintf(d.out, "  -> "+format+"\n", args...)
}

func checkOutDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output folder %s is not a directory", dir)
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		return fmt.Errorf("%s has no index.html; run mt build first", dir)
	}
	return nil
}

var (
	nonSlugRegex       = regexp.MustCompile(`[^a-z0-9-]`)
	multipleHyphenRegex = regexp.MustCompile(`-+`)
)

// SuggestProjectName derives a Pages project name from the output folder:
// the parent folder name when the output folder has a generic name.
func SuggestProjectName(outDir string) string {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		abs = outDir
	}
	name := filepath.Base(abs)
	switch name {
	case "public", "dist", "site", "out", "build", "_site":
		if parent := filepath.Base(filepath.Dir(abs)); parent != "" && parent != "." && parent != string(filepath.Separator) {
			name = parent
		}
	}

	name = strings.ToLower(name)
	name = strings.NewReplacer(" ", "-", "_", "-", ".", "-").Replace(name)
	name = nonSlugRegex.ReplaceAllString(name, "")
	name = multipleHyphenRegex.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
