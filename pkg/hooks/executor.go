package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/vanderheijden86/marktree/pkg/debug"
)

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Success  bool
	Stdout   string
	Stderr   string
	Error    error
	Duration time.Duration
}

// Executor runs the hooks of a Config with a BuildContext.
type Executor struct {
	config  *Config
	context BuildContext
	dir     string
	results []Result
}

// NewExecutor returns an executor. A nil config runs nothing.
func NewExecutor(config *Config, ctx BuildContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// SetDir sets the working directory of hook commands.
func (e *Executor) SetDir(dir string) { e.dir = dir }

// SetContext replaces the build context, e.g. with page counts once the
// build is done.
func (e *Executor) SetContext(ctx BuildContext) { e.context = ctx }

// RunPreBuild runs pre-build hooks in order and stops at the first failing
// hook whose policy is fail.
func (e *Executor) RunPreBuild(ctx context.Context) error {
	return e.runPhase(ctx, PreBuild, e.config.Hooks.PreBuild)
}

// RunPostBuild runs every post-build hook. It returns the first failure of a
// hook whose policy is fail; later hooks still run.
func (e *Executor) RunPostBuild(ctx context.Context) error {
	var first error
	for _, hook := range e.config.Hooks.PostBuild {
		res := e.run(ctx, PostBuild, hook)
		if !res.Success && hook.OnError == OnErrorFail && first == nil {
			first = fmt.Errorf("post-build hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return first
}

func (e *Executor) runPhase(ctx context.Context, phase Phase, hooks []Hook) error {
	for _, hook := range hooks {
		res := e.run(ctx, phase, hook)
		if !res.Success && hook.OnError != OnErrorContinue {
			return fmt.Errorf("%s hook %q failed: %w", phase, hook.Name, res.Error)
		}
	}
	return nil
}

func (e *Executor) run(ctx context.Context, phase Phase, hook Hook) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(ctx, hook.Command)
	cmd.Dir = e.dir
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	// Don't wait on grandchildren holding the pipes after a timeout.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     hook,
		Phase:    phase,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Error = fmt.Errorf("timed out after %v", timeout)
	case err != nil:
		res.Error = err
	default:
		res.Success = true
	}
	debug.Log("hooks: %s %q success=%v in %v", phase, hook.Name, res.Success, res.Duration)
	e.results = append(e.results, res)
	return res
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// Results returns every run so far, in order.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary describes the runs in one line per hook.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var b strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			fmt.Fprintf(&b, "  ok   %s %s (%v)\n", r.Phase, r.Hook.Name, r.Duration.Round(time.Millisecond))
			continue
		}
		failed++
		fmt.Fprintf(&b, "  FAIL %s %s: %v", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&b, ": %s", truncate(r.Stderr, 120))
		}
		b.WriteByte('\n')
	}
	return fmt.Sprintf("Hooks: %d succeeded, %d failed\n", ok, failed) + b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

// RunHooks loads the hooks file of projectDir and returns an executor, or
// nil when hooks are disabled or none are configured.
func RunHooks(projectDir string, ctx BuildContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	e := NewExecutor(loader.Config(), ctx)
	e.SetDir(projectDir)
	return e, nil
}
