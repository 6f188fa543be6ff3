package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultGitHubBranch is the branch GitHub Pages serves from.
const DefaultGitHubBranch = "gh-pages"

// GitHubConfig configures a GitHub Pages deployment.
type GitHubConfig struct {
	OutDir  string
	Remote  string // git URL or owner/repo
	Branch  string // default gh-pages
	CNAME   string // custom domain, optional
	Message string // commit message, default "Deploy site <timestamp>"
}

var ownerRepoRegex = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]*/[A-Za-z0-9_.-]+$`)

// RemoteURL expands owner/repo to a GitHub https URL and returns other
// remotes unchanged.
func RemoteURL(remote string) string {
	if ownerRepoRegex.MatchString(remote) {
		return "https://github.com/" + strings.TrimSuffix(remote, ".git") + ".git"
	}
	return remote
}

var githubRemoteRegex = regexp.MustCompile(`github\.com[:/]([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)

// PagesURL guesses the public URL of a GitHub Pages site. It returns "" for
// remotes outside github.com.
func PagesURL(remote, cname string) string {
	if cname != "" {
		return "https://" + cname + "/"
	}
	m := githubRemoteRegex.FindStringSubmatch(RemoteURL(remote))
	if m == nil {
		return ""
	}
	owner, repo := strings.ToLower(m[1]), m[2]
	if strings.EqualFold(repo, owner+".github.io") {
		return "https://" + owner + ".github.io/"
	}
	return "https://" + owner + ".github.io/" + repo + "/"
}

// GitHubPages force-pushes the output folder as a single commit to the
// Pages branch of the remote. The git metadata lives in a temporary folder,
// so the output folder gets no .git directory.
func (d *Deployer) GitHubPages(ctx context.Context, cfg GitHubConfig) (*Result, error) {
	if cfg.Remote == "" {
		return nil, fmt.Errorf("no remote: set deploy.remote or pass --remote")
	}
	if cfg.Branch == "" {
		cfg.Branch = DefaultGitHubBranch
	}
	if cfg.Message == "" {
		cfg.Message = "Deploy site " + time.Now().UTC().Format(time.RFC3339)
	}
	if err := checkOutDir(cfg.OutDir); err != nil {
		return nil, err
	}

	// GitHub Pages runs Jekyll unless told not to; it would drop _files.
	if err := os.WriteFile(filepath.Join(cfg.OutDir, ".nojekyll"), nil, 0o644); err != nil {
		return nil, fmt.Errorf("writing .nojekyll: %w", err)
	}
	if cfg.CNAME != "" {
		if err := os.WriteFile(filepath.Join(cfg.OutDir, "CNAME"), []byte(cfg.CNAME+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("writing CNAME: %w", err)
		}
	}

	gitDir, err := os.MkdirTemp("", "mt-deploy-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(gitDir)

	workTree, err := filepath.Abs(cfg.OutDir)
	if err != nil {
		return nil, err
	}
	remote := RemoteURL(cfg.Remote)
	base := []string{"--git-dir", gitDir, "--work-tree", workTree}
	steps := []struct {
		desc string
		args []string
	}{
		{"Initializing repository", []string{"init", "--quiet"}},
		{"Creating " + cfg.Branch + " branch", []string{"symbolic-ref", "HEAD", "refs/heads/" + cfg.Branch}},
		{"Staging files", []string{"add", "--all"}},
		{"Creating commit", []string{
			"-c", "user.name=" + gitIdentity(ctx, d.runner, "user.name", "mt"),
			"-c", "user.email=" + gitIdentity(ctx, d.runner, "user.email", "mt@localhost"),
			"commit", "--quiet", "-m", cfg.Message,
		}},
		{"Pushing to " + remote, []string{"push", "--force", remote, cfg.Branch + ":" + cfg.Branch}},
	}
	for _, s := range steps {
		d.step("%s...", s.desc)
		args := append(append([]string{}, base...), s.args...)
		if out, err := d.runner.Run(ctx, workTree, "git", args...); err != nil {
			return nil, fmt.Errorf("%s failed: %s", strings.ToLower(s.desc), strings.TrimSpace(out))
		}
	}

	return &Result{
		Target: "github",
		URL:    PagesURL(cfg.Remote, cfg.CNAME),
		Branch: cfg.Branch,
	}, nil
}

// gitIdentity returns the configured git identity, or fallback so that
// commits work on machines without one.
func gitIdentity(ctx context.Context, r Runner, key, fallback string) string {
	out, err := r.Run(ctx, "", "git", "config", "--get", key)
	if v := strings.TrimSpace(out); err == nil && v != "" {
		return v
	}
	return fallback
}
