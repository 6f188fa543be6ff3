package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultCloudflareBranch is the production branch of a Pages project.
const DefaultCloudflareBranch = "main"

// CloudflareConfig configures a Cloudflare Pages deployment.
type CloudflareConfig struct {
	OutDir  string
	Project string // default: SuggestProjectName(OutDir)
	Branch  string // default main
}

var (
	pagesDevURLRegex   = regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.pages\.dev[^\s]*`)
	deploymentIDRegex  = regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)
	headersFileContent = `/*
  X-Frame-Options: DENY
  X-Content-Type-Options: nosniff
  Referrer-Policy: strict-origin-when-cross-origin

/tree.json
  Cache-Control: no-cache

/search.sqlite3
  Content-Type: application/vnd.sqlite3
`
)

// WriteHeadersFile writes the _headers file Cloudflare Pages reads for
// response headers. An existing file is left alone.
func WriteHeadersFile(outDir string) error {
	path := filepath.Join(outDir, "_headers")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(headersFileContent), 0o644); err != nil {
		return fmt.Errorf("writing _headers: %w", err)
	}
	return nil
}

// parseCloudflareURL extracts the deployment URL from wrangler output.
func parseCloudflareURL(output string) string {
	return strings.TrimRight(pagesDevURLRegex.FindString(output), ".,;:\"'")
}

// CloudflarePages uploads the output folder with wrangler pages deploy.
func (d *Deployer) CloudflarePages(ctx context.Context, cfg CloudflareConfig) (*Result, error) {
	if cfg.Branch == "" {
		cfg.Branch = DefaultCloudflareBranch
	}
	if cfg.Project == "" {
		cfg.Project = SuggestProjectName(cfg.OutDir)
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("no project name: set deploy.project or pass --project")
	}
	if err := checkOutDir(cfg.OutDir); err != nil {
		return nil, err
	}

	d.step("Writing _headers...")
	if err := WriteHeadersFile(cfg.OutDir); err != nil {
		return nil, err
	}

	d.step("Deploying to Cloudflare Pages (project: %s)...", cfg.Project)
	out, err := d.runner.Run(ctx, "", "wrangler", "pages", "deploy", cfg.OutDir,
		"--project-name", cfg.Project,
		"--branch", cfg.Branch,
	)
	if err != nil {
		return nil, fmt.Errorf("wrangler pages deploy failed: %w\n%s", err, strings.TrimSpace(out))
	}

	url := parseCloudflareURL(out)
	if url == "" {
		url = fmt.Sprintf("https://%s.pages.dev", cfg.Project)
	}
	return &Result{
		Target:       "cloudflare",
		URL:          url,
		Branch:       cfg.Branch,
		DeploymentID: deploymentIDRegex.FindString(out),
	}, nil
}
