package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/hooks"
	"github.com/vanderheijden86/marktree/pkg/metrics"
	"github.com/vanderheijden86/marktree/pkg/render"
	"github.com/vanderheijden86/marktree/pkg/search"
	"github.com/vanderheijden86/marktree/pkg/site"
)

// newBuilder wires the renderer and site options from cfg.
func newBuilder(cfg config.Config, searchIndex bool) (*site.Builder, error) {
	r, err := render.New(render.OptionsFrom(cfg.Markdown))
	if err != nil {
		return nil, err
	}
	opts := site.OptionsFrom(cfg)
	opts.SearchIndex = searchIndex
	return site.NewBuilder(opts, r)
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	var (
		outDir      string
		searchIndex bool
		stats       bool
		drafts      bool
		noHooks     bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the static site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Site.OutDir = outDir
			}
			if drafts {
				cfg.Content.Drafts = true
			}
			if stats {
				metrics.SetEnabled(true)
				metrics.ResetAll()
			}

			start := time.Now()
			hookCtx := hooks.BuildContext{
				ContentDir: cfg.Site.ContentDir,
				OutDir:     cfg.Site.OutDir,
				Timestamp:  start,
			}
			executor, err := hooks.RunHooks(g.projectDir(), hookCtx, noHooks)
			if err != nil {
				return err
			}
			if executor != nil {
				if err := executor.RunPreBuild(cmd.Context()); err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), executor.Summary())
					return err
				}
			}

			c, err := g.loadCorpus(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			b, err := newBuilder(cfg, searchIndex)
			if err != nil {
				return err
			}
			b.SetLogger(g.logger(cmd))
			res, err := b.Build(cmd.Context(), c)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Built %d pages (%d files) into %s in %v\n",
				res.Pages, len(res.Files), cfg.Site.OutDir, time.Since(start).Round(time.Millisecond))
			if len(res.Removed) > 0 {
				fmt.Fprintf(out, "Removed %d stale files\n", len(res.Removed))
			}
			if searchIndex {
				fmt.Fprintf(out, "Search index: %s\n", filepath.Join(cfg.Site.OutDir, search.FileName))
			}
			if executor != nil {
				hookCtx.PageCount = res.Pages
				hookCtx.FileCount = len(res.Files)
				executor.SetContext(hookCtx)
				hookErr := executor.RunPostBuild(cmd.Context())
				fmt.Fprint(out, executor.Summary())
				if hookErr != nil {
					return hookErr
				}
			}
			if stats {
				fmt.Fprintln(out)
				return metrics.WriteTable(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output folder (overrides site.out_dir)")
	cmd.Flags().BoolVar(&searchIndex, "search-index", false, "Also write a full-text search index")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print timing metrics after the build")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "Include draft pages")
	cmd.Flags().BoolVar(&noHooks, "no-hooks", false, "Skip pre-build and post-build hooks")
	return cmd
}

// projectDir is where .marktree/hooks.yaml is looked up: the folder of an
// explicit config file, else the working directory.
func (g *globalFlags) projectDir() string {
	if g.configPath != "" {
		return filepath.Dir(g.configPath)
	}
	return "."
}
