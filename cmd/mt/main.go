// Command mt builds, serves and browses a folder of markdown pages as a
// site with a tree sidebar.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/debug"
	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/version"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	contentDir string
	verbose    bool
	debug      bool
}

// load reads the config and applies flag overrides.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.contentDir != "" {
		cfg.Site.ContentDir = g.contentDir
	}
	return cfg, nil
}

// logger returns the progress logger: stderr with --verbose, silent
// otherwise.
func (g *globalFlags) logger(cmd *cobra.Command) *log.Logger {
	if !g.verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(cmd.ErrOrStderr(), "mt: ", log.Ltime)
}

// loadCorpus reads the content folder named by cfg.
func (g *globalFlags) loadCorpus(ctx context.Context, cmd *cobra.Command, cfg config.Config) (*loader.Corpus, error) {
	opts := loader.OptionsFrom(cfg)
	logger := g.logger(cmd)
	opts.WarningHandler = func(msg string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", msg)
	}
	l, err := newDirLoader(cfg.Site.ContentDir, opts)
	if err != nil {
		return nil, err
	}
	l.SetLogger(logger)
	c, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfg.Site.ContentDir, err)
	}
	return c, nil
}

func newDirLoader(dir string, opts loader.Options) (*loader.Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content dir %s is not a directory", dir)
	}
	return loader.New(os.DirFS(dir), opts), nil
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "mt",
		Short: "Markdown folder to site with a tree sidebar",
		Long: `mt turns a folder of markdown pages into a static site whose sidebar
mirrors the folder tree.

It provides:
- mt build: write the site (pages, tree.json, sitemap, search index)
- mt serve: build, serve and rebuild on change with live reload
- mt browse: the same tree and pages in the terminal
- mt deploy: publish the built site to GitHub Pages or Cloudflare Pages`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.debug {
				debug.SetEnabled(true)
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default ./"+config.FileName+" or the user config)")
	cmd.PersistentFlags().StringVar(&g.contentDir, "content", "", "Content folder (overrides site.content_dir)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log progress to stderr")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging (same as MT_DEBUG=1)")

	cmd.AddCommand(
		newBuildCmd(g),
		newServeCmd(g),
		newBrowseCmd(g),
		newTreeCmd(g),
		newSearchCmd(g),
		newInitCmd(g),
		newDeployCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "mt %s\n", version.String())
			},
		},
	)
	cmd.Version = version.String()
	return cmd
}
