package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/site"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr         string
		noLiveReload bool
		poll         bool
		searchIndex  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Build, serve and rebuild the site on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Serve.Addr = addr
			}

			b, err := newBuilder(cfg, searchIndex)
			if err != nil {
				return err
			}
			srv := site.NewServer(site.ServerOptions{
				Addr:       cfg.Serve.Addr,
				ContentDir: cfg.Site.ContentDir,
				Load:       loader.OptionsFrom(cfg),
				LiveReload: cfg.Serve.LiveReloadEnabled() && !noLiveReload,
				Debounce:   cfg.Serve.Debounce,
				ForcePoll:  poll || config.ForcePoll(),
			}, b)
			srv.SetLogger(log.New(cmd.ErrOrStderr(), "mt: ", log.Ltime))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s (Ctrl+C to stop)\n", cfg.Site.OutDir, cfg.Serve.Addr)
			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides serve.addr)")
	cmd.Flags().BoolVar(&noLiveReload, "no-live-reload", false, "Do not inject the live reload script")
	cmd.Flags().BoolVar(&poll, "poll", false, "Poll for changes instead of using filesystem events")
	cmd.Flags().BoolVar(&searchIndex, "search-index", false, "Also write a full-text search index")
	return cmd
}
