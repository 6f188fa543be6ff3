package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/model"
	"github.com/vanderheijden86/marktree/pkg/site"
	"github.com/vanderheijden86/marktree/pkg/treeview"
)

func newTreeCmd(g *globalFlags) *cobra.Command {
	var (
		asJSON bool
		filter string
		route  string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the sidebar tree",
		Long: `Print the sidebar tree in display order.

With --route the tree is shown the way the sidebar of that page looks:
folders outside the page's branch are collapsed and their children hidden.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			c, err := g.loadCorpus(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}

			items := c.Items()
			if q := strings.ToLower(strings.TrimSpace(filter)); q != "" {
				items = treeview.FilterKeepingParentsAndChildren(items, func(d model.Doc) bool {
					return strings.Contains(strings.ToLower(d.Label), q) ||
						strings.Contains(strings.ToLower(d.Key()), q)
				})
				if len(items) == 0 {
					return fmt.Errorf("no pages match %q", filter)
				}
			}

			e, err := treeview.New(items, model.LabelComparator())
			if err != nil {
				return err
			}
			if route != "" {
				site.ApplyRoute(e, route, cfg.Site.HomeRoute)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := site.TreeJSON(e)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			return treeview.Print(out, e, treeview.PrintOptions[model.Doc]{
				Label:   func(d model.Doc) string { return d.Label },
				Markers: route != "",
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tree as JSON")
	cmd.Flags().StringVar(&filter, "filter", "", "Keep rows whose label or key contains this text, with their folders and children")
	cmd.Flags().StringVar(&route, "route", "", "Show the sidebar as it looks on this route")
	return cmd
}
