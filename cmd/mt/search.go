package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/search"
)

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		limit     int
		indexPath string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the pages of the last build",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexPath == "" {
				cfg, err := g.load()
				if err != nil {
					return err
				}
				indexPath = filepath.Join(cfg.Site.OutDir, search.FileName)
			}

			hits, err := search.Search(cmd.Context(), indexPath, strings.Join(args, " "), limit)
			if errors.Is(err, search.ErrNoIndex) {
				return fmt.Errorf("no search index at %s; run mt build --search-index", indexPath)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if hits == nil {
					hits = []search.Hit{}
				}
				data, err := json.MarshalIndent(hits, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			if len(hits) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%s  %s\n", h.Route, h.Title)
				if h.Snippet != "" {
					fmt.Fprintf(out, "    %s\n", strings.Join(strings.Fields(h.Snippet), " "))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	cmd.Flags().StringVar(&indexPath, "index", "", "Index file (default <out_dir>/"+search.FileName+")")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
