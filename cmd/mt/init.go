package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/render"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// runWizard asks for the site settings, starting from cfg.
func runWizard(cfg *config.Config) error {
	extensions := cfg.Markdown.Extensions
	options := make([]huh.Option[string], 0)
	for _, name := range render.KnownExtensions() {
		options = append(options, huh.NewOption(name, name))
	}

	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Site title").
				Value(&cfg.Site.Title).
				Validate(notEmpty("title")),
			huh.NewInput().
				Title("Base URL").
				Description("Used for canonical links and the sitemap; may be left empty").
				Value(&cfg.Site.BaseURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Content folder").
				Description("Folder holding the markdown pages").
				Value(&cfg.Site.ContentDir).
				Validate(notEmpty("content folder")),
			huh.NewInput().
				Title("Output folder").
				Value(&cfg.Site.OutDir).
				Validate(notEmpty("output folder")),
			huh.NewInput().
				Title("Root label").
				Description("Name of the top tree item and first segment of every route").
				Value(&cfg.Site.RootLabel).
				Validate(func(s string) error {
					if err := notEmpty("root label")(s); err != nil {
						return err
					}
					if strings.Contains(s, "/") {
						return errors.New("root label must not contain '/'")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Markdown extensions").
				Options(options...).
				Value(&extensions),
			huh.NewConfirm().
				Title("Sanitize rendered HTML?").
				Description("Strip scripts and unsafe attributes from pages").
				Value(&cfg.Markdown.Sanitize),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Markdown.Extensions = extensions
	return nil
}

func newInitCmd(g *globalFlags) *cobra.Command {
	var (
		path     string
		yes      bool
		force    bool
		title    string
		rootName string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create " + config.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if g.contentDir != "" {
				cfg.Site.ContentDir = g.contentDir
			}
			if title != "" {
				cfg.Site.Title = title
			}
			if rootName != "" {
				cfg.Site.RootLabel = rootName
			}
			if !yes {
				if err := runWizard(&cfg); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if _, err := render.New(render.OptionsFrom(cfg.Markdown)); err != nil {
				return err
			}
			if err := config.SaveTo(cfg, path); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", path)
			if _, err := os.Stat(cfg.Site.ContentDir); os.IsNotExist(err) {
				fmt.Fprintf(out, "Create %s and add markdown pages, then run mt serve\n", cfg.Site.ContentDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", config.FileName, "Where to write the config")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept the defaults without asking")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	cmd.Flags().StringVar(&title, "title", "", "Site title")
	cmd.Flags().StringVar(&rootName, "root-label", "", "Root label of the tree")
	return cmd
}
