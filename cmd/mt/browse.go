package main

import (
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/config"
	"github.com/vanderheijden86/marktree/pkg/loader"
	"github.com/vanderheijden86/marktree/pkg/ui"
)

func newBrowseCmd(g *globalFlags) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the pages in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			c, err := g.loadCorpus(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			m, err := ui.NewModel(c, ui.Options{
				Title:        cfg.Site.Title,
				ContentDir:   cfg.Site.ContentDir,
				Load:         loader.OptionsFrom(cfg),
				Watch:        !noWatch,
				ForcePoll:    config.ForcePoll(),
				SidebarWidth: cfg.UI.SidebarWidth,
				WordWrap:     cfg.UI.WordWrap,
				GlamourStyle: cfg.UI.GlamourStyle,
			})
			if err != nil {
				return err
			}
			defer m.Stop()
			return runTUIProgram(m)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when files change")
	return cmd
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set MT_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("MT_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
