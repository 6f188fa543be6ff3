package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/marktree/pkg/deploy"
)

// newDeployer is swapped in tests.
var newDeployer = func(cmd *cobra.Command) *deploy.Deployer {
	return deploy.New(nil, cmd.ErrOrStderr())
}

func newDeployCmd(g *globalFlags) *cobra.Command {
	var (
		remote  string
		branch  string
		cname   string
		project string
		message string
	)

	cmd := &cobra.Command{
		Use:   "deploy [github|cloudflare]",
		Short: "Publish the built site to GitHub Pages or Cloudflare Pages",
		Long: `Publish the output folder of the last mt build.

github      force-pushes the site as one commit to a Pages branch (git)
cloudflare  uploads the site with wrangler pages deploy

The target defaults to deploy.target from the config.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"github", "cloudflare"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			d := cfg.Deploy
			if len(args) == 1 {
				d.Target = args[0]
			}
			if remote != "" {
				d.Remote = remote
			}
			if branch != "" {
				d.Branch = branch
			}
			if cname != "" {
				d.CNAME = cname
			}
			if project != "" {
				d.Project = project
			}

			deployer := newDeployer(cmd)
			var res *deploy.Result
			switch d.Target {
			case "github":
				res, err = deployer.GitHubPages(cmd.Context(), deploy.GitHubConfig{
					OutDir:  cfg.Site.OutDir,
					Remote:  d.Remote,
					Branch:  d.Branch,
					CNAME:   d.CNAME,
					Message: message,
				})
			case "cloudflare":
				res, err = deployer.CloudflarePages(cmd.Context(), deploy.CloudflareConfig{
					OutDir:  cfg.Site.OutDir,
					Project: d.Project,
					Branch:  d.Branch,
				})
			case "":
				return fmt.Errorf("no deploy target: pass github or cloudflare, or set deploy.target")
			default:
				return fmt.Errorf("unknown deploy target %q", d.Target)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deployed %s to %s (branch %s)\n", cfg.Site.OutDir, res.Target, res.Branch)
			if res.URL != "" {
				fmt.Fprintf(out, "URL: %s\n", res.URL)
			}
			if res.DeploymentID != "" {
				fmt.Fprintf(out, "Deployment: %s\n", res.DeploymentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "git remote or owner/repo (github)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to publish (default gh-pages for github, main for cloudflare)")
	cmd.Flags().StringVar(&cname, "cname", "", "Custom domain written to CNAME (github)")
	cmd.Flags().StringVar(&project, "project", "", "Pages project name (cloudflare)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message (github)")
	return cmd
}
