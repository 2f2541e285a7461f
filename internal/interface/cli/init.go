package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deetdd/internal/adapter/gateway/vcs"
	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/app/config"
	"github.com/YoshitsuguKoike/deetdd/internal/embed"
	infraConfig "github.com/YoshitsuguKoike/deetdd/internal/infra/config"
)

const initialCommitMessage = "Initial kata scaffold"

func newInitCmd(opts *globalOptions) *cobra.Command {
	var language string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create tdd.yaml, kata.md and a language skeleton in a fresh git repository",
		RunE: func(c *cobra.Command, _ []string) error {
			osFs := afero.NewOsFs()
			paths := app.ResolvePaths(opts.dir)

			templates, err := embed.ScaffoldTemplates(language)
			if err != nil {
				return err
			}
			templates = append([]embed.Template{{
				Path:    "tdd.yaml",
				Content: []byte(config.DefaultYAML(language)),
				Mode:    0o644,
			}}, templates...)

			out := c.OutOrStdout()
			for _, tmpl := range templates {
				res, err := embed.WriteTemplate(osFs, paths.Root, tmpl, force)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-13s %s\n", res.Action, res.Path)
			}

			for _, dir := range []string{paths.Plans, paths.Logs} {
				if err := osFs.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}

			// The written config must load, or every later command fails
			cfg, err := infraConfig.Load(osFs, paths.Config)
			if err != nil {
				return err
			}

			ctx := c.Context()
			git := vcs.NewGitGateway(paths.Root, vcs.GitOptions{
				AuthorName:  cfg.Commit.AuthorName,
				AuthorEmail: cfg.Commit.AuthorEmail,
				Exclude:     cfg.Context.Exclude,
				Protect:     paths.ProtectedPaths(),
			})
			if err := git.InitIfNeeded(ctx); err != nil {
				return err
			}
			hasHead, err := git.HasHead(ctx)
			if err != nil {
				return err
			}
			if !hasHead {
				if err := git.StageAll(ctx); err != nil {
					return err
				}
				id, err := git.Commit(ctx, initialCommitMessage)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "committed %s %s\n", shortCommit(id), initialCommitMessage)
			}

			fmt.Fprintf(out, "Initialized %s kata in %s\n", language, paths.Root)
			fmt.Fprintln(out, "Next: describe the kata in kata.md and commit it, set the API key, then run 'deetdd run'")
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "rust", "Kata language (rust, go)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	return cmd
}
