package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deetdd/internal/app"
	"github.com/YoshitsuguKoike/deetdd/internal/app/config"
	infraConfig "github.com/YoshitsuguKoike/deetdd/internal/infra/config"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	dir       string
	logLevel  string
	logFormat string
}

// workspace is a resolved kata directory with its loaded configuration
type workspace struct {
	fs     afero.Fs
	paths  app.Paths
	cfg    *config.Config
	logger app.Logger
}

// NewRoot builds the deetdd command tree
func NewRoot() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "deetdd",
		Short:        "Drive a kata through red/green/refactor steps with LLM agents",
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			root, err := filepath.Abs(opts.dir)
			if err != nil {
				return fmt.Errorf("resolve workspace: %w", err)
			}
			opts.dir = root

			// Existing environment wins over .env
			if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}

			logger, err := app.NewLogger(c.ErrOrStderr(), opts.logFormat, opts.logLevel)
			if err != nil {
				return err
			}
			app.SetLogger(logger)
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", ".", "Kata workspace directory")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides tdd.yaml")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (tint, text, json); overrides tdd.yaml")

	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newStepCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadWorkspace reads tdd.yaml and rebuilds the logger from its logging section
func (o *globalOptions) loadWorkspace(c *cobra.Command) (*workspace, error) {
	osFs := afero.NewOsFs()
	paths := app.ResolvePaths(o.dir)

	cfg, err := infraConfig.Load(osFs, paths.Config)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s not found; run 'deetdd init' first", paths.Config)
		}
		return nil, err
	}

	format, level := cfg.Logging.Format, cfg.Logging.Level
	if o.logFormat != "" {
		format = o.logFormat
	}
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := app.NewLogger(c.ErrOrStderr(), format, level)
	if err != nil {
		return nil, err
	}
	app.SetLogger(logger)

	return &workspace{fs: osFs, paths: paths, cfg: cfg, logger: logger}, nil
}

// kata returns the kata text. kata_description names a file relative to the
// workspace; when no such file exists the value itself is the description.
func (w *workspace) kata() (string, error) {
	desc := w.cfg.KataDescription
	path := desc
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.paths.Root, path)
	}

	data, err := afero.ReadFile(w.fs, path)
	switch {
	case err == nil:
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", fmt.Errorf("kata description %s is empty", path)
		}
		return text, nil
	case errors.Is(err, fs.ErrNotExist) && !strings.ContainsAny(desc, "\n") && filepath.Ext(desc) == ".md":
		return "", fmt.Errorf("kata description file %s not found", path)
	case errors.Is(err, fs.ErrNotExist):
		return desc, nil
	default:
		return "", fmt.Errorf("read kata description: %w", err)
	}
}

