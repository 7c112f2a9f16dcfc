// Package cli implements the gradebook command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/xraph/gradebook"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Backend    string
	DSN        string
	Format     string // "json" | "text"
	Verbose    bool

	// Set by PersistentPreRunE.
	Config Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gradebook CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gradebook",
		Short: "Students and their math, science and history grades",
		Long: `gradebook keeps students and their grades in math, science and history.

The backend is chosen by --backend, the "backend" key of the config file or
GRADEBOOK_BACKEND: memory, sqlite, bolt, postgres or mongo.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with GRADEBOOK_* variables")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "storage backend (memory|sqlite|bolt|postgres|mongo)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database path or connection string")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewStudentCommand(opts))
	cmd.AddCommand(NewGradeCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

// load resolves the configuration layers and the logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	cfg, err := LoadConfig(o.ConfigPath, o.EnvFile)
	if err != nil {
		return err
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if o.DSN != "" {
		cfg.DSN = o.DSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.Config = cfg

	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// withSession opens the configured store for one command.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := gradebook.WithActor(cmd.Context(), o.Config.Actor)
	s, err := openSession(ctx, o.Config, o.Logger)
	if err != nil {
		return err
	}
	defer s.Close(ctx)
	return fn(ctx, s)
}
