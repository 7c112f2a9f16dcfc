package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema of the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			// openSession migrates.
			return rootOpts.withSession(cmd, func(context.Context, *session) error {
				return f.Success(map[string]string{"backend": rootOpts.Config.Backend}, func(w io.Writer) {
					fmt.Fprintf(w, "✓ Migrated %s store\n", rootOpts.Config.Backend)
				})
			})
		},
	}
}
