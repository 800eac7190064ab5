package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
)

// ClearOptions holds flags for the clear command.
type ClearOptions struct {
	*RootOptions
	Yes bool
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record and restore the defaults",
		Long: `Empty every collection, then write the default settings and seed accounts.
Automatic backups and their settings are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return NewExitError(ExitCommandError, "refusing to clear without --yes")
			}
			return opts.withVault(func(vault *app.Vault) error {
				return runClear(opts, vault, cmd)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm that every record should be deleted")

	return cmd
}

func runClear(opts *ClearOptions, vault *app.Vault, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := vault.Snapshots.ClearAll(ctx); err != nil {
		return WrapExitError(ExitFailure, "clear failed", err)
	}

	report, err := vault.Seeder.EnsureDefaults(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "store cleared but defaults could not be restored", err)
	}

	return opts.formatter(cmd).Success(report, func(w io.Writer) {
		fmt.Fprintf(w, "Store cleared; %d seed accounts created\n", report.UsersCreated)
	})
}
