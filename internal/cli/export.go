package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of every collection",
		Long: `Export every collection and the settings as one snapshot document.

Examples:
  vault export > backup.json
  vault export -o backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVault(func(vault *app.Vault) error {
				return runExport(opts, vault, cmd)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the snapshot to a file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, vault *app.Vault, cmd *cobra.Command) error {
	document, err := vault.Snapshots.ExportDocument(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "export failed", err)
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(document)
		return err
	}

	if err := os.WriteFile(opts.Output, document, 0o600); err != nil {
		return WrapExitError(ExitCommandError, "failed to write snapshot", err)
	}

	return opts.formatter(cmd).Success(map[string]interface{}{"path": opts.Output, "bytes": len(document)}, func(w io.Writer) {
		fmt.Fprintf(w, "Snapshot written to %s (%d bytes)\n", opts.Output, len(document))
	})
}
