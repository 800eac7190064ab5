package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	SkipSafetyCopy bool
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the store with a snapshot file",
		Long: `Validate a snapshot file and replace every collection with its contents.

The current data is saved as the pre-restore backup first, so a bad import
can be undone with "vault backups restore pre-restore".

Exit codes:
  0 - Snapshot restored
  1 - Snapshot rejected or restore rolled back
  2 - Command error (file not found, etc.)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVault(func(vault *app.Vault) error {
				return runImport(opts, vault, cmd, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&opts.SkipSafetyCopy, "no-safety-copy", false, "do not save the current data before importing")

	return cmd
}

func runImport(opts *ImportOptions, vault *app.Vault, cmd *cobra.Command, path string) error {
	document, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	if detected := mimetype.Detect(document); !detected.Is("application/json") {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not a JSON document (%s)", path, detected.String()))
	}

	if err := vault.Snapshots.Validate(document); err != nil {
		return WrapExitError(ExitFailure, "snapshot rejected", err)
	}

	ctx := cmd.Context()
	if !opts.SkipSafetyCopy {
		if err := vault.Backups.CapturePreRestore(ctx); err != nil {
			return WrapExitError(ExitFailure, "failed to save pre-restore backup", err)
		}
	}

	report, err := vault.Snapshots.ImportDocument(ctx, document)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSnapshot) {
			return WrapExitError(ExitFailure, "snapshot rejected", err)
		}
		return WrapExitError(ExitFailure, "import failed", err)
	}

	return opts.formatter(cmd).Success(report, func(w io.Writer) {
		printReport(w, "Restored", report)
	})
}

func printReport(w io.Writer, verb string, report dto.SnapshotReport) {
	fmt.Fprintf(w, "%s %d records: %d students, %d users, %d tests, %d test results, %d grades\n",
		verb, report.Total(), report.Students, report.Users, report.Tests, report.TestResults, report.Grades)
	if report.Settings {
		fmt.Fprintln(w, "Settings restored")
	}
}
