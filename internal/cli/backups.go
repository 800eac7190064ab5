package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/service"
)

// NewBackupsCommand creates the backups command group.
func NewBackupsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Manage automatic backups",
	}

	cmd.AddCommand(newBackupsListCommand(rootOpts))
	cmd.AddCommand(newBackupsRunCommand(rootOpts))
	cmd.AddCommand(newBackupsRestoreCommand(rootOpts))
	cmd.AddCommand(newBackupsToggleCommand(rootOpts, "enable", "Turn automatic backups on", true))
	cmd.AddCommand(newBackupsToggleCommand(rootOpts, "disable", "Turn automatic backups off", false))

	return cmd
}

func newBackupsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored backups, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVault(func(vault *app.Vault) error {
				status, err := vault.Backups.Status(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list backups", err)
				}
				return opts.formatter(cmd).Success(status, func(w io.Writer) {
					printBackupStatus(w, status)
				})
			})
		},
	}
}

func newBackupsRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Take a backup now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVault(func(vault *app.Vault) error {
				info, err := vault.Backups.RunOnce(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "backup failed", err)
				}
				return opts.formatter(cmd).Success(info, func(w io.Writer) {
					fmt.Fprintf(w, "Backup %s stored (%d records)\n", info.Stamp, info.Records)
				})
			})
		},
	}
}

func newBackupsRestoreCommand(opts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "restore [stamp]",
		Short: "Replace the store with a stored backup",
		Long: `Restore a backup by its stamp, or by the time it was taken with --at.

Examples:
  vault backups restore 20240901T080000Z
  vault backups restore --at 2024-09-01T08:00:00Z
  vault backups restore pre-restore`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (at == "") {
				return NewExitError(ExitCommandError, "provide either a stamp or --at")
			}

			return opts.withVault(func(vault *app.Vault) error {
				var (
					report dto.SnapshotReport
					err    error
				)
				if at != "" {
					when, parseErr := time.Parse(time.RFC3339, at)
					if parseErr != nil {
						return WrapExitError(ExitCommandError, "invalid --at time", parseErr)
					}
					report, err = vault.Backups.RestoreFromAutoBackup(cmd.Context(), when)
				} else {
					report, err = vault.Backups.RestoreStamp(cmd.Context(), args[0])
				}
				if err != nil {
					if errors.Is(err, service.ErrBackupNotFound) {
						return WrapExitError(ExitFailure, "no such backup", err)
					}
					return WrapExitError(ExitFailure, "restore failed", err)
				}

				return opts.formatter(cmd).Success(report, func(w io.Writer) {
					printReport(w, "Restored", report)
				})
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "restore the automatic backup taken at this RFC 3339 time")

	return cmd
}

func newBackupsToggleCommand(opts *RootOptions, use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withVault(func(vault *app.Vault) error {
				if err := vault.Backups.SetEnabled(cmd.Context(), enabled); err != nil {
					return WrapExitError(ExitFailure, "failed to update backup setting", err)
				}
				return opts.formatter(cmd).Success(map[string]bool{"enabled": enabled}, func(w io.Writer) {
					fmt.Fprintf(w, "Automatic backups %sd\n", use)
				})
			})
		},
	}
}

func printBackupStatus(w io.Writer, status dto.BackupStatusResponse) {
	state := "disabled"
	if status.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Automatic backups: %s\n", state)
	if status.Last != nil {
		fmt.Fprintf(w, "Last backup: %s (%d records)\n", status.Last.Stamp, status.Last.Records)
	}
	if len(status.Backups) == 0 {
		fmt.Fprintln(w, "No backups stored.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAMP\tTAKEN AT\tRECORDS")
	for _, backup := range status.Backups {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", backup.Stamp, backup.TakenAt.UTC().Format(time.RFC3339), backup.Records)
	}
	_ = tw.Flush()
}
