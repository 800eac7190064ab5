package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
	"github.com/noah-isme/counsel-vault/internal/config"
)

// Opener opens the vault for one command; release is called when it finishes.
type Opener func() (vault *app.Vault, release func(), err error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Open    Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the vault command backed by the configured storage.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	opts.Open = func() (*app.Vault, func(), error) {
		return openConfigured(opts.Verbose)
	}
	return NewRootCommandWith(opts)
}

// NewRootCommandWith creates the vault command using opts.Open to reach the store.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Counsel Vault - local record store and backups",
		Long:  "Administer the local counselling record store: snapshots, automatic backups, and school settings.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log service activity to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewBackupsCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

func (o *RootOptions) withVault(fn func(*app.Vault) error) error {
	vault, release, err := o.Open()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open vault", err)
	}
	defer release()
	return fn(vault)
}

func openConfigured(verbose bool) (*app.Vault, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	vault, err := app.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return vault, func() { _ = vault.Close() }, nil
}
