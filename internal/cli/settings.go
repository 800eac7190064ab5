package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/counsel-vault/internal/app"
	"github.com/noah-isme/counsel-vault/internal/dto"
	"github.com/noah-isme/counsel-vault/internal/models"
	"github.com/noah-isme/counsel-vault/internal/service"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change the school settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withVault(func(vault *app.Vault) error {
				settings, err := vault.Settings.GetSettings(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read settings", err)
				}
				return rootOpts.formatter(cmd).Success(settings, func(w io.Writer) {
					printSettings(w, settings)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Change one or more settings",
		Long: `Change settings. List values are comma separated; sections take a boolean.

Examples:
  vault settings set schoolName="Lycée Ibn Khaldoun" timezone=Africa/Algiers
  vault settings set semesters=S1,S2 sections.reports=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withVault(func(vault *app.Vault) error {
				ctx := cmd.Context()
				current, err := vault.Settings.GetSettings(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read settings", err)
				}

				patch, err := parseSettingsPatch(args, current)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid setting", err)
				}

				updated, err := vault.Settings.UpdateSettings(ctx, patch)
				if err != nil {
					if errors.Is(err, service.ErrValidationFailure) {
						return WrapExitError(ExitCommandError, "invalid setting", err)
					}
					return WrapExitError(ExitFailure, "failed to save settings", err)
				}
				return rootOpts.formatter(cmd).Success(updated, func(w io.Writer) {
					printSettings(w, updated)
				})
			})
		},
	})

	return cmd
}

// parseSettingsPatch turns key=value arguments into a patch. Section toggles are
// merged into the current sections because the patch replaces the whole map.
func parseSettingsPatch(args []string, current models.AppSettings) (dto.SettingsPatch, error) {
	var patch dto.SettingsPatch
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return dto.SettingsPatch{}, fmt.Errorf("%q is not key=value", arg)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "schoolName":
			patch.SchoolName = &value
		case "counselorName":
			patch.CounselorName = &value
		case "timezone":
			patch.Timezone = &value
		case "securityQuestion":
			patch.SecurityQuestion = &value
		case "securityAnswer":
			patch.SecurityAnswer = &value
		case "levels":
			patch.Levels = splitList(value)
		case "groups":
			patch.Groups = splitList(value)
		case "semesters":
			patch.Semesters = splitList(value)
		default:
			section, isSection := strings.CutPrefix(key, "sections.")
			if !isSection || section == "" {
				return dto.SettingsPatch{}, fmt.Errorf("unknown setting %q", key)
			}
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return dto.SettingsPatch{}, fmt.Errorf("section %q needs true or false", section)
			}
			if patch.Sections == nil {
				patch.Sections = maps.Clone(current.Sections)
				if patch.Sections == nil {
					patch.Sections = map[string]bool{}
				}
			}
			patch.Sections[section] = enabled
		}
	}
	return patch, nil
}

func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func printSettings(w io.Writer, settings models.AppSettings) {
	settings.SecurityAnswer = ""
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		fmt.Fprintln(w, settings)
		return
	}
	fmt.Fprintln(w, string(data))
}
