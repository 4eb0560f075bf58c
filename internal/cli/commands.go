package cli

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/reglet-native/application/schema"
	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/host"
	"github.com/spf13/cobra"
)

func newInfoCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <library>",
		Short: "Print the module's self-description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := app.load(args[0])
			if err != nil {
				return err
			}
			defer lib.Release() //nolint:errcheck

			info, err := lib.Info(app.config.Client)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode module info: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newGetCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <library> <component> <object>",
		Short: "Read an object through a new session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withSession(args[0], func(lib *host.Library, s *host.Session) error {
				status, payload, err := lib.Get(s, args[1], args[2])
				if err != nil {
					return err
				}
				if payload != "" {
					fmt.Fprintln(cmd.OutOrStdout(), payload)
				}
				return errors.CheckStatus(host.SymbolGet, status)
			})
		},
	}
}

func newSetCommand(app *App) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "set <library> <component> <object> <payload>",
		Short: "Write an object through a new session",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := args[3]
			n := size
			if n < 0 {
				n = len(payload)
			}
			return app.withSession(args[0], func(lib *host.Library, s *host.Session) error {
				status, err := lib.Set(s, args[1], args[2], payload, n)
				if err != nil {
					return err
				}
				return errors.CheckStatus(host.SymbolSet, status)
			})
		},
	}
	cmd.Flags().IntVar(&size, "size", -1, "payload size passed to the module (default: payload length)")
	return cmd
}

func newSchemaCommand(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:       "schema [info|manifest]",
		Short:     "Print the JSON Schema of Info payloads or module manifests",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"info", "manifest"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any = entities.ModuleInfo{}
			if len(args) == 1 && args[0] == "manifest" {
				v = entities.ModuleManifest{}
			}
			out, err := schema.GenerateSchema(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
