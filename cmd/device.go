package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDeviceCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect the connected device slot",
	}

	cmd.AddCommand(newDeviceInfoCmd(app))

	return cmd
}

func newDeviceInfoCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show identity-relevant device properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			props := []struct {
				label string
				key   string
			}{
				{"model", "ro.product.model"},
				{"manufacturer", "ro.product.manufacturer"},
				{"android", "ro.build.version.release"},
				{"sdk", "ro.build.version.sdk"},
				{"serial", "ro.serialno"},
			}

			for _, prop := range props {
				value, err := app.device.ReadProperty(cmd.Context(), prop.key)
				if err != nil {
					return fmt.Errorf("read %s: %w", prop.key, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s:\t%s\n", prop.label, value)
			}

			androidID, err := app.device.RunCommand(cmd.Context(), "settings get secure android_id")
			if err != nil {
				return fmt.Errorf("read android id: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "android_id:\t%s\n", strings.TrimSpace(androidID))

			return nil
		},
	}
}
