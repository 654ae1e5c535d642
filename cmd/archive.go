package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

func newArchiveCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect persona state archives",
	}

	cmd.AddCommand(newArchiveInfoCmd(app))

	return cmd
}

func newArchiveInfoCmd(app *app) *cobra.Command {
	var (
		personaID string
		appName   string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "List archived state versions for a persona and app",
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := app.service.ArchiveInfo(cmd.Context(), domain.PersonaID(personaID), appName)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no archive entries")
				return err
			}

			for _, entry := range entries {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "v%d\t%d bytes\t%s\t%s\n",
					entry.Version, entry.SizeBytes,
					entry.CreatedAt.Format("2006-01-02 15:04:05"), entry.Path)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&personaID, "persona", "", "Persona id (required)")
	cmd.Flags().StringVar(&appName, "app", "naver", "App profile name")
	_ = cmd.MarkFlagRequired("persona")

	return cmd
}
