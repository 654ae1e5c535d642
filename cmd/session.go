package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/persona-pool-cli/internal/domain"
)

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect session history",
	}

	cmd.AddCommand(newSessionListCmd(app))

	return cmd
}

func newSessionListCmd(app *app) *cobra.Command {
	var (
		personaID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions of a persona",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := app.service.SessionHistory(cmd.Context(), domain.PersonaID(personaID), limit)
			if err != nil {
				return err
			}

			for _, session := range sessions {
				line := fmt.Sprintf("%s\t%s\t%s\t%s",
					session.ID, session.Status,
					session.StartedAt.Format("2006-01-02 15:04:05"),
					session.Duration.Round(0))
				if session.Degraded {
					line += "\tdegraded"
				}
				if session.FailureReason != "" {
					line += "\t" + session.FailureReason
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&personaID, "persona", "", "Persona id (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum sessions to show")
	_ = cmd.MarkFlagRequired("persona")

	return cmd
}
