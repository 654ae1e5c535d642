package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/persona-pool-cli/internal/application"
	"github.com/bnema/persona-pool-cli/internal/domain"
	"github.com/bnema/persona-pool-cli/internal/ports"
)

func newPersonaCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage pool personas",
	}

	cmd.AddCommand(
		newPersonaCreateCmd(app),
		newPersonaListCmd(app),
		newPersonaShowCmd(app),
		newPersonaBanCmd(app),
		newPersonaUnbanCmd(app),
		newPersonaRetireCmd(app),
	)

	return cmd
}

func newPersonaCreateCmd(app *app) *cobra.Command {
	var (
		name      string
		androidID string
		serial    string
		tags      []string
		lat       float64
		lng       float64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a persona",
		RunE: func(cmd *cobra.Command, _ []string) error {
			identity := domain.DeviceIdentity{
				AndroidID: strings.ToLower(strings.TrimSpace(androidID)),
				Serial:    serial,
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				identity.Location = &domain.GeoLocation{Lat: lat, Lng: lng}
			}

			persona, err := app.service.CreatePersona(cmd.Context(), application.CreatePersona{
				Name:     name,
				Identity: identity,
				Tags:     tags,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created persona %s (%s)\n", persona.Name, persona.ID)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Persona name (required)")
	cmd.Flags().StringVar(&androidID, "android-id", "", "16 hex char android id (required)")
	cmd.Flags().StringVar(&serial, "serial", "", "Device serial the persona is pinned to")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Masked GPS latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Masked GPS longitude")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("android-id")

	return cmd
}

func newPersonaListCmd(app *app) *cobra.Command {
	var (
		status   string
		minTrust int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List personas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			personas, err := app.service.ListPersonas(cmd.Context(), ports.PersonaFilter{
				Status:   domain.PersonaStatus(status),
				MinTrust: minTrust,
			})
			if err != nil {
				return err
			}

			for _, persona := range personas {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\ttrust=%d\n",
					persona.ID, persona.Name, persona.Status, persona.TrustScore)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (idle, active, cooling_down, banned, retired)")
	cmd.Flags().IntVar(&minTrust, "min-trust", 0, "Minimum trust score")

	return cmd
}

func newPersonaShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <persona-id>",
		Short: "Show one persona in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persona, err := app.service.GetPersona(cmd.Context(), domain.PersonaID(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "id:        %s\n", persona.ID)
			_, _ = fmt.Fprintf(out, "name:      %s\n", persona.Name)
			_, _ = fmt.Fprintf(out, "status:    %s\n", persona.Status)
			_, _ = fmt.Fprintf(out, "trust:     %d\n", persona.TrustScore)
			_, _ = fmt.Fprintf(out, "sessions:  %d total, %d ok, %d failed\n",
				persona.TotalSessions, persona.SuccessfulSessions, persona.FailedSessions)
			_, _ = fmt.Fprintf(out, "androidid: %s\n", persona.Identity.AndroidID)
			if len(persona.Tags) > 0 {
				_, _ = fmt.Fprintf(out, "tags:      %s\n", strings.Join(persona.Tags, ", "))
			}
			if !persona.CooldownUntil.IsZero() {
				_, _ = fmt.Fprintf(out, "cooldown:  until %s\n", persona.CooldownUntil.Format("2006-01-02 15:04:05"))
			}
			if persona.LastFailureReason != "" {
				_, _ = fmt.Fprintf(out, "last fail: %s\n", persona.LastFailureReason)
			}

			return nil
		},
	}
}

func newPersonaBanCmd(app *app) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "ban <persona-id>",
		Short: "Ban a persona, interrupting any in-flight session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persona, err := app.pool.Ban(cmd.Context(), domain.PersonaID(args[0]), reason)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "banned persona %s\n", persona.Name)
			return err
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "operator ban", "Ban reason")

	return cmd
}

func newPersonaUnbanCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <persona-id>",
		Short: "Return a banned persona to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persona, err := app.pool.Unban(cmd.Context(), domain.PersonaID(args[0]))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "unbanned persona %s\n", persona.Name)
			return err
		},
	}
}

func newPersonaRetireCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "retire <persona-id>",
		Short: "Permanently retire a persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			persona, err := app.service.RetirePersona(cmd.Context(), domain.PersonaID(args[0]))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "retired persona %s\n", persona.Name)
			return err
		},
	}
}
