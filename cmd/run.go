package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/persona-pool-cli/internal/application"
	"github.com/bnema/persona-pool-cli/internal/domain"
)

func newRunCmd(app *app) *cobra.Command {
	var (
		minTrust  int
		tag       string
		campaign  string
		apps      []string
		scrolls   int
		query     string
		style     string
		cooldown  time.Duration
		retries   int
		retryWait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check out a persona, run a transferred session, check it back in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := resolveAppProfiles(apps)
			if err != nil {
				return err
			}

			handle, err := checkoutWithRetry(cmd.Context(), app, application.Constraints{
				MinTrust:   minTrust,
				Tag:        tag,
				CampaignID: campaign,
				Cooldown:   cooldown,
			}, retries, retryWait)
			if err != nil {
				return err
			}

			persona := handle.Persona()
			app.log.Info().
				Str("persona", persona.Name).
				Str("session", string(handle.SessionID())).
				Msg("persona checked out")

			if err := app.pool.Begin(cmd.Context(), handle); err != nil {
				app.log.Warn().Err(err).Msg("mark session running")
			}

			engine := app.newEngine(profiles)
			task := application.NewEngagementTask(app.device, application.EngagementOptions{
				Scrolls:     scrolls,
				Query:       query,
				ScrollStyle: style,
			}, app.log)

			result, runErr := engine.Run(handle.Context(), persona, task)

			outcome := application.Outcome{
				Success:  runErr == nil,
				Phases:   result.Phases,
				Degraded: result.Degraded,
			}
			if runErr != nil {
				outcome.Reason = runErr.Error()
			}

			session, checkinErr := app.pool.Checkin(cmd.Context(), handle, outcome)
			if checkinErr != nil {
				return errors.Join(runErr, fmt.Errorf("checkin: %w", checkinErr))
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s finished: %s\n", session.ID, session.Status)
			if session.Degraded {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "warning: state backup failed, session degraded")
			}

			return runErr
		},
	}

	cmd.Flags().IntVar(&minTrust, "min-trust", 0, "Minimum trust score for checkout")
	cmd.Flags().StringVar(&tag, "tag", "", "Required persona tag")
	cmd.Flags().StringVar(&campaign, "campaign", "", "Campaign id recorded on the session")
	cmd.Flags().StringSliceVar(&apps, "app", nil, "App profile to transfer (repeatable; default naver)")
	cmd.Flags().IntVar(&scrolls, "scrolls", 5, "Number of engagement scrolls")
	cmd.Flags().StringVar(&query, "query", "", "Search query typed before scrolling")
	cmd.Flags().StringVar(&style, "scroll-style", "natural", "Scroll style: natural, quick, reading, browsing")
	cmd.Flags().DurationVar(&cooldown, "cooldown", application.DefaultCooldown, "Cooldown applied after a successful session")
	cmd.Flags().IntVar(&retries, "retries", 0, "Checkout retries when no persona is eligible")
	cmd.Flags().DurationVar(&retryWait, "retry-wait", 30*time.Second, "Wait between checkout retries")

	return cmd
}

// checkoutWithRetry re-attempts a checkout that found no eligible persona,
// waiting between attempts. The attempt ordinal rides along so the session
// records how many claims it took.
func checkoutWithRetry(ctx context.Context, app *app, constraints application.Constraints, retries int, wait time.Duration) (*application.Handle, error) {
	for attempt := 0; ; attempt++ {
		constraints.Attempt = attempt
		handle, err := app.pool.Checkout(ctx, constraints)
		if err == nil {
			return handle, nil
		}
		if attempt >= retries || !errors.Is(err, domain.ErrNoEligiblePersona) {
			return nil, err
		}

		app.log.Info().Int("attempt", attempt+1).Dur("wait", wait).Msg("no eligible persona, retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func resolveAppProfiles(names []string) ([]domain.AppProfile, error) {
	if len(names) == 0 {
		return domain.DefaultApps(), nil
	}

	profiles := make([]domain.AppProfile, 0, len(names))
	for _, name := range names {
		profile, err := domain.AppProfileByName(name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}
