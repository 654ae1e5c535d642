package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pp",
		Short:         "Persona Pool CLI (pp): manage device personas and run identity-transferred sessions",
		Long:          "pp (Persona Pool CLI) manages a pool of device personas, checks them out for automation sessions, swaps their app state and identity onto a device slot, and tracks trust, cooldowns and bans.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newPersonaCmd(app),
		newRunCmd(app),
		newSessionCmd(app),
		newArchiveCmd(app),
		newDeviceCmd(app),
		newStatusCmd(app),
	)

	return rootCmd
}
