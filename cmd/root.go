package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tokenpool",
		Short:         "tokenpool: rotate API credentials when upstream rate limits hit",
		Long:          "tokenpool loads a pool of labeled API tokens, rotates to the next usable one when an upstream answers 429, and keeps rotation state and usage counters across runs.",
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
		newAccountsCmd(app),
		newAuthCmd(app),
		newPoolCmd(app),
		newRunCmd(app),
	)

	return rootCmd
}
