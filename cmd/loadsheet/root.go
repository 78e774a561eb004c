package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/raine/loadsheet-bot/config"
)

// maxDisplayNameLength caps file names in command output.
const maxDisplayNameLength = 60

type rootOptions struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "loadsheet",
		Short:         "Build catalog loadsheets from Volusion product and category exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	dbDefault := os.Getenv(config.EnvDBPath)
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", dbDefault, "Run history database (empty disables history)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(
		newBuildCmd(opts),
		newHistoryCmd(opts),
		newCategoriesCmd(),
	)
	return cmd
}
