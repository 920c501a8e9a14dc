package cmd

import (
	"github.com/spf13/cobra"
	"praxis-recording/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "praxis-recording",
		Short:        "recording session api for therapy sessions",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(server(config), migrate(config), reaper(config), importFile(config))
	return rootCmd
}
