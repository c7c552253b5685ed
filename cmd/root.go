package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Disaster alert aggregation service",
	Long: `A service that ingests disaster alerts from the GDACS and NASA EONET
feeds, reconciles them into the database, and serves a query API and
dashboard over the stored data.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
