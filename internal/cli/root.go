// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/BartekS5/astramigrate/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var logFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "astramigrate",
		Short: "astramigrate - copy Cassandra/Astra tables into SQL and document stores",
		Long: `astramigrate extracts tables from a Cassandra or DataStax Astra keyspace and
appends them to PostgreSQL, MySQL, SQL Server, Oracle or MongoDB under an
explicit source=target name mapping.

Source credentials come from the environment (ASTRA_BUNDLE_PATH,
ASTRA_CLIENT_ID, ASTRA_CLIENT_SECRET, ASTRA_KEYSPACE or CASSANDRA_HOSTS).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			if logFile != "" {
				return logger.InitLogger(logFile, level)
			}
			logger.SetLevel(level)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log state transitions and other debug events")
	rootCmd.AddCommand(NewMigrateCmd(), NewCheckCmd())

	return rootCmd
}
