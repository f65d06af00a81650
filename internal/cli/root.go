package cli

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/logger"
)

// Global configuration variables
var (
	configFile string
	config     *Config
	debug      bool
	verbose    bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "Taskdeck - collaborative task and project management service",
		Long: `Taskdeck is a multi-tenant task and project management service.

It exposes an HTTP JSON API for managing projects, memberships, tasks,
assignees and tags, backed by Postgres and an external identity verifier
for credentials.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = LoadConfig(configFile)
			if err != nil {
				return err
			}

			switch {
			case verbose:
				logger.SetLevel(logger.LevelDebug)
			case debug:
				logger.SetLevel(logger.LevelInfo)
			default:
				logger.SetLevel(logger.ParseLevel(config.Log.Level))
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: taskdeck.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable info-level output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
