package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kebairia/shelfsafe/internal/config"
	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/operations"
)

var (
	// ConfigFile is the path to the YAML configuration.
	ConfigFile string
	// LogLevel overrides the configured log level when set on the command line.
	LogLevel string

	// rootCmd is the base command for shelfsafe.
	rootCmd = &cobra.Command{
		Use:   "shelfsafe",
		Short: "Backup and restore tool for local SQLite databases",
		Long: `shelfsafe copies SQLite database files into dated backup folders,
prunes old folders, validates backups and restores them behind a safety backup.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := logger.Init(LogLevel)
			return err
		},
	}
)

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logger.Global().Error("command failed", "error", err.Error())
	}
	logger.Cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// newManager loads ConfigFile and builds an OperationManager. The configured log level
// applies unless --log-level was given.
func newManager(cmd *cobra.Command) (*operations.OperationManager, error) {
	cfg, err := config.LoadAndValidate(ConfigFile)
	if err != nil {
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		if _, err := logger.Init(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return operations.New(cfg, operations.WithLogger(logger.Global()))
}

// rootOrDefault returns the --root flag value, or the configured backup root.
func rootOrDefault(om *operations.OperationManager, root string) string {
	if root != "" {
		return root
	}
	return om.Config().Backup.OutputDirectory
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&ConfigFile, "config", "c", "./configs/config.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().
		StringVar(&LogLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(exportCmd)
}
