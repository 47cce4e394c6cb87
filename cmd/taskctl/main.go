package main

import (
	"fmt"
	"os"

	"productivityTracker/internal/config"
	"productivityTracker/internal/logger"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Operator tooling for the productivity tracker",
	Long:  `taskctl migrates the task store, exports owner reports and issues development tokens.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return logger.Init(true, "debug")
		}
		return nil
	},
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default ./config.yml or $TRACKER_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
