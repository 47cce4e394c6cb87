package main

import (
	"fmt"

	"productivityTracker/internal/config"
	"productivityTracker/internal/migrations"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations of the configured store",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, migrations.Up, "applied")
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd, migrations.Down, "rolled back")
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

func runMigrate(cmd *cobra.Command, step func(migrations.Dialect, string) error, verb string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dialect, url, err := migrationTarget(cfg)
	if err != nil {
		return err
	}
	if err := step(dialect, url); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s migrations %s\n", dialect, verb)
	return nil
}

func migrationTarget(cfg *config.Config) (migrations.Dialect, string, error) {
	switch cfg.Repository.Type {
	case "postgres":
		return migrations.Postgres, cfg.Database.URL, nil
	case "sqlite":
		return migrations.SQLite, migrations.SQLiteURL(cfg.SQLite.Path), nil
	}
	return "", "", fmt.Errorf("repository type %q has no schema to migrate", cfg.Repository.Type)
}
