package cmd

import (
	"fmt"

	"github.com/mindful-app/realtime-service/internal/database"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations (golang-migrate)",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE:  runMigrateDown,
}

var downSteps int

func init() {
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := database.MigrateUp(cfg.DatabaseURL(), logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := database.MigrateDown(cfg.DatabaseURL(), downSteps, logger); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}
