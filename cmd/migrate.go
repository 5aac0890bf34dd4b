package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ateesdalejr/podlistener/internal/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the Podlistener database schema without starting the server.

This runs the same GORM auto-migration the serve command runs on
startup. It is useful for preparing a database ahead of a deploy or
for inspecting the schema a given build produces.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.Verbose)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrateModels(db); err != nil {
		return err
	}

	fmt.Printf("Schema applied to %s\n", cfg.Database.Path)
	return nil
}
