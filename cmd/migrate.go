package cmd

import (
	"log"

	"guildsync/core/config"
	"guildsync/core/database"
	"guildsync/core/logger"
	"guildsync/feature/roster/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the database schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		if err := models.Migrate(db); err != nil {
			return err
		}
		logg.Info("Schema migrated", zap.String("database", cfg.Database.Name))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
