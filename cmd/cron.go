package cmd

import (
	"log"

	"guildsync/core/config"
	"guildsync/core/database"
	"guildsync/core/logger"
	"guildsync/feature/battlenet"
	"guildsync/feature/reconcile"
	"guildsync/feature/roster"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cronCmd runs one full sync pass and exits. Useful for system cron setups
// that prefer a process over hitting the HTTP trigger. User-token mirroring
// only happens in the server process, so this pass covers the guild rosters
// and the connected platforms.
var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Run one sync pass and exit",
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

		client := battlenet.NewClient(cfg.BattleNet)
		registry, gateway, err := buildConnectors(cfg, db, logg)
		if err != nil {
			return err
		}
		defer func() {
			registry.CloseAll()
			if gateway != nil {
				_ = gateway.Close()
			}
		}()

		ctx := cmd.Context()
		sync := roster.NewSync(db, client, battlenet.NewTokenVault(), cfg.Sync, logg)
		if err := sync.Run(ctx); err != nil {
			return err
		}

		systems, err := roster.RemoteSystems(db)
		if err != nil {
			return err
		}
		for _, system := range systems {
			conn, err := registry.Find(system)
			if err != nil {
				logg.Warn("Skipping remote system without connector",
					zap.Int64("system_id", system.ID), zap.Error(err))
				continue
			}
			syncer, err := reconcile.NewSyncer(db, system, conn, logg)
			if err != nil {
				logg.Error("Failed to build syncer",
					zap.Int64("system_id", system.ID), zap.Error(err))
				continue
			}
			if _, err := syncer.DeleteInactiveUsers(ctx); err != nil {
				logg.Error("Failed to delete inactive users",
					zap.Int64("system_id", system.ID), zap.Error(err))
			}
			if err := syncer.SyncToConnector(ctx); err != nil {
				logg.Error("Failed to sync roles",
					zap.Int64("system_id", system.ID), zap.Error(err))
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cronCmd)
}
