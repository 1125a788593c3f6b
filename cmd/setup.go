package cmd

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/config"
	"guildsync/feature/connector"
	"guildsync/feature/connector/discord"
	"guildsync/feature/roster"
	"guildsync/feature/roster/models"
)

// buildConnectors starts the platform gateways and registers a connector for
// every configured remote system that has one. Systems without a running
// gateway are skipped with a warning; the rest of the application keeps
// working without them.
func buildConnectors(cfg *config.Config, db *gorm.DB, logg *zap.Logger) (*connector.Registry, *discord.Gateway, error) {
	registry := connector.NewRegistry(logg)

	var gateway *discord.Gateway
	if cfg.Discord.Enabled {
		gw, err := discord.NewGateway(cfg.Discord, db, cfg.Server.RootURL, logg)
		if err != nil {
			return nil, nil, err
		}
		gateway = gw
	}

	systems, err := roster.RemoteSystems(db)
	if err != nil {
		return nil, nil, err
	}
	for _, system := range systems {
		switch system.Type {
		case models.RemoteSystemDiscord:
			if gateway == nil {
				logg.Warn("discord gateway disabled, skipping remote system",
					zap.Int64("system_id", system.ID))
				continue
			}
			settings, err := roster.DiscordSettingsFor(db, system.ID)
			if err != nil {
				return nil, nil, err
			}
			conn := discord.NewConnector(gateway, system, settings, logg)
			registry.Register(connector.Key{Type: system.Type, SystemID: system.SystemID}, conn)
		default:
			logg.Warn("no connector implementation for remote system",
				zap.String("type", string(system.Type)),
				zap.Int64("system_id", system.ID))
		}
	}
	return registry, gateway, nil
}
