// Package config provides configuration management for guildsync.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, cron API key, external root URL)
//   - Database: MySQL/MariaDB connection details for the roster mirror
//   - BattleNet: OAuth client credentials for the roster API
//   - Discord: bot token for the Discord connector
//   - Sync: request retry bounds and retention windows
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
