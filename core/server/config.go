package server

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the cron trigger.
	ApiKey string `mapstructure:"api_key" default:""`
	// RootURL is the externally reachable base URL, used when building
	// authorization links handed out on Discord.
	RootURL string `mapstructure:"root_url" default:"http://localhost:8080"`
}
