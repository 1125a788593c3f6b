package discord

// Config holds the Discord bot settings.
type Config struct {
	// Enabled switches the gateway on. With the gateway off no Discord
	// remote system gets a connector.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Token is the bot token.
	Token string `mapstructure:"token"`
}
