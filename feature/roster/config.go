package roster

// Config holds retry bounds and retention windows for the mirror sync.
type Config struct {
	// MaxRequestRetries bounds the attempts for one remote request.
	MaxRequestRetries int `mapstructure:"max_request_retries" default:"3"`
	// KeepNewAccountsWithoutGuildDays is how long an account without any
	// character in a tracked guild survives before being removed.
	KeepNewAccountsWithoutGuildDays int `mapstructure:"keep_new_accounts_without_guild_days" default:"62"`
	// KeepCharactersWithoutGuildDays is how long a character that has an
	// account but left all tracked guilds survives without an update.
	KeepCharactersWithoutGuildDays int `mapstructure:"keep_characters_without_guild_days" default:"186"`
}
