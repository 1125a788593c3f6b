package battlenet

// Config holds the OAuth client credentials for the Battle.net API.
type Config struct {
	// ClientID is the OAuth client id.
	ClientID string `mapstructure:"client_id" default:""`
	// ClientSecret is the OAuth client secret.
	ClientSecret string `mapstructure:"client_secret" default:""`
	// RedirectURL is the registered authorization callback URL
	// (the /auth/finish endpoint).
	RedirectURL string `mapstructure:"redirect_url" default:""`
}
