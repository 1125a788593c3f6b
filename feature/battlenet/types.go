package battlenet

import "time"

// ProfileInfo is the account-level identity returned by the userinfo endpoint.
type ProfileInfo struct {
	ID        int64  `json:"id"`
	BattleTag string `json:"battletag"`
}

// Character is one WoW character as reported by the roster API. Rank is nil
// when the payload carries no guild rank (account character lists do not).
type Character struct {
	ID    int64
	Name  string
	Realm string
	Rank  *uint8
}

// UserToken is an OAuth access token obtained through the authorization-code
// flow, bound to the region it was issued for.
type UserToken struct {
	AccessToken string
	Region      Region
	Scope       string
	ExpiresAt   time.Time
}

// Valid reports whether the token can still be used.
func (t UserToken) Valid() bool {
	return t.AccessToken != "" && time.Now().Before(t.ExpiresAt)
}
