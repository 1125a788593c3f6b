package battlenet

import "sync"

// TokenVault keeps the user tokens collected from finished authorizations
// so that the next mirror pass can refresh those users' characters.
// Tokens live only in memory; a restart simply means the pass falls back to
// guild-roster data until users re-authorize.
type TokenVault struct {
	mu     sync.Mutex
	tokens map[string]UserToken
}

// NewTokenVault creates an empty vault.
func NewTokenVault() *TokenVault {
	return &TokenVault{tokens: make(map[string]UserToken)}
}

// Add stores a token. Duplicate access tokens overwrite.
func (v *TokenVault) Add(token UserToken) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token.AccessToken] = token
}

// Valid returns the still-valid tokens for one region and drops expired
// tokens for all regions as a side effect.
func (v *TokenVault) Valid(region Region) []UserToken {
	v.mu.Lock()
	defer v.mu.Unlock()

	var result []UserToken
	for key, token := range v.tokens {
		if !token.Valid() {
			delete(v.tokens, key)
			continue
		}
		if token.Region == region {
			result = append(result, token)
		}
	}
	return result
}
