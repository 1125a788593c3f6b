package battlenet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Client talks to the Battle.net OAuth and profile APIs. It is safe for
// concurrent use; the client-credentials token is cached per region.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// Host templates, one %s for the region. Overridden in tests.
	oauthBase string
	apiBase   string

	mu        sync.Mutex
	appTokens map[Region]appToken
}

type appToken struct {
	accessToken string
	expiresAt   time.Time
}

// NewClient creates a Battle.net API client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		oauthBase:  "https://%s.battle.net",
		apiBase:    "https://%s.api.blizzard.com",
		appTokens:  make(map[Region]appToken),
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("battlenet api error: status %d: %s", e.StatusCode, e.Body)
}

// AuthorizeURL builds the authorization URL a user is redirected to.
func (c *Client) AuthorizeURL(region Region, state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURL)
	q.Set("scope", "wow.profile")
	q.Set("state", state)
	return fmt.Sprintf(c.oauthBase, region) + "/oauth/authorize?" + q.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// ExchangeCode redeems an authorization code for a user token.
func (c *Client) ExchangeCode(ctx context.Context, region Region, code string) (UserToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.RedirectURL)
	form.Set("code", code)

	var tr tokenResponse
	if err := c.postForm(ctx, region, "/oauth/token", form, &tr); err != nil {
		return UserToken{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	return UserToken{
		AccessToken: tr.AccessToken,
		Region:      region,
		Scope:       tr.Scope,
		ExpiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// Profile fetches the account identity (numeric id + battle tag) for a user token.
func (c *Client) Profile(ctx context.Context, token UserToken) (ProfileInfo, error) {
	var info ProfileInfo
	u := fmt.Sprintf(c.oauthBase, token.Region) + "/oauth/userinfo"
	if err := c.getJSON(ctx, u, token.AccessToken, &info); err != nil {
		return ProfileInfo{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return info, nil
}

type profileCharactersResponse struct {
	WowAccounts []struct {
		Characters []struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Realm struct {
				Slug string `json:"slug"`
			} `json:"realm"`
		} `json:"characters"`
	} `json:"wow_accounts"`
}

// AccountCharacters fetches all characters of the token's account.
// The account endpoint does not report guild ranks, so Rank stays nil.
func (c *Client) AccountCharacters(ctx context.Context, token UserToken) ([]Character, error) {
	u := fmt.Sprintf("%s/profile/user/wow?namespace=profile-%s&locale=en_US",
		fmt.Sprintf(c.apiBase, token.Region), token.Region)

	var resp profileCharactersResponse
	if err := c.getJSON(ctx, u, token.AccessToken, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch account characters: %w", err)
	}

	var characters []Character
	for _, acc := range resp.WowAccounts {
		for _, ch := range acc.Characters {
			characters = append(characters, Character{
				ID:    ch.ID,
				Name:  ch.Name,
				Realm: ch.Realm.Slug,
			})
		}
	}
	return characters, nil
}

type guildRosterResponse struct {
	Members []struct {
		Character struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Realm struct {
				Slug string `json:"slug"`
			} `json:"realm"`
		} `json:"character"`
		Rank uint8 `json:"rank"`
	} `json:"members"`
}

// GuildMembers fetches the member list of one guild using the
// client-credentials flow. Ranks are always present in this payload.
func (c *Client) GuildMembers(ctx context.Context, region Region, realmSlug, guildSlug string) ([]Character, error) {
	token, err := c.appToken(ctx, region)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/data/wow/guild/%s/%s/roster?namespace=profile-%s&locale=en_US",
		fmt.Sprintf(c.apiBase, region), url.PathEscape(realmSlug), url.PathEscape(guildSlug), region)

	var resp guildRosterResponse
	if err := c.getJSON(ctx, u, token, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch guild roster: %w", err)
	}

	characters := make([]Character, 0, len(resp.Members))
	for _, m := range resp.Members {
		rank := m.Rank
		characters = append(characters, Character{
			ID:    m.Character.ID,
			Name:  m.Character.Name,
			Realm: m.Character.Realm.Slug,
			Rank:  &rank,
		})
	}
	return characters, nil
}

// appToken returns a cached client-credentials token for the region,
// requesting a fresh one when the cached token is within a minute of expiry.
func (c *Client) appToken(ctx context.Context, region Region) (string, error) {
	c.mu.Lock()
	cached, ok := c.appTokens[region]
	c.mu.Unlock()
	if ok && time.Now().Add(time.Minute).Before(cached.expiresAt) {
		return cached.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	var tr tokenResponse
	if err := c.postForm(ctx, region, "/oauth/token", form, &tr); err != nil {
		return "", fmt.Errorf("failed to fetch app token: %w", err)
	}

	c.mu.Lock()
	c.appTokens[region] = appToken{
		accessToken: tr.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	c.mu.Unlock()

	return tr.AccessToken, nil
}

func (c *Client) postForm(ctx context.Context, region Region, path string, form url.Values, out any) error {
	u := fmt.Sprintf(c.oauthBase, region) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, u, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
