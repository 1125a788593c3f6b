package web_test

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/database"
	"guildsync/core/signature"
	"guildsync/feature/battlenet"
	"guildsync/feature/connector"
	"guildsync/feature/connector/mocks"
	"guildsync/feature/roster"
	"guildsync/feature/roster/models"
	"guildsync/feature/web"
)

type fakeOAuth struct {
	token battlenet.UserToken
}

func (f *fakeOAuth) AuthorizeURL(region battlenet.Region, state string) string {
	return "https://" + string(region) + ".example.org/oauth/authorize?state=" + state
}

func (f *fakeOAuth) ExchangeCode(ctx context.Context, region battlenet.Region, code string) (battlenet.UserToken, error) {
	return f.token, nil
}

type fakeAPI struct {
	profile      battlenet.ProfileInfo
	accountChars []battlenet.Character
}

func (f *fakeAPI) Profile(ctx context.Context, token battlenet.UserToken) (battlenet.ProfileInfo, error) {
	return f.profile, nil
}

func (f *fakeAPI) AccountCharacters(ctx context.Context, token battlenet.UserToken) ([]battlenet.Character, error) {
	return f.accountChars, nil
}

func (f *fakeAPI) GuildMembers(ctx context.Context, region battlenet.Region, realmSlug, guildSlug string) ([]battlenet.Character, error) {
	return nil, nil
}

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	guild  models.Guild
	system models.RemoteSystem
	conn   *mocks.Connector
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	guild := models.Guild{Region: battlenet.RegionEU, Server: "some-realm", Name: "some-guild"}
	require.NoError(t, db.Create(&guild).Error)
	hmacKey, err := signature.GenerateKey()
	require.NoError(t, err)
	system := models.RemoteSystem{
		GuildID: guild.ID, Type: models.RemoteSystemDiscord, SystemID: 9000,
		NameOrLink: "Some Server", MemberGroup: "member", HmacKey: hmacKey,
	}
	require.NoError(t, db.Create(&system).Error)

	oauth := &fakeOAuth{token: battlenet.UserToken{
		AccessToken: "user-token",
		Region:      battlenet.RegionEU,
		Scope:       "wow.profile",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	api := &fakeAPI{
		profile: battlenet.ProfileInfo{ID: 4711, BattleTag: "Tester#1234"},
		accountChars: []battlenet.Character{
			{ID: 1, Name: "Alpha", Realm: "some-realm"},
		},
	}
	vault := battlenet.NewTokenVault()
	sync := roster.NewSync(db, api, vault, roster.Config{MaxRequestRetries: 1}, zap.NewNop())

	conn := &mocks.Connector{}
	registry := connector.NewRegistry(zap.NewNop())
	registry.Register(connector.Key{Type: system.Type, SystemID: system.SystemID}, conn)

	app := fiber.New()
	feature := web.NewFeature(db, oauth, vault, sync, registry, apiKey, zap.NewNop())
	require.NoError(t, feature.Load(app))

	return &testEnv{app: app, db: db, guild: guild, system: system, conn: conn}
}

func (e *testEnv) startURL(t *testing.T, userID int64, mac string) string {
	t.Helper()
	return "/auth/start?systemId=" + strconv.FormatInt(e.system.ID, 10) +
		"&userId=" + strconv.FormatInt(userID, 10) +
		"&mac=" + url.QueryEscape(mac)
}

func (e *testEnv) signedMac(t *testing.T, userID int64) string {
	t.Helper()
	mac, err := signature.Sign(e.system.HmacKey, strconv.FormatInt(userID, 10))
	require.NoError(t, err)
	return mac
}

func TestHandleAuthStart_RejectsBadSignature(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest("GET", env.startURL(t, 555, "bm90LWEtbWFj"), nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHandleAuthStart_RejectsMissingParams(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest("GET", "/auth/start?systemId=1", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleAuthStart_UnknownSystem(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest("GET", "/auth/start?systemId=999&userId=555&mac=x", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandleAuthStart_RedirectsToConsentPage(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest("GET", env.startURL(t, 555, env.signedMac(t, 555)), nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http-equiv=\"refresh\"")
	assert.Contains(t, string(body), "https://eu.example.org/oauth/authorize?state=")
}

// authState extracts the OAuth state the start page embeds in its redirect.
func authStateFromBody(t *testing.T, body string) string {
	t.Helper()
	_, after, found := strings.Cut(body, "state=")
	require.True(t, found)
	state, _, found := strings.Cut(after, "\"")
	require.True(t, found)
	return state
}

func TestHandleAuthFinish_FullHandshake(t *testing.T) {
	env := newTestEnv(t, "")

	// The character is already known from the guild roster; the handshake
	// attaches the account and triggers the first role sync.
	require.NoError(t, env.db.Create(&models.Character{
		BnetID: 1, Region: env.guild.Region, GuildID: &env.guild.ID,
		Server: "some-realm", Name: "Alpha", Rank: 5, LastUpdate: time.Now(),
	}).Error)

	req := httptest.NewRequest("GET", env.startURL(t, 555, env.signedMac(t, 555)), nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	state := authStateFromBody(t, string(body))

	env.conn.On("GetRolesForUser", mock.Anything, int64(555)).Return([]string{}, true, nil)
	env.conn.On("SetCharacterNames", mock.Anything, int64(555), []string{"Alpha"}).Return(nil)
	env.conn.On("ChangeRoles", mock.Anything, map[int64]connector.RoleChange{
		555: {ToAdd: []string{"member"}, ToRemove: []string{}},
	}).Return(nil)

	req = httptest.NewRequest("GET", "/auth/finish?code=abc&state="+state, nil)
	resp, err = env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Auth finished")

	var link models.AccountRemoteID
	require.NoError(t, env.db.First(&link, "remote_system_id = ?", env.system.ID).Error)
	assert.Equal(t, int64(555), link.RemoteID)

	var character models.Character
	require.NoError(t, env.db.First(&character, "bnet_id = ?", 1).Error)
	require.NotNil(t, character.AccountID)
	env.conn.AssertExpectations(t)
}

func TestHandleAuthFinish_UnknownState(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest("GET", "/auth/finish?code=abc&state=bogus", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestHandleCronRun_RequiresApiKey(t *testing.T) {
	env := newTestEnv(t, "secret")

	req := httptest.NewRequest("GET", "/cron/run", nil)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestHandleCronRun_SyncsEverySystem(t *testing.T) {
	env := newTestEnv(t, "secret")

	env.conn.On("DeleteUsersAfterInactiveDays").Return(0)
	env.conn.On("GetAllUsersWithRoles", mock.Anything).Return(map[int64][]string{}, nil)
	env.conn.On("ChangeRoles", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest("GET", "/cron/run", nil)
	req.Header.Set("X-Api-Key", "secret")
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	env.conn.AssertCalled(t, "ChangeRoles", mock.Anything, mock.Anything)
}
