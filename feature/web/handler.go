package web

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/logger"
	"guildsync/core/signature"
	"guildsync/feature/battlenet"
	"guildsync/feature/connector"
	"guildsync/feature/reconcile"
	"guildsync/feature/roster"
	"guildsync/feature/roster/models"
)

// OAuthClient is the part of the Battle.net client the handshake needs.
type OAuthClient interface {
	AuthorizeURL(region battlenet.Region, state string) string
	ExchangeCode(ctx context.Context, region battlenet.Region, code string) (battlenet.UserToken, error)
}

// Redirect via meta refresh instead of a Location header: several browsers
// had problems carrying cookies across HTTP redirects.
const redirectPage = `<!DOCTYPE html>
<html><head><title>Redirect</title>
<meta http-equiv="refresh" content="3; URL=%s">
</head><body><p>Wait one moment please.</p></body></html>`

const finishedPage = `<!DOCTYPE html>
<html><head><title>Auth finished</title></head>
<body><p>Auth finished. You can close this window now.</p></body></html>`

const invalidScopePage = `<!DOCTYPE html>
<html><head><title>Invalid scope</title></head>
<body><p>You need to authorize access to your WoW profile. Please revoke all access at
<a target="_blank" href="https://account.blizzard.com/connections#authorized-applications">https://account.blizzard.com/connections#authorized-applications</a>
and try again.</p></body></html>`

// Handler handles the authorization handshake and the cron trigger.
type Handler struct {
	db       *gorm.DB
	oauth    OAuthClient
	vault    *battlenet.TokenVault
	sync     *roster.Sync
	registry *connector.Registry
	states   *stateStore
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(db *gorm.DB, oauth OAuthClient, vault *battlenet.TokenVault, sync *roster.Sync, registry *connector.Registry, logger *zap.Logger) *Handler {
	return &Handler{
		db:       db,
		oauth:    oauth,
		vault:    vault,
		sync:     sync,
		registry: registry,
		states:   newStateStore(stateTTL),
		logger:   logger,
	}
}

// HandleAuthStart verifies a signed authorization link and redirects the
// user to the Battle.net consent page.
// @Summary Start account authorization
// @Description Verifies the signed link a member received and redirects to the Battle.net consent page.
// @Tags auth
// @Produce html
// @Param systemId query int true "Remote system id"
// @Param userId query int true "Remote user id"
// @Param mac query string true "Link signature"
// @Success 200 {string} string "Redirect page"
// @Failure 400 {object} map[string]string "Missing or malformed parameter"
// @Failure 403 {object} map[string]string "Invalid signature"
// @Failure 404 {object} map[string]string "Unknown remote system"
// @Router /auth/start [get]
func (h *Handler) HandleAuthStart(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	systemID, err := strconv.ParseInt(c.Query("systemId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or malformed systemId"})
	}
	userIDRaw := c.Query("userId")
	userID, err := strconv.ParseInt(userIDRaw, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or malformed userId"})
	}
	mac := c.Query("mac")
	if mac == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing mac"})
	}

	system, err := roster.RemoteSystemByID(h.db, systemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown remote system"})
	}
	if err != nil {
		l.Error("Failed to load remote system", zap.Int64("system_id", systemID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if err := signature.Verify(system.HmacKey, mac, userIDRaw); err != nil {
		l.Info("Rejected auth link with bad signature",
			zap.Int64("system_id", systemID), zap.Int64("user_id", userID))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "invalid signature"})
	}

	guild, err := roster.GuildByID(h.db, system.GuildID)
	if err != nil {
		l.Error("Failed to load guild", zap.Int64("guild_id", system.GuildID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	state := h.states.Put(system.ID, userID, guild.Region)
	authURL := h.oauth.AuthorizeURL(guild.Region, state)

	c.Type("html")
	return c.SendString(fmt.Sprintf(redirectPage, html.EscapeString(authURL)))
}

// HandleAuthFinish terminates the handshake: redeems the code, mirrors the
// account and pushes the user's roles to the remote system.
// @Summary Finish account authorization
// @Description OAuth callback. Links the account to the remote user and syncs roles.
// @Tags auth
// @Produce html
// @Param code query string true "Authorization code"
// @Param state query string true "Handshake state"
// @Success 200 {string} string "Confirmation page"
// @Failure 400 {string} string "Missing code or insufficient scope"
// @Failure 403 {object} map[string]string "Unknown or expired handshake"
// @Router /auth/finish [get]
func (h *Handler) HandleAuthFinish(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	state, ok := h.states.Take(c.Query("state"))
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "cant find your session, please try again"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}

	token, err := h.oauth.ExchangeCode(c.Context(), state.Region, code)
	if err != nil {
		l.Info("Failed to finish auth",
			zap.Int64("user_id", state.RemoteUserID),
			zap.Int64("system_id", state.RemoteSystemID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !strings.Contains(token.Scope, "wow.profile") {
		c.Type("html")
		return c.Status(fiber.StatusBadRequest).SendString(invalidScopePage)
	}
	h.vault.Add(token)

	system, err := roster.RemoteSystemByID(h.db, state.RemoteSystemID)
	if err != nil {
		l.Error("Failed to load remote system", zap.Int64("system_id", state.RemoteSystemID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	redirectTo, err := h.sync.AuthFinished(c.Context(), system, state.RemoteUserID, token)
	if err != nil {
		l.Error("Failed to mirror account after auth",
			zap.Int64("user_id", state.RemoteUserID),
			zap.Int64("system_id", system.ID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	added := false
	if conn, err := h.registry.Find(system); err == nil {
		syncer, err := reconcile.NewSyncer(h.db, system, conn, h.logger)
		if err == nil {
			added, err = syncer.SyncForUser(c.Context(), state.RemoteUserID)
		}
		if err != nil {
			l.Error("Failed to sync roles after auth",
				zap.Int64("user_id", state.RemoteUserID),
				zap.Int64("system_id", system.ID),
				zap.Error(err))
		}
	}

	l.Info("Auth finished",
		zap.Int64("user_id", state.RemoteUserID),
		zap.String("system_type", string(system.Type)),
		zap.Int64("system_id", system.ID),
		zap.Bool("roles_added", added),
		zap.String("redirect", redirectTo))

	if redirectTo != "" {
		return c.Redirect(redirectTo, fiber.StatusSeeOther)
	}
	c.Type("html")
	return c.SendString(finishedPage)
}

// HandleCronRun executes one full pass: roster mirror, then per remote
// system inactivity pruning and bulk role reconciliation. Failures are
// isolated per system so one broken connector never blocks the others.
// @Summary Run a sync pass
// @Description Mirrors the rosters and reconciles every remote system.
// @Tags cron
// @Produce json
// @Success 200 {object} map[string]int "Pass summary"
// @Failure 401 {object} map[string]string "Invalid api key"
// @Failure 500 {object} map[string]string "Mirror sync failed"
// @Router /cron/run [get]
func (h *Handler) HandleCronRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	if err := h.sync.Run(c.Context()); err != nil {
		l.Error("Roster mirror sync failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	systems, err := roster.RemoteSystems(h.db)
	if err != nil {
		l.Error("Failed to load remote systems", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	failed := 0
	for _, system := range systems {
		if err := h.syncRemoteSystem(c.Context(), system); err != nil {
			failed++
			l.Error("Failed to sync remote system",
				zap.String("system_type", string(system.Type)),
				zap.Int64("system_id", system.ID),
				zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{"remote_systems": len(systems), "failed": failed})
}

func (h *Handler) syncRemoteSystem(ctx context.Context, system models.RemoteSystem) error {
	conn, err := h.registry.Find(system)
	if err != nil {
		return err
	}
	syncer, err := reconcile.NewSyncer(h.db, system, conn, h.logger)
	if err != nil {
		return err
	}
	if _, err := syncer.DeleteInactiveUsers(ctx); err != nil {
		return err
	}
	return syncer.SyncToConnector(ctx)
}
