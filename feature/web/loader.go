package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"guildsync/core/middleware/auth"
	"guildsync/feature/battlenet"
	"guildsync/feature/connector"
	"guildsync/feature/roster"
)

const stateTTL = 15 * time.Minute

// Feature implements the loader.Feature interface.
type Feature struct {
	handler *Handler
	apiKey  string
}

// NewFeature creates the web feature.
func NewFeature(db *gorm.DB, oauth OAuthClient, vault *battlenet.TokenVault, sync *roster.Sync, registry *connector.Registry, apiKey string, logger *zap.Logger) *Feature {
	h := NewHandler(db, oauth, vault, sync, registry, logger)
	return &Feature{handler: h, apiKey: apiKey}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "web"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes. The auth handshake is public, the
// cron trigger sits behind the API key.
func (f *Feature) Load(app fiber.Router) error {
	group := app.Group("/auth")
	group.Get("/start", f.handler.HandleAuthStart)
	group.Get("/finish", f.handler.HandleAuthFinish)

	app.Get("/cron/run", auth.New(auth.Config{ApiKey: f.apiKey}), f.handler.HandleCronRun)
	return nil
}
