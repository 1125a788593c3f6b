package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"guildsync/core/config"
	"guildsync/core/database"
	"guildsync/core/loader"
	"guildsync/core/logger"
	"guildsync/core/middleware/rayid"
	"guildsync/feature/battlenet"
	"guildsync/feature/roster"
	"guildsync/feature/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "guildsync/docs/swagger"
)

// @title GuildSync API
// @version 1.0
// @description Guild roster to community platform role sync.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server, the platform gateways and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 3. Connect to Database
		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		// 4. Battle.net client and the in-memory token vault
		client := battlenet.NewClient(cfg.BattleNet)
		vault := battlenet.NewTokenVault()

		// 5. Platform gateways and connectors
		registry, gateway, err := buildConnectors(cfg, db, logg)
		if err != nil {
			logg.Fatal("Failed to build connectors", zap.Error(err))
		}

		sync := roster.NewSync(db, client, vault, cfg.Sync, logg)

		// 6. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		// RayID must be first to trace everything
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger Documentation (Public)
		app.Get("/swagger/*", swagger.HandlerDefault)

		// 7. Features. The auth handshake is public, the cron trigger
		// guards itself with the API key.
		mgr := loader.NewManager()
		mgr.Register(web.NewFeature(db, client, vault, sync, registry, cfg.Server.ApiKey, logg))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 8. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 9. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
		registry.CloseAll()
		if gateway != nil {
			_ = gateway.Close()
		}
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
