package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcbarinov/accounts-monitor/core/config"
	"github.com/mcbarinov/accounts-monitor/core/database"
	"github.com/mcbarinov/accounts-monitor/core/loader"
	"github.com/mcbarinov/accounts-monitor/core/logger"
	"github.com/mcbarinov/accounts-monitor/core/middleware/auth"
	"github.com/mcbarinov/accounts-monitor/core/middleware/rayid"
	"github.com/mcbarinov/accounts-monitor/core/storage"
	"github.com/mcbarinov/accounts-monitor/feature/coins"
	"github.com/mcbarinov/accounts-monitor/feature/groups"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Accounts Monitor API
// @version 1.0
// @description API for managing account groups and their monitored coins and namings.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the accounts monitor server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		if err := db.AutoMigrate(&coins.Coin{}); err != nil {
			logg.Fatal("Failed to migrate database", zap.Error(err))
		}
		if err := groups.NewStore(db).Migrate(); err != nil {
			logg.Fatal("Failed to migrate database", zap.Error(err))
		}

		coinsFeature := coins.NewFeature(db, logg)
		groupsFeature := groups.NewFeature(db, coinsFeature.Service(), store, cfg.Storage.Bucket, logg)

		mgr := loader.NewManager()
		mgr.Register(coinsFeature)
		mgr.Register(groupsFeature)

		// RayID must be first so every request is traceable.
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

		// Swagger stays public; everything after this is behind the API key.
		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
