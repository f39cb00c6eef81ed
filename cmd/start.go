package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-sync/core/loader"
	"marketplace-sync/core/logger"
	"marketplace-sync/core/metrics"
	"marketplace-sync/core/middleware/actor"
	"marketplace-sync/core/middleware/auth"
	"marketplace-sync/core/middleware/rayid"
	"marketplace-sync/core/scheduler"
	"marketplace-sync/feature/links"
	syncFeature "marketplace-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// @title Marketplace Sync API
// @version 1.0
// @description API for publishing catalog products to marketplace accounts.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the marketplace sync server",
	Long:  `Starts the HTTP server, the optional stale-product scheduler and all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load configuration and wire services
		app, err := bootstrap(context.Background())
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer app.Close()
		logg := app.logger
		zap.ReplaceGlobals(logg)
		cfg := app.cfg

		// 2. Initialize Fiber App
		server := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 3. Initialize Feature Loader
		mgr := loader.NewManager()
		mgr.Register(links.NewFeature(app.links))
		mgr.Register(syncFeature.NewFeature(app.sync))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		server.Use(rayid.New())

		// 2. Logging Middleware
		server.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			start := time.Now()
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			l.Debug("Request finished",
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		})

		// 2.5 Metrics (Public)
		server.Get("/metrics", metrics.Handler())

		// 3. Auth (Protect API)
		server.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		// 4. Actor attribution for audit entries
		server.Use(actor.New(cfg.Server.DefaultActor))

		// 5. Load Features
		if err := mgr.LoadAll(server); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Scheduler (Optional)
		var sched *scheduler.Scheduler
		if cfg.Scheduler.Enabled {
			sched = scheduler.New(cfg.Scheduler, logg)
			job := syncFeature.StaleSyncJob(app.catalog, app.sync.Orchestrator(), cfg.Scheduler.BatchSize, logg)
			if err := sched.Add("stale-sync", cfg.Scheduler.Spec, job); err != nil {
				logg.Fatal("Failed to schedule stale sync", zap.Error(err))
			}
			sched.Start()
			logg.Info("Scheduler started", zap.String("spec", cfg.Scheduler.Spec))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := server.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if sched != nil {
			sched.Stop(ctx)
		}
		_ = server.ShutdownWithContext(ctx)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
