package cmd

import (
	"context"
	"fmt"

	"marketplace-sync/core/config"
	"marketplace-sync/core/database"
	"marketplace-sync/core/events"
	"marketplace-sync/core/lock"
	"marketplace-sync/core/logger"
	"marketplace-sync/core/marketplace"
	"marketplace-sync/core/storage"
	"marketplace-sync/feature/audit"
	"marketplace-sync/feature/catalog"
	"marketplace-sync/feature/links"
	"marketplace-sync/feature/pricing"
	syncFeature "marketplace-sync/feature/sync"
	"marketplace-sync/feature/sync/drift"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application holds the wired services shared by the server and the CLI commands.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	publisher events.Publisher
	catalog   catalog.Repository
	links     *links.Service
	sync      *syncFeature.Service
}

// bootstrap loads configuration and wires every service against it.
func bootstrap(ctx context.Context) (*application, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if !cfg.Server.IsValidChannel() {
		return nil, fmt.Errorf("unsupported channel %q", cfg.Server.Channel)
	}
	logg = logg.With(zap.String("channel", cfg.Server.Channel))

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	locker, err := lock.New(cfg.Lock)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock: %w", err)
	}

	recorder := audit.NewRecorder(db, publisher, logg)
	provider := marketplace.NewShopifyProvider(cfg.Marketplace)
	catalogRepo := catalog.NewRepository(db)
	reconciler := links.NewReconciler(links.NewRepository(db))

	orchestrator := syncFeature.NewOrchestrator(catalogRepo, reconciler, provider, locker, recorder, logg).
		WithSettings(syncFeature.Settings{
			Vendor:  cfg.Marketplace.Vendor,
			LockTTL: cfg.Lock.TTL(),
		})

	if cfg.Storage.Enabled {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		if err := storage.EnsureBucket(ctx, store, cfg.Storage.Bucket); err != nil {
			return nil, fmt.Errorf("failed to prepare snapshot bucket: %w", err)
		}
		orchestrator.WithSnapshots(drift.NewSnapshotStore(store, cfg.Storage.Bucket))
		logg.Info("Snapshot storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	updater := pricing.NewUpdater(catalogRepo, reconciler, provider, recorder, logg)

	return &application{
		cfg:       cfg,
		logger:    logg,
		db:        db,
		publisher: publisher,
		catalog:   catalogRepo,
		links:     links.NewService(reconciler, catalogRepo, provider, recorder, logg),
		sync:      syncFeature.NewService(orchestrator, updater, logg),
	}, nil
}

// actorOr returns actor, or the configured default when it is empty.
func (a *application) actorOr(actor string) string {
	if actor != "" {
		return actor
	}
	return a.cfg.Server.DefaultActor
}

// Close flushes the publisher and the logger.
func (a *application) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Failed to close event publisher", zap.Error(err))
	}
	_ = a.logger.Sync()
}
