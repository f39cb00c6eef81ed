package sync

import (
	"context"
	"fmt"

	"marketplace-sync/core/scheduler"
	"marketplace-sync/feature/catalog"

	"go.uber.org/zap"
)

// SchedulerActor attributes writes made by the periodic job.
const SchedulerActor = "scheduler"

// StaleSyncJob returns a scheduled job that synchronizes, per active account, up to
// batchSize products that were never synced or changed since their last sync.
func StaleSyncJob(repo catalog.Repository, orchestrator *Orchestrator, batchSize int, logger *zap.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		accounts, err := repo.ListActiveAccounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sync accounts: %w", err)
		}

		for _, account := range accounts {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ids, err := repo.ListStaleProductIDs(ctx, account.ID, batchSize)
			if err != nil {
				return fmt.Errorf("failed to list stale products of account %d: %w", account.ID, err)
			}
			if len(ids) == 0 {
				continue
			}
			summary := orchestrator.SyncMany(ctx, ids, account.ID, BulkOptions{Options: Options{Actor: SchedulerActor}})
			logger.Info("Stale products synchronized",
				zap.Int64("account_id", account.ID),
				zap.Int("total", summary.Total),
				zap.Int("failed", summary.Failed))
		}
		return nil
	}
}
