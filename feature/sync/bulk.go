package sync

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ItemOutcome is the outcome of one product in a bulk run.
type ItemOutcome string

const (
	ItemSucceeded    ItemOutcome = "succeeded"
	ItemSkipped      ItemOutcome = "skipped"
	ItemFailed       ItemOutcome = "failed"
	ItemNotAttempted ItemOutcome = "not_attempted"
)

// DefaultBulkConcurrency is the worker count of bulk runs when none is given.
const DefaultBulkConcurrency = 4

// BulkOptions tune a bulk run.
type BulkOptions struct {
	Options
	// StopOnFailure abandons items not yet started after the first failure.
	// Completed items are kept.
	StopOnFailure bool
	Concurrency   int
}

// BulkItem is the outcome of one product.
type BulkItem struct {
	ProductID int64       `json:"product_id"`
	Outcome   ItemOutcome `json:"outcome"`
	Result    *Result     `json:"result,omitempty"`
}

// BulkSummary aggregates a bulk run. Success is false only when no item succeeded.
type BulkSummary struct {
	AccountID    int64         `json:"account_id"`
	Success      bool          `json:"success"`
	Total        int           `json:"total"`
	Succeeded    int           `json:"succeeded"`
	Skipped      int           `json:"skipped"`
	Failed       int           `json:"failed"`
	NotAttempted int           `json:"not_attempted"`
	Items        []BulkItem    `json:"items"`
	Duration     time.Duration `json:"duration"`
}

func (s *BulkSummary) tally() {
	s.Total = len(s.Items)
	for _, item := range s.Items {
		switch item.Outcome {
		case ItemSucceeded:
			s.Succeeded++
		case ItemSkipped:
			s.Skipped++
		case ItemFailed:
			s.Failed++
		case ItemNotAttempted:
			s.NotAttempted++
		}
	}
	s.Success = s.Succeeded+s.Skipped > 0
}

func outcomeOf(r *Result) ItemOutcome {
	switch {
	case r.State == StateSkipped:
		return ItemSkipped
	case r.Success:
		return ItemSucceeded
	default:
		return ItemFailed
	}
}

// SyncMany synchronizes products to one account on a bounded worker pool. Items keep the
// order of productIDs.
func (o *Orchestrator) SyncMany(ctx context.Context, productIDs []int64, accountID int64, opts BulkOptions) *BulkSummary {
	start := time.Now()
	summary := &BulkSummary{AccountID: accountID, Items: make([]BulkItem, len(productIDs))}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultBulkConcurrency
	}

	stop, abandon := context.WithCancel(ctx)
	defer abandon()

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range productIDs {
		i, id := i, id
		summary.Items[i] = BulkItem{ProductID: id, Outcome: ItemNotAttempted}
		if stop.Err() != nil {
			continue
		}
		g.Go(func() error {
			if stop.Err() != nil {
				return nil
			}
			// In-flight items finish on the caller's context, not the abandon signal.
			r := o.Sync(ctx, id, accountID, opts.Options)
			summary.Items[i] = BulkItem{ProductID: id, Outcome: outcomeOf(r), Result: r}
			if !r.Success && opts.StopOnFailure {
				abandon()
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.tally()
	summary.Duration = time.Since(start)
	o.logger.Info("Bulk sync finished",
		zap.Int64("account_id", accountID),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("not_attempted", summary.NotAttempted))
	return summary
}
