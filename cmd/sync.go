package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	syncFeature "marketplace-sync/feature/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncAccount       int64
	syncActor         string
	syncForce         bool
	syncForceGraphQL  bool
	syncForceREST     bool
	syncStopOnFailure bool
	syncConcurrency   int
	statusRefresh     bool
	pricingSource     string
)

// syncCmd is the parent command for one-shot sync operations.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run sync operations without starting the server",
}

var syncProductsCmd = &cobra.Command{
	Use:   "products <product-id>...",
	Short: "Synchronize products to an account",
	Long: `Synchronize products to a marketplace account and print the bulk summary as JSON.

Examples:
  sync products 12 13 --account 3
  sync products 12 --account 3 --force --force-rest`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncService(args, func(ctx context.Context, app *application, ids []int64) (any, error) {
			return app.sync.SyncProducts(ctx, syncFeature.SyncRequest{
				ProductIDs:    ids,
				AccountID:     syncAccount,
				Force:         syncForce,
				ForceGraphQL:  syncForceGraphQL,
				ForceREST:     syncForceREST,
				StopOnFailure: syncStopOnFailure,
				Concurrency:   syncConcurrency,
				Actor:         app.actorOr(syncActor),
			})
		})
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status <product-id>...",
	Short: "Report drift and health of products on an account",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncService(args, func(ctx context.Context, app *application, ids []int64) (any, error) {
			return app.sync.CheckStatus(ctx, syncFeature.StatusRequest{
				ProductIDs:  ids,
				AccountID:   syncAccount,
				Refresh:     statusRefresh,
				Concurrency: syncConcurrency,
			})
		})
	},
}

var syncPricingCmd = &cobra.Command{
	Use:   "pricing <product-id>...",
	Short: "Push catalog prices to linked listings",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncService(args, func(ctx context.Context, app *application, ids []int64) (any, error) {
			return app.sync.UpdatePricing(ctx, syncFeature.PricingRequest{
				ProductIDs: ids,
				AccountID:  syncAccount,
				Source:     pricingSource,
				Actor:      app.actorOr(syncActor),
			})
		})
	},
}

func init() {
	syncCmd.PersistentFlags().Int64Var(&syncAccount, "account", 0, "Sync account id")
	syncCmd.PersistentFlags().StringVar(&syncActor, "actor", "", "Actor recorded on audit entries")
	syncCmd.PersistentFlags().IntVar(&syncConcurrency, "concurrency", 0, "Products processed in parallel (0 for default)")
	_ = syncCmd.MarkPersistentFlagRequired("account")

	syncProductsCmd.Flags().BoolVar(&syncForce, "force", false, "Sync even when the product is up to date")
	syncProductsCmd.Flags().BoolVar(&syncForceGraphQL, "force-graphql", false, "Publish one listing per color")
	syncProductsCmd.Flags().BoolVar(&syncForceREST, "force-rest", false, "Publish a single listing")
	syncProductsCmd.Flags().BoolVar(&syncStopOnFailure, "stop-on-failure", false, "Stop starting new products after the first failure")

	syncStatusCmd.Flags().BoolVar(&statusRefresh, "refresh", false, "Fetch listings from the marketplace instead of stored snapshots")

	syncPricingCmd.Flags().StringVar(&pricingSource, "source", "", "Price source: base, channel or sale")

	syncCmd.AddCommand(syncProductsCmd, syncStatusCmd, syncPricingCmd)
	RootCmd.AddCommand(syncCmd)
}

// withSyncService parses product ids, runs fn against a bootstrapped application and prints its result as JSON.
func withSyncService(args []string, fn func(ctx context.Context, app *application, ids []int64) (any, error)) error {
	ids, err := parseProductIDs(args)
	if err != nil {
		return err
	}

	ctx := context.Background()
	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := fn(ctx, app, ids)
	if err != nil {
		return err
	}
	app.logger.Debug("Sync command finished", zap.Int("products", len(ids)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseProductIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
