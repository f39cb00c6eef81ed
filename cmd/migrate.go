package cmd

import (
	"fmt"

	"marketplace-sync/core/config"
	"marketplace-sync/core/database"
	"marketplace-sync/core/logger"
	"marketplace-sync/feature/catalog/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// requiredColumns lists columns that sync reads from tables an external catalog may own.
var requiredColumns = map[string][]string{
	"products":          {"id", "name", "parent_sku", "updated_at"},
	"variants":          {"id", "product_id", "sku", "color", "price", "attributes"},
	"marketplace_links": {"product_id", "sync_account_id", "color_filter", "external_product_id", "link_status"},
}

var skipAutoMigrate bool

// migrateCmd creates or updates the sync tables.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Runs automatic migrations for every sync model and then verifies that the
columns sync depends on exist. Use --check to verify without migrating.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		l, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer l.Sync()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		if !skipAutoMigrate {
			if err := database.AutoMigrate(db, models.All()...); err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			l.Info("Schema migrated", zap.Int("models", len(models.All())))
		}

		var problems int
		for table, columns := range requiredColumns {
			missing, err := database.MissingColumns(db, table, columns)
			if err != nil {
				return fmt.Errorf("failed to inspect %s: %w", table, err)
			}
			if len(missing) > 0 {
				problems++
				l.Error("Table is missing columns", zap.String("table", table), zap.Strings("columns", missing))
			}
		}
		if problems > 0 {
			return fmt.Errorf("%d table(s) are missing required columns", problems)
		}

		l.Info("Schema verified")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&skipAutoMigrate, "check", false, "Only verify required columns")
	RootCmd.AddCommand(migrateCmd)
}
