// Package database handles database connections and schema inspection.
//
// It wraps GORM and configures MySQL, Postgres or SQLite connections from the
// application's configuration.
//
// # Connect
//
// Connect opens the configured dialect, applies pool settings and pings the
// server with a timeout. SQLite connections are pinned to a single connection so
// in-memory databases survive for the lifetime of the handle.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns let the migrate command verify that the
// legacy sync status table and the marketplace link table carry every column the
// link reconciler reads, since the two tables are often owned by different
// deployments.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "sync_statuses", []string{"external_product_id"})
package database
