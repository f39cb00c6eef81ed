// Package links reconciles the two representations of a product's marketplace state.
//
// The legacy SyncStatus row and the newer MarketplaceLink records can disagree. The Reconciler
// treats the most recent active link as authoritative and rewrites the status row from it; a
// status row carrying an external id with no link at all is materialized into a product-level
// link. Synchronize is idempotent.
//
// Split products keep one link per color, discriminated by color_filter. Links are never
// deleted: Unlink moves them to the unlinked state.
//
// The Adapter plugs the same rules into core/reconcile for account-wide runs, and the Service
// adds linking of existing listings (with sku, parent_sku or none matching), listing refresh
// and audit entries for every write.
package links
