// Package models defines the GORM models shared by the sync, links and pricing features.
//
// # Catalog
//
// Product, Variant and SyncAccount are read during a sync and never written by it.
//
// # Tracking
//
// Two representations track synchronization of a (product, account) pair:
//   - SyncStatus: the legacy single row per pair
//   - MarketplaceLink: the current model, owned by a product or a variant through the
//     LinkOwner tagged union, optionally scoped to one color through color_filter
//
// The latest link is authoritative. LinkStatus.Consolidated maps link states onto
// sync states and LinkStatusFor is its inverse, so reconciliation round-trips.
//
// # Audit
//
// SyncLog rows are append-only.
package models
