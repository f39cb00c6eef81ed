// Package drift compares catalog products with their marketplace listings and scores pair health.
//
// # Comparison
//
// Compare weighs every differing field (title 2 per listing, missing SKU 2, price, stock and
// each option 1) into a drift score capped at 10. Severity is critical from 8, high from 5,
// medium from 2 and low below that.
//
// # Health
//
// Score starts at 100 and deducts for sync status (error 50, not synced 40, out of sync 20),
// drift (30/20/10 by score band) and data quality (poor 25, fair 15, good 5), clamped to
// [0, 100]. A pair in error is always critical.
//
// # Snapshots
//
// SnapshotStore keeps the last-fetched listings of each pair as JSON in object storage
// under snapshots/<account>/<product>.json, so drift can be reported without calling the
// marketplace.
package drift
