// Package reconcile provides a generic system for reconciling the two
// representations of marketplace tracking: marketplace links (current) and legacy
// sync status rows.
//
// # Architecture
//
// 1. Engine: builds the union of pair keys from both sources, detects presence and
// absence, and collects field mismatches between the latest link and the status row.
//
// 2. Adapter: model-specific loading, comparison and naming. The links feature
// provides the gorm-backed adapter and implements Mutator to apply plans.
//
// 3. Cache: TTL-based caching layer with singleflight stampede protection.
//
// # Planning
//
// The latest link is authoritative. ReconcileWithPlan produces:
//   - upsert_status when a pair has links but no status row, or the row disagrees
//   - materialize_link when a status row carries an external id and no link exists
//
// Status rows without an external id are counted as unlinkable and left alone.
//
// # Usage Example
//
//	spec := &reconcile.Spec{
//	    Adapter:  links.NewAdapter(repo, "cli"),
//	    CacheTTL: 0,
//	    Scope:    reconcile.Scope{AccountID: 3},
//	}
//
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, db, reconcile.ReconcileOptions{DoSync: true})
//	executed, err := reconcile.ApplyPlan(ctx, spec, plan, reconcile.ReconcileOptions{DoSync: true, Confirmed: true})
package reconcile
