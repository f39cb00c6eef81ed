// Package sync publishes catalog products to marketplace accounts.
//
// The Orchestrator runs one attempt per (product, account) pair under a per-pair lock:
//
//	needs_check -> skipped | creating | updating -> succeeded | failed
//
// Products are published either as one REST listing or split into one listing per color,
// as picked by the strategy package. Split colors are created concurrently and tallied once
// all of them finished. A listing deleted on the marketplace is recreated, and a split where
// every color failed falls back to a single listing when the product fits in one.
//
// Every attempt ends in a Result and a SyncLog entry; no error crosses Sync. Bulk runs,
// status checks and pricing are exposed through Service, the /sync routes and StaleSyncJob.
package sync
