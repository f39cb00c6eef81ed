// Package catalog reads products, variants and sync accounts from the internal catalog.
//
// Lookups return ErrProductNotFound and ErrAccountNotFound for missing rows so the sync
// orchestrator can report validation failures without touching the marketplace.
package catalog
