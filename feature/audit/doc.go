// Package audit writes the append-only SyncLog trail.
//
// Every orchestrator outcome, link change and reconciliation run is recorded here. Each row is
// also published through core/events so downstream consumers can follow sync activity.
package audit
