// Package scheduler wraps robfig/cron for periodic background work such as
// synchronizing products whose catalog data changed since their last sync.
package scheduler
