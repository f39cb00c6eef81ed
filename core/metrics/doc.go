// Package metrics defines the Prometheus collectors for synchronization.
//
// Collectors are registered on the default registry at init through promauto and
// exposed by Handler on /metrics.
package metrics
