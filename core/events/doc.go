// Package events publishes synchronization audit events to Kafka.
//
// Every sync log entry written by the audit recorder is also emitted as a JSON
// message keyed by "<product>:<account>", so downstream consumers see the events
// of one pair in order. When disabled, NopPublisher keeps callers unconditional.
package events
