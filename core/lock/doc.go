// Package lock provides keyed mutual exclusion for synchronization pairs.
//
// The sync orchestrator takes one lock per (product, account) so at most one sync
// attempt for a pair is in flight. LocalLocker serves single-instance deployments;
// RedisLocker uses SET NX with a random token and a compare-and-delete release
// script so only the holder can free the key.
package lock
