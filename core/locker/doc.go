// Package locker implements the per-resource mutation lock.
//
// Every operation that reads a group's configuration and then writes derived
// rows based on that read must run inside Acquire(groupID)/unlock. The store
// offers no multi-document transactions, so this lock is the sole
// concurrency-control mechanism; pure reads (reporting) skip it.
//
// Acquire returns an unlock closure (safe to call repeatedly) so release is
// guaranteed on every exit path with a single defer. The locking is
// process-local; a distributed deployment would swap in a shared
// implementation behind the same Acquire contract.
package locker
