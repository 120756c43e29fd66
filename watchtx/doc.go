// Package watchtx runs operations against a transaction scoped to one watched
// key and retries them when another writer changes that key first.
//
// A call proceeds in attempts. Each attempt reads the watched key and records
// its mod revision, fails with a [KeyNotFoundError] if the key is absent, and
// otherwise hands a fresh [Txn] to the operation. Writes issued through the
// Txn are buffered and committed in one transaction guarded by
// predicate.VersionEqual(key, revision). If the guard fails the attempt is
// discarded and the whole cycle starts again, existence check included.
//
// The wrapper gives at-most-one-winning-writer-per-revision semantics for a
// key. It is not a lock: concurrent callers race and all but one retry.
//
// Retries are unbounded by default. Use [WithMaxAttempts], [WithRetryLimiter]
// or a context deadline to cap them under sustained contention.
package watchtx
