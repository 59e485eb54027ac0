// Package lockmgr implements owner checked locks on string keys inside one process.
//
// The document store uses it to serialize writes to the same physical path, so two
// concurrent writers in one process never race for the same version token.
//
// Core Functionality:
//   - Blocking acquisition that honors context cancellation
//   - Non blocking acquisition (TryAcquireLock)
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks live in an xsync.MapOf. Acquisition stores a new entry with a random owner ID
//	only if the key is unset (LoadOrStore). Waiters block on a channel of the current
//	holder that is closed on release and then retry.
//
// Usage Example:
//
//	lm := lockmgr.NewLockManager()
//
//	ownerID, err := lm.AcquireLock(ctx, "data/economy/user_balances.json")
//	if err != nil {
//	    // ctx was cancelled
//	}
//	defer lm.ReleaseLock("data/economy/user_balances.json", ownerID)
package lockmgr
