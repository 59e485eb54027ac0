package lockmgr

import "context"

// ILockManager serializes work on string keys (e.g. physical document paths).
type ILockManager interface {
	// AcquireLock blocks until the lock for key is held or ctx is done.
	// It returns the owner ID needed to release the lock.
	AcquireLock(ctx context.Context, key string) (ownerID []byte, err error)

	// TryAcquireLock acquires the lock for key only if it is free.
	TryAcquireLock(key string) (ok bool, ownerID []byte, err error)

	// ReleaseLock releases the lock for key if ownerID holds it.
	// Return a boolean indicating whether the lock was released.
	// The method will also return True if the lock did not exist.
	ReleaseLock(key string, ownerID []byte) (ok bool, err error)
}
