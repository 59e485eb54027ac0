package lockmgr

import (
	"context"
	"crypto/rand"
)

const (
	ownerIDLength = 16
)

// generateOwnerID creates a new unique owner ID
// The owner ID is a random byte slice of length 16.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDLength)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}

// WithLock runs fn while holding the lock for key
func WithLock(ctx context.Context, lm ILockManager, key string, fn func() error) error {
	ownerID, err := lm.AcquireLock(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if ok, err := lm.ReleaseLock(key, ownerID); !ok || err != nil {
			Logger.Errorf("Failed to release lock %s: %v", key, err)
		}
	}()
	return fn()
}
