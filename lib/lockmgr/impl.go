package lockmgr

import (
	"bytes"
	"context"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("lockmgr")

// heldLock is one acquired lock, released is closed when it is given up
type heldLock struct {
	owner    []byte
	released chan struct{}
}

type lockMgrImpl struct {
	locks *xsync.MapOf[string, *heldLock]
}

// NewLockManager creates an in-process lock manager
func NewLockManager() ILockManager {
	return &lockMgrImpl{
		locks: xsync.NewMapOf[string, *heldLock](),
	}
}

func (lm *lockMgrImpl) TryAcquireLock(key string) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	// set only if unset
	candidate := &heldLock{owner: ownerID, released: make(chan struct{})}
	if _, loaded := lm.locks.LoadOrStore(key, candidate); loaded {
		return false, nil, nil
	}
	return true, ownerID, nil
}

func (lm *lockMgrImpl) AcquireLock(ctx context.Context, key string) ([]byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return nil, err
	}
	candidate := &heldLock{owner: ownerID, released: make(chan struct{})}

	for {
		current, loaded := lm.locks.LoadOrStore(key, candidate)
		if !loaded {
			return ownerID, nil
		}

		Logger.Debugf("Waiting for lock %s", key)
		select {
		case <-current.released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID []byte) (bool, error) {
	released := true
	var freed *heldLock

	lm.locks.Compute(key, func(current *heldLock, loaded bool) (*heldLock, bool) {
		if !loaded {
			return nil, true
		}
		// owned by someone else
		if !bytes.Equal(current.owner, ownerID) {
			released = false
			return current, false
		}
		freed = current
		return nil, true
	})

	if freed != nil {
		close(freed.released)
	}
	return released, nil
}
