package docstore

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/backup"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Background tasks
// --------------------------------------------------------------------------

// startTasks starts the periodic resync if an interval is configured
func (s *Store) startTasks() {
	interval := s.opts.ResyncInterval
	if interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelTasks = cancel
	s.tasks.Add(1)

	go func() {
		defer s.tasks.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		Logger.Infof("Resyncing every %s", interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.vacuum(ctx); err != nil && ctx.Err() == nil {
					Logger.Warningf("Periodic resync failed: %v", err)
				}
			}
		}
	}()
}

// stopTasks cancels the background tasks and waits until they returned or ctx is done
func (s *Store) stopTasks(ctx context.Context) error {
	if s.cancelTasks == nil {
		return nil
	}
	s.cancelTasks()

	done := make(chan struct{})
	go func() {
		s.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Maintenance operations
// --------------------------------------------------------------------------

// Vacuum resyncs the whole data tree and drops the cache entries, mirror files and
// metadata of documents that were removed remotely.
func (s *Store) Vacuum(ctx context.Context) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	return s.vacuum(ctx)
}

func (s *Store) vacuum(ctx context.Context) error {
	result, err := s.syncer.Bootstrap(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	s.meta.MarkSync(now)

	// without a complete picture of the remote nothing is dropped
	if result.Failed > 0 {
		Logger.Warningf("Resync incomplete (%d failed), skipping cleanup", result.Failed)
		return nil
	}

	listed := make(map[string]bool, len(result.Paths)+len(result.Busy))
	for _, p := range result.Paths {
		listed[p] = true
	}
	for _, p := range result.Busy {
		listed[p] = true
	}
	vanished := func(p string) bool {
		return s.vanished(p, listed, result.Started)
	}

	for _, p := range s.cache.Keys() {
		if vanished(p) && s.cache.InvalidateIfStale(p, result.Started) {
			Logger.Debugf("Dropping cached %s, it no longer exists", p)
		}
	}
	if s.mirror != nil {
		if _, err := s.mirror.Vacuum(func(p string) bool { return !vanished(p) }); err != nil {
			Logger.Warningf("Failed to vacuum mirror: %v", err)
		}
	}
	for _, p := range s.meta.Paths() {
		if vanished(p) {
			Logger.Debugf("Dropping metadata of removed document %s", p)
			s.meta.RecordDelete(p)
		}
	}

	s.meta.MarkCleanup(now)
	return nil
}

// vanished reports whether path was removed remotely according to a sync that started
// at started. Only the data tree is listed by a sync, so documents elsewhere never vanish.
// Documents written or cached since the sync started are kept.
func (s *Store) vanished(path string, listed map[string]bool, started time.Time) bool {
	if listed[path] || !strings.HasPrefix(path, keymap.DataRoot+"/") {
		return false
	}
	if info, ok := s.meta.Info(path); ok && !info.LastModified.Before(started) {
		return false
	}
	if entry, ok := s.cache.Peek(path); ok && !entry.CachedAt.Before(started) {
		return false
	}
	return true
}

// Backups lists the backups of key, newest first
func (s *Store) Backups(ctx context.Context, key string) ([]backup.Record, error) {
	if err := s.ensureInit(ctx); err != nil {
		return nil, err
	}
	return s.backups.List(ctx, keymap.Resolve(key))
}

// Restore writes the content of a backup of key as its current version.
// The replaced version is backed up like on every other write.
func (s *Store) Restore(ctx context.Context, key, backupName string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	path := keymap.Resolve(key)
	if !backup.Belongs(backupName, path) {
		return remote.NewError(remote.RetCInvalidDocument, backupName, fmt.Sprintf("not a backup of %s", path))
	}

	doc, err := s.backups.Load(ctx, backupName)
	if err != nil {
		return err
	}

	return s.serialized(ctx, path, func() error {
		// load the current token so the restore is not rejected for a cold cache
		if _, _, err := s.readPath(ctx, path); err != nil {
			return err
		}
		Logger.Infof("Restoring %s from %s", path, backupName)
		return s.writePath(ctx, path, doc, false)
	})
}
