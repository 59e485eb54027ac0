package syncer

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/cache"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/lockmgr"
	"github.com/ValentinKolb/dDocs/lib/mirror"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var Logger = logger.GetLogger("syncer")

// Placeholder is the file written into every directory of a fresh repository
const Placeholder = ".gitkeep"

// Result describes one sync run
type Result struct {
	FirstRun bool      // the data tree did not exist and was created
	Paths    []string  // every document that was loaded
	Busy     []string  // documents skipped because a write held their lock
	Failed   int       // documents that could not be fetched
	Bytes    int64     // total size of the loaded documents
	Started  time.Time // time the sync started
	Duration time.Duration
}

// Syncer loads the whole data tree of the remote into the cache and the local mirror
type Syncer struct {
	remote remote.IRemoteStore
	cache  *cache.Cache
	mirror *mirror.Mirror
	locks  lockmgr.ILockManager
	now    func() time.Time
}

// New creates a syncer. mirror may be nil to disable mirroring.
func New(r remote.IRemoteStore, c *cache.Cache, m *mirror.Mirror) *Syncer {
	return &Syncer{remote: r, cache: c, mirror: m, now: time.Now}
}

// WithClock replaces the time source used for cache entries and placeholders
func (s *Syncer) WithClock(now func() time.Time) *Syncer {
	s.now = now
	return s
}

// WithLocks makes the syncer skip documents whose lock is held by a writer
func (s *Syncer) WithLocks(lm lockmgr.ILockManager) *Syncer {
	s.locks = lm
	return s
}

// Bootstrap walks the data tree. If it does not exist yet the directory skeleton is
// created and FirstRun is reported. Otherwise every document (all files except the
// placeholders) is fetched into the cache and mirror, documents that fail are logged and skipped.
// Cache entries written after the sync started are never replaced.
// Listing errors other than NotFound are returned.
func (s *Syncer) Bootstrap(ctx context.Context) (Result, error) {
	result := Result{Started: s.now()}
	defer func() { result.Duration = time.Since(result.Started) }()

	entries, err := s.remote.ListTree(ctx, keymap.DataRoot)
	if remote.IsNotFound(err) {
		Logger.Infof("No %s directory on %s, creating structure", keymap.DataRoot, s.remote.Name())
		s.createStructure(ctx)
		result.FirstRun = true
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("failed to list %s: %w", keymap.DataRoot, err)
	}

	for _, entry := range entries {
		if entry.IsDir || entry.Name == Placeholder {
			continue
		}
		loaded, size, err := s.load(ctx, entry.Path, result.Started)
		if err != nil {
			Logger.Warningf("Failed to sync %s: %v", entry.Path, err)
			result.Failed++
			continue
		}
		if !loaded {
			result.Busy = append(result.Busy, entry.Path)
			continue
		}
		result.Paths = append(result.Paths, entry.Path)
		result.Bytes += size
	}

	Logger.Infof("Synced %d documents (%d bytes, %d failed) from %s", len(result.Paths), result.Bytes, result.Failed, s.remote.Name())
	return result, nil
}

// load fetches one document into the cache and the mirror. loaded is false if a
// writer holds the lock of path.
func (s *Syncer) load(ctx context.Context, path string, started time.Time) (loaded bool, size int64, err error) {
	if s.locks != nil {
		ok, owner, err := s.locks.TryAcquireLock(path)
		if err != nil {
			return false, 0, err
		}
		if !ok {
			Logger.Debugf("Skipping %s, it is being written", path)
			return false, 0, nil
		}
		defer func() { _, _ = s.locks.ReleaseLock(path, owner) }()
	}

	doc, token, err := s.remote.Fetch(ctx, path)
	if err != nil {
		return false, 0, err
	}
	size = int64(len(doc))

	if _, stored := s.cache.PutIfStale(path, cache.Entry{Doc: doc, Token: token, CachedAt: s.now()}, started); !stored {
		Logger.Debugf("Keeping cached %s, it changed during the sync", path)
		return true, size, nil
	}
	if s.mirror != nil {
		if err := s.mirror.Save(path, doc); err != nil {
			Logger.Warningf("Failed to mirror %s: %v", path, err)
		}
	}
	return true, size, nil
}

// createStructure writes a placeholder into every namespace directory and backups/
func (s *Syncer) createStructure(ctx context.Context) {
	placeholder, err := remote.NewDocument(map[string]string{"created": s.now().UTC().Format(time.RFC3339)})
	if err != nil {
		Logger.Errorf("Failed to encode placeholder: %v", err)
		return
	}

	for _, dir := range keymap.Namespaces() {
		p := dir + "/" + Placeholder
		if _, err := s.remote.Put(remote.WithMessage(ctx, "Initialize "+dir), p, placeholder, ""); err != nil {
			if remote.IsConflict(err) {
				continue
			}
			Logger.Warningf("Failed to create %s: %v", p, err)
			continue
		}
		Logger.Debugf("Created %s", p)
	}
}
