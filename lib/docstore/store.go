package docstore

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/backup"
	"github.com/ValentinKolb/dDocs/lib/cache"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/lockmgr"
	"github.com/ValentinKolb/dDocs/lib/metadata"
	"github.com/ValentinKolb/dDocs/lib/migrate"
	"github.com/ValentinKolb/dDocs/lib/mirror"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/ValentinKolb/dDocs/lib/syncer"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("docstore")

// ErrShutdown is returned by all operations after Shutdown
var ErrShutdown = errors.New("document store is shut down")

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Write options
// --------------------------------------------------------------------------

type writeOptions struct {
	skipBackup bool
}

// WriteOption changes the behavior of a single Write
type WriteOption func(*writeOptions)

// WithSkipBackup writes without backing up the current version first
func WithSkipBackup() WriteOption {
	return func(o *writeOptions) {
		o.skipBackup = true
	}
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store is the document store all consumers use. It must be created with New and
// is initialized lazily on the first operation (or explicitly with Init).
type Store struct {
	remote remote.IRemoteStore
	opts   Options
	now    func() time.Time
	set    *metrics.Set

	initMu  sync.Mutex
	state   atomic.Int32
	initErr error

	// set during Init, read only afterwards
	cfgMu   sync.Mutex
	config  Config
	cache   *cache.Cache
	backups *backup.Manager
	syncer  *syncer.Syncer
	mirror  *mirror.Mirror
	meta    *metadata.Registry
	locks   lockmgr.ILockManager

	reads         *metrics.Counter
	writes        *metrics.Counter
	writeFailures *metrics.Counter
	conflicts     *metrics.Counter
	deletes       *metrics.Counter

	cancelTasks context.CancelFunc
	tasks       sync.WaitGroup
}

// New creates a document store persisting to r. Every remote call is timed in opts.Timers.
func New(r remote.IRemoteStore, opts Options) *Store {
	opts = opts.withDefaults()
	set := metrics.NewSet()

	return &Store{
		remote:        remote.Instrument(r, opts.Timers),
		opts:          opts,
		now:           opts.Clock,
		set:           set,
		reads:         set.GetOrCreateCounter("ddocs_reads_total"),
		writes:        set.GetOrCreateCounter("ddocs_writes_total"),
		writeFailures: set.GetOrCreateCounter("ddocs_write_failures_total"),
		conflicts:     set.GetOrCreateCounter("ddocs_conflicts_total"),
		deletes:       set.GetOrCreateCounter("ddocs_deletes_total"),
	}
}

// State returns the current lifecycle state
func (s *Store) State() State {
	return State(s.state.Load())
}

// Metrics returns the counters of this store
func (s *Store) Metrics() *metrics.Set {
	return s.set
}

// Config returns a copy of the loaded configuration
func (s *Store) Config() Config {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.config
}

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// Init connects to the remote, loads config and metadata, syncs the data tree and
// migrates legacy documents. It runs once: concurrent callers block until the first
// one is done and all later calls return its result.
func (s *Store) Init(ctx context.Context) error {
	switch s.State() {
	case StateReady:
		return nil
	case StateShutdown:
		return ErrShutdown
	}

	s.initMu.Lock()
	defer s.initMu.Unlock()

	switch s.State() {
	case StateReady:
		return nil
	case StateFailed:
		return s.initErr
	case StateShutdown:
		return ErrShutdown
	}

	s.state.Store(int32(StateInitializing))
	if err := s.initialize(ctx); err != nil {
		// only a configuration problem is permanent, anything else is retried by the next call
		if !remote.IsConfig(err) {
			Logger.Warningf("Initialization failed, retrying on next use: %v", err)
			s.state.Store(int32(StateUninitialized))
			return err
		}
		Logger.Errorf("Initialization failed: %v", err)
		s.initErr = err
		s.state.Store(int32(StateFailed))
		return err
	}
	s.state.Store(int32(StateReady))
	return nil
}

func (s *Store) initialize(ctx context.Context) error {
	start := s.now()
	Logger.Infof("Initializing document store on %s", s.remote.Name())

	if err := s.remote.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", s.remote.Name(), err)
	}

	cfg, err := loadOrCreateConfig(s.opts.Fs, s.opts.ConfigFile, *s.opts.Defaults, start)
	if err != nil {
		return &remote.Error{Code: remote.RetCConfigError, Path: s.opts.ConfigFile, Msg: "failed to read config", Err: err}
	}
	s.cfgMu.Lock()
	s.config = cfg
	s.cfgMu.Unlock()

	meta, err := metadata.Load(s.opts.Fs, s.opts.metadataPath())
	if err != nil {
		Logger.Warningf("Failed to load metadata, starting fresh: %v", err)
		meta = metadata.New(s.opts.Fs, s.opts.metadataPath())
	}
	s.meta = meta.WithClock(s.now)

	s.cache = cache.New(cfg.MaxCacheSize, s.set)
	s.mirror = nil
	if cfg.PersistCache {
		s.mirror = mirror.New(s.opts.Fs, s.opts.DataDir)
	}
	s.locks = lockmgr.NewLockManager()
	s.backups = backup.NewManager(s.remote, cfg.MaxBackups, s.set).WithClock(s.now)
	s.syncer = syncer.New(s.remote, s.cache, s.mirror).WithClock(s.now).WithLocks(s.locks)

	// the remote is authoritative, a failed sync only means a cold cache
	if result, err := s.syncer.Bootstrap(ctx); err != nil {
		Logger.Warningf("Initial sync failed: %v", err)
	} else if !result.FirstRun {
		s.meta.MarkSync(s.now())
	}

	if report, err := migrate.Run(ctx, migrationTarget{s}); err != nil {
		Logger.Warningf("Legacy migration failed: %v", err)
	} else if len(report.LegacyFound) > 0 {
		Logger.Infof("Legacy migration: %s", report)
	}

	s.startTasks()

	Logger.Infof("Document store ready (cache %d, backups %d, auto backup %v, compression %v, local mirror %v)",
		s.cache.Capacity(), s.backups.Retention(), cfg.AutoBackup, cfg.Compression, s.mirror != nil)
	return nil
}

// ensureInit initializes the store if needed
func (s *Store) ensureInit(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}
	return s.Init(ctx)
}

// migrationTarget gives the migration access to the internal read and write paths.
// It must not use the public operations because they wait for Init.
type migrationTarget struct {
	s *Store
}

func (t migrationTarget) ReadPath(ctx context.Context, path string) (remote.Document, bool, error) {
	return t.s.readPath(ctx, path)
}

func (t migrationTarget) WritePath(ctx context.Context, path string, doc remote.Document) error {
	return t.s.writePath(ctx, path, doc, true)
}

// --------------------------------------------------------------------------
// Internal operations on physical paths
// --------------------------------------------------------------------------

// readPath returns the document at path from the cache or the remote.
// A missing document is reported as exists=false and is not cached.
func (s *Store) readPath(ctx context.Context, path string) (remote.Document, bool, error) {
	if entry, ok := s.cache.Get(path); ok {
		return entry.Doc, true, nil
	}

	started := s.now()
	doc, token, err := s.remote.Fetch(ctx, path)
	if remote.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	// a write that finished while fetching wins over the fetched version
	current, stored := s.cache.PutIfStale(path, cache.Entry{Doc: doc, Token: token, CachedAt: s.now()}, started)
	if stored {
		s.mirrorSave(path, doc)
	}
	return current.Doc, true, nil
}

// writePath backs up the current version (unless skipBackup), puts doc with the cached
// token and updates cache, mirror and metadata. A conflict drops the cached entry so
// the next read sees the remote version.
func (s *Store) writePath(ctx context.Context, path string, doc remote.Document, skipBackup bool) error {
	cfg := s.Config()

	if cfg.AutoBackup && !skipBackup {
		s.backups.SnapshotIfExists(ctx, path)
	}

	token, _ := s.cache.Token(path)
	upload := doc.Compact()
	if !cfg.Compression {
		upload = doc.Indent()
	}

	newToken, err := s.remote.Put(ctx, path, upload, token)
	if err != nil {
		s.writeFailures.Inc()
		if remote.IsConflict(err) {
			s.conflicts.Inc()
			s.cache.Invalidate(path)
			Logger.Warningf("Conflict writing %s, document changed remotely", path)
		} else {
			Logger.Errorf("Failed to write %s: %v", path, err)
		}
		return err
	}

	s.writes.Inc()
	s.cache.Put(path, cache.Entry{Doc: doc.Compact(), Token: newToken, CachedAt: s.now()})
	s.mirrorSave(path, doc)
	s.meta.RecordWrite(path, int64(len(upload)))
	Logger.Debugf("Wrote %s (%d bytes)", path, len(upload))
	return nil
}

// deletePath removes path from the remote. An already missing document counts as deleted.
func (s *Store) deletePath(ctx context.Context, path string) error {
	token, ok := s.cache.Token(path)
	if !ok {
		var err error
		_, token, err = s.remote.Fetch(ctx, path)
		if remote.IsNotFound(err) {
			s.forget(path)
			return nil
		}
		if err != nil {
			return err
		}
	}

	err := s.remote.Remove(ctx, path, token)
	switch {
	case remote.IsNotFound(err):
		Logger.Debugf("%s was already deleted", path)
	case remote.IsConflict(err):
		s.conflicts.Inc()
		s.cache.Invalidate(path)
		return err
	case err != nil:
		Logger.Errorf("Failed to delete %s: %v", path, err)
		return err
	}

	s.deletes.Inc()
	s.forget(path)
	return nil
}

// forget drops every local trace of path
func (s *Store) forget(path string) {
	s.cache.Invalidate(path)
	s.meta.RecordDelete(path)
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Remove(path); err != nil {
		Logger.Warningf("Failed to remove mirror of %s: %v", path, err)
	}
}

// mirrorSave writes the local copy of path if the mirror is enabled
func (s *Store) mirrorSave(path string, doc remote.Document) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Save(path, doc); err != nil {
		Logger.Warningf("Failed to mirror %s: %v", path, err)
	}
}

// serialized runs fn while holding the write lock of path if writes are serialized
func (s *Store) serialized(ctx context.Context, path string, fn func() error) error {
	if !s.Config().SerializeWrites {
		return fn()
	}
	return lockmgr.WithLock(ctx, s.locks, path, fn)
}

// --------------------------------------------------------------------------
// Public operations
// --------------------------------------------------------------------------

// Read returns the document of key. It never fails: missing documents and all errors
// (which are logged) yield remote.Empty. The returned document may be modified by the caller.
func (s *Store) Read(ctx context.Context, key string) remote.Document {
	if err := s.ensureInit(ctx); err != nil {
		Logger.Errorf("Read of %s failed: %v", key, err)
		return remote.Empty.Clone()
	}
	s.reads.Inc()

	path := keymap.Resolve(key)
	doc, exists, err := s.readPath(ctx, path)
	if err != nil {
		Logger.Errorf("Failed to read %s: %v", path, err)
		return remote.Empty.Clone()
	}
	if !exists {
		return remote.Empty.Clone()
	}
	return doc.Clone()
}

// Write stores v (any JSON encodable value or raw JSON) under key.
// The current version is backed up first unless auto backup is disabled or WithSkipBackup is given.
// Returns nil on success, a remote.Error with RetCConflict if the document changed remotely since
// it was last read and RetCInvalidDocument if v cannot be stored.
func (s *Store) Write(ctx context.Context, key string, v any, opts ...WriteOption) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}

	var wo writeOptions
	for _, opt := range opts {
		opt(&wo)
	}

	path := keymap.Resolve(key)
	doc, err := remote.NewDocument(v)
	if err != nil {
		s.writeFailures.Inc()
		return err
	}
	if limit := s.Config().MaxFileSize; int64(doc.Size()) > limit {
		s.writeFailures.Inc()
		return remote.NewError(remote.RetCInvalidDocument, path, fmt.Sprintf("document has %d bytes, limit is %d", doc.Size(), limit))
	}

	return s.serialized(ctx, path, func() error {
		return s.writePath(ctx, path, doc, wo.skipBackup)
	})
}

// Delete removes the document of key. Deleting a missing document succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.ensureInit(ctx); err != nil {
		return err
	}
	path := keymap.Resolve(key)
	return s.serialized(ctx, path, func() error {
		return s.deletePath(ctx, path)
	})
}

// ClearCache drops the cached entry of key or, if key is empty, the whole cache
func (s *Store) ClearCache(key string) {
	if s.State() != StateReady {
		return
	}
	if key == "" {
		s.cache.Clear()
		Logger.Infof("Cleared cache")
		return
	}
	path := keymap.Resolve(key)
	s.cache.Invalidate(path)
	Logger.Infof("Cleared cache of %s", path)
}

// Shutdown stops the background tasks and persists metadata and config.
// All later operations fail with ErrShutdown.
func (s *Store) Shutdown(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	previous := State(s.state.Swap(int32(StateShutdown)))
	if previous != StateReady {
		return nil
	}

	if err := s.stopTasks(ctx); err != nil {
		Logger.Warningf("Background tasks did not stop: %v", err)
	}

	s.meta.Save()
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	if err := saveConfig(s.opts.Fs, s.opts.ConfigFile, s.config); err != nil {
		Logger.Errorf("Failed to save config: %v", err)
		return err
	}
	Logger.Infof("Document store shut down")
	return nil
}
