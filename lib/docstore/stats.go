package docstore

import (
	"context"
	"github.com/ValentinKolb/dDocs/lib/cache"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/metadata"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"time"
)

// Stats is a summary of the store
type Stats struct {
	State                string                       `json:"state"`
	Remote               string                       `json:"remote"`
	Version              string                       `json:"version"`
	TotalFiles           int                          `json:"totalFiles"`
	TotalSize            int64                        `json:"totalSize"`
	CacheSize            int                          `json:"cacheSize"`
	CommandFilesMapped   int                          `json:"commandFilesMapped"`
	Uptime               time.Duration                `json:"uptime"`
	LastStartup          time.Time                    `json:"lastStartup"`
	LastSync             time.Time                    `json:"lastSync"`
	LastCleanup          time.Time                    `json:"lastCleanup"`
	AutoBackup           bool                         `json:"autoBackup"`
	SeparateCommandFiles bool                         `json:"separateCommandFiles"`
	Reads                uint64                       `json:"reads"`
	Writes               uint64                       `json:"writes"`
	WriteFailures        uint64                       `json:"writeFailures"`
	Conflicts            uint64                       `json:"conflicts"`
	Deletes              uint64                       `json:"deletes"`
	Cache                cache.Stats                  `json:"cache"`
	Sizes                metadata.SizeStats           `json:"sizes"`
	RemoteTimers         map[string]remote.TimerStats `json:"remoteTimers"`
}

// GetStats initializes the store if needed and returns its current stats.
// If initialization failed only State and Remote are set.
func (s *Store) GetStats(ctx context.Context) Stats {
	stats := Stats{
		Remote:             s.remote.Name(),
		CommandFilesMapped: len(keymap.Table()),
	}
	if err := s.ensureInit(ctx); err != nil {
		stats.State = s.State().String()
		return stats
	}
	stats.State = s.State().String()

	cfg := s.Config()
	meta := s.meta.Snapshot()

	stats.Version = cfg.Version
	stats.TotalFiles = meta.TotalFiles
	stats.TotalSize = meta.TotalSize
	stats.CacheSize = s.cache.Len()
	stats.Uptime = s.now().Sub(cfg.LastStartup)
	stats.LastStartup = cfg.LastStartup
	stats.LastSync = meta.LastSync
	stats.LastCleanup = meta.LastCleanup
	stats.AutoBackup = cfg.AutoBackup
	stats.SeparateCommandFiles = cfg.SeparateCommandFiles
	stats.Reads = s.reads.Get()
	stats.Writes = s.writes.Get()
	stats.WriteFailures = s.writeFailures.Get()
	stats.Conflicts = s.conflicts.Get()
	stats.Deletes = s.deletes.Get()
	stats.Cache = s.cache.Stats()
	stats.Sizes = s.meta.Stats()
	stats.RemoteTimers = remote.ReadTimers(s.opts.Timers)
	return stats
}
