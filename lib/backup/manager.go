package backup

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/keymap"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

var Logger = logger.GetLogger("backup")

const (
	// DefaultRetention is the number of backups kept per document when none is configured
	DefaultRetention = 10

	suffix          = ".bak"
	timestampLayout = "2006-01-02T15-04-05"
	timestampLength = len(timestampLayout) + len("-000Z")
)

// Record describes one stored backup
type Record struct {
	Name   string              `json:"name"`   // file name below backups/
	Path   string              `json:"path"`   // full physical path of the backup
	Source string              `json:"source"` // base name of the backed up document
	Time   time.Time           `json:"time"`
	Token  remote.VersionToken `json:"-"`
	Size   int64               `json:"size"`
}

// Manager creates and rotates backups of documents in the backups/ directory of the remote
type Manager struct {
	remote    remote.IRemoteStore
	retention int
	now       func() time.Time

	created *metrics.Counter
	pruned  *metrics.Counter
}

// NewManager creates a backup manager keeping retention backups per document.
// Counters are registered in set, a nil set registers them in a private one.
func NewManager(r remote.IRemoteStore, retention int, set *metrics.Set) *Manager {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if set == nil {
		set = metrics.NewSet()
	}
	return &Manager{
		remote:    r,
		retention: retention,
		now:       time.Now,
		created:   set.GetOrCreateCounter("ddocs_backups_created_total"),
		pruned:    set.GetOrCreateCounter("ddocs_backups_pruned_total"),
	}
}

// WithClock replaces the time source used for backup names
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Retention returns the number of backups kept per document
func (m *Manager) Retention() int {
	return m.retention
}

// --------------------------------------------------------------------------
// Naming
// --------------------------------------------------------------------------

// formatTimestamp renders t like 2024-05-01T12-30-00-123Z
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%03dZ", t.Format(timestampLayout), t.Nanosecond()/int(time.Millisecond))
}

func parseTimestamp(s string) (time.Time, bool) {
	n := len(timestampLayout)
	if len(s) != timestampLength || s[n] != '-' || !strings.HasSuffix(s, "Z") {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(timestampLayout, s[:n], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	millis, err := strconv.Atoi(s[n+1 : n+4])
	if err != nil || millis < 0 {
		return time.Time{}, false
	}
	return t.Add(time.Duration(millis) * time.Millisecond), true
}

// Name returns the physical path of the backup of p taken at t
func Name(p string, t time.Time) string {
	return keymap.BackupRoot + "/" + path.Base(p) + "." + formatTimestamp(t) + suffix
}

// parseName extracts the timestamp of a backup file name belonging to base
func parseName(name, base string) (time.Time, bool) {
	prefix := base + "."
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, false
	}
	return parseTimestamp(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix))
}

// Belongs reports whether the backup file name (or full path) is a backup of p
func Belongs(name, p string) bool {
	_, ok := parseName(path.Base(name), path.Base(p))
	return ok
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// SnapshotIfExists copies the current remote content of p into a new backup and prunes
// old backups of p. Nothing happens if p does not exist. Failures are logged and swallowed,
// the returned name is empty if no backup was created.
func (m *Manager) SnapshotIfExists(ctx context.Context, p string) string {
	doc, _, err := m.remote.Fetch(ctx, p)
	if err != nil {
		if !remote.IsNotFound(err) {
			Logger.Warningf("Skipping backup of %s: %v", p, err)
		}
		return ""
	}

	name := Name(p, m.now())
	if _, err := m.remote.Put(remote.WithMessage(ctx, "Backup "+p), name, doc, ""); err != nil {
		Logger.Warningf("Failed to create backup %s: %v", name, err)
		return ""
	}
	m.created.Inc()
	Logger.Debugf("Created backup %s", name)

	m.Prune(ctx, p)
	return name
}

// List returns all backups of p, newest first
func (m *Manager) List(ctx context.Context, p string) ([]Record, error) {
	entries, err := m.remote.List(ctx, keymap.BackupRoot)
	if err != nil {
		if remote.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	base := path.Base(p)
	var records []Record
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		ts, ok := parseName(e.Name, base)
		if !ok {
			continue
		}
		records = append(records, Record{
			Name:   e.Name,
			Path:   keymap.BackupRoot + "/" + e.Name,
			Source: base,
			Time:   ts,
			Token:  e.Token,
			Size:   e.Size,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Time.Equal(records[j].Time) {
			return records[i].Name > records[j].Name
		}
		return records[i].Time.After(records[j].Time)
	})
	return records, nil
}

// Prune deletes all but the newest retention backups of p and returns the number deleted.
// Failures are logged and swallowed.
func (m *Manager) Prune(ctx context.Context, p string) int {
	records, err := m.List(ctx, p)
	if err != nil {
		Logger.Warningf("Failed to list backups of %s: %v", p, err)
		return 0
	}
	if len(records) <= m.retention {
		return 0
	}

	deleted := 0
	for _, r := range records[m.retention:] {
		if err := m.remote.Remove(remote.WithMessage(ctx, "Prune backup "+r.Name), r.Path, r.Token); err != nil && !remote.IsNotFound(err) {
			Logger.Warningf("Failed to delete backup %s: %v", r.Name, err)
			continue
		}
		deleted++
	}
	m.pruned.Add(deleted)
	if deleted > 0 {
		Logger.Debugf("Pruned %d backups of %s", deleted, p)
	}
	return deleted
}

// Load returns the content of the backup with the given file name (or full path)
func (m *Manager) Load(ctx context.Context, name string) (remote.Document, error) {
	if !strings.HasPrefix(name, keymap.BackupRoot+"/") {
		name = keymap.BackupRoot + "/" + name
	}
	doc, _, err := m.remote.Fetch(ctx, name)
	return doc, err
}
