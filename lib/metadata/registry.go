package metadata

import (
	"encoding/json"
	"errors"
	"github.com/ValentinKolb/dDocs/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

var Logger = logger.GetLogger("metadata")

// FileInfo is the recorded state of one physical path
type FileInfo struct {
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// Metadata is the persisted aggregate of all known documents.
// TotalSize is the sum of all file sizes and TotalFiles the number of files.
type Metadata struct {
	TotalFiles  int                 `json:"totalFiles"`
	TotalSize   int64               `json:"totalSize"`
	LastSync    time.Time           `json:"lastSync"`
	LastCleanup time.Time           `json:"lastCleanup"`
	Files       map[string]FileInfo `json:"files"`
}

// SizeStats describes the size distribution of all recorded documents
type SizeStats struct {
	Largest       string    `json:"largest,omitempty"`
	LargestSize   int64     `json:"largestSize"`
	MeanSize      float64   `json:"meanSize"`
	MedianSize    int       `json:"medianEstimate"`
	P95Size       int       `json:"p95Estimate"`
	StdDeviation  float64   `json:"stdDeviation"`
	BucketBounds  []int     `json:"bucketBounds"`
	BucketPercent []float64 `json:"bucketPercent"`
}

// Registry keeps Metadata in memory and rewrites its file on every mutation.
// Persist errors are logged and never returned to the mutating caller.
type Registry struct {
	mu   sync.Mutex
	fs   afero.Fs
	file string
	meta Metadata
	now  func() time.Time
}

func empty() Metadata {
	return Metadata{Files: make(map[string]FileInfo)}
}

// New creates an empty registry persisted to file
func New(fsys afero.Fs, file string) *Registry {
	return &Registry{
		fs:   fsys,
		file: file,
		meta: empty(),
		now:  time.Now,
	}
}

// WithClock replaces the time source used for LastModified
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Load reads the metadata file. A missing or corrupt file starts a fresh registry,
// an error is only returned if the file exists but cannot be read.
func Load(fsys afero.Fs, file string) (*Registry, error) {
	r := New(fsys, file)

	data, err := afero.ReadFile(fsys, file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		Logger.Infof("No metadata at %s, starting fresh", file)
		return r, nil
	case err != nil:
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		Logger.Warningf("Metadata file %s is corrupt, starting fresh: %v", file, err)
		return r, nil
	}
	if meta.Files == nil {
		meta.Files = make(map[string]FileInfo)
	}

	// totals are derived from the per path entries
	meta.TotalFiles = len(meta.Files)
	meta.TotalSize = 0
	for _, info := range meta.Files {
		meta.TotalSize += info.Size
	}
	r.meta = meta
	return r, nil
}

// persist writes the current state, the caller must hold the lock
func (r *Registry) persist() {
	data, err := json.MarshalIndent(r.meta, "", "  ")
	if err != nil {
		Logger.Errorf("Failed to encode metadata: %v", err)
		return
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.file), 0o755); err != nil {
		Logger.Errorf("Failed to create metadata directory: %v", err)
		return
	}
	if err := afero.WriteFile(r.fs, r.file, data, 0o644); err != nil {
		Logger.Errorf("Failed to write metadata %s: %v", r.file, err)
	}
}

// RecordWrite sets the size of path, replacing the previously recorded size
func (r *Registry) RecordWrite(path string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.meta.Files[path]; ok {
		r.meta.TotalSize -= prev.Size
	} else {
		r.meta.TotalFiles++
	}
	r.meta.TotalSize += size
	r.meta.Files[path] = FileInfo{Size: size, LastModified: r.now()}
	r.persist()
}

// RecordDelete removes path, unknown paths are ignored
func (r *Registry) RecordDelete(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.meta.Files[path]
	if !ok {
		return
	}
	r.meta.TotalFiles--
	r.meta.TotalSize -= prev.Size
	delete(r.meta.Files, path)
	r.persist()
}

// MarkSync stores the time of the last completed sync
func (r *Registry) MarkSync(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta.LastSync = t
	r.persist()
}

// MarkCleanup stores the time of the last vacuum
func (r *Registry) MarkCleanup(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta.LastCleanup = t
	r.persist()
}

// Info returns the recorded size and modification time of path
func (r *Registry) Info(path string) (FileInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.meta.Files[path]
	return info, ok
}

// Paths returns all recorded paths in sorted order
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths := make([]string, 0, len(r.meta.Files))
	for p := range r.meta.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Snapshot returns a deep copy of the current metadata
func (r *Registry) Snapshot() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := r.meta
	cp.Files = make(map[string]FileInfo, len(r.meta.Files))
	for k, v := range r.meta.Files {
		cp.Files[k] = v
	}
	return cp
}

// Stats computes the size distribution of all recorded documents
func (r *Registry) Stats() SizeStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	hist := util.NewSizeHistogram()
	sizes := make([]float64, 0, len(r.meta.Files))
	var stats SizeStats
	for p, info := range r.meta.Files {
		hist.AddSample(int(info.Size))
		sizes = append(sizes, float64(info.Size))
		if info.Size > stats.LargestSize || (info.Size == stats.LargestSize && p < stats.Largest) {
			stats.Largest = p
			stats.LargestSize = info.Size
		}
	}

	summary := util.NewStats(sizes)
	stats.MeanSize = summary.Mean
	stats.StdDeviation = summary.StdDeviation
	stats.MedianSize = hist.MedianEstimate()
	stats.P95Size = hist.PercentileEstimate(95)
	stats.BucketBounds, stats.BucketPercent = hist.Distribution()
	return stats
}

// Save rewrites the metadata file
func (r *Registry) Save() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persist()
}
