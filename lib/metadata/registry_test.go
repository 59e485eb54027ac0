package metadata

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const file = "/data/.metadata.json"

func checkInvariant(t *testing.T, r *Registry) {
	t.Helper()
	meta := r.Snapshot()
	var sum int64
	for _, info := range meta.Files {
		sum += info.Size
	}
	if meta.TotalSize != sum {
		t.Fatalf("totalSize %d != sum of sizes %d", meta.TotalSize, sum)
	}
	if meta.TotalFiles != len(meta.Files) {
		t.Fatalf("totalFiles %d != number of files %d", meta.TotalFiles, len(meta.Files))
	}
}

func TestRecordWriteAndDelete(t *testing.T) {
	r, err := Load(afero.NewMemMapFs(), file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	modified := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	r.WithClock(func() time.Time { return modified })

	r.RecordWrite("data/a.json", 10)
	r.RecordWrite("data/b.json", 5)
	r.RecordWrite("data/a.json", 3)

	meta := r.Snapshot()
	if meta.TotalFiles != 2 || meta.TotalSize != 8 {
		t.Errorf("expected 2 files with 8 bytes, got %d files with %d bytes", meta.TotalFiles, meta.TotalSize)
	}
	if info, ok := r.Info("data/a.json"); !ok || info.Size != 3 || !info.LastModified.Equal(modified) {
		t.Errorf("unexpected info %+v (ok=%v)", info, ok)
	}

	r.RecordDelete("data/a.json")
	r.RecordDelete("data/unknown.json")
	meta = r.Snapshot()
	if meta.TotalFiles != 1 || meta.TotalSize != 5 {
		t.Errorf("unexpected metadata after delete: %+v", meta)
	}
	if _, ok := r.Info("data/a.json"); ok {
		t.Errorf("deleted path still recorded")
	}
}

func TestInvariantUnderRandomOperations(t *testing.T) {
	r, _ := Load(afero.NewMemMapFs(), file)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		path := fmt.Sprintf("data/%d.json", rng.Intn(20))
		if rng.Intn(3) == 0 {
			r.RecordDelete(path)
		} else {
			r.RecordWrite(path, int64(rng.Intn(10000)))
		}
		checkInvariant(t, r)
	}
}

func TestPersistedAndReloaded(t *testing.T) {
	fsys := afero.NewMemMapFs()
	r, _ := Load(fsys, file)

	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.RecordWrite("data/economy/user_balances.json", 120)
	r.RecordWrite("data/features/polls.json", 30)
	r.MarkSync(synced)

	// every mutation is written through
	data, err := afero.ReadFile(fsys, file)
	if err != nil {
		t.Fatalf("metadata file not written: %v", err)
	}
	var onDisk Metadata
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("metadata file is not valid json: %v", err)
	}
	if onDisk.TotalFiles != 2 || onDisk.TotalSize != 150 {
		t.Errorf("unexpected persisted totals %d/%d", onDisk.TotalFiles, onDisk.TotalSize)
	}

	reloaded, err := Load(fsys, file)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	meta := reloaded.Snapshot()
	if meta.TotalSize != 150 || !meta.LastSync.Equal(synced) {
		t.Errorf("unexpected reloaded metadata %+v", meta)
	}
	if got := reloaded.Paths(); len(got) != 2 || got[0] != "data/economy/user_balances.json" {
		t.Errorf("unexpected paths %v", got)
	}
}

func TestCorruptFileStartsFresh(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, file, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(fsys, file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if meta := r.Snapshot(); meta.TotalFiles != 0 {
		t.Errorf("expected fresh metadata, got %+v", meta)
	}
}

func TestStats(t *testing.T) {
	r, _ := Load(afero.NewMemMapFs(), file)
	r.RecordWrite("data/small.json", 2)
	r.RecordWrite("data/large.json", 5000)

	stats := r.Stats()
	if stats.Largest != "data/large.json" || stats.LargestSize != 5000 {
		t.Errorf("unexpected largest %s (%d)", stats.Largest, stats.LargestSize)
	}
	if stats.MeanSize != 2501 {
		t.Errorf("unexpected mean %f", stats.MeanSize)
	}
	if len(stats.BucketPercent) != len(stats.BucketBounds)+1 {
		t.Errorf("unexpected distribution shape")
	}
}
