package docstore

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/ValentinKolb/dDocs/lib/remote/mstore"
	"github.com/spf13/afero"
)

// gatedRemote pauses the next fetch of path after it read the remote, until release is closed
type gatedRemote struct {
	remote.IRemoteStore
	path    string
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func newGatedRemote(path string) *gatedRemote {
	return &gatedRemote{
		IRemoteStore: mstore.NewMemoryStore(),
		path:         path,
		reached:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedRemote) Fetch(ctx context.Context, p string) (remote.Document, remote.VersionToken, error) {
	doc, token, err := g.IRemoteStore.Fetch(ctx, p)
	if p == g.path && g.armed.CompareAndSwap(true, false) {
		close(g.reached)
		<-g.release
	}
	return doc, token, err
}

// vacuumInBackground starts a vacuum and waits until it holds the old version of the gated path
func vacuumInBackground(t *testing.T, s *Store, g *gatedRemote) <-chan error {
	t.Helper()
	g.armed.Store(true)
	done := make(chan error, 1)
	go func() { done <- s.Vacuum(context.Background()) }()
	<-g.reached
	return done
}

func TestResyncDoesNotOverwriteConcurrentWrite(t *testing.T) {
	for _, serialize := range []bool{true, false} {
		name := "Serialized"
		if !serialize {
			name = "Unserialized"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			g := newGatedRemote("data/features/polls.json")
			s, _ := newTestStore(t, g, func(c *Config) { c.SerializeWrites = serialize })

			if err := s.Write(ctx, "poll", map[string]int{"v": 1}); err != nil {
				t.Fatal(err)
			}

			vacuumDone := vacuumInBackground(t, s, g)
			writeDone := make(chan error, 1)
			go func() { writeDone <- s.Write(ctx, "poll", map[string]int{"v": 2}) }()
			if !serialize {
				// without serialization the write lands while the old version is in flight
				if err := <-writeDone; err != nil {
					t.Fatalf("Write during resync failed: %v", err)
				}
			}

			close(g.release)
			if err := <-vacuumDone; err != nil {
				t.Fatalf("Vacuum failed: %v", err)
			}
			if serialize {
				if err := <-writeDone; err != nil {
					t.Fatalf("Write during resync failed: %v", err)
				}
			}

			if got := s.Read(ctx, "poll"); string(got) != `{"v":2}` {
				t.Errorf("read after resync returned %s", got)
			}
			if err := s.Write(ctx, "poll", map[string]int{"v": 3}); err != nil {
				t.Errorf("next write failed: %v", err)
			}
		})
	}
}

func TestVacuumKeepsDocumentsWrittenDuringSync(t *testing.T) {
	ctx := context.Background()
	g := newGatedRemote("data/features/polls.json")
	s, fs := newTestStore(t, g, nil)

	if err := s.Write(ctx, "poll", map[string]int{"v": 1}); err != nil {
		t.Fatal(err)
	}

	done := vacuumInBackground(t, s, g)
	// not part of the listing the vacuum is working with
	if err := s.Write(ctx, "remindme", map[string]string{"r": "soon"}); err != nil {
		t.Fatalf("Write during vacuum failed: %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}

	if stats := s.GetStats(ctx); stats.TotalFiles != 2 {
		t.Errorf("expected 2 files in metadata, got %d", stats.TotalFiles)
	}
	if ok, _ := afero.Exists(fs, "/ddocs/data/features/reminders.json"); !ok {
		t.Errorf("mirror of document written during the vacuum removed")
	}
	if got := s.Read(ctx, "remindme"); string(got) != `{"r":"soon"}` {
		t.Errorf("unexpected document %s", got)
	}
}

func TestVacuumKeepsDocumentsOutsideDataTree(t *testing.T) {
	ctx := context.Background()
	s, fs := newTestStore(t, mstore.NewMemoryStore(), nil)

	// namespaced keys are physical paths, this one is not below data/
	if err := s.Write(ctx, "archive/2023.json", map[string]int{"y": 2023}); err != nil {
		t.Fatal(err)
	}
	if err := s.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}

	if stats := s.GetStats(ctx); stats.TotalFiles != 1 {
		t.Errorf("expected document outside the data tree to stay in metadata, got %d files", stats.TotalFiles)
	}
	if ok, _ := afero.Exists(fs, "/ddocs/archive/2023.json"); !ok {
		t.Errorf("mirror of document outside the data tree removed")
	}
	if got := s.Read(ctx, "archive/2023.json"); string(got) != `{"y":2023}` {
		t.Errorf("unexpected document %s", got)
	}
}

func TestResyncLoadsPlainKeys(t *testing.T) {
	ctx := context.Background()
	r := mstore.NewMemoryStore()
	s, _ := newTestStore(t, r, nil)

	if err := s.Write(ctx, "custom", map[string]int{"v": 1}); err != nil {
		t.Fatal(err)
	}
	_, token, err := r.Fetch(ctx, "data/custom")
	if err != nil {
		t.Fatalf("expected plain key at data/custom: %v", err)
	}
	if _, err := r.Put(ctx, "data/custom", remote.Document(`{"v":2}`), token); err != nil {
		t.Fatal(err)
	}

	if err := s.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}
	if got := s.Read(ctx, "custom"); string(got) != `{"v":2}` {
		t.Errorf("remote change of a plain key not resynced, got %s", got)
	}
	if stats := s.GetStats(ctx); stats.TotalFiles != 1 {
		t.Errorf("plain key dropped from metadata, got %d files", stats.TotalFiles)
	}
}

func TestMirrorDisabledWithoutPersistCache(t *testing.T) {
	ctx := context.Background()
	s, fs := newTestStore(t, mstore.NewMemoryStore(), func(c *Config) { c.PersistCache = false })

	if err := s.Write(ctx, "poll", map[string]int{"v": 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}
	if ok, _ := afero.Exists(fs, "/ddocs/data/features/polls.json"); ok {
		t.Errorf("document mirrored although persistCache is off")
	}
	if err := s.Delete(ctx, "poll"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
}
