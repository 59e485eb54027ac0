package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ValentinKolb/dDocs/lib/backup"
	"github.com/ValentinKolb/dDocs/lib/docstore"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/ValentinKolb/dDocs/lib/remote/mstore"
	"github.com/spf13/afero"
)

func newTestServer(t *testing.T) (*httptest.Server, *docstore.Store, *mstore.Store) {
	t.Helper()
	r := mstore.NewMemoryStore()
	s := docstore.New(r, docstore.Options{
		Fs:         afero.NewMemMapFs(),
		ConfigFile: "/db.config.json",
		DataDir:    "/ddocs",
	})
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	srv := httptest.NewServer(NewServer(s, ServerConfig{LogLevel: "debug"}).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = s.Shutdown(context.Background())
	})
	return srv, s, r
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, string(data)
}

func TestDocumentRoutes(t *testing.T) {
	srv, _, r := newTestServer(t)

	t.Run("ReadMissing", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, srv.URL+"/docs/balance", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		if body != "{}" {
			t.Errorf("Expected {}, got %q", body)
		}
	})

	t.Run("WriteAndRead", func(t *testing.T) {
		resp, body := do(t, http.MethodPut, srv.URL+"/docs/balance", `{"u1": 100}`)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d (%s)", resp.StatusCode, body)
		}

		resp, body = do(t, http.MethodGet, srv.URL+"/docs/balance", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		var got map[string]int
		if err := json.Unmarshal([]byte(body), &got); err != nil {
			t.Fatalf("invalid body %q: %v", body, err)
		}
		if got["u1"] != 100 {
			t.Errorf("Expected u1=100, got %v", got)
		}
		if _, _, err := r.Fetch(context.Background(), "data/economy/user_balances.json"); err != nil {
			t.Errorf("Expected document on remote, got %v", err)
		}
	})

	t.Run("PhysicalPath", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/docs/economy/user_balances.json", "")
		if !strings.Contains(body, `"u1"`) {
			t.Errorf("Expected namespaced key to resolve to the same document, got %q", body)
		}
	})

	t.Run("InvalidDocument", func(t *testing.T) {
		resp, _ := do(t, http.MethodPut, srv.URL+"/docs/poll", `{not json`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Conflict", func(t *testing.T) {
		// another writer changes the document behind the cache
		_, token, err := r.Fetch(context.Background(), "data/economy/user_balances.json")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if _, err := r.Put(context.Background(), "data/economy/user_balances.json", remote.Document(`{"u2":5}`), token); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		resp, _ := do(t, http.MethodPut, srv.URL+"/docs/balance?skipBackup=true", `{"u1": 1}`)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected 409, got %d", resp.StatusCode)
		}

		// the conflict dropped the stale entry, so the next read sees the other writer
		_, body := do(t, http.MethodGet, srv.URL+"/docs/balance", "")
		if !strings.Contains(body, `"u2"`) {
			t.Errorf("Expected fresh document after conflict, got %q", body)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		resp, _ := do(t, http.MethodDelete, srv.URL+"/docs/balance", "")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d", resp.StatusCode)
		}
		_, body := do(t, http.MethodGet, srv.URL+"/docs/balance", "")
		if body != "{}" {
			t.Errorf("Expected {} after delete, got %q", body)
		}

		resp, _ = do(t, http.MethodDelete, srv.URL+"/docs/balance", "")
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("Expected deleting a missing document to succeed, got %d", resp.StatusCode)
		}
	})
}

func TestBackupRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, body := range []string{`{"v":1}`, `{"v":2}`} {
		if resp, _ := do(t, http.MethodPut, srv.URL+"/docs/level", body); resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d", resp.StatusCode)
		}
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/backups/level", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var records []backup.Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("invalid body %q: %v", body, err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(records))
	}

	t.Run("MissingName", func(t *testing.T) {
		resp, _ := do(t, http.MethodPost, srv.URL+"/restore/level", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("Restore", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, srv.URL+"/restore/level?name="+records[0].Name, "")
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d (%s)", resp.StatusCode, body)
		}
		_, body = do(t, http.MethodGet, srv.URL+"/docs/level", "")
		if !strings.Contains(body, `"v":1`) {
			t.Errorf("Expected restored version 1, got %q", body)
		}
	})

	t.Run("NoBackups", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/backups/warn", "")
		if strings.TrimSpace(body) != "[]" {
			t.Errorf("Expected [], got %q", body)
		}
	})
}

func TestStatsAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t)
	do(t, http.MethodPut, srv.URL+"/docs/poll", `{"p":1}`)
	do(t, http.MethodGet, srv.URL+"/docs/poll", "")

	t.Run("Stats", func(t *testing.T) {
		resp, body := do(t, http.MethodGet, srv.URL+"/stats", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		var stats docstore.Stats
		if err := json.Unmarshal([]byte(body), &stats); err != nil {
			t.Fatalf("invalid body %q: %v", body, err)
		}
		if stats.State != "ready" {
			t.Errorf("Expected state Ready, got %s", stats.State)
		}
		if stats.Writes != 1 || stats.Reads != 1 {
			t.Errorf("Expected 1 write and 1 read, got %d and %d", stats.Writes, stats.Reads)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		_, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
		if !strings.Contains(body, "ddocs_cache_hits_total") {
			t.Errorf("Expected cache counters in metrics output, got %q", body)
		}
	})

	t.Run("ClearCache", func(t *testing.T) {
		resp, _ := do(t, http.MethodDelete, srv.URL+"/cache", "")
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", resp.StatusCode)
		}
		_, body := do(t, http.MethodGet, srv.URL+"/stats", "")
		if !strings.Contains(body, `"cacheSize":0`) {
			t.Errorf("Expected empty cache, got %q", body)
		}
	})

	t.Run("Vacuum", func(t *testing.T) {
		resp, _ := do(t, http.MethodPost, srv.URL+"/vacuum", "")
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("Expected 204, got %d", resp.StatusCode)
		}
	})
}

func TestShutdownStore(t *testing.T) {
	srv, s, _ := newTestServer(t)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	resp, _ := do(t, http.MethodPut, srv.URL+"/docs/poll", `{}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}
