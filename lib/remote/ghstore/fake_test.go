package ghstore

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/dDocs/lib/common"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/ValentinKolb/dDocs/lib/remote/mstore"
)

const testToken = "ghp_test-token"

// fakeGitHub serves the subset of the contents API used by the Store,
// backed by an in-memory remote.
type fakeGitHub struct {
	backend *mstore.Store
	server  *httptest.Server

	mu       sync.Mutex
	messages []string
	branches []string
	refs     []string
	raw      map[string]bool // paths only delivered as raw media type
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{
		backend: mstore.NewMemoryStore(),
		raw:     make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{repo}", f.handleRepo)
	mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", f.handleGet)
	mux.HandleFunc("PUT /repos/{owner}/{repo}/contents/{path...}", f.handlePut)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/contents/{path...}", f.handleDelete)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitHub) config() common.ClientConfig {
	return common.ClientConfig{
		Token:         testToken,
		Owner:         "owner",
		Repo:          "bot-data",
		Branch:        "main",
		APIBase:       f.server.URL,
		TimeoutSecond: 5,
	}
}

func (f *fakeGitHub) client(t *testing.T) *Store {
	t.Helper()
	s, err := NewGitHubStore(f.config())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRemoteError(w http.ResponseWriter, err error, tokenSupplied bool) {
	switch {
	case remote.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	case remote.IsConflict(err) && !tokenSupplied:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "\"sha\" wasn't supplied."})
	case remote.IsConflict(err):
		writeJSON(w, http.StatusConflict, map[string]string{"message": "does not match"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
	}
}

// wrap60 splits encoded content into lines of 60 characters like the real API
func wrap60(s string) string {
	var sb strings.Builder
	for len(s) > 60 {
		sb.WriteString(s[:60])
		sb.WriteString("\n")
		s = s[60:]
	}
	sb.WriteString(s)
	sb.WriteString("\n")
	return sb.String()
}

func (f *fakeGitHub) markRaw(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[path] = true
}

// recorded returns copies of the commit messages, commit branches and read refs
func (f *fakeGitHub) recorded() (messages, branches, refs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...), append([]string(nil), f.branches...), append([]string(nil), f.refs...)
}

func (f *fakeGitHub) handleRepo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"full_name": r.PathValue("owner") + "/" + r.PathValue("repo")})
}

func (f *fakeGitHub) handleGet(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	f.mu.Lock()
	f.refs = append(f.refs, r.URL.Query().Get("ref"))
	raw := f.raw[path]
	f.mu.Unlock()

	doc, token, err := f.backend.Fetch(r.Context(), path)
	if err == nil {
		if r.Header.Get("Accept") == mediaTypeRaw {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(doc)
			return
		}
		item := contentItem{Type: "file", Name: path[strings.LastIndex(path, "/")+1:], Path: path, Sha: string(token), Size: int64(len(doc))}
		if raw {
			item.Encoding = "none"
		} else {
			item.Encoding = "base64"
			item.Content = wrap60(base64.StdEncoding.EncodeToString(doc))
		}
		writeJSON(w, http.StatusOK, item)
		return
	}
	if !remote.IsNotFound(err) {
		writeRemoteError(w, err, false)
		return
	}

	entries, err := f.backend.List(r.Context(), path)
	if err != nil {
		writeRemoteError(w, err, false)
		return
	}
	items := make([]contentItem, 0, len(entries))
	for _, e := range entries {
		typ := "file"
		if e.IsDir {
			typ = "dir"
		}
		items = append(items, contentItem{Type: typ, Name: e.Name, Path: e.Path, Sha: string(e.Token), Size: e.Size})
	}
	writeJSON(w, http.StatusOK, items)
}

func (f *fakeGitHub) readBody(w http.ResponseWriter, r *http.Request) (writeRequest, bool) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Problems parsing JSON"})
		return req, false
	}
	f.mu.Lock()
	f.messages = append(f.messages, req.Message)
	f.branches = append(f.branches, req.Branch)
	f.mu.Unlock()
	return req, true
}

func (f *fakeGitHub) handlePut(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	req, ok := f.readBody(w, r)
	if !ok {
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}

	token, err := f.backend.Put(r.Context(), path, remote.Document(content), remote.VersionToken(req.Sha))
	if err != nil {
		writeRemoteError(w, err, req.Sha != "")
		return
	}
	status := http.StatusOK
	if req.Sha == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"content": contentItem{Type: "file", Path: path, Sha: string(token), Size: int64(len(content))},
		"commit":  map[string]string{"message": req.Message},
	})
}

func (f *fakeGitHub) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	req, ok := f.readBody(w, r)
	if !ok {
		return
	}
	if err := f.backend.Remove(r.Context(), path, remote.VersionToken(req.Sha)); err != nil {
		writeRemoteError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": nil, "commit": map[string]string{"message": req.Message}})
}
