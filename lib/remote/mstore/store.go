package mstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/puzpuzpuz/xsync/v3"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Change is one recorded modification of the remote, the in-memory
// counterpart of a commit.
type Change struct {
	Message string
	Path    string
	Token   remote.VersionToken
	Time    time.Time
}

type object struct {
	content remote.Document
	token   remote.VersionToken
}

// Store is an in-memory remote.IRemoteStore
type Store struct {
	objects *xsync.MapOf[string, object]

	historyMu sync.Mutex
	history   []Change
}

// NewMemoryStore creates a new, empty in-memory remote.
// It behaves like the GitHub remote: tokens are git blob hashes of the content,
// a put without token fails if the object exists and every change is recorded.
func NewMemoryStore() *Store {
	return &Store{
		objects: xsync.NewMapOf[string, object](),
	}
}

// blobToken computes the git blob hash of content
func blobToken(content []byte) remote.VersionToken {
	h := sha1.New()
	_, _ = fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return remote.VersionToken(hex.EncodeToString(h.Sum(nil)))
}

func cleanPath(p string) string {
	return strings.Trim(path.Clean("/"+p), "/")
}

func (s *Store) record(message, p string, token remote.VersionToken) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, Change{
		Message: message,
		Path:    p,
		Token:   token,
		Time:    time.Now(),
	})
}

// History returns a copy of all recorded changes, oldest first
func (s *Store) History() []Change {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	out := make([]Change, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of stored objects
func (s *Store) Len() int {
	return s.objects.Size()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see remote/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Fetch(ctx context.Context, p string) (remote.Document, remote.VersionToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", remote.NewTransportError(p, 0, err)
	}
	p = cleanPath(p)
	obj, ok := s.objects.Load(p)
	if !ok {
		return nil, "", remote.NewError(remote.RetCNotFound, p, "object does not exist")
	}
	return obj.content.Clone(), obj.token, nil
}

func (s *Store) Put(ctx context.Context, p string, doc remote.Document, token remote.VersionToken) (remote.VersionToken, error) {
	if err := ctx.Err(); err != nil {
		return "", remote.NewTransportError(p, 0, err)
	}
	p = cleanPath(p)
	if p == "" {
		return "", remote.NewError(remote.RetCInvalidDocument, p, "empty path")
	}

	content := doc.Clone()
	newToken := blobToken(content)
	var conflict *remote.Error
	var created bool

	// compare and swap on the current version
	s.objects.Compute(p, func(old object, loaded bool) (object, bool) {
		switch {
		case loaded && token == "":
			conflict = remote.NewError(remote.RetCConflict, p, "object exists but no version token was supplied")
			return old, false
		case loaded && old.token != token:
			conflict = remote.NewError(remote.RetCConflict, p, fmt.Sprintf("version %s does not match %s", token, old.token))
			return old, false
		case !loaded && token != "":
			conflict = remote.NewError(remote.RetCConflict, p, "object does not exist anymore")
			return old, true
		}
		created = !loaded
		return object{content: content, token: newToken}, false
	})
	if conflict != nil {
		return "", conflict
	}

	if created {
		s.record(remote.MessageFrom(ctx, "Create "+p), p, newToken)
	} else {
		s.record(remote.MessageFrom(ctx, "Update "+p), p, newToken)
	}
	return newToken, nil
}

func (s *Store) Remove(ctx context.Context, p string, token remote.VersionToken) error {
	if err := ctx.Err(); err != nil {
		return remote.NewTransportError(p, 0, err)
	}
	p = cleanPath(p)

	var failure *remote.Error
	s.objects.Compute(p, func(old object, loaded bool) (object, bool) {
		if !loaded {
			failure = remote.NewError(remote.RetCNotFound, p, "object does not exist")
			return old, true
		}
		if old.token != token {
			failure = remote.NewError(remote.RetCConflict, p, fmt.Sprintf("version %s does not match %s", token, old.token))
			return old, false
		}
		return old, true
	})
	if failure != nil {
		return failure
	}

	s.record(remote.MessageFrom(ctx, "Delete "+p), p, token)
	return nil
}

func (s *Store) List(ctx context.Context, dir string) ([]remote.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, remote.NewTransportError(dir, 0, err)
	}
	dir = cleanPath(dir)
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	files := make(map[string]remote.Entry)
	dirs := make(map[string]remote.Entry)
	s.objects.Range(func(key string, obj object) bool {
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		rest := key[len(prefix):]
		if name, _, nested := strings.Cut(rest, "/"); nested {
			dirs[name] = remote.Entry{Path: prefix + name, Name: name, IsDir: true}
		} else {
			files[rest] = remote.Entry{Path: key, Name: rest, Token: obj.token, Size: int64(len(obj.content))}
		}
		return true
	})

	if len(files) == 0 && len(dirs) == 0 {
		return nil, remote.NewError(remote.RetCNotFound, dir, "directory does not exist")
	}

	entries := make([]remote.Entry, 0, len(files)+len(dirs))
	for _, e := range dirs {
		entries = append(entries, e)
	}
	for _, e := range files {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *Store) ListTree(ctx context.Context, root string) ([]remote.Entry, error) {
	return remote.WalkTree(ctx, s, root)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return remote.NewTransportError("", 0, err)
	}
	return nil
}

func (s *Store) Name() string {
	return "memory"
}
