package remote

import (
	"context"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// VersionToken is the opaque precondition value handed out by the remote on every
// read and write. An empty token means "no precondition" which is only valid when
// creating a new object.
type VersionToken string

// Entry is a single item of a directory listing
type Entry struct {
	Path  string       // full slash delimited path
	Name  string       // last path element
	Token VersionToken // version of the object (directories may have a token too)
	IsDir bool
	Size  int64
}

// IRemoteStore is the interface of the version controlled remote content API the
// document store persists to. All methods return a *Error on failure so callers
// can branch on the RetCode (see CodeOf).
type IRemoteStore interface {
	// Fetch returns the document at path together with its current version token.
	// Fails with RetCNotFound if the object does not exist.
	Fetch(ctx context.Context, path string) (doc Document, token VersionToken, err error)
	// Put replaces the content at path. An empty token creates a new object. If the object
	// already exists without a token or the token does not match the current version the
	// call fails with RetCConflict. Put is never retried.
	Put(ctx context.Context, path string, doc Document, token VersionToken) (newToken VersionToken, err error)
	// Remove deletes the object at path. Fails with RetCNotFound if it is already absent
	// and with RetCConflict if the token does not match.
	Remove(ctx context.Context, path string, token VersionToken) (err error)
	// List returns the direct children of dir. Fails with RetCNotFound if dir does not exist.
	List(ctx context.Context, dir string) (entries []Entry, err error)
	// ListTree returns all entries below root, directories included.
	// Fails with RetCNotFound if root does not exist.
	ListTree(ctx context.Context, root string) (entries []Entry, err error)
	// Ping checks that the remote is reachable and the credentials grant access.
	Ping(ctx context.Context) (err error)
	// Name returns a human readable description of the remote
	Name() string
}
