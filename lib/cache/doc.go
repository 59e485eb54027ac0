// Package cache holds the most recently loaded documents together with their
// version tokens, keyed by physical path.
//
// The cache is bounded: inserting a new path at capacity evicts the path that was
// inserted first. It is a write-through mirror of the remote, entries never expire.
package cache
