// Package mstore implements an in-memory remote.IRemoteStore.
//
// The store mirrors the semantics of the GitHub contents API closely enough to
// stand in for it in tests and offline runs:
//
//   - Version tokens are git blob hashes of the stored content, so two equal
//     documents share a token just like on GitHub.
//   - Put and Remove are compare-and-swap operations on the current token.
//     They run inside xsync.MapOf.Compute and are therefore atomic per path.
//   - Directories exist implicitly as long as at least one object lives below them.
//   - Every successful change is recorded with a message naming the path
//     (Create/Update/Delete), see History.
//
// Data is kept in memory only and lost when the process exits.
package mstore
