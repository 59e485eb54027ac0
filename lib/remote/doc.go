// Package remote defines the contract between the document store and the
// version controlled content API it persists to.
//
// Key Components:
//
//   - IRemoteStore: fetch-by-path, put-with-precondition, delete-with-precondition
//     and directory listing. Every successful read or write hands out a VersionToken
//     that must be presented on the next write or delete of the same path
//     (optimistic concurrency control). The remote is the single source of truth.
//
//   - Document: a JSON value exchanged as bytes. The store never looks into it.
//
//   - Error: every failure is a *Error carrying a RetCode (NotFound, Conflict,
//     TransportError, ConfigError, InvalidDocument). Callers decide on a recovery
//     strategy by switching on CodeOf(err) instead of matching messages.
//
//   - Instrument: a decorator recording a latency timer per operation in a
//     go-metrics registry.
//
// Implementations:
//
//   - ghstore: the GitHub contents API. Content travels base64 encoded,
//     the blob SHA is the version token and every change becomes a commit.
//   - mstore: an in-memory remote with the same semantics, used for tests
//     and for running without network access.
package remote
