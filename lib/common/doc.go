// Package common provides the pieces shared by all dDocs packages:
//
//   - Logger: a custom logging implementation plugged into Dragonboat's logger
//     registry. Every package obtains its logger with logger.GetLogger(name).
//     InitLoggers takes a level spec like "warn,remote=debug": a default level
//     followed by per logger overrides.
//
//   - ClientConfig: connection settings for the remote content API, with a
//     printable String() form that never reveals the access token.
package common
