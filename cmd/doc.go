// Package cmd implements the command-line interface of dDocs. It provides a
// hierarchical command structure for serving the store over HTTP and for
// working with documents directly.
//
// The package is organized into several subpackages:
//
//   - doc: Commands for document operations (get, put, del, backups, restore, etc.)
//   - serve: Command for starting the dDocs HTTP server
//   - util: Shared utilities for flags, configuration and store construction (internal use)
//
// See ddocs -help for a list of all commands.
package cmd
