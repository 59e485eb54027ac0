// Package syncer loads the complete data tree of the remote at startup.
//
// On a fresh repository it instead creates the directory skeleton (one placeholder
// file per namespace directory and backups/). The sync never fails because of a
// single document: those are logged and skipped. Documents written while the sync
// runs keep their newer cache entry.
package syncer
