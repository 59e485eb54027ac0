/*
Package docstore is the document store every consumer talks to.

A Store maps logical keys (command names like "balance" or namespaced keys like
"economy/user_balances.json") to documents in a remote repository and keeps a cache,
a local mirror, rotating backups and size metadata up to date.

Lifecycle:

	Uninitialized -> Initializing -> Ready
	                              -> Failed   (remote unreachable, missing credentials)
	Ready -> Shutdown

The first operation (or an explicit Init) connects to the remote, loads the config file,
syncs the data tree into the cache and migrates legacy documents. Initialization runs
exactly once, concurrent callers wait for it.

Error policy:

  - Read never fails. Missing documents and errors both yield an empty object.
  - Write and Delete return nil on success. A *remote.Error with RetCConflict means
    the document was changed by someone else since it was read. It is never retried:
    read again, apply the change and write again.
  - Backup, mirror and metadata failures are logged and never fail an operation.

Example:

	store := docstore.New(ghstore, docstore.Options{})
	defer store.Shutdown(ctx)

	balances := store.Read(ctx, "balance")
	...
	if err := store.Write(ctx, "balance", updated); remote.IsConflict(err) {
	    // re-read and retry
	}
*/
package docstore
