/*
Package backup keeps rotating copies of documents in the backups/ directory of the remote.

Before a document is overwritten its current remote content is stored as

	backups/<basename>.<2006-01-02T15-04-05-000Z>.bak

and all but the newest N backups of that document are deleted. Backups are keyed by the
base name of the document, the age of a backup is taken from the timestamp in its name.

Creating and pruning backups never fails the write that triggered them: errors are logged only.
*/
package backup
