// Package mirror keeps a local, human readable copy of every document.
//
// The mirror is write only from the store's point of view: files are never read
// back for correctness. Vacuum removes files of documents that no longer exist remotely.
package mirror
