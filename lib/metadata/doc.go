// Package metadata tracks the aggregate size and count of all documents the store knows about.
//
// The registry is persisted as indented JSON after every mutation so operators can inspect it.
// Totals are maintained incrementally: a write replaces the previous size of its path and a
// delete removes it, so TotalSize is always the sum of the per path sizes and TotalFiles their count.
package metadata
