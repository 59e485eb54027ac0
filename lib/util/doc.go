// Package util provides small statistics helpers used to report on the stored documents.
//
// The package contains:
//   - Stats: count, sum, min, max, mean and standard deviation of a set of values
//   - SizeHistogram: an exponential bucket histogram for document sizes with
//     median and percentile estimators
//
// Both are used by the metadata registry to describe the size distribution of
// all documents without keeping every size around.
package util
