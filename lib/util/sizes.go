package util

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// Summary statistics
// ----------------------------------------------------------------------------

// Stats summarises a set of values
type Stats struct {
	Count        int     `json:"count"`
	Sum          float64 `json:"sum"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	StdDeviation float64 `json:"std_deviation"`
}

// NewStats computes count, sum, min, max, mean and the (population) standard deviation of values
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	var squares float64
	for _, v := range values {
		diff := v - mean
		squares += diff * diff
	}

	return Stats{
		Count:        len(values),
		Sum:          sum,
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		StdDeviation: math.Sqrt(squares / float64(len(values))),
	}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// documentBoundaries are the upper bucket bounds in bytes, from tiny documents
// (an empty object) up to the largest file the contents API returns inline.
var documentBoundaries = []int{
	64, 256, 1024, 4096, // bytes to 4KB
	16384, 65536, 262144, // 16KB to 256KB
	1048576, 4194304, // 1MB and the raw media range
}

// SizeHistogram tracks the distribution of document sizes in exponential buckets.
//
// Thread-safe: all methods are safe for concurrent use
type SizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int
	buckets    []int64 // len(boundaries)+1, the last one holds larger values
	count      int64
	sum        int64
}

// NewSizeHistogram creates an empty histogram with document sized buckets
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{
		boundaries: documentBoundaries,
		buckets:    make([]int64, len(documentBoundaries)+1),
	}
}

// AddSample adds one size
func (h *SizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	idx := len(h.boundaries)
	for i, boundary := range h.boundaries {
		if size <= boundary {
			idx = i
			break
		}
	}

	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of samples
func (h *SizeHistogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// AverageSize returns the exact mean of all samples
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// MedianEstimate estimates the median size
func (h *SizeHistogram) MedianEstimate() int {
	return h.PercentileEstimate(50)
}

// PercentileEstimate estimates the given percentile (0-100) as the middle of the matching bucket
func (h *SizeHistogram) PercentileEstimate(percentile int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(percentile) / 100.0))
	var cumulative int64
	for i, count := range h.buckets {
		cumulative += count
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return h.boundaries[0] / 2
		case i < len(h.boundaries):
			return (h.boundaries[i-1] + h.boundaries[i]) / 2
		default:
			return h.boundaries[len(h.boundaries)-1] * 2
		}
	}
	return int(h.sum / h.count)
}

// Distribution returns the bucket upper bounds and the percentage of samples per bucket.
// The percentages slice has one more element than the bounds (values above the last bound).
func (h *SizeHistogram) Distribution() ([]int, []float64) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	percentages := make([]float64, len(h.buckets))
	if h.count == 0 {
		return h.boundaries, percentages
	}
	for i, count := range h.buckets {
		percentages[i] = float64(count) * 100.0 / float64(h.count)
	}
	return h.boundaries, percentages
}

// Reset removes all samples
func (h *SizeHistogram) Reset() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.count = 0
	h.sum = 0
	for i := range h.buckets {
		h.buckets[i] = 0
	}
}
