package remote

import (
	"context"
	"github.com/rcrowley/go-metrics"
	"time"
)

// Timer names registered by Instrument
const (
	TimerFetch  = "remote.fetch"
	TimerPut    = "remote.put"
	TimerRemove = "remote.remove"
	TimerList   = "remote.list"
)

// instrumented decorates an IRemoteStore with a latency timer per operation
type instrumented struct {
	IRemoteStore
	fetch  metrics.Timer
	put    metrics.Timer
	remove metrics.Timer
	list   metrics.Timer
}

// Instrument wraps s so that every call is timed in registry.
// A nil registry creates a fresh one.
func Instrument(s IRemoteStore, registry metrics.Registry) IRemoteStore {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &instrumented{
		IRemoteStore: s,
		fetch:        metrics.GetOrRegisterTimer(TimerFetch, registry),
		put:          metrics.GetOrRegisterTimer(TimerPut, registry),
		remove:       metrics.GetOrRegisterTimer(TimerRemove, registry),
		list:         metrics.GetOrRegisterTimer(TimerList, registry),
	}
}

func (i *instrumented) Fetch(ctx context.Context, path string) (Document, VersionToken, error) {
	defer i.fetch.UpdateSince(time.Now())
	return i.IRemoteStore.Fetch(ctx, path)
}

func (i *instrumented) Put(ctx context.Context, path string, doc Document, token VersionToken) (VersionToken, error) {
	defer i.put.UpdateSince(time.Now())
	return i.IRemoteStore.Put(ctx, path, doc, token)
}

func (i *instrumented) Remove(ctx context.Context, path string, token VersionToken) error {
	defer i.remove.UpdateSince(time.Now())
	return i.IRemoteStore.Remove(ctx, path, token)
}

func (i *instrumented) List(ctx context.Context, dir string) ([]Entry, error) {
	defer i.list.UpdateSince(time.Now())
	return i.IRemoteStore.List(ctx, dir)
}

// ListTree walks through the instrumented List so every directory request is timed
func (i *instrumented) ListTree(ctx context.Context, root string) ([]Entry, error) {
	return WalkTree(ctx, i, root)
}

// TimerStats is a summary of one remote operation timer
type TimerStats struct {
	Count int64         `json:"count"`
	Mean  time.Duration `json:"mean"`
	P95   time.Duration `json:"p95"`
	Max   time.Duration `json:"max"`
}

// ReadTimers summarises all remote timers registered in registry
func ReadTimers(registry metrics.Registry) map[string]TimerStats {
	out := make(map[string]TimerStats)
	registry.Each(func(name string, i interface{}) {
		timer, ok := i.(metrics.Timer)
		if !ok {
			return
		}
		snap := timer.Snapshot()
		out[name] = TimerStats{
			Count: snap.Count(),
			Mean:  time.Duration(snap.Mean()),
			P95:   time.Duration(snap.Percentile(0.95)),
			Max:   time.Duration(snap.Max()),
		}
	})
	return out
}
