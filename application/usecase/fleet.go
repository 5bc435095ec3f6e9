package usecase

import (
	"context"

	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/event"
	refagg "swingref/domain/aggregate/reference"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchInput pairs a session handle with the bars to feed it; Fleet
// advances every handle's disjoint state concurrently.
type BatchInput struct {
	Handle           string
	Bars             []bar.Bar
	IncludeSnapshots bool
}

// BatchResult is one handle's outcome from Fleet.Advance.
type BatchResult struct {
	Handle    string
	Events    []event.Event
	Snapshots []refagg.Snapshot
}

// Fleet advances N independent sessions concurrently with bounded
// parallelism, replacing the hand-rolled WaitGroup/channel fan-out the
// teacher's stock-metrics refresh used with golang.org/x/sync/errgroup:
// sessions hold strictly disjoint state (per the concurrency model), so
// there is no shared-state hazard in running them in parallel.
type Fleet struct {
	manager     *Manager
	concurrency int
	log         *zap.Logger
}

// NewFleet constructs a Fleet bounded to concurrency simultaneous
// in-flight session advances (<= 0 means unbounded).
func NewFleet(manager *Manager, concurrency int, log *zap.Logger) *Fleet {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fleet{manager: manager, concurrency: concurrency, log: log}
}

// Advance runs every batch's Manager.Advance call concurrently, stopping
// and returning the first error encountered (errgroup semantics); other
// in-flight batches are allowed to finish but their results are still
// returned alongside the error.
func (f *Fleet) Advance(ctx context.Context, batches []BatchInput) ([]BatchResult, error) {
	results := make([]BatchResult, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}

	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			events, snaps, err := f.manager.Advance(batch.Handle, batch.Bars, batch.IncludeSnapshots)
			results[i] = BatchResult{Handle: batch.Handle, Events: events, Snapshots: snaps}
			if err != nil {
				f.log.Warn("fleet advance failed", zap.String("handle", batch.Handle), zap.Error(err))
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}
