// Package port defines the collaborator and sink interfaces the
// application layer depends on, implemented by infrastructure/*.
package port

import (
	"context"

	"swingref/domain/aggregate/bar"
)

// BarSource is the external collaborator providing the bounded or
// unbounded bar stream: strictly non-decreasing timestamps and
// strictly-incrementing index starting at a known base. The core never
// aggregates or resamples; this port hands it a single-resolution
// stream.
type BarSource interface {
	// NextBatch returns up to limit bars whose Index is strictly greater
	// than afterIndex, ordered by Index ascending. An empty, nil-error
	// result means no new bars are available yet.
	NextBatch(ctx context.Context, afterIndex int64, limit int) ([]bar.Bar, error)
}
