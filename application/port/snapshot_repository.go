package port

import (
	"context"
	"errors"

	refagg "swingref/domain/aggregate/reference"
)

// ErrSnapshotNotFound is returned by SnapshotRepository.Get when no
// document matches the session/bar pair.
var ErrSnapshotNotFound = errors.New("port: snapshot not found")

// SnapshotRepository persists RefStateSnapshot documents per session
// per bar for an outer replay harness. The core itself does not
// persist state across restarts; this is an explicitly-allowed outer
// layer convenience.
type SnapshotRepository interface {
	Save(ctx context.Context, sessionID string, snap refagg.Snapshot) error
	Get(ctx context.Context, sessionID string, barIndex int64) (refagg.Snapshot, error)
}
