package swing

import (
	"fmt"

	"swingref/domain/aggregate/leg"
)

// NewLegID deterministically derives a leg identifier from its creation
// bar and origin, per the snapshot-determinism property: identical
// inputs must yield identical ids, not ids seeded from wall-clock time
// or a process-local random source.
func NewLegID(dir leg.Direction, originIndex int64, createdAtBar int64) string {
	return fmt.Sprintf("%s-o%d-c%d", dir, originIndex, createdAtBar)
}
