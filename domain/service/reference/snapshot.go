package reference

import (
	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/event"
	refagg "swingref/domain/aggregate/reference"
)

// BuildSnapshot assembles the wire-ready per-bar record combining the
// reference state with the bar's close, the formed leg ids, the
// current median, the auto-tracked leg id, and this bar's level
// crossings. Consumers do no further normalization of location fields.
func BuildSnapshot(state refagg.State, b bar.Bar, formedIDs []string, median float64, autoTrackedLegID string, crosses []event.LevelCross) refagg.Snapshot {
	return refagg.Snapshot{
		BarIndex:         b.Index,
		Price:            b.Close,
		FormedLegIDs:     formedIDs,
		References:       state.References,
		ActiveFiltered:   state.ActiveFiltered,
		FilterStats:      state.FilterStats,
		Median:           median,
		AutoTrackedLegID: autoTrackedLegID,
		LevelCrosses:     crosses,
	}
}
