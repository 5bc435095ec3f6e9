package reference

import (
	"testing"

	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/event"
	"swingref/domain/aggregate/leg"
	refagg "swingref/domain/aggregate/reference"
)

func TestBuildSnapshotAssemblesFieldsFromState(t *testing.T) {
	t.Parallel()

	state := refagg.State{
		References:     []refagg.Swing{{Leg: testLeg("L1")}},
		ActiveFiltered: []refagg.Swing{{Leg: testLeg("L2")}},
		FilterStats:    map[refagg.FilterReason]int{refagg.ReasonNotFormed: 1},
	}
	b, err := bar.New(5, 500, 10, 11, 9, 10.5)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	crosses := []event.LevelCross{{LegID: "L1", LevelCrossed: 0.618}}

	snap := BuildSnapshot(state, b, []string{"L1"}, 42.0, "L1", crosses)

	if snap.BarIndex != 5 {
		t.Errorf("BarIndex = %d, want 5", snap.BarIndex)
	}
	if snap.Price != 10.5 {
		t.Errorf("Price = %v, want bar Close 10.5", snap.Price)
	}
	if len(snap.FormedLegIDs) != 1 || snap.FormedLegIDs[0] != "L1" {
		t.Errorf("FormedLegIDs = %v, want [L1]", snap.FormedLegIDs)
	}
	if snap.Median != 42.0 {
		t.Errorf("Median = %v, want 42.0", snap.Median)
	}
	if snap.AutoTrackedLegID != "L1" {
		t.Errorf("AutoTrackedLegID = %q, want L1", snap.AutoTrackedLegID)
	}
	if len(snap.LevelCrosses) != 1 {
		t.Errorf("len(LevelCrosses) = %d, want 1", len(snap.LevelCrosses))
	}
	if len(snap.References) != 1 || len(snap.ActiveFiltered) != 1 {
		t.Errorf("References/ActiveFiltered not carried through: %+v / %+v", snap.References, snap.ActiveFiltered)
	}
	if snap.FilterStats[refagg.ReasonNotFormed] != 1 {
		t.Errorf("FilterStats[ReasonNotFormed] = %d, want 1", snap.FilterStats[refagg.ReasonNotFormed])
	}
}

func testLeg(id string) leg.Leg {
	return leg.Leg{ID: id}
}
