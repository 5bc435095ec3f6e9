package reference

import (
	"fmt"
	"testing"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	refagg "swingref/domain/aggregate/reference"
	"swingref/domain/aggregate/leg"
)

func testReferenceConfig(t *testing.T) cfgpkg.ReferenceConfig {
	t.Helper()
	cfg, err := cfgpkg.DefaultReferenceConfig().WithMinSwingsForClassification(1)
	if err != nil {
		t.Fatalf("WithMinSwingsForClassification(1) unexpected error: %v", err)
	}
	return cfg
}

func TestLayerAdvanceFormsAndReturnsAReference(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	l := leg.New("L1", leg.Bull, 100, 0, 200, 10, 10)
	b, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}

	state := rl.Advance([]*leg.Leg{&l}, b, cfg)

	// 1. the leg formed this bar (location 0.5 past the default 0.382
	// formation threshold) and should be the sole reference.
	if len(state.References) != 1 {
		t.Fatalf("len(References) = %d, want 1", len(state.References))
	}
	if state.References[0].Leg.ID != "L1" {
		t.Errorf("References[0].Leg.ID = %q, want L1", state.References[0].Leg.ID)
	}

	// 2. nothing was filtered out.
	if len(state.FilterStats) != 0 {
		t.Errorf("FilterStats = %+v, want empty", state.FilterStats)
	}

	// 3. warmup has already cleared (min_swings_for_classification=1, one
	// formed leg observed).
	if state.IsWarmingUp {
		t.Error("IsWarmingUp = true, want false once the minimum swing count is met")
	}

	// 4. the leg's own FormationBar was stamped.
	if !l.IsFormed() {
		t.Error("leg.IsFormed() = false, want true after Advance")
	}
}

func TestLayerAdvanceExcludesUnformedLegs(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	// Close sits right at the pivot: location 0, below the 0.382
	// formation threshold, so the leg never forms.
	l := leg.New("L2", leg.Bull, 100, 0, 200, 10, 10)
	b, err := bar.New(11, 1100, 200, 205, 195, 200)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}

	state := rl.Advance([]*leg.Leg{&l}, b, cfg)

	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 (leg never formed)", len(state.References))
	}
	if got := state.FilterStats[refagg.ReasonNotFormed]; got != 1 {
		t.Errorf("FilterStats[ReasonNotFormed] = %d, want 1", got)
	}
}

func TestLayerAdvanceExcludesPrunedStatusLegs(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	l := leg.New("L3", leg.Bull, 100, 0, 200, 10, 10)
	l.Status = leg.Pruned // no longer active; the detector would already
	                       // have dropped it from the store, but Advance
	                       // must also never surface a non-Active leg.
	b, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}

	state := rl.Advance([]*leg.Leg{&l}, b, cfg)
	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 for a non-Active leg", len(state.References))
	}
	if rl.FormedCount() != 0 {
		t.Errorf("FormedCount() = %d, want 0", rl.FormedCount())
	}
}

func TestLayerAdvanceWarmupGatesReferencesNotFormation(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	// min_swings_for_classification left at its spec default (50): one
	// formed leg is not enough to clear warmup.
	cfg := cfgpkg.DefaultReferenceConfig()

	l := leg.New("L4", leg.Bull, 100, 0, 200, 10, 10)
	b, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}

	state := rl.Advance([]*leg.Leg{&l}, b, cfg)

	if !state.IsWarmingUp {
		t.Error("IsWarmingUp = false, want true with only one formed leg observed")
	}
	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 while warming up", len(state.References))
	}
	// Formation itself still happened even though no reference is surfaced yet.
	if !l.IsFormed() {
		t.Error("leg.IsFormed() = false, want true (formation is independent of warmup gating)")
	}
}

func TestLayerAdvanceWarmupClearsAtRequiredFormationCount(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg, err := cfgpkg.DefaultReferenceConfig().WithMinSwingsForClassification(2)
	if err != nil {
		t.Fatalf("WithMinSwingsForClassification(2) unexpected error: %v", err)
	}

	a := leg.New("A", leg.Bull, 100, 0, 200, 10, 10)
	b1, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&a}, b1, cfg)
	if !state.IsWarmingUp {
		t.Error("IsWarmingUp = false after the first formation, want true (1 of 2)")
	}
	if state.WarmupProgress.Observed != 1 || state.WarmupProgress.Required != 2 {
		t.Errorf("WarmupProgress = %+v, want {Observed:1 Required:2}", state.WarmupProgress)
	}

	// The second formation clears warmup on the same bar it happens.
	b2c := leg.New("B", leg.Bull, 110, 1, 190, 9, 9)
	b2, err := bar.New(12, 1200, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state = rl.Advance([]*leg.Leg{&a, &b2c}, b2, cfg)
	if state.IsWarmingUp {
		t.Error("IsWarmingUp = true after the second formation, want false")
	}
	if len(state.References) == 0 {
		t.Error("References empty immediately after warmup clears, want non-empty")
	}
}

func TestLayerAdvanceSmallRefOriginBreachZeroTolerance(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	// Bear leg origin=102, pivot=100, range=2. With a single entry in the
	// distribution its bin is 0: a small reference with zero origin tolerance.
	l := leg.New("S4", leg.Bear, 102, 0, 100, 10, 10)

	// First bar forms the leg: close 100.8 puts location at 0.4.
	b1, err := bar.New(11, 1100, 100.8, 101, 100.5, 100.8)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&l}, b1, cfg)
	if len(state.References) != 1 {
		t.Fatalf("len(References) after formation = %d, want 1", len(state.References))
	}

	// A wick to 102.01 puts the extreme at location 1.005, past the
	// origin with zero tolerance.
	b2, err := bar.New(12, 1200, 101, 102.01, 100.9, 101)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state = rl.Advance([]*leg.Leg{&l}, b2, cfg)

	if got := state.FilterStats[refagg.ReasonOriginBreached]; got != 1 {
		t.Errorf("FilterStats[ReasonOriginBreached] = %d, want 1", got)
	}
	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 after a fatal origin breach", len(state.References))
	}
	if rl.FormedCount() != 0 {
		t.Errorf("FormedCount() = %d, want 0 (fatal breach removes the formed record)", rl.FormedCount())
	}
}

func TestLayerAdvanceSignificantRefUsesWiderOriginTolerances(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	// Seed the distribution with ten smaller ranges so the target's
	// range of 20 classifies above the significant-bin threshold.
	for i := 1; i <= 10; i++ {
		rl.bin.AddLeg(fmt.Sprintf("filler-%d", i), float64(i), 1000, cfg.RecomputeInterval())
	}

	l := leg.New("S3", leg.Bear, 120, 0, 100, 10, 10)
	l.MarkFormed(10)
	rl.formed[l.ID] = formedEntry{PivotPriceAtFormation: 100, FormationBar: 10}

	// Extreme at location 1.145 sits inside the 0.15 trade tolerance;
	// close stays inside the close tolerance. The reference survives.
	b1, err := bar.New(11, 1100, 119, 122.9, 101, 102)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&l}, b1, cfg)
	if len(state.References) != 1 {
		t.Fatalf("len(References) = %d, want the significant ref to survive an in-tolerance wick", len(state.References))
	}
	if got := state.References[0].Bin; got < cfg.SignificantBinThreshold() {
		t.Fatalf("References[0].Bin = %d, want >= %d", got, cfg.SignificantBinThreshold())
	}

	// One tick past the trade tolerance is fatal.
	b2, err := bar.New(12, 1200, 119, 123.2, 101, 102)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state = rl.Advance([]*leg.Leg{&l}, b2, cfg)
	if got := state.FilterStats[refagg.ReasonOriginBreached]; got != 1 {
		t.Errorf("FilterStats[ReasonOriginBreached] = %d, want 1", got)
	}
	if rl.FormedCount() != 0 {
		t.Errorf("FormedCount() = %d, want 0 after the fatal trade-tolerance breach", rl.FormedCount())
	}
}

func TestLayerAdvancePivotBreachOnCloseExcludes(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	l := leg.New("PB", leg.Bear, 110, 0, 100, 10, 10)
	b1, err := bar.New(11, 1100, 104, 105, 103, 104) // forms at location 0.4
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	rl.Advance([]*leg.Leg{&l}, b1, cfg)

	// Close below the defended pivot: bar_location goes negative.
	b2, err := bar.New(12, 1200, 100, 100.5, 98.5, 99)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&l}, b2, cfg)

	if got := state.FilterStats[refagg.ReasonPivotBreached]; got != 1 {
		t.Errorf("FilterStats[ReasonPivotBreached] = %d, want 1", got)
	}
	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 after a pivot breach", len(state.References))
	}
}

func TestLayerAdvanceCompletedRefIsHidden(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	l := leg.New("CP", leg.Bear, 110, 0, 100, 10, 10)
	b1, err := bar.New(11, 1100, 104, 105, 103, 104)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	rl.Advance([]*leg.Leg{&l}, b1, cfg)

	// A wick to 121 puts the extreme at location 2.1, past completion.
	b2, err := bar.New(12, 1200, 118, 121, 117, 119)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&l}, b2, cfg)

	if got := state.FilterStats[refagg.ReasonCompleted]; got != 1 {
		t.Errorf("FilterStats[ReasonCompleted] = %d, want 1", got)
	}
	if len(state.References) != 0 {
		t.Errorf("len(References) = %d, want 0 for a completed reference", len(state.References))
	}
}

func TestLayerAdvanceDirectionImbalance(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	// Three bull legs against one bear leg: 3 > 2*1 with at least 2 on
	// the dominant side.
	b1 := leg.New("BU1", leg.Bull, 100, 0, 200, 10, 10)
	b2 := leg.New("BU2", leg.Bull, 102, 1, 198, 9, 9)
	b3 := leg.New("BU3", leg.Bull, 104, 2, 196, 8, 8)
	be := leg.New("BE1", leg.Bear, 160, 3, 140, 7, 7)

	b, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&b1, &b2, &b3, &be}, b, cfg)

	if len(state.References) != 4 {
		t.Fatalf("len(References) = %d, want all 4 formed legs", len(state.References))
	}
	if state.DirectionImbalance != refagg.ImbalanceBull {
		t.Errorf("DirectionImbalance = %v, want bull", state.DirectionImbalance)
	}
	if got := len(state.ByDirection[leg.Bull]); got != 3 {
		t.Errorf("len(ByDirection[Bull]) = %d, want 3", got)
	}
}

func TestLayerAdvanceSalienceTieBreaksByLegID(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg := testReferenceConfig(t)

	// Identical geometry, age, and depth produce identical salience; the
	// ordering must then be stable on leg id.
	a := leg.New("A", leg.Bull, 100, 0, 200, 10, 10)
	b2 := leg.New("B", leg.Bull, 100, 0, 200, 10, 10)

	b, err := bar.New(11, 1100, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&b2, &a}, b, cfg)

	if len(state.References) != 2 {
		t.Fatalf("len(References) = %d, want 2", len(state.References))
	}
	if state.References[0].SalienceScore < state.References[1].SalienceScore {
		t.Error("References not sorted descending by salience")
	}
	if state.References[0].Leg.ID != "A" || state.References[1].Leg.ID != "B" {
		t.Errorf("tie order = [%s %s], want [A B]", state.References[0].Leg.ID, state.References[1].Leg.ID)
	}
}

func TestLayerAdvanceEvictsRangesOutsideWindow(t *testing.T) {
	t.Parallel()

	rl := NewLayer(nil)
	cfg, err := testReferenceConfig(t).WithWindowDuration(100)
	if err != nil {
		t.Fatalf("WithWindowDuration(100) unexpected error: %v", err)
	}

	l := leg.New("W1", leg.Bull, 100, 0, 200, 10, 10)
	b1, err := bar.New(11, 1000, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	rl.Advance([]*leg.Leg{&l}, b1, cfg)
	if got := rl.bin.TotalCount(); got != 1 {
		t.Fatalf("TotalCount() = %d, want 1 after formation", got)
	}

	// A bar far enough ahead ages the formed range out of the window,
	// which also re-opens warmup for the distribution.
	b2, err := bar.New(12, 2000, 150, 155, 140, 150)
	if err != nil {
		t.Fatalf("bar.New unexpected error: %v", err)
	}
	state := rl.Advance([]*leg.Leg{&l}, b2, cfg)
	if got := rl.bin.TotalCount(); got != 0 {
		t.Errorf("TotalCount() = %d, want 0 after window eviction", got)
	}
	if !state.IsWarmingUp {
		t.Error("IsWarmingUp = false with an empty distribution, want true")
	}
}
