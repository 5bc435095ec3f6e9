package usecase

import (
	"errors"
	"testing"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	"swingref/domain/service/swing"
)

func mustTestBar(t *testing.T, idx int64, o, h, l, c float64) bar.Bar {
	t.Helper()
	b, err := bar.New(idx, idx*60, o, h, l, c)
	if err != nil {
		t.Fatalf("bar.New(%d) unexpected error: %v", idx, err)
	}
	return b
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("s1", cfgpkg.DefaultDetectorConfig(), cfgpkg.DefaultReferenceConfig(), 0, nil)
}

func TestSessionAdvanceRejectsGapLeavingStateUntouched(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	bars := []bar.Bar{
		mustTestBar(t, 0, 10, 11, 9, 10),
		mustTestBar(t, 2, 10, 11, 9, 10), // skips index 1.
	}

	_, _, err := s.Advance(bars, false)
	if !errors.Is(err, swing.ErrGap) {
		t.Fatalf("Advance with a gapped batch: got %v, want ErrGap", err)
	}

	// The whole batch must be validated up-front: nothing committed, so
	// the session still expects bar 0 next, not bar 1 or bar 2.
	if got := s.NextExpectedIndex(); got != 0 {
		t.Errorf("NextExpectedIndex() = %d, want unchanged 0 after a rejected batch", got)
	}
}

func TestSessionAdvanceCommitsContiguousBatchAtomically(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	bars := []bar.Bar{
		mustTestBar(t, 0, 10, 11, 9, 10),
		mustTestBar(t, 1, 10, 11, 9, 10),
		mustTestBar(t, 2, 10, 11, 9, 10),
	}

	if _, _, err := s.Advance(bars, false); err != nil {
		t.Fatalf("Advance unexpected error: %v", err)
	}
	if got := s.NextExpectedIndex(); got != 3 {
		t.Errorf("NextExpectedIndex() = %d, want 3 after advancing 3 bars", got)
	}
}

func TestSessionAdvanceBuffersSnapshotsOnlyWhenRequested(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	bars := []bar.Bar{mustTestBar(t, 0, 10, 11, 9, 10)}

	_, snaps, err := s.Advance(bars, false)
	if err != nil {
		t.Fatalf("Advance unexpected error: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("len(snapshots) = %d, want 0 when include_snapshots is false", len(snaps))
	}

	// 1. a bar index never buffered is out of range.
	idx := int64(0)
	if _, err := s.GetReferenceState(&idx); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetReferenceState(0) without buffering: got %v, want ErrIndexOutOfRange", err)
	}

	// 2. the current (nil) position is always available regardless of buffering.
	if _, err := s.GetReferenceState(nil); err != nil {
		t.Errorf("GetReferenceState(nil) unexpected error: %v", err)
	}
}

func TestSessionAdvanceBuffersSnapshotsWhenRequested(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	bars := []bar.Bar{mustTestBar(t, 0, 10, 11, 9, 10), mustTestBar(t, 1, 10, 11, 9, 10)}

	_, snaps, err := s.Advance(bars, true)
	if err != nil {
		t.Fatalf("Advance unexpected error: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snapshots) = %d, want 2", len(snaps))
	}

	idx := int64(0)
	if _, err := s.GetReferenceState(&idx); err != nil {
		t.Errorf("GetReferenceState(0) after buffering: unexpected error %v", err)
	}

	future := int64(5)
	if _, err := s.GetReferenceState(&future); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetReferenceState(5) beyond current position: got %v, want ErrIndexOutOfRange", err)
	}
}

func TestSessionUpdateDetectorConfigRejectsInvalidAndPreservesOldOnFailure(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	original := s.DetectorConfig()

	bad, err := cfgpkg.DefaultDetectorConfig().WithLookback(0)
	_ = bad
	if err == nil {
		t.Fatal("expected WithLookback(0) itself to fail validation for this test's setup")
	}

	// UpdateDetectorConfig on an already-invalid zero-value config must be
	// rejected and must not replace the session's current config.
	if err := s.UpdateDetectorConfig(cfgpkg.DetectorConfig{}); err == nil {
		t.Fatal("UpdateDetectorConfig with a zero-value config should fail validation")
	}
	if s.DetectorConfig().Lookback() != original.Lookback() {
		t.Errorf("DetectorConfig() changed after a rejected update, want unchanged lookback=%d", original.Lookback())
	}
}

func TestSessionResetPreservesConfigButClearsState(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	cfg, err := s.DetectorConfig().WithLookback(8)
	if err != nil {
		t.Fatalf("WithLookback(8) unexpected error: %v", err)
	}
	if err := s.UpdateDetectorConfig(cfg); err != nil {
		t.Fatalf("UpdateDetectorConfig unexpected error: %v", err)
	}

	bars := []bar.Bar{mustTestBar(t, 0, 10, 11, 9, 10)}
	if _, _, err := s.Advance(bars, true); err != nil {
		t.Fatalf("Advance unexpected error: %v", err)
	}

	s.Reset()

	if s.NextExpectedIndex() != 0 {
		t.Errorf("NextExpectedIndex() after Reset() = %d, want 0", s.NextExpectedIndex())
	}
	if s.DetectorConfig().Lookback() != 8 {
		t.Errorf("DetectorConfig().Lookback() after Reset() = %d, want preserved 8", s.DetectorConfig().Lookback())
	}
}

// advanceFormedSession drives a short V-shape (lookback 1 keeps the
// confirmation window tight) far enough to seed and form one bear leg.
func advanceFormedSession(t *testing.T) *Session {
	t.Helper()

	detCfg, err := cfgpkg.DefaultDetectorConfig().WithLookback(1)
	if err != nil {
		t.Fatalf("WithLookback(1) unexpected error: %v", err)
	}
	refCfg, err := cfgpkg.DefaultReferenceConfig().WithMinSwingsForClassification(1)
	if err != nil {
		t.Fatalf("WithMinSwingsForClassification(1) unexpected error: %v", err)
	}
	s := NewSession("formed", detCfg, refCfg, 0, nil)

	// Bar 1's low of 5 confirms as a swing low on bar 2, pairing with the
	// pending bear origin at 11 @ bar 0 to seed a bear leg of range 6.
	// Bar 2's close of 8 retraces to location 0.5, forming it immediately.
	bars := []bar.Bar{
		mustTestBar(t, 0, 10, 11, 10, 10),
		mustTestBar(t, 1, 5, 6, 5, 5),
		mustTestBar(t, 2, 8, 9, 8, 8),
	}
	if _, _, err := s.Advance(bars, true); err != nil {
		t.Fatalf("Advance unexpected error: %v", err)
	}
	if s.layer.FormedCount() != 1 {
		t.Fatalf("FormedCount() = %d, want 1 formed leg from the V-shape", s.layer.FormedCount())
	}
	return s
}

func TestSessionAdvanceVShapeSeedsAndFormsBearLeg(t *testing.T) {
	t.Parallel()

	s := advanceFormedSession(t)

	state, err := s.GetReferenceState(nil)
	if err != nil {
		t.Fatalf("GetReferenceState(nil) unexpected error: %v", err)
	}
	if len(state.References) != 1 {
		t.Fatalf("len(References) = %d, want 1", len(state.References))
	}
	ref := state.References[0]
	if ref.Leg.Direction.String() != "bear" {
		t.Errorf("reference direction = %v, want bear", ref.Leg.Direction)
	}
	if ref.Leg.OriginPrice != 11 || ref.Leg.PivotPrice != 5 {
		t.Errorf("reference leg = origin %v pivot %v, want origin 11 pivot 5", ref.Leg.OriginPrice, ref.Leg.PivotPrice)
	}
	if ref.Location != 0.5 {
		t.Errorf("reference Location = %v, want 0.5 at close 8", ref.Location)
	}

	// Snapshots were buffered, so the state at bar 2 is retrievable by index.
	idx := int64(2)
	if _, err := s.GetReferenceState(&idx); err != nil {
		t.Errorf("GetReferenceState(2) unexpected error: %v", err)
	}
}

func TestSessionUpdateReferenceConfigPreservesAccumulatedState(t *testing.T) {
	t.Parallel()

	s := advanceFormedSession(t)

	formedBefore := s.layer.FormedCount()
	countBefore := s.layer.BinDistribution().TotalCount()

	newCfg, err := s.ReferenceConfig().WithTopN(3)
	if err != nil {
		t.Fatalf("WithTopN(3) unexpected error: %v", err)
	}
	if err := s.UpdateReferenceConfig(newCfg); err != nil {
		t.Fatalf("UpdateReferenceConfig unexpected error: %v", err)
	}

	if got := s.layer.FormedCount(); got != formedBefore {
		t.Errorf("FormedCount() after config swap = %d, want unchanged %d", got, formedBefore)
	}
	if got := s.layer.BinDistribution().TotalCount(); got != countBefore {
		t.Errorf("BinDistribution().TotalCount() after config swap = %d, want unchanged %d", got, countBefore)
	}
	if got := s.ReferenceConfig().TopN(); got != 3 {
		t.Errorf("ReferenceConfig().TopN() = %d, want 3", got)
	}

	// The next state still sees the already-formed leg through the new config.
	if _, _, err := s.Advance([]bar.Bar{mustTestBar(t, 3, 8, 9, 8, 8)}, false); err != nil {
		t.Fatalf("Advance after config swap unexpected error: %v", err)
	}
	state, err := s.GetReferenceState(nil)
	if err != nil {
		t.Fatalf("GetReferenceState(nil) unexpected error: %v", err)
	}
	if len(state.References) != 1 {
		t.Errorf("len(References) after swap = %d, want 1", len(state.References))
	}
}

func TestSessionAdvanceDeterministicReplay(t *testing.T) {
	t.Parallel()

	run := func() []string {
		s := advanceFormedSession(t)
		var ids []string
		for _, l := range s.ActiveLegs() {
			ids = append(ids, l.ID)
		}
		return ids
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("replay produced different leg counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("replay leg id mismatch at %d: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestSessionTrackUntrackRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	if err := s.Track("leg-1"); err != nil {
		t.Fatalf("Track unexpected error: %v", err)
	}
	s.Untrack("leg-1")
	// untracking a second time is a no-op, not an error.
	s.Untrack("leg-1")
}
