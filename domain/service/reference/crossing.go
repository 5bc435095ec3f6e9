package reference

import (
	"errors"

	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/event"
	"swingref/domain/aggregate/leg"
)

// ErrTrackingCapExceeded is returned by Track once the tracked-leg cap
// has been reached.
var ErrTrackingCapExceeded = errors.New("reference: tracking cap exceeded")

// fibRatios are the retracement/extension ratios the crossing tracker
// watches, measured from pivot (0) toward and past origin (1..2).
var fibRatios = []float64{0, 0.382, 0.5, 0.618, 1.0, 1.382, 1.5, 1.618, 2.0}

// CrossingTracker detects fib-level crossings between consecutive bars
// for a small set of manually tracked (or auto-tracked) leg ids.
type CrossingTracker struct {
	tracked   []string
	trackedOK map[string]bool
	hasPrev   bool
	prevClose float64
}

// NewCrossingTracker constructs an empty tracker.
func NewCrossingTracker() *CrossingTracker {
	return &CrossingTracker{trackedOK: make(map[string]bool)}
}

// Tracked returns the currently tracked leg ids, oldest first.
func (ct *CrossingTracker) Tracked() []string {
	return append([]string(nil), ct.tracked...)
}

// Track pins legID for crossing detection. Returns ErrTrackingCapExceeded
// if cap has already been reached; tracking an already-tracked id is a
// no-op success.
func (ct *CrossingTracker) Track(legID string, cap int) error {
	if ct.trackedOK[legID] {
		return nil
	}
	if len(ct.tracked) >= cap {
		return ErrTrackingCapExceeded
	}
	ct.tracked = append(ct.tracked, legID)
	ct.trackedOK[legID] = true
	return nil
}

// Untrack removes legID from the tracked set; untracking an id that was
// never tracked is a no-op.
func (ct *CrossingTracker) Untrack(legID string) {
	if !ct.trackedOK[legID] {
		return
	}
	delete(ct.trackedOK, legID)
	for i, id := range ct.tracked {
		if id == legID {
			ct.tracked = append(ct.tracked[:i], ct.tracked[i+1:]...)
			break
		}
	}
}

// AutoTrackedLegID returns the first manually pinned leg id, or
// topReferenceID (the top reference for the current bar) if nothing is
// pinned; "" if neither is available.
func (ct *CrossingTracker) AutoTrackedLegID(topReferenceID string) string {
	if len(ct.tracked) > 0 {
		return ct.tracked[0]
	}
	return topReferenceID
}

func levelPrice(l leg.Leg, ratio float64) float64 {
	if l.Direction == leg.Bull {
		return l.PivotPrice - ratio*l.Range
	}
	return l.PivotPrice + ratio*l.Range
}

// DetectCrossings compares b.Close against the previous bar's close for
// every fib level of every tracked leg still present in byID, emitting
// a LevelCross for each level that changed sides. It always advances
// the tracker's notion of "previous close" to b.Close.
//
// When nothing has been manually pinned via Track, autoTrackedLegID (the
// caller's AutoTrackedLegID result, normally the current top reference)
// is scanned in place of ct.tracked so crossing detection still fires by
// default, per the auto-tracking fallback.
func (ct *CrossingTracker) DetectCrossings(byID map[string]*leg.Leg, b bar.Bar, autoTrackedLegID string) []event.LevelCross {
	var out []event.LevelCross
	if !ct.hasPrev {
		ct.hasPrev = true
		ct.prevClose = b.Close
		return out
	}

	ids := ct.tracked
	if len(ids) == 0 && autoTrackedLegID != "" {
		ids = []string{autoTrackedLegID}
	}

	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			continue
		}
		for _, ratio := range fibRatios {
			lvl := levelPrice(*l, ratio)
			prevSide := ct.prevClose - lvl
			curSide := b.Close - lvl
			if prevSide == 0 || curSide == 0 || (prevSide > 0) == (curSide > 0) {
				continue
			}
			dir := event.CrossDown
			if curSide > 0 {
				dir = event.CrossUp
			}
			out = append(out, event.LevelCross{
				LegID: id, Direction: l.Direction, LevelCrossed: ratio,
				CrossDirection: dir, BarIndex: b.Index, Timestamp: b.Timestamp,
			})
		}
	}

	ct.prevClose = b.Close
	return out
}
