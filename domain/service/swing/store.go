package swing

import (
	"errors"
	"fmt"

	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/leg"
)

// ErrGap is returned when an appended bar's index is not exactly one
// more than the last processed index.
var ErrGap = errors.New("swing: gap in bar index")

// ConfirmedPivot is a materialized swing high/low, confirmed L bars
// after it occurred.
type ConfirmedPivot struct {
	Price    float64
	Index    int64
	IsHigh   bool
}

// Store owns the active legs, the per-direction pending origin, and the
// lookback sliding window needed to confirm pivots without rescanning
// the full bar history.
type Store struct {
	lookback int

	window  []bar.Bar
	hasLast bool
	lastIdx int64

	activeLegs []*leg.Leg

	pendingOrigins map[leg.Direction]leg.PendingOrigin
	hasPending     map[leg.Direction]bool

	// runningExtreme is true while the corresponding direction's pending
	// origin is still sourced from the lookback extreme rather than a
	// confirmed prior pivot.
	runningExtreme map[leg.Direction]bool
}

// NewStore constructs a Store with the given symmetric lookback.
func NewStore(lookback int) *Store {
	return &Store{
		lookback:       lookback,
		pendingOrigins: make(map[leg.Direction]leg.PendingOrigin, 2),
		hasPending:     make(map[leg.Direction]bool, 2),
		runningExtreme: map[leg.Direction]bool{leg.Bull: true, leg.Bear: true},
	}
}

// Lookback returns the configured symmetric lookback window L.
func (s *Store) Lookback() int { return s.lookback }

// ActiveLegs returns the store's active legs, most recent last.
func (s *Store) ActiveLegs() []*leg.Leg { return s.activeLegs }

// AddLeg appends a newly seeded leg to the active set and returns a
// pointer to the stored copy.
func (s *Store) AddLeg(l leg.Leg) *leg.Leg {
	stored := l
	s.activeLegs = append(s.activeLegs, &stored)
	return &stored
}

// RemoveLeg drops the leg with id from the active set (its Status must
// already have been set to a terminal value by the caller).
func (s *Store) RemoveLeg(id string) {
	for i, l := range s.activeLegs {
		if l.ID == id {
			s.activeLegs = append(s.activeLegs[:i], s.activeLegs[i+1:]...)
			return
		}
	}
}

// PendingOrigin returns the current pending origin for dir, if any.
func (s *Store) PendingOrigin(dir leg.Direction) (leg.PendingOrigin, bool) {
	po := s.hasPending[dir]
	return s.pendingOrigins[dir], po
}

// SetPendingOrigin overwrites the pending origin candidate for dir.
func (s *Store) SetPendingOrigin(po leg.PendingOrigin) {
	s.pendingOrigins[po.Direction] = po
	s.hasPending[po.Direction] = true
	s.runningExtreme[po.Direction] = po.Source == leg.SourceLookbackExtreme
}

// Append validates contiguity and records b in the lookback window,
// updating the running lookback-extreme pending origins until a real
// confirmed pivot supersedes them.
func (s *Store) Append(b bar.Bar) error {
	if s.hasLast && b.Index != s.lastIdx+1 {
		return fmt.Errorf("%w: last=%d next=%d", ErrGap, s.lastIdx, b.Index)
	}
	s.lastIdx = b.Index
	s.hasLast = true

	if s.runningExtreme[leg.Bull] {
		cur, ok := s.pendingOrigins[leg.Bull]
		if !ok || b.Low < cur.Price {
			s.pendingOrigins[leg.Bull] = leg.PendingOrigin{Price: b.Low, BarIndex: b.Index, Direction: leg.Bull, Source: leg.SourceLookbackExtreme}
			s.hasPending[leg.Bull] = true
		}
	}
	if s.runningExtreme[leg.Bear] {
		cur, ok := s.pendingOrigins[leg.Bear]
		if !ok || b.High > cur.Price {
			s.pendingOrigins[leg.Bear] = leg.PendingOrigin{Price: b.High, BarIndex: b.Index, Direction: leg.Bear, Source: leg.SourceLookbackExtreme}
			s.hasPending[leg.Bear] = true
		}
	}

	maxLen := 2*s.lookback + 1
	s.window = append(s.window, b)
	if len(s.window) > maxLen {
		s.window = s.window[len(s.window)-maxLen:]
	}
	return nil
}

// ConfirmPivot checks whether the bar at the center of the lookback
// window (index = last appended − L) is a confirmed swing high/low.
// Returns nil, nil if the window is not yet full.
func (s *Store) ConfirmPivot() (high, low *ConfirmedPivot) {
	maxLen := 2*s.lookback + 1
	if len(s.window) < maxLen {
		return nil, nil
	}
	center := s.window[s.lookback]
	if isSwingHigh(s.window, s.lookback) {
		high = &ConfirmedPivot{Price: center.High, Index: center.Index, IsHigh: true}
	}
	if isSwingLow(s.window, s.lookback) {
		low = &ConfirmedPivot{Price: center.Low, Index: center.Index, IsHigh: false}
	}
	return high, low
}

// isSwingHigh reports whether window[center].High strictly exceeds
// every other bar's High in the window, ties broken in favor of the
// earlier bar (first-wins): an equal earlier High disqualifies center.
func isSwingHigh(window []bar.Bar, center int) bool {
	h := window[center].High
	for j, b := range window {
		if j == center {
			continue
		}
		if b.High > h {
			return false
		}
		if b.High == h && j < center {
			return false
		}
	}
	return true
}

// isSwingLow is the symmetric counterpart of isSwingHigh over Low.
func isSwingLow(window []bar.Bar, center int) bool {
	l := window[center].Low
	for j, b := range window {
		if j == center {
			continue
		}
		if b.Low < l {
			return false
		}
		if b.Low == l && j < center {
			return false
		}
	}
	return true
}
