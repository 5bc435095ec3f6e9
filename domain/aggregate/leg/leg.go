// Package leg defines the directional price-leg aggregate owned by the
// swing detector: its identity, lifecycle state, lineage, and the
// breach-tracking fields the reference layer reads each bar.
package leg

import "math"

// Leg is a directional price move tracked from an origin to an
// extending pivot. It is mutated only by the detector that owns it;
// the reference layer holds borrowed, read-only views during an
// advance.
type Leg struct {
	ID        string
	Direction Direction

	OriginPrice float64
	OriginIndex int64
	PivotPrice  float64
	PivotIndex  int64

	Range float64

	Status   Status
	BarCount int64

	Depth       int
	ParentLegID string // "" means no parent

	// Impulsiveness is an optional percentile in [0,100] of a derived
	// sharpness metric vs. peers; nil until the impulse sub-pass scores it.
	Impulsiveness *float64
	// CounterRange is the leg's largest counter-trend excursion before
	// the pivot formed; nil if not computed.
	CounterRange *float64

	// MaxOriginBreach is nil until price first crosses the origin side,
	// then tracks the furthest breach extreme ever observed.
	MaxOriginBreach *float64
	// MaxPivotBreach tracks the furthest excursion past the pivot side,
	// analogous to MaxOriginBreach but on the pivot boundary.
	MaxPivotBreach *float64

	// FormationBar is the bar index at which the leg first satisfied the
	// reference-formation threshold; nil before formation.
	FormationBar *int64

	CreatedAtBar int64

	// CompletionSinceBar is internal detector bookkeeping for the stale-
	// extension prune rule: the bar index at which the leg first reached
	// 2x extension, or nil if it has not (or no longer does).
	CompletionSinceBar *int64

	// OriginBreachAnnounced and PivotBreachAnnounced gate the one-time
	// informational OriginBreached/PivotBreached lifecycle events so they
	// fire once per leg rather than on every bar the breach persists.
	OriginBreachAnnounced bool
	PivotBreachAnnounced  bool
}

// New constructs a root leg (no parent) in the Active state with a
// positive range already computed from origin/pivot.
func New(id string, dir Direction, originPrice float64, originIndex int64, pivotPrice float64, pivotIndex int64, createdAtBar int64) Leg {
	return Leg{
		ID:           id,
		Direction:    dir,
		OriginPrice:  originPrice,
		OriginIndex:  originIndex,
		PivotPrice:   pivotPrice,
		PivotIndex:   pivotIndex,
		Range:        math.Abs(originPrice - pivotPrice),
		Status:       Active,
		BarCount:     pivotIndex - originIndex,
		Depth:        0,
		CreatedAtBar: createdAtBar,
	}
}

// ExtendsPivot reports whether candidate would legally extend the leg's
// pivot: bull legs only extend upward, bear legs only downward. A
// non-extending candidate must be ignored by the caller.
func (l Leg) ExtendsPivot(candidatePrice float64) bool {
	if l.Direction == Bull {
		return candidatePrice > l.PivotPrice
	}
	return candidatePrice < l.PivotPrice
}

// ExtendPivot applies a validated pivot extension, recomputing range and
// bar_count. Callers must have already checked ExtendsPivot.
func (l *Leg) ExtendPivot(price float64, index int64) {
	l.PivotPrice = price
	l.PivotIndex = index
	l.Range = math.Abs(l.OriginPrice - l.PivotPrice)
	l.BarCount = l.PivotIndex - l.OriginIndex
}

// Contains reports whether l fully brackets other by origin/pivot index,
// the containment rule used to assign parent_leg_id.
func (l Leg) Contains(other Leg) bool {
	return l.OriginIndex <= other.OriginIndex && other.PivotIndex <= l.PivotIndex && l.ID != other.ID
}

// MarkFormed records the formation bar the first time it is called;
// formation is sticky, so subsequent calls are no-ops.
func (l *Leg) MarkFormed(atBar int64) {
	if l.FormationBar != nil {
		return
	}
	b := atBar
	l.FormationBar = &b
}

// IsFormed reports whether the leg has ever satisfied the formation
// threshold.
func (l Leg) IsFormed() bool {
	return l.FormationBar != nil
}

// RecordOriginBreach widens MaxOriginBreach to amount if amount is a new
// extreme (or the first breach observed).
func (l *Leg) RecordOriginBreach(amount float64) {
	if l.MaxOriginBreach == nil || amount > *l.MaxOriginBreach {
		a := amount
		l.MaxOriginBreach = &a
	}
}

// RecordPivotBreach widens MaxPivotBreach analogously to RecordOriginBreach.
func (l *Leg) RecordPivotBreach(amount float64) {
	if l.MaxPivotBreach == nil || amount > *l.MaxPivotBreach {
		a := amount
		l.MaxPivotBreach = &a
	}
}

// Source is a short tag describing how a PendingOrigin was seeded.
type Source string

const (
	SourceLookbackExtreme Source = "lookback_extreme"
	SourcePriorPivot      Source = "prior_pivot"
)

// PendingOrigin is the per-direction candidate from which a new leg is
// seeded once temporal/pivot conditions are met.
type PendingOrigin struct {
	Price     float64
	BarIndex  int64
	Direction Direction
	Source    Source
}
