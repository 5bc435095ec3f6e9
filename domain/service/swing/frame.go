// Package swing implements the incremental pivot-based leg detector:
// the reference frame, the leg store with its lookback sliding window,
// and the per-bar update protocol.
package swing

import "swingref/domain/aggregate/leg"

// CompletionEpsilon is the single small epsilon used uniformly wherever
// the 2.0 completion cutoff is compared, per the open design question
// on the exact boundary of the "completed" state.
const CompletionEpsilon = 1e-9

// Location maps price to a normalized position within l: 0 at the
// pivot, 1 at the origin, 2 at the completion target one full range
// past the origin, negative past the pivot. Bull and bear legs are
// symmetric: for bull (origin low, pivot high) location grows as price
// falls below the pivot toward and past the origin; for bear (origin
// high, pivot low) location grows as price rises above the pivot
// toward and past the origin.
func Location(l leg.Leg, price float64) float64 {
	if l.Range == 0 {
		return 0
	}
	if l.Direction == leg.Bull {
		return (l.PivotPrice - price) / l.Range
	}
	return (price - l.PivotPrice) / l.Range
}

// CappedLocation is the value exposed to consumers: the raw location
// capped at 2.0. The raw value is retained internally for breach tests.
func CappedLocation(location float64) float64 {
	if location > 2.0 {
		return 2.0
	}
	return location
}

// IsPivotBreach reports whether a raw location indicates price has
// crossed back past the defended pivot.
func IsPivotBreach(location float64) bool {
	return location < 0
}

// IsCompleted reports whether a raw location has passed the completion
// target (2.0, one full range past the origin) by more than
// CompletionEpsilon; a location of exactly 2.0 is not completed.
func IsCompleted(location float64) bool {
	return location > 2.0+CompletionEpsilon
}
