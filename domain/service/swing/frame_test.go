package swing

import (
	"testing"

	"swingref/domain/aggregate/leg"
)

func bullLeg(origin, pivot float64) leg.Leg {
	return leg.New("bull-test", leg.Bull, origin, 0, pivot, 10, 10)
}

func bearLeg(origin, pivot float64) leg.Leg {
	return leg.New("bear-test", leg.Bear, origin, 0, pivot, 10, 10)
}

func TestLocationBullLeg(t *testing.T) {
	t.Parallel()

	l := bullLeg(100, 200) // origin (low) 100, pivot (high) 200, range 100.

	// 1. at the pivot, location is 0.
	if got := Location(l, 200); got != 0 {
		t.Errorf("Location(pivot) = %v, want 0", got)
	}
	// 2. at the origin, location is 1.
	if got := Location(l, 100); got != 1 {
		t.Errorf("Location(origin) = %v, want 1", got)
	}
	// 3. halfway back toward origin, location is 0.5.
	if got := Location(l, 150); got != 0.5 {
		t.Errorf("Location(midpoint) = %v, want 0.5", got)
	}
	// 4. one full range past the origin (completion target), location is 2.
	if got := Location(l, 0); got != 2 {
		t.Errorf("Location(completion target) = %v, want 2", got)
	}
	// 5. past the pivot, location goes negative.
	if got := Location(l, 250); got >= 0 {
		t.Errorf("Location(past pivot) = %v, want < 0", got)
	}
}

func TestLocationBearLeg(t *testing.T) {
	t.Parallel()

	l := bearLeg(200, 100) // origin (high) 200, pivot (low) 100, range 100.

	if got := Location(l, 100); got != 0 {
		t.Errorf("Location(pivot) = %v, want 0", got)
	}
	if got := Location(l, 200); got != 1 {
		t.Errorf("Location(origin) = %v, want 1", got)
	}
	if got := Location(l, 300); got != 2 {
		t.Errorf("Location(completion target) = %v, want 2", got)
	}
	if got := Location(l, 50); got >= 0 {
		t.Errorf("Location(past pivot) = %v, want < 0", got)
	}
}

func TestLocationZeroRangeLegIsZero(t *testing.T) {
	t.Parallel()

	// A degenerate zero-range leg (origin == pivot) must not divide by zero.
	l := bullLeg(100, 100)
	if got := Location(l, 250); got != 0 {
		t.Errorf("Location on a zero-range leg = %v, want 0", got)
	}
}

func TestCappedLocation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{2.0, 2.0},
		{2.5, 2.0},
		{-1.0, -1.0},
	}
	for _, c := range cases {
		if got := CappedLocation(c.in); got != c.want {
			t.Errorf("CappedLocation(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsPivotBreach(t *testing.T) {
	t.Parallel()

	if IsPivotBreach(0) {
		t.Error("IsPivotBreach(0) = true, want false (exactly at pivot is not a breach)")
	}
	if !IsPivotBreach(-0.001) {
		t.Error("IsPivotBreach(-0.001) = false, want true")
	}
}

func TestIsCompleted(t *testing.T) {
	t.Parallel()

	// 1. exactly at the 2.0 boundary is not yet completed.
	if IsCompleted(2.0) {
		t.Error("IsCompleted(2.0) = true, want false at the exact boundary")
	}
	// 2. comfortably past the epsilon-widened boundary is completed.
	if !IsCompleted(2.0 + 10*CompletionEpsilon) {
		t.Error("IsCompleted(2.0+10*epsilon) = false, want true")
	}
	// 3. within the epsilon band is still not completed.
	if IsCompleted(2.0 + CompletionEpsilon/2) {
		t.Error("IsCompleted(2.0+epsilon/2) = true, want false")
	}
}
