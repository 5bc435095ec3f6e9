package reference

import "testing"

func TestBinDistributionAddLegIsIdempotentPerLeg(t *testing.T) {
	t.Parallel()

	bd := NewBinDistribution()
	bd.AddLeg("leg-1", 10, 100, 0)
	bd.AddLeg("leg-1", 999, 200, 0) // same id again, must be ignored.
	bd.AddLeg("leg-2", 20, 300, 0)

	if got := bd.TotalCount(); got != 2 {
		t.Errorf("TotalCount() = %d, want 2 (duplicate insert of leg-1 ignored)", got)
	}
}

func TestBinDistributionMedianDefaultsUntilPopulated(t *testing.T) {
	t.Parallel()

	bd := NewBinDistribution()
	if got := bd.Median(1.5); got != 1.5 {
		t.Errorf("Median on an empty distribution = %v, want the default 1.5", got)
	}

	bd.AddLeg("leg-1", 10, 0, 0)
	bd.AddLeg("leg-2", 20, 0, 0)
	bd.AddLeg("leg-3", 30, 0, 0)
	if got := bd.Median(1.5); got != 20 {
		t.Errorf("Median() = %v, want 20 (middle of 10,20,30)", got)
	}
}

func TestBinDistributionBinOfIsBisectLeft(t *testing.T) {
	t.Parallel()

	bd := NewBinDistribution()
	for i := 1; i <= 10; i++ {
		bd.AddLeg(ranksLegID(i), float64(i), 0, 0)
	}

	// 1. the smallest value lands in bin 0.
	if got := bd.BinOf(1); got != 0 {
		t.Errorf("BinOf(1) = %d, want 0", got)
	}
	// 2. a value tied with an existing boundary lands in the lower bin
	// (bisect-left), not the bin above it.
	if got := bd.BinOf(10); got >= 10 {
		t.Errorf("BinOf(10) = %d, want < 10 under bisect-left semantics", got)
	}
	// 3. a value below everything seen still clamps to bin 0.
	if got := bd.BinOf(-100); got != 0 {
		t.Errorf("BinOf(-100) = %d, want 0", got)
	}
}

func TestBinDistributionEvictBeforeTrimsOldestPrefix(t *testing.T) {
	t.Parallel()

	bd := NewBinDistribution()
	bd.AddLeg("leg-1", 10, 100, 0)
	bd.AddLeg("leg-2", 20, 200, 0)
	bd.AddLeg("leg-3", 30, 300, 0)

	bd.EvictBefore(250)
	if got := bd.TotalCount(); got != 1 {
		t.Errorf("TotalCount() after EvictBefore(250) = %d, want 1", got)
	}

	// A leg evicted once must be re-insertable under the same id.
	bd.AddLeg("leg-1", 999, 400, 0)
	if got := bd.TotalCount(); got != 2 {
		t.Errorf("TotalCount() after re-adding an evicted leg id = %d, want 2", got)
	}
}

func ranksLegID(i int) string {
	return string(rune('a' + i))
}
