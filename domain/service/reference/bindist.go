// Package reference implements the reference layer: bin-distribution
// classification, the filter/classify/score pipeline, fib-level
// crossing detection, and per-bar snapshot assembly.
package reference

import "sort"

// NumBins is the number of bins BinOf classifies into: 0..9 are the
// deciles of the live distribution, and bin 10 is returned only for a
// range larger than every recorded range.
const NumBins = 11

type binEntry struct {
	legID     string
	rangeVal  float64
	timestamp int64
}

// BinDistribution is a sliding-window ordered multiset of formed-leg
// ranges. It owns no config: callers pass window/recompute parameters
// on each call so a config swap never requires reallocating (and thus
// losing) the accumulated contents.
type BinDistribution struct {
	entries      []binEntry // time-ordered; a prefix is trimmed on eviction
	seen         map[string]bool
	sortedRanges []float64 // rebuilt on a cadence; may drift between rebuilds
	insertCount  int
}

// NewBinDistribution constructs an empty distribution.
func NewBinDistribution() *BinDistribution {
	return &BinDistribution{seen: make(map[string]bool)}
}

// AddLeg inserts (timestamp, rangeVal) for legID, idempotent per leg_id.
// recomputeInterval controls how often the sorted-range index is fully
// rebuilt from the live entry set, bounding eviction drift and memory.
func (bd *BinDistribution) AddLeg(legID string, rangeVal float64, timestamp int64, recomputeInterval int) {
	if bd.seen[legID] {
		return
	}
	bd.seen[legID] = true
	bd.entries = append(bd.entries, binEntry{legID: legID, rangeVal: rangeVal, timestamp: timestamp})

	idx := sort.SearchFloat64s(bd.sortedRanges, rangeVal)
	bd.sortedRanges = append(bd.sortedRanges, 0)
	copy(bd.sortedRanges[idx+1:], bd.sortedRanges[idx:])
	bd.sortedRanges[idx] = rangeVal

	bd.insertCount++
	if recomputeInterval > 0 && bd.insertCount%recomputeInterval == 0 {
		bd.rebuild()
	}
}

// EvictBefore removes entries older than cutoff. Entries arrive in
// non-decreasing timestamp order, so eviction is a prefix trim.
func (bd *BinDistribution) EvictBefore(cutoff int64) {
	i := 0
	for i < len(bd.entries) && bd.entries[i].timestamp < cutoff {
		delete(bd.seen, bd.entries[i].legID)
		i++
	}
	if i == 0 {
		return
	}
	bd.entries = bd.entries[i:]
	bd.rebuild()
}

func (bd *BinDistribution) rebuild() {
	ranges := make([]float64, len(bd.entries))
	for i, e := range bd.entries {
		ranges[i] = e.rangeVal
	}
	sort.Float64s(ranges)
	bd.sortedRanges = ranges
}

// BinOf returns the decile bin (0..10) containing rangeVal, using
// bisect-left semantics so a value tied exactly with an existing
// boundary lands in the lower bin.
func (bd *BinDistribution) BinOf(rangeVal float64) int {
	n := len(bd.sortedRanges)
	if n == 0 {
		return 0
	}
	idx := sort.SearchFloat64s(bd.sortedRanges, rangeVal)
	pct := float64(idx) / float64(n)
	bin := int(pct * 10)
	if bin > 10 {
		bin = 10
	}
	if bin < 0 {
		bin = 0
	}
	return bin
}

// Median returns the 50th percentile of the live distribution, or
// defaultMedian until at least one entry has been added.
func (bd *BinDistribution) Median(defaultMedian float64) float64 {
	n := len(bd.sortedRanges)
	if n == 0 {
		return defaultMedian
	}
	idx := n / 2
	if idx >= n {
		idx = n - 1
	}
	return bd.sortedRanges[idx]
}

// TotalCount returns the number of live (non-evicted) entries.
func (bd *BinDistribution) TotalCount() int {
	return len(bd.entries)
}
