package reference

import (
	"sort"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	"swingref/domain/aggregate/leg"
	refagg "swingref/domain/aggregate/reference"
	"swingref/domain/service/swing"

	"go.uber.org/zap"
)

type formedEntry struct {
	PivotPriceAtFormation float64
	FormationBar          int64
}

// Layer runs the per-bar filter/classify/score pipeline over the
// detector's active legs, producing a ReferenceState.
type Layer struct {
	bin    *BinDistribution
	formed map[string]formedEntry
	log    *zap.Logger
}

// NewLayer constructs an empty Layer.
func NewLayer(log *zap.Logger) *Layer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Layer{bin: NewBinDistribution(), formed: make(map[string]formedEntry), log: log}
}

// BinDistribution exposes the underlying distribution for read access
// (median, total_count) without letting callers mutate it directly.
func (rl *Layer) BinDistribution() *BinDistribution { return rl.bin }

// FormedCount reports how many legs are currently recorded as formed.
func (rl *Layer) FormedCount() int { return len(rl.formed) }

// FormedLegIDs returns the set of currently-formed leg ids.
func (rl *Layer) FormedLegIDs() []string {
	ids := make([]string, 0, len(rl.formed))
	for id := range rl.formed {
		ids = append(ids, id)
	}
	return ids
}

func adverseWick(l *leg.Leg, b bar.Bar) float64 {
	if l.Direction == leg.Bull {
		return b.Low
	}
	return b.High
}

// Advance runs the ten-step pipeline over legs for bar b using cfg,
// returning the resulting ReferenceState.
func (rl *Layer) Advance(legs []*leg.Leg, b bar.Bar, cfg cfgpkg.ReferenceConfig) refagg.State {
	stats := make(map[refagg.FilterReason]int)

	// Lazily evict formed-range entries that have aged out of the
	// sliding window before this bar's formations are recorded.
	rl.bin.EvictBefore(b.Timestamp - cfg.WindowDuration())

	// Step 1: track formation (sticky).
	for _, l := range legs {
		if l.Status != leg.Active {
			continue
		}
		loc := swing.Location(*l, b.Close)
		if !l.IsFormed() && loc >= cfg.FormationFibThreshold() {
			l.MarkFormed(b.Index)
			rl.formed[l.ID] = formedEntry{PivotPriceAtFormation: l.PivotPrice, FormationBar: b.Index}
			rl.bin.AddLeg(l.ID, l.Range, b.Timestamp, cfg.RecomputeInterval())
		}
	}

	median := rl.bin.Median(cfg.DefaultMedian())
	isWarmingUp := rl.bin.TotalCount() < cfg.MinSwingsForClassification()

	type candidate struct {
		l        *leg.Leg
		bin      int
		location float64
	}
	var candidates []candidate

	for _, l := range legs {
		if l.Status != leg.Active {
			continue
		}
		if _, ok := rl.formed[l.ID]; !ok {
			stats[refagg.ReasonNotFormed]++
			continue
		}

		binID := rl.bin.BinOf(l.Range)
		barLocation := swing.Location(*l, b.Close)
		extremeLocation := swing.Location(*l, adverseWick(l, b))

		if extremeLocation < 0 || barLocation < 0 {
			delete(rl.formed, l.ID)
			stats[refagg.ReasonPivotBreached]++
			continue
		}
		if extremeLocation > 2.0+swing.CompletionEpsilon {
			delete(rl.formed, l.ID)
			stats[refagg.ReasonCompleted]++
			continue
		}

		fatalOrigin := false
		if binID < cfg.SignificantBinThreshold() {
			fatalOrigin = extremeLocation > 1+cfg.SmallOriginTolerance()
		} else {
			fatalOrigin = extremeLocation > 1+cfg.BigTradeBreachTolerance() || barLocation > 1+cfg.BigCloseBreachTolerance()
		}
		if fatalOrigin {
			delete(rl.formed, l.ID)
			stats[refagg.ReasonOriginBreached]++
			continue
		}

		candidates = append(candidates, candidate{l: l, bin: binID, location: barLocation})
	}

	swings := make([]refagg.Swing, 0, len(candidates))
	for _, c := range candidates {
		ageBars := b.Index - c.l.CreatedAtBar
		salience := computeSalience(*c.l, cfg.Weights(), median, cfg.RecencyDecayBars(), cfg.DepthDecayFactor(), ageBars)
		medianMultiple := 0.0
		if median > 0 {
			medianMultiple = c.l.Range / median
		}
		swings = append(swings, refagg.Swing{
			Leg:            *c.l,
			Bin:            c.bin,
			MedianMultiple: medianMultiple,
			Depth:          c.l.Depth,
			Location:       swing.CappedLocation(c.location),
			SalienceScore:  salience,
		})
	}

	sort.SliceStable(swings, func(i, j int) bool {
		if swings[i].SalienceScore != swings[j].SalienceScore {
			return swings[i].SalienceScore > swings[j].SalienceScore
		}
		return swings[i].Leg.ID < swings[j].Leg.ID
	})

	var references, activeFiltered []refagg.Swing
	if !isWarmingUp {
		topN := cfg.TopN()
		if topN > len(swings) {
			topN = len(swings)
		}
		references = append(references, swings[:topN]...)
		activeFiltered = append(activeFiltered, swings[topN:]...)
	}

	byBin := map[int][]refagg.Swing{}
	byDepth := map[int][]refagg.Swing{}
	byDirection := map[leg.Direction][]refagg.Swing{}
	var significant []refagg.Swing
	var bullCount, bearCount int
	for _, s := range references {
		byBin[s.Bin] = append(byBin[s.Bin], s)
		byDepth[s.Depth] = append(byDepth[s.Depth], s)
		byDirection[s.Leg.Direction] = append(byDirection[s.Leg.Direction], s)
		if s.Bin >= cfg.SignificantBinThreshold() {
			significant = append(significant, s)
		}
		if s.Leg.Direction == leg.Bull {
			bullCount++
		} else {
			bearCount++
		}
	}

	imbalance := refagg.ImbalanceNone
	if bullCount > 2*bearCount && bullCount >= 2 {
		imbalance = refagg.ImbalanceBull
	} else if bearCount > 2*bullCount && bearCount >= 2 {
		imbalance = refagg.ImbalanceBear
	}

	return refagg.State{
		References:         references,
		ActiveFiltered:     activeFiltered,
		ByBin:              byBin,
		ByDepth:            byDepth,
		ByDirection:        byDirection,
		Significant:        significant,
		DirectionImbalance: imbalance,
		IsWarmingUp:        isWarmingUp,
		WarmupProgress:     refagg.WarmupProgress{Observed: rl.bin.TotalCount(), Required: cfg.MinSwingsForClassification()},
		FilterStats:        stats,
	}
}

// computeSalience implements the §4.6 weighted-sum formula, redistributing
// the impulse weight proportionally across the other weights in use when
// impulsiveness is missing on l.
func computeSalience(l leg.Leg, w cfgpkg.SalienceWeights, median, recencyDecayBars, depthDecayFactor float64, ageBars int64) float64 {
	denom := 25 * median
	var rangeScore, counterScore, rangeCounterScore float64
	if denom > 0 {
		rangeScore = l.Range / denom
		counter := 0.0
		if l.CounterRange != nil {
			counter = *l.CounterRange
		}
		counterScore = counter / denom
		rangeCounterScore = (l.Range * counter) / (denom * denom)
	}

	impulseWeight := w.Impulse
	impulseScore := 0.0
	if l.Impulsiveness != nil {
		impulseScore = *l.Impulsiveness / 100
	} else {
		impulseWeight = 0
	}

	recencyScore := 1 / (1 + float64(ageBars)/recencyDecayBars)
	depthScore := 1 / (1 + float64(l.Depth)*depthDecayFactor)

	weights := []float64{w.Range, w.Counter, w.RangeCounter, impulseWeight, w.Recency, w.Depth}
	total := 0.0
	for _, v := range weights {
		total += v
	}
	if l.Impulsiveness == nil && total > 0 && w.Impulse > 0 {
		// Redistribute the dropped impulse weight proportionally across
		// the other weights currently in use.
		remaining := total
		scale := (total + w.Impulse) / remaining
		return (w.Range*scale*rangeScore + w.Counter*scale*counterScore + w.RangeCounter*scale*rangeCounterScore +
			w.Recency*scale*recencyScore + w.Depth*scale*depthScore)
	}

	return w.Range*rangeScore + w.Counter*counterScore + w.RangeCounter*rangeCounterScore +
		impulseWeight*impulseScore + w.Recency*recencyScore + w.Depth*depthScore
}
