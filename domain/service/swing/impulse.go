package swing

import (
	"math"
	"sort"

	"swingref/domain/aggregate/bar"
	"swingref/domain/aggregate/leg"
)

// Impulse derives the optional impulsiveness percentile and
// counter-trend range fields the salience formula consumes. Spec.md
// leaves their exact derivation to the implementer's sub-pass; this one
// scores a leg's "sharpness" as the mean body/range ratio of the bars
// between origin and pivot (higher ratio = more directional, fewer
// wicks fighting the move) and ranks it as a percentile against the
// other currently-active legs of the same direction. counter_range is
// the largest adverse excursion (against the leg's direction) observed
// among those same bars, in price units.
type Impulse struct {
	// history holds bars by index, trimmed to the oldest origin still
	// referenced by an active leg; callers feed it via Observe.
	history map[int64]bar.Bar
}

// NewImpulse constructs an empty Impulse sub-pass.
func NewImpulse() *Impulse {
	return &Impulse{history: make(map[int64]bar.Bar)}
}

// Observe records b so later Score calls can look up bars between a
// leg's origin and pivot.
func (im *Impulse) Observe(b bar.Bar) {
	im.history[b.Index] = b
}

// Evict drops bars strictly before minIndex, bounding memory to the
// oldest origin any currently-active leg still references.
func (im *Impulse) Evict(minIndex int64) {
	for idx := range im.history {
		if idx < minIndex {
			delete(im.history, idx)
		}
	}
}

func bodyRatio(b bar.Bar) float64 {
	rng := b.High - b.Low
	if rng <= 0 {
		return 0
	}
	return math.Abs(b.Close-b.Open) / rng
}

// sharpness returns the mean body/range ratio of bars between
// l.OriginIndex and l.PivotIndex (inclusive), and the largest adverse
// excursion against the leg's direction observed in that span.
func (im *Impulse) sharpness(l leg.Leg) (mean float64, counterRange float64) {
	var sum float64
	var n int
	for idx := l.OriginIndex; idx <= l.PivotIndex; idx++ {
		b, ok := im.history[idx]
		if !ok {
			continue
		}
		sum += bodyRatio(b)
		n++
		if l.Direction == leg.Bull {
			adverse := l.OriginPrice - b.Low
			if adverse > counterRange {
				counterRange = adverse
			}
		} else {
			adverse := b.High - l.OriginPrice
			if adverse > counterRange {
				counterRange = adverse
			}
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), counterRange
}

// Score computes impulsiveness (a percentile in [0,100]) and
// counter_range for every active leg in legs, mutating each in place.
// Legs whose span has no recorded history are left with nil fields.
func (im *Impulse) Score(legs []*leg.Leg) {
	type scored struct {
		l     *leg.Leg
		sharp float64
		ok    bool
	}
	byDir := map[leg.Direction][]scored{}
	for _, l := range legs {
		sharp, counter := im.sharpness(*l)
		hasHistory := sharp != 0 || counter != 0
		if hasHistory {
			c := counter
			l.CounterRange = &c
		}
		byDir[l.Direction] = append(byDir[l.Direction], scored{l: l, sharp: sharp, ok: hasHistory})
	}
	for _, group := range byDir {
		ranked := make([]scored, 0, len(group))
		for _, s := range group {
			if s.ok {
				ranked = append(ranked, s)
			}
		}
		sort.Slice(ranked, func(i, j int) bool { return ranked[i].sharp < ranked[j].sharp })
		n := len(ranked)
		for i, s := range ranked {
			var pct float64
			if n > 1 {
				pct = 100 * float64(i) / float64(n-1)
			}
			p := pct
			s.l.Impulsiveness = &p
		}
	}
}
