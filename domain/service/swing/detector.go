package swing

import (
	"math"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	"swingref/domain/aggregate/event"
	"swingref/domain/aggregate/leg"
	"swingref/infrastructure/metrics"

	"go.uber.org/zap"
)

// Detector runs the per-bar update protocol (§4.4 of the design this
// module implements) against a Store: confirming pivots, extending or
// seeding legs, tracking breach extremes, and pruning terminal legs.
type Detector struct {
	store  *Store
	log    *zap.Logger
	lastBar int64
	hasLastBar bool
}

// NewDetector constructs a Detector backed by a fresh Store at the
// given lookback.
func NewDetector(lookback int, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{store: NewStore(lookback), log: log}
}

// Store exposes the underlying leg store for read access (reference
// layer, HTTP presentation views).
func (d *Detector) Store() *Store { return d.store }

// Update ingests one bar, applying the full seven-step protocol, and
// returns the lifecycle events emitted in creation order.
func (d *Detector) Update(b bar.Bar, cfg cfgpkg.DetectorConfig) ([]event.Event, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	var events []event.Event

	// Step 1: append.
	if err := d.store.Append(b); err != nil {
		return nil, err
	}
	d.lastBar = b.Index
	d.hasLastBar = true

	// Step 2: confirm pivots at i-L.
	high, low := d.store.ConfirmPivot()

	// Steps 3+4: extend same-direction legs, then seed from the
	// opposite-direction pending origin, for each confirmed pivot.
	if high != nil {
		events = append(events, d.handleConfirmedPivot(*high, cfg, b.Index)...)
	}
	if low != nil {
		events = append(events, d.handleConfirmedPivot(*low, cfg, b.Index)...)
	}

	// Step 5: breach tracking against the current bar's extremes.
	d.trackBreaches(b)

	// Step 6: classify terminal states (engulfed, pivot-breached, stale,
	// dominance, proximity), emitting LegPruned/PivotBreached/OriginBreached.
	events = append(events, d.classifyTerminal(cfg, b)...)

	return events, nil
}

// handleConfirmedPivot applies step 3 (extend same-direction legs) and
// step 4 (seed a new leg from the opposite pending origin), then
// refreshes the pending origin for the opposite direction to this pivot.
func (d *Detector) handleConfirmedPivot(p ConfirmedPivot, cfg cfgpkg.DetectorConfig, barIndex int64) []event.Event {
	var events []event.Event

	// A confirmed high extends bull pivots and seeds bull legs from the
	// bull pending origin (a low); a confirmed low does the symmetric
	// thing for bear legs.
	extendDir := leg.Bear
	if p.IsHigh {
		extendDir = leg.Bull
	}
	for _, l := range d.store.ActiveLegs() {
		if l.Direction != extendDir || l.Status != leg.Active {
			continue
		}
		if l.ExtendsPivot(p.Price) {
			l.ExtendPivot(p.Price, p.Index)
		}
	}

	if po, ok := d.store.PendingOrigin(extendDir); ok && po.BarIndex < p.Index {
		impliedRange := math.Abs(p.Price - po.Price)
		if impliedRange > cfg.MinLegRangeThreshold() {
			id := NewLegID(extendDir, po.BarIndex, barIndex)
			originPrice, pivotPrice := po.Price, p.Price
			originIdx, pivotIdx := po.BarIndex, p.Index
			newLeg := leg.New(id, extendDir, originPrice, originIdx, pivotPrice, pivotIdx, barIndex)
			newLeg.ParentLegID = d.findParent(extendDir, newLeg)
			if newLeg.ParentLegID != "" {
				for _, parent := range d.store.ActiveLegs() {
					if parent.ID == newLeg.ParentLegID {
						newLeg.Depth = parent.Depth + 1
						break
					}
				}
			}
			stored := d.store.AddLeg(newLeg)
			events = append(events, event.LegCreated{
				LegID: stored.ID, Direction: stored.Direction,
				OriginPrice: stored.OriginPrice, OriginIndex: stored.OriginIndex,
				PivotPrice: stored.PivotPrice, PivotIndex: stored.PivotIndex,
				BarIndex: barIndex,
			})
			metrics.LegsCreatedTotal.WithLabelValues(stored.Direction.String()).Inc()
		}
	}

	// This confirmed pivot becomes the newest pending origin candidate
	// for the opposite leg direction.
	oppositeLegDir := extendDir.Opposite()
	d.store.SetPendingOrigin(leg.PendingOrigin{
		Price: p.Price, BarIndex: p.Index, Direction: oppositeLegDir, Source: leg.SourcePriorPivot,
	})

	return events
}

// findParent returns the id of the innermost currently-active,
// same-direction leg that fully brackets candidate, or "" if none.
func (d *Detector) findParent(dir leg.Direction, candidate leg.Leg) string {
	var best *leg.Leg
	for _, l := range d.store.ActiveLegs() {
		if l.Direction != dir || l.Status != leg.Active {
			continue
		}
		if !l.Contains(candidate) {
			continue
		}
		if best == nil || l.Range < best.Range {
			best = l
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// pivotTestPrice and originTestPrice return the bar extreme that tests
// the pivot-side / origin-side boundary for l's direction: bull's
// defended pivot is upside (tested with High), defended origin is
// downside (tested with Low); bear is the mirror image.
func pivotTestPrice(l *leg.Leg, b bar.Bar) float64 {
	if l.Direction == leg.Bull {
		return b.High
	}
	return b.Low
}

func originTestPrice(l *leg.Leg, b bar.Bar) float64 {
	if l.Direction == leg.Bull {
		return b.Low
	}
	return b.High
}

// trackBreaches updates MaxPivotBreach/MaxOriginBreach on every active
// leg using the current bar's adverse-wick extremes.
func (d *Detector) trackBreaches(b bar.Bar) {
	for _, l := range d.store.ActiveLegs() {
		if l.Status != leg.Active {
			continue
		}
		pivotLoc := Location(*l, pivotTestPrice(l, b))
		if IsPivotBreach(pivotLoc) {
			l.RecordPivotBreach(-pivotLoc)
		}
		originLoc := Location(*l, originTestPrice(l, b))
		if originLoc > 1 {
			l.RecordOriginBreach(originLoc - 1)
		}
		if IsCompleted(Location(*l, b.Close)) {
			if l.CompletionSinceBar == nil {
				since := b.Index
				l.CompletionSinceBar = &since
			}
		} else {
			l.CompletionSinceBar = nil
		}
	}
}

// classifyTerminal applies step 6's prune rules in order, skipping any
// leg that has already left active this bar.
func (d *Detector) classifyTerminal(cfg cfgpkg.DetectorConfig, b bar.Bar) []event.Event {
	var events []event.Event

	pruned := make(map[string]bool)
	prune := func(l *leg.Leg, status leg.Status, reason leg.PruneReason, explanation string) {
		l.Status = status
		pruned[l.ID] = true
		events = append(events, event.LegPruned{LegID: l.ID, Reason: reason, Explanation: explanation, BarIndex: b.Index})
		metrics.LegsPrunedTotal.WithLabelValues(string(reason)).Inc()
		d.log.Debug("leg pruned", zap.String("leg_id", l.ID), zap.String("reason", string(reason)), zap.Int64("bar_index", b.Index))
	}

	active := append([]*leg.Leg(nil), d.store.ActiveLegs()...)

	// Informational breach events, fired once when a leg first records a
	// breach on either side.
	for _, l := range active {
		if l.Status != leg.Active {
			continue
		}
		if l.MaxOriginBreach != nil && *l.MaxOriginBreach > 0 && !l.OriginBreachAnnounced {
			events = append(events, event.OriginBreached{LegID: l.ID, BreachPrice: originTestPrice(l, b), BarIndex: b.Index})
			l.OriginBreachAnnounced = true
		}
		if l.MaxPivotBreach != nil && *l.MaxPivotBreach > 0 && !l.PivotBreachAnnounced {
			events = append(events, event.PivotBreached{LegID: l.ID, BreachPrice: pivotTestPrice(l, b), BreachAmount: *l.MaxPivotBreach, BarIndex: b.Index})
			l.PivotBreachAnnounced = true
		}
	}

	// Engulfed: both sides breached past tolerance.
	for _, l := range active {
		if l.Status != leg.Active || pruned[l.ID] {
			continue
		}
		if l.MaxOriginBreach != nil && *l.MaxOriginBreach > cfg.EngulfedBreachThreshold() &&
			l.MaxPivotBreach != nil && *l.MaxPivotBreach > cfg.EngulfedBreachThreshold() {
			prune(l, leg.Engulfed, leg.ReasonEngulfed, "origin and pivot both breached past engulfed tolerance")
		}
	}

	// Pivot breached past tolerance.
	for _, l := range active {
		if l.Status != leg.Active || pruned[l.ID] {
			continue
		}
		if l.MaxPivotBreach != nil && *l.MaxPivotBreach > cfg.PivotBreachTolerance() {
			prune(l, leg.PivotBreachedStatus, leg.ReasonPivotBreach, "pivot breached past tolerance")
		}
	}

	// Stale extension.
	for _, l := range active {
		if l.Status != leg.Active || pruned[l.ID] {
			continue
		}
		if l.CompletionSinceBar != nil && b.Index-*l.CompletionSinceBar > cfg.StaleExtensionThreshold() {
			prune(l, leg.Pruned, leg.ReasonExtensionPrune, "extended past completion for too many bars")
		}
	}

	// Dominated in turn: same direction legs sharing an identical pivot.
	for i, a := range active {
		if a.Status != leg.Active || pruned[a.ID] {
			continue
		}
		for j, o := range active {
			if i == j || o.Status != leg.Active || pruned[o.ID] {
				continue
			}
			if a.Direction != o.Direction || a.PivotIndex != o.PivotIndex {
				continue
			}
			if a.Range >= cfg.DominanceFactor()*o.Range && a.OriginIndex != o.OriginIndex {
				if a.Range == o.Range && a.OriginIndex > o.OriginIndex {
					continue // tie: older (smaller origin_index) retained
				}
				if a.Range > o.Range || a.OriginIndex < o.OriginIndex {
					prune(o, leg.Pruned, leg.ReasonDominatedInTurn, "dominated by a larger leg sharing the same pivot")
				}
			}
		}
	}

	// Origin/time proximity.
	for i, a := range active {
		if a.Status != leg.Active || pruned[a.ID] {
			continue
		}
		for j, o := range active {
			if i == j || o.Status != leg.Active || pruned[o.ID] {
				continue
			}
			if a.Direction != o.Direction {
				continue
			}
			maxRange := a.Range
			if o.Range > maxRange {
				maxRange = o.Range
			}
			priceDist := math.Abs(a.OriginPrice - o.OriginPrice)
			barDist := a.OriginIndex - o.OriginIndex
			if barDist < 0 {
				barDist = -barDist
			}
			smaller, larger := a, o
			if larger.Range < smaller.Range {
				smaller, larger = larger, smaller
			}
			if smaller.ID == larger.ID {
				continue
			}
			if priceDist <= cfg.OriginRangePruneThreshold()*maxRange {
				prune(smaller, leg.Pruned, leg.ReasonOriginRangePrune, "origin within price-proximity of a larger same-direction leg")
				continue
			}
			if barDist <= cfg.OriginTimePruneThreshold() {
				prune(smaller, leg.Pruned, leg.ReasonOriginTimePrune, "origin within bar-proximity of a larger same-direction leg")
			}
		}
	}

	for id := range pruned {
		d.store.RemoveLeg(id)
	}

	return events
}
