package usecase

import (
	"fmt"
	"time"

	"swingref/domain/aggregate/bar"
	cfgpkg "swingref/domain/aggregate/config"
	"swingref/domain/aggregate/event"
	"swingref/domain/aggregate/leg"
	refagg "swingref/domain/aggregate/reference"
	"swingref/domain/service/reference"
	"swingref/domain/service/swing"
	"swingref/infrastructure/metrics"

	"go.uber.org/zap"
)

type historyEntry struct {
	barIndex int64
	state    refagg.State
	snapshot refagg.Snapshot
}

// Session is one logical detector + reference layer + snapshot buffer,
// strictly serial per spec's concurrency model. Multiple sessions may
// run concurrently on disjoint state (see Fleet).
type Session struct {
	ID string

	detector *swing.Detector
	layer    *reference.Layer
	crossing *reference.CrossingTracker
	impulse  *swing.Impulse

	detectorCfg  cfgpkg.DetectorConfig
	referenceCfg cfgpkg.ReferenceConfig

	baseBarIndex      int64
	hasCurrent        bool
	currentIndex      int64
	nextExpectedIndex int64

	lastState refagg.State
	history   []historyEntry
	histIndex map[int64]int

	unusable bool

	log *zap.Logger
}

// NewSession establishes an empty detector and reference layer at
// baseBarIndex, the init() contract.
func NewSession(id string, detectorCfg cfgpkg.DetectorConfig, referenceCfg cfgpkg.ReferenceConfig, baseBarIndex int64, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		ID:                id,
		detector:          swing.NewDetector(detectorCfg.Lookback(), log),
		layer:             reference.NewLayer(log),
		crossing:          reference.NewCrossingTracker(),
		impulse:           swing.NewImpulse(),
		detectorCfg:       detectorCfg,
		referenceCfg:      referenceCfg,
		baseBarIndex:      baseBarIndex,
		nextExpectedIndex: baseBarIndex,
		histIndex:         make(map[int64]int),
		log:               log,
	}
}

// Reset empties detector and reference-layer state but preserves the
// current config records, per the reset() contract.
func (s *Session) Reset() {
	s.detector = swing.NewDetector(s.detectorCfg.Lookback(), s.log)
	s.layer = reference.NewLayer(s.log)
	s.crossing = reference.NewCrossingTracker()
	s.impulse = swing.NewImpulse()
	s.hasCurrent = false
	s.currentIndex = 0
	s.nextExpectedIndex = s.baseBarIndex
	s.lastState = refagg.State{}
	s.history = nil
	s.histIndex = make(map[int64]int)
	s.unusable = false
}

// UpdateDetectorConfig validates and adopts a new DetectorConfig. The
// underlying Store is never reallocated, so its accumulated active legs
// and pending origins are preserved across the swap automatically.
// A changed Lookback takes effect only at the next Reset, which rebuilds
// the detector; until then the Store keeps the pivot window width it was
// constructed with.
func (s *Session) UpdateDetectorConfig(cfg cfgpkg.DetectorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.detectorCfg = cfg
	return nil
}

// UpdateReferenceConfig validates and adopts a new ReferenceConfig. The
// Layer's BinDistribution and FormedRefs map are never reallocated, so
// their contents survive the swap (the property S6 exercises).
func (s *Session) UpdateReferenceConfig(cfg cfgpkg.ReferenceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.referenceCfg = cfg
	return nil
}

// DetectorConfig returns the session's current DetectorConfig.
func (s *Session) DetectorConfig() cfgpkg.DetectorConfig {
	return s.detectorCfg
}

// ReferenceConfig returns the session's current ReferenceConfig.
func (s *Session) ReferenceConfig() cfgpkg.ReferenceConfig {
	return s.referenceCfg
}

func legsByID(legs []*leg.Leg) map[string]*leg.Leg {
	out := make(map[string]*leg.Leg, len(legs))
	for _, l := range legs {
		out[l.ID] = l
	}
	return out
}

// Advance feeds bars (a contiguous extension of the current position)
// through detector -> reference layer -> crossing tracker, optionally
// buffering a RefStateSnapshot per bar. The whole call is validated
// up-front so a GapError/ShapeError leaves the session in its pre-call
// state: nothing commits until every bar has been checked.
func (s *Session) Advance(bars []bar.Bar, includeSnapshots bool) ([]event.Event, []refagg.Snapshot, error) {
	start := time.Now()
	defer func() { metrics.AdvanceDuration.Observe(time.Since(start).Seconds()) }()

	if s.unusable {
		return nil, nil, ErrSessionUnusable
	}

	expected := s.nextExpectedIndex
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return nil, nil, err
		}
		if b.Index != expected {
			return nil, nil, fmt.Errorf("%w: expected=%d got=%d", swing.ErrGap, expected, b.Index)
		}
		expected++
	}

	var events []event.Event
	var snapshotsOut []refagg.Snapshot

	for _, b := range bars {
		evs, err := s.detector.Update(b, s.detectorCfg)
		if err != nil {
			s.unusable = true
			return events, snapshotsOut, fmt.Errorf("%w: %v", ErrSessionUnusable, err)
		}
		events = append(events, evs...)

		s.impulse.Observe(b)
		active := s.detector.Store().ActiveLegs()
		s.impulse.Score(active)

		// Trim impulse history to the oldest bar any active leg or
		// pending origin can still reach back to.
		minOrigin := b.Index
		for _, l := range active {
			if l.OriginIndex < minOrigin {
				minOrigin = l.OriginIndex
			}
		}
		for _, dir := range [...]leg.Direction{leg.Bull, leg.Bear} {
			if po, ok := s.detector.Store().PendingOrigin(dir); ok && po.BarIndex < minOrigin {
				minOrigin = po.BarIndex
			}
		}
		s.impulse.Evict(minOrigin)

		state := s.layer.Advance(active, b, s.referenceCfg)

		var topRefID string
		if len(state.References) > 0 {
			topRefID = state.References[0].Leg.ID
		}
		autoTracked := s.crossing.AutoTrackedLegID(topRefID)
		crosses := s.crossing.DetectCrossings(legsByID(active), b, autoTracked)
		for _, c := range crosses {
			events = append(events, c)
			metrics.LevelCrossingsTotal.WithLabelValues(c.Direction.String()).Inc()
		}

		metrics.ActiveLegsGauge.WithLabelValues(s.ID).Set(float64(len(active)))

		median := s.layer.BinDistribution().Median(s.referenceCfg.DefaultMedian())
		snap := reference.BuildSnapshot(state, b, s.layer.FormedLegIDs(), median, autoTracked, crosses)

		s.lastState = state
		s.hasCurrent = true
		s.currentIndex = b.Index
		s.nextExpectedIndex = b.Index + 1

		if includeSnapshots {
			s.history = append(s.history, historyEntry{barIndex: b.Index, state: state, snapshot: snap})
			s.histIndex[b.Index] = len(s.history) - 1
			snapshotsOut = append(snapshotsOut, snap)
		}
	}

	return events, snapshotsOut, nil
}

// NextExpectedIndex returns the bar index Advance requires next.
func (s *Session) NextExpectedIndex() int64 {
	return s.nextExpectedIndex
}

// GetReferenceState returns the state at the current position (nil
// atBarIndex) or the buffered snapshot for an explicit, already-advanced
// bar index.
func (s *Session) GetReferenceState(atBarIndex *int64) (refagg.State, error) {
	if s.unusable {
		return refagg.State{}, ErrSessionUnusable
	}
	if atBarIndex == nil {
		return s.lastState, nil
	}
	if s.hasCurrent && *atBarIndex > s.currentIndex {
		return refagg.State{}, ErrIndexOutOfRange
	}
	idx, ok := s.histIndex[*atBarIndex]
	if !ok {
		return refagg.State{}, ErrIndexOutOfRange
	}
	return s.history[idx].state, nil
}

// Track pins legID for crossing detection, capped by the current
// ReferenceConfig's tracking cap.
func (s *Session) Track(legID string) error {
	return s.crossing.Track(legID, s.referenceCfg.TrackingCap())
}

// Untrack unpins legID.
func (s *Session) Untrack(legID string) {
	s.crossing.Untrack(legID)
}

// ActiveLegs returns value-copy views of the currently active legs.
func (s *Session) ActiveLegs() []leg.Leg {
	active := s.detector.Store().ActiveLegs()
	out := make([]leg.Leg, len(active))
	for i, l := range active {
		out[i] = *l
	}
	return out
}

// Lineage walks parent_leg_id for ancestors and scans the active set
// for descendants, among the currently active legs only: a leg that has
// since been pruned truncates the ancestor chain, since the core does
// not retain terminal legs once pruned.
func (s *Session) Lineage(legID string) (ancestors []leg.Leg, descendants []leg.Leg, depth int, err error) {
	byID := legsByID(s.detector.Store().ActiveLegs())
	target, ok := byID[legID]
	if !ok {
		return nil, nil, 0, fmt.Errorf("usecase: unknown leg id %q", legID)
	}
	depth = target.Depth

	cur := target
	for cur.ParentLegID != "" {
		parent, ok := byID[cur.ParentLegID]
		if !ok {
			break
		}
		ancestors = append(ancestors, *parent)
		cur = parent
	}

	for _, l := range s.detector.Store().ActiveLegs() {
		if l.ID == legID {
			continue
		}
		if ancestorChainContains(byID, l, legID) {
			descendants = append(descendants, *l)
		}
	}

	return ancestors, descendants, depth, nil
}

func ancestorChainContains(byID map[string]*leg.Leg, start *leg.Leg, targetID string) bool {
	cur := start
	for cur.ParentLegID != "" {
		if cur.ParentLegID == targetID {
			return true
		}
		parent, ok := byID[cur.ParentLegID]
		if !ok {
			return false
		}
		cur = parent
	}
	return false
}
