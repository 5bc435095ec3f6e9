package config

import "fmt"

// DetectorConfig is an immutable parameter record for the leg detector.
// Modifications go through the With* builder methods, each of which
// returns a freshly validated copy; the zero value is never valid on
// its own, use DefaultDetectorConfig.
type DetectorConfig struct {
	lookback                  int
	minLegRangeThreshold      float64
	engulfedBreachThreshold   float64
	pivotBreachTolerance      float64
	staleExtensionThreshold   int64
	dominanceFactor           float64
	originRangePruneThreshold float64
	originTimePruneThreshold  int64
}

// DefaultDetectorConfig returns the spec-default detector parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		lookback:                  5,
		minLegRangeThreshold:      0,
		engulfedBreachThreshold:   0.1,
		pivotBreachTolerance:      0.1,
		staleExtensionThreshold:   50,
		dominanceFactor:           1.5,
		originRangePruneThreshold: 0.1,
		originTimePruneThreshold:  10,
	}
}

func (c DetectorConfig) Lookback() int                      { return c.lookback }
func (c DetectorConfig) MinLegRangeThreshold() float64       { return c.minLegRangeThreshold }
func (c DetectorConfig) EngulfedBreachThreshold() float64    { return c.engulfedBreachThreshold }
func (c DetectorConfig) PivotBreachTolerance() float64       { return c.pivotBreachTolerance }
func (c DetectorConfig) StaleExtensionThreshold() int64      { return c.staleExtensionThreshold }
func (c DetectorConfig) DominanceFactor() float64            { return c.dominanceFactor }
func (c DetectorConfig) OriginRangePruneThreshold() float64  { return c.originRangePruneThreshold }
func (c DetectorConfig) OriginTimePruneThreshold() int64     { return c.originTimePruneThreshold }

// WithLookback returns a copy with a new symmetric lookback window.
func (c DetectorConfig) WithLookback(l int) (DetectorConfig, error) {
	n := c
	n.lookback = l
	return n, n.Validate()
}

// WithMinLegRangeThreshold returns a copy with a new minimum implied
// range required to seed a candidate leg.
func (c DetectorConfig) WithMinLegRangeThreshold(v float64) (DetectorConfig, error) {
	n := c
	n.minLegRangeThreshold = v
	return n, n.Validate()
}

// WithEngulfedBreachThreshold returns a copy with a new engulfed-breach
// tolerance, expressed as a fraction of leg range.
func (c DetectorConfig) WithEngulfedBreachThreshold(v float64) (DetectorConfig, error) {
	n := c
	n.engulfedBreachThreshold = v
	return n, n.Validate()
}

// WithPivotBreachTolerance returns a copy with a new pivot-breach
// tolerance, expressed as a fraction of leg range.
func (c DetectorConfig) WithPivotBreachTolerance(v float64) (DetectorConfig, error) {
	n := c
	n.pivotBreachTolerance = v
	return n, n.Validate()
}

// WithStaleExtensionThreshold returns a copy with a new bar count past
// which a 2x-extended leg is pruned as stale.
func (c DetectorConfig) WithStaleExtensionThreshold(bars int64) (DetectorConfig, error) {
	n := c
	n.staleExtensionThreshold = bars
	return n, n.Validate()
}

// WithDominanceFactor returns a copy with a new dominance multiple used
// by the dominated-in-turn prune rule.
func (c DetectorConfig) WithDominanceFactor(v float64) (DetectorConfig, error) {
	n := c
	n.dominanceFactor = v
	return n, n.Validate()
}

// WithOriginRangePruneThreshold returns a copy with a new origin
// proximity fraction (of max range) used by the origin-proximity prune.
func (c DetectorConfig) WithOriginRangePruneThreshold(v float64) (DetectorConfig, error) {
	n := c
	n.originRangePruneThreshold = v
	return n, n.Validate()
}

// WithOriginTimePruneThreshold returns a copy with a new bar-distance
// threshold used by the origin proximity prune.
func (c DetectorConfig) WithOriginTimePruneThreshold(bars int64) (DetectorConfig, error) {
	n := c
	n.originTimePruneThreshold = bars
	return n, n.Validate()
}

// Validate returns a *ValidationError aggregating every invalid field,
// or nil if the record is well-formed.
func (c DetectorConfig) Validate() error {
	var errs []string
	if c.lookback < 1 {
		errs = append(errs, fmt.Sprintf("lookback must be >= 1, got %d", c.lookback))
	}
	if c.minLegRangeThreshold < 0 {
		errs = append(errs, "min_leg_range_threshold must be >= 0")
	}
	if c.engulfedBreachThreshold < 0 {
		errs = append(errs, "engulfed_breach_threshold must be >= 0")
	}
	if c.pivotBreachTolerance < 0 {
		errs = append(errs, "pivot_breach_tolerance must be >= 0")
	}
	if c.staleExtensionThreshold < 0 {
		errs = append(errs, "stale_extension_threshold must be >= 0")
	}
	if c.dominanceFactor < 1 {
		errs = append(errs, "dominance_factor must be >= 1")
	}
	if c.originRangePruneThreshold < 0 {
		errs = append(errs, "origin_range_prune_threshold must be >= 0")
	}
	if c.originTimePruneThreshold < 0 {
		errs = append(errs, "origin_time_prune_threshold must be >= 0")
	}
	return newValidationError(errs)
}
