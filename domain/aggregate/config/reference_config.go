package config

import "fmt"

// SalienceWeights are the non-negative weights applied to each salience
// component. They are not required to sum to 1.
type SalienceWeights struct {
	Range         float64
	Counter       float64
	RangeCounter  float64
	Impulse       float64
	Recency       float64
	Depth         float64
}

// DefaultSalienceWeights returns the spec-default weighting.
func DefaultSalienceWeights() SalienceWeights {
	return SalienceWeights{Range: 0.8, Counter: 0, RangeCounter: 0, Impulse: 0.3, Recency: 0.4, Depth: 0}
}

func (w SalienceWeights) validate() []string {
	var errs []string
	for name, v := range map[string]float64{
		"range": w.Range, "counter": w.Counter, "range_counter": w.RangeCounter,
		"impulse": w.Impulse, "recency": w.Recency, "depth": w.Depth,
	} {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("salience weight %q must be >= 0", name))
		}
	}
	return errs
}

// ReferenceConfig is an immutable parameter record for the reference
// layer: formation/breach tolerances, bin classification, and salience
// weighting.
type ReferenceConfig struct {
	formationFibThreshold       float64
	smallOriginTolerance        float64
	bigTradeBreachTolerance     float64
	bigCloseBreachTolerance     float64
	significantBinThreshold     int
	topN                        int
	minSwingsForClassification  int
	recencyDecayBars            float64
	depthDecayFactor            float64
	windowDuration              int64
	recomputeInterval           int
	defaultMedian               float64
	weights                     SalienceWeights
	trackingCap                 int
}

// DefaultReferenceConfig returns the spec-default reference layer parameters.
func DefaultReferenceConfig() ReferenceConfig {
	return ReferenceConfig{
		formationFibThreshold:      0.382,
		smallOriginTolerance:       0,
		bigTradeBreachTolerance:    0.15,
		bigCloseBreachTolerance:    0.10,
		significantBinThreshold:    8,
		topN:                       5,
		minSwingsForClassification: 50,
		recencyDecayBars:           1000,
		depthDecayFactor:           0.5,
		windowDuration:             30 * 24 * 3600,
		recomputeInterval:          200,
		defaultMedian:              1.0,
		weights:                    DefaultSalienceWeights(),
		trackingCap:                10,
	}
}

func (c ReferenceConfig) FormationFibThreshold() float64      { return c.formationFibThreshold }
func (c ReferenceConfig) SmallOriginTolerance() float64       { return c.smallOriginTolerance }
func (c ReferenceConfig) BigTradeBreachTolerance() float64    { return c.bigTradeBreachTolerance }
func (c ReferenceConfig) BigCloseBreachTolerance() float64    { return c.bigCloseBreachTolerance }
func (c ReferenceConfig) SignificantBinThreshold() int        { return c.significantBinThreshold }
func (c ReferenceConfig) TopN() int                           { return c.topN }
func (c ReferenceConfig) MinSwingsForClassification() int     { return c.minSwingsForClassification }
func (c ReferenceConfig) RecencyDecayBars() float64           { return c.recencyDecayBars }
func (c ReferenceConfig) DepthDecayFactor() float64           { return c.depthDecayFactor }
func (c ReferenceConfig) WindowDuration() int64               { return c.windowDuration }
func (c ReferenceConfig) RecomputeInterval() int              { return c.recomputeInterval }
func (c ReferenceConfig) DefaultMedian() float64              { return c.defaultMedian }
func (c ReferenceConfig) Weights() SalienceWeights            { return c.weights }
func (c ReferenceConfig) TrackingCap() int                    { return c.trackingCap }

func (c ReferenceConfig) WithFormationFibThreshold(v float64) (ReferenceConfig, error) {
	n := c
	n.formationFibThreshold = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithSmallOriginTolerance(v float64) (ReferenceConfig, error) {
	n := c
	n.smallOriginTolerance = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithBigTradeBreachTolerance(v float64) (ReferenceConfig, error) {
	n := c
	n.bigTradeBreachTolerance = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithBigCloseBreachTolerance(v float64) (ReferenceConfig, error) {
	n := c
	n.bigCloseBreachTolerance = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithSignificantBinThreshold(v int) (ReferenceConfig, error) {
	n := c
	n.significantBinThreshold = v
	return n, n.Validate()
}

// WithTopN returns a copy with a new top-N reference count. This is the
// field S6 exercises to prove config swaps preserve accumulated state.
func (c ReferenceConfig) WithTopN(v int) (ReferenceConfig, error) {
	n := c
	n.topN = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithMinSwingsForClassification(v int) (ReferenceConfig, error) {
	n := c
	n.minSwingsForClassification = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithRecencyDecayBars(v float64) (ReferenceConfig, error) {
	n := c
	n.recencyDecayBars = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithDepthDecayFactor(v float64) (ReferenceConfig, error) {
	n := c
	n.depthDecayFactor = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithWindowDuration(v int64) (ReferenceConfig, error) {
	n := c
	n.windowDuration = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithRecomputeInterval(v int) (ReferenceConfig, error) {
	n := c
	n.recomputeInterval = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithDefaultMedian(v float64) (ReferenceConfig, error) {
	n := c
	n.defaultMedian = v
	return n, n.Validate()
}

func (c ReferenceConfig) WithWeights(w SalienceWeights) (ReferenceConfig, error) {
	n := c
	n.weights = w
	return n, n.Validate()
}

func (c ReferenceConfig) WithTrackingCap(v int) (ReferenceConfig, error) {
	n := c
	n.trackingCap = v
	return n, n.Validate()
}

// Validate returns a *ValidationError aggregating every invalid field,
// or nil if the record is well-formed. ConfigInvalid (e.g. negative
// weights, min_swings_for_classification < 1) is surfaced this way.
func (c ReferenceConfig) Validate() error {
	var errs []string
	if c.formationFibThreshold < 0 {
		errs = append(errs, "formation_fib_threshold must be >= 0")
	}
	if c.smallOriginTolerance < 0 {
		errs = append(errs, "small_origin_tolerance must be >= 0")
	}
	if c.bigTradeBreachTolerance < 0 {
		errs = append(errs, "big_trade_breach_tolerance must be >= 0")
	}
	if c.bigCloseBreachTolerance < 0 {
		errs = append(errs, "big_close_breach_tolerance must be >= 0")
	}
	if c.significantBinThreshold < 0 || c.significantBinThreshold > 10 {
		errs = append(errs, "significant_bin_threshold must be within [0,10]")
	}
	if c.topN < 1 {
		errs = append(errs, "top_n must be >= 1")
	}
	if c.minSwingsForClassification < 1 {
		errs = append(errs, "min_swings_for_classification must be >= 1")
	}
	if c.recencyDecayBars <= 0 {
		errs = append(errs, "recency_decay_bars must be > 0")
	}
	if c.depthDecayFactor < 0 {
		errs = append(errs, "depth_decay_factor must be >= 0")
	}
	if c.windowDuration <= 0 {
		errs = append(errs, "window_duration must be > 0")
	}
	if c.recomputeInterval < 1 {
		errs = append(errs, "recompute_interval must be >= 1")
	}
	if c.trackingCap < 1 {
		errs = append(errs, "tracking_cap must be >= 1")
	}
	errs = append(errs, c.weights.validate()...)
	return newValidationError(errs)
}
