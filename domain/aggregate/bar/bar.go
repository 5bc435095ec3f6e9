// Package bar defines the OHLC bar value type consumed by the swing
// detector and reference layer.
package bar

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonFinite is returned when a bar carries a NaN or infinite price.
var ErrNonFinite = errors.New("bar: non-finite price")

// ErrShape is returned when a bar's OHLC values violate the
// low <= open,close <= high invariant.
var ErrShape = errors.New("bar: invalid OHLC shape")

// Bar is one OHLC candle at the source's native resolution. It is
// immutable once constructed.
type Bar struct {
	Index     int64
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// New validates and returns a Bar. Callers should prefer this over
// constructing a Bar literal directly so the shape invariant always holds.
func New(index, timestamp int64, open, high, low, close float64) (Bar, error) {
	b := Bar{Index: index, Timestamp: timestamp, Open: open, High: high, Low: low, Close: close}
	if err := b.Validate(); err != nil {
		return Bar{}, err
	}
	return b, nil
}

// Validate checks the finiteness and shape invariants described in the
// data model: low <= open,close <= high and low <= high.
func (b Bar) Validate() error {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: index=%d", ErrNonFinite, b.Index)
		}
	}
	if b.Low > b.High || b.Low > b.Open || b.Low > b.Close || b.Open > b.High || b.Close > b.High {
		return fmt.Errorf("%w: index=%d low=%v open=%v close=%v high=%v", ErrShape, b.Index, b.Low, b.Open, b.Close, b.High)
	}
	return nil
}

// PrecedesContiguous reports whether next is exactly one index past b,
// the contiguity rule the detector's Append step enforces.
func (b Bar) PrecedesContiguous(next Bar) bool {
	return next.Index == b.Index+1
}
