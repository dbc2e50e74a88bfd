// Package bar defines the OHLCV data model the rest of the core consumes:
// a single Bar observation and the immutable, columnar BarSeries built from
// an ordered run of them.
package bar

import (
	"math"

	"github.com/trendlab/trendlab/errs"
)

// Bar is a single OHLCV observation for one symbol at one timestamp.
type Bar struct {
	TS        int64 // Unix seconds, UTC
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
}

// Valid checks the single-bar invariant:
// low <= min(open, close) <= max(open, close) <= high; volume >= 0.
func (b Bar) Valid() error {
	if math.IsNaN(b.Open) || math.IsNaN(b.High) || math.IsNaN(b.Low) || math.IsNaN(b.Close) {
		return nil // NaN handling is the indicator/signal kernel's job, not a structural rejection here
	}
	lo := math.Min(b.Open, b.Close)
	hi := math.Max(b.Open, b.Close)
	if !(b.Low <= lo && lo <= hi && hi <= b.High) {
		return errs.Newf(errs.InvalidInput, "bar at ts=%d violates low<=min(o,c)<=max(o,c)<=high (o=%g h=%g l=%g c=%g)",
			b.TS, b.Open, b.High, b.Low, b.Close)
	}
	if b.Volume < 0 {
		return errs.Newf(errs.InvalidInput, "bar at ts=%d has negative volume %g", b.TS, b.Volume)
	}
	return nil
}

// Series is an ordered, immutable columnar table of Bars for one
// (symbol, timeframe). It is built once by New and never mutated afterward;
// the indicator/backtest kernels borrow it read-only for the duration of a
// sweep.
type Series struct {
	Symbol    string
	Timeframe string
	TS        []int64
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// New builds a Series from an ordered slice of Bars, validating the
// cross-bar invariants: strictly ascending timestamps per (symbol,
// timeframe), no duplicates, and per-bar OHLC sanity. The ingestion
// collaborator is responsible for resolving gaps/duplicates before handing
// bars to the core; New only rejects what the core itself cannot tolerate.
func New(bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, errs.New(errs.InvalidInput, "bar series must contain at least one bar")
	}
	symbol := bars[0].Symbol
	timeframe := bars[0].Timeframe

	s := &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		TS:        make([]int64, len(bars)),
		Open:      make([]float64, len(bars)),
		High:      make([]float64, len(bars)),
		Low:       make([]float64, len(bars)),
		Close:     make([]float64, len(bars)),
		Volume:    make([]float64, len(bars)),
	}

	for i, b := range bars {
		if b.Symbol != symbol || b.Timeframe != timeframe {
			return nil, errs.Newf(errs.InvalidInput, "bar %d has (symbol=%s, timeframe=%s), expected (%s, %s)",
				i, b.Symbol, b.Timeframe, symbol, timeframe)
		}
		if err := b.Valid(); err != nil {
			return nil, err
		}
		if i > 0 {
			if b.TS == bars[i-1].TS {
				return nil, errs.Newf(errs.InvalidInput, "duplicate timestamp %d at index %d", b.TS, i)
			}
			if b.TS < bars[i-1].TS {
				return nil, errs.Newf(errs.InvalidInput, "timestamps must be strictly ascending: index %d (ts=%d) precedes index %d (ts=%d)",
					i, b.TS, i-1, bars[i-1].TS)
			}
		}
		s.TS[i] = b.TS
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
		s.Volume[i] = b.Volume
	}
	return s, nil
}

// Len returns the number of bars in the series.
func (s *Series) Len() int { return len(s.TS) }

// At reconstructs the Bar at index i. Provided for callers that want a
// value-typed view; the kernels themselves operate on the columns directly.
func (s *Series) At(i int) Bar {
	return Bar{
		TS:        s.TS[i],
		Open:      s.Open[i],
		High:      s.High[i],
		Low:       s.Low[i],
		Close:     s.Close[i],
		Volume:    s.Volume[i],
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
	}
}

// Slice returns a read-only view over [from, to) of the series. It shares
// the underlying arrays (no copy) since the result is only ever consumed
// read-only by the kernels.
func (s *Series) Slice(from, to int) *Series {
	return &Series{
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		TS:        s.TS[from:to],
		Open:      s.Open[from:to],
		High:      s.High[from:to],
		Low:       s.Low[from:to],
		Close:     s.Close[from:to],
		Volume:    s.Volume[from:to],
	}
}
