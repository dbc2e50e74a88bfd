// Package manifest defines the self-describing record of one backtest run
// and the content-fingerprint helpers the sweep stamps on every run output:
// one over the bar series (also the manifest's BarFingerprint) and one over
// the equity series.
package manifest

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/trendlab/trendlab/bar"
	"github.com/trendlab/trendlab/cost"
	"github.com/trendlab/trendlab/errs"
)

// RunManifest plus the cached bars must suffice to reproduce equity,
// trades, and metrics byte-identical.
type RunManifest struct {
	StrategyID      string
	StrategyVersion string
	Parameters      map[string]float64
	FillModel       cost.FillModel
	Cost            cost.Model
	Symbol          string
	Timeframe       string
	StartTS         int64
	EndTS           int64
	BarFingerprint  uint64
	CodeVersion     string
	Seed            int64
}

// Fingerprint computes a deterministic content hash over a bar series'
// columns, in index order, so that two byte-identical series always hash
// identically regardless of how they were loaded.
func Fingerprint(s *bar.Series) uint64 {
	h := xxhash.New()
	var buf [8]byte
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	h.Write([]byte(s.Symbol))
	h.Write([]byte(s.Timeframe))
	for i := 0; i < s.Len(); i++ {
		writeInt(s.TS[i])
		writeFloat(s.Open[i])
		writeFloat(s.High[i])
		writeFloat(s.Low[i])
		writeFloat(s.Close[i])
		writeFloat(s.Volume[i])
	}
	return h.Sum64()
}

// EquityFingerprint computes a deterministic content hash over an equity
// series' per-bar values, in index order — the `equity_fingerprint` of
// the sweep result set, comparable with Fingerprint's output since both
// use the same hash primitive.
func EquityFingerprint(equity []float64) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, v := range equity {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Validate rejects a manifest that could not reproduce its run.
func (m RunManifest) Validate() error {
	if m.StrategyID == "" {
		return errs.New(errs.InvalidConfig, "RunManifest.StrategyID must not be empty")
	}
	if m.Symbol == "" {
		return errs.New(errs.InvalidConfig, "RunManifest.Symbol must not be empty")
	}
	if m.EndTS < m.StartTS {
		return errs.Newf(errs.InvalidConfig, "RunManifest date range is inverted (start=%d end=%d)", m.StartTS, m.EndTS)
	}
	if m.BarFingerprint == 0 {
		return errs.New(errs.InvalidConfig, "RunManifest.BarFingerprint must be set")
	}
	return m.Cost.Validate()
}
