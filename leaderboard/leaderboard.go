// Package leaderboard is the bounded top-N results store: a per-symbol
// leaderboard keyed by (symbol, strategy_type, config_id), a
// cross-symbol leaderboard keyed by (strategy_type, config_id), session and
// all-time scopes, and atomic persistence for the all-time scope.
package leaderboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/trendlab/trendlab/telemetry"
)

// Entry is one ranked configuration held by a leaderboard.
type Entry struct {
	ID           string
	Rank         int
	StrategyType string
	ConfigID     string
	Symbol       string // empty for cross-symbol entries
	Params       map[string]float64
	Metrics      map[string]float64
	Primary      float64
	Iteration    int
	DiscoveredAt int64 // Unix seconds
	WalkForward  map[string]float64 // optional; nil when validation disabled
}

// Board is a bounded top-N list ordered by Primary descending, ties broken
// by earlier DiscoveredAt (first-come stable), admitting a candidate only
// when it is strictly better than the current N-th entry.
type Board struct {
	Scope   string // "session" or "all_time", used only for telemetry labels
	N       int
	entries []Entry
}

// NewBoard creates an empty bounded board holding at most n entries.
func NewBoard(scope string, n int) *Board {
	return &Board{Scope: scope, N: n}
}

// Entries returns a read-only snapshot of the board in rank order.
func (b *Board) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Admit offers a candidate to the board. It returns true if the candidate
// was inserted (and assigns it an id/rank/discovery time if not already
// set). A candidate whose (strategy_type, config_id, symbol) key is already
// on the board replaces its prior entry only when strictly better;
// otherwise the board is unchanged — the same configuration never occupies
// two slots.
func (b *Board) Admit(candidate Entry, nowUnix int64) bool {
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if candidate.DiscoveredAt == 0 {
		candidate.DiscoveredAt = nowUnix
	}

	for i, e := range b.entries {
		if e.StrategyType == candidate.StrategyType && e.ConfigID == candidate.ConfigID && e.Symbol == candidate.Symbol {
			if candidate.Primary <= e.Primary {
				return false
			}
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			break
		}
	}

	insertAt := len(b.entries)
	for i, e := range b.entries {
		if candidate.Primary > e.Primary {
			insertAt = i
			break
		}
	}
	if insertAt >= b.N {
		return false
	}

	b.entries = append(b.entries, Entry{})
	copy(b.entries[insertAt+1:], b.entries[insertAt:])
	b.entries[insertAt] = candidate

	evicted := false
	if len(b.entries) > b.N {
		b.entries = b.entries[:b.N]
		evicted = true
	}
	for i := range b.entries {
		b.entries[i].Rank = i + 1
	}

	telemetry.LeaderboardAdmissions.WithLabelValues(b.Scope).Inc()
	if evicted {
		telemetry.LeaderboardEvictions.WithLabelValues(b.Scope).Inc()
	}
	telemetry.LeaderboardSize.WithLabelValues(b.Scope).Set(float64(len(b.entries)))
	return true
}

// Now is provided so callers can stamp DiscoveredAt without this package
// depending on wall-clock time internally (keeps Admit deterministic for
// tests).
func Now() int64 { return time.Now().Unix() }
