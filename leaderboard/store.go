package leaderboard

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/trendlab/trendlab/errs"
	"github.com/trendlab/trendlab/logging"
)

// Scope names, used both as telemetry labels and in Snapshot keys.
const (
	ScopeSession = "session"
	ScopeAllTime = "all_time"
)

// boardSet is one scope's pair of leaderboards: a per-symbol board for each
// symbol seen, and the single cross-symbol board.
type boardSet struct {
	perSymbol map[string]*Board
	cross     *Board
}

func newBoardSet(scope string, n int) boardSet {
	return boardSet{
		perSymbol: map[string]*Board{},
		cross:     NewBoard(scope, n),
	}
}

func (bs boardSet) symbolBoard(scope string, symbol string, n int) *Board {
	b, ok := bs.perSymbol[symbol]
	if !ok {
		b = NewBoard(scope, n)
		bs.perSymbol[symbol] = b
	}
	return b
}

// Snapshot is an immutable copy of both scopes' boards, emitted on every
// admission event. The copies are owned by the receiver (the stored entries
// are never borrowed from run outputs).
type Snapshot struct {
	SessionPerSymbol map[string][]Entry
	SessionCross     []Entry
	AllTimePerSymbol map[string][]Entry
	AllTimeCross     []Entry
}

// Store is the aggregating YOLO leaderboard: session and
// all-time scopes, each with per-symbol and cross-symbol boards, guarded by
// one short critical section around admission. The all-time scope is written
// atomically to disk on every admission; a failed advisory-lock acquisition
// or persist degrades the store to session-only writes with a warning,
// never an error.
type Store struct {
	mu      sync.Mutex
	topN    int
	session boardSet
	allTime boardSet

	path        string // empty disables persistence entirely
	sessionOnly bool
	lock        *os.File
	log         logging.Logger

	// Snapshots receives a Snapshot on every admission. Emission is
	// non-blocking: a full channel drops the snapshot rather than stalling
	// the admitting worker, matching the orchestrator's event channel policy.
	Snapshots chan Snapshot
}

// persistedStore is the schema-versioned on-disk form of the all-time scope.
// Unknown fields are ignored on load for forward compatibility.
type persistedStore struct {
	SchemaVersion int                `json:"schema_version"`
	PerSymbol     map[string][]Entry `json:"per_symbol"`
	Cross         []Entry            `json:"cross_symbol"`
}

// NewStore builds a Store bounded at topN entries per board. When path is
// non-empty the all-time scope is loaded from it (a malformed file is
// quarantined with a .bad suffix and an empty all-time scope used instead)
// and an advisory lock taken next to it; if the lock is already held by
// another sweep, the store degrades to session-only writes with a warning.
func NewStore(topN int, path string, snapshotBuffer int, log logging.Logger) (*Store, error) {
	if topN < 1 {
		return nil, errs.New(errs.InvalidConfig, "leaderboard topN must be positive")
	}
	if log == nil {
		log = logging.Noop{}
	}
	s := &Store{
		topN:      topN,
		session:   newBoardSet(ScopeSession, topN),
		allTime:   newBoardSet(ScopeAllTime, topN),
		path:      path,
		log:       log,
		Snapshots: make(chan Snapshot, snapshotBuffer),
	}
	if path == "" {
		s.sessionOnly = true
		return s, nil
	}

	if err := EnsureDir(path); err != nil {
		return nil, err
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	lock, err := AcquireLock(path)
	if err != nil {
		log.Warn("leaderboard advisory lock unavailable, degrading to session-only writes",
			logging.Path(path), logging.Err(err))
		s.sessionOnly = true
		return s, nil
	}
	s.lock = lock
	return s, nil
}

// Close releases the advisory lock, if held. The session scope is discarded
// with the process; the all-time scope was already persisted on every
// admission.
func (s *Store) Close() {
	if s.lock != nil {
		ReleaseLock(s.path, s.lock)
		s.lock = nil
	}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.PersistenceError, err, "read leaderboard store file")
	}
	var pf persistedStore
	if err := json.Unmarshal(data, &pf); err != nil {
		_ = os.Rename(s.path, s.path+".bad")
		s.log.Warn("quarantined malformed leaderboard file", logging.Path(s.path+".bad"))
		return nil
	}
	for symbol, entries := range pf.PerSymbol {
		b := s.allTime.symbolBoard(ScopeAllTime, symbol, s.topN)
		b.entries = truncate(entries, s.topN)
	}
	s.allTime.cross.entries = truncate(pf.Cross, s.topN)
	return nil
}

func truncate(entries []Entry, n int) []Entry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// persist writes the all-time scope through the temp-file + rename path. A
// failure degrades the store to session-only writes and warns; admission
// itself never fails on persistence.
func (s *Store) persist() {
	if s.sessionOnly {
		return
	}
	pf := persistedStore{SchemaVersion: currentSchemaVersion, PerSymbol: map[string][]Entry{}}
	for symbol, b := range s.allTime.perSymbol {
		pf.PerSymbol[symbol] = b.Entries()
	}
	pf.Cross = s.allTime.cross.Entries()

	data, err := json.Marshal(pf)
	if err != nil {
		s.degrade(err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.degrade(err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.degrade(err)
	}
}

func (s *Store) degrade(cause error) {
	s.sessionOnly = true
	s.log.Warn("leaderboard persistence failed, degrading to session-only writes",
		logging.Path(s.path), logging.Err(cause))
}

// AdmitSymbol offers a per-symbol candidate to both scopes' boards for
// entry.Symbol. It returns true if either scope admitted it; an all-time
// admission additionally persists the all-time scope and a successful
// admission in either scope emits a Snapshot.
func (s *Store) AdmitSymbol(entry Entry, nowUnix int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionIn := s.session.symbolBoard(ScopeSession, entry.Symbol, s.topN).Admit(entry, nowUnix)
	allTimeIn := s.allTime.symbolBoard(ScopeAllTime, entry.Symbol, s.topN).Admit(entry, nowUnix)
	if allTimeIn {
		s.persist()
	}
	if sessionIn || allTimeIn {
		s.emit()
	}
	return sessionIn || allTimeIn
}

// AdmitCross offers a cross-symbol aggregate candidate to both scopes'
// cross-symbol boards. Semantics mirror AdmitSymbol.
func (s *Store) AdmitCross(entry Entry, nowUnix int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Symbol = ""
	sessionIn := s.session.cross.Admit(entry, nowUnix)
	allTimeIn := s.allTime.cross.Admit(entry, nowUnix)
	if allTimeIn {
		s.persist()
	}
	if sessionIn || allTimeIn {
		s.emit()
	}
	return sessionIn || allTimeIn
}

// Snapshot returns a copy of every board in both scopes.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionPerSymbol: map[string][]Entry{},
		AllTimePerSymbol: map[string][]Entry{},
		SessionCross:     s.session.cross.Entries(),
		AllTimeCross:     s.allTime.cross.Entries(),
	}
	for symbol, b := range s.session.perSymbol {
		snap.SessionPerSymbol[symbol] = b.Entries()
	}
	for symbol, b := range s.allTime.perSymbol {
		snap.AllTimePerSymbol[symbol] = b.Entries()
	}
	return snap
}

func (s *Store) emit() {
	select {
	case s.Snapshots <- s.snapshotLocked():
	default:
	}
}

// SessionOnly reports whether the store has degraded to session-only writes
// (no persistence path configured, lost the advisory lock, or a persist
// failed mid-session).
func (s *Store) SessionOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionOnly
}

// BestCross returns up to n of the current session cross-symbol leaders, the
// neighborhood seeds a YOLO iteration perturbs.
func (s *Store) BestCross(n int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.session.cross.Entries()
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
