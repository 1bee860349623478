package dataset

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"
)

// Compile-time assertion: *MemSource satisfies Source.
var _ Source = (*MemSource)(nil)

// MemSource implements Source over in-memory slices. Thread-safe via
// sync.RWMutex. Charge states and session electron-count bounds are
// derived from the stored levels. Transitions and processes whose levels
// are not stored are not listed, matching the joins of the other backends.
type MemSource struct {
	mu          sync.RWMutex
	sessions    []Session
	levels      []Level
	transitions []Transition
	processes   []Process
	failures    map[RecordKind]error
	queries     map[RecordKind]int
	closed      bool
}

// NewMemSource returns an empty MemSource ready for use.
func NewMemSource() *MemSource {
	return &MemSource{
		failures: make(map[RecordKind]error),
		queries:  make(map[RecordKind]int),
	}
}

// AddSession stores a session.
func (m *MemSource) AddSession(s Session) *MemSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, s)
	return m
}

// AddLevel stores a level.
func (m *MemSource) AddLevel(l Level) *MemSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels = append(m.levels, l)
	return m
}

// AddTransition stores a transition as given.
func (m *MemSource) AddTransition(t Transition) *MemSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, t)
	return m
}

// AddProcess stores a process. Its electron counts are taken from the
// stored levels at query time.
func (m *MemSource) AddProcess(p Process) *MemSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes = append(m.processes, p)
	return m
}

// FailWith makes every later query of kind fail with err wrapped in a
// QueryError. A nil err clears the failure.
func (m *MemSource) FailWith(kind RecordKind, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, kind)
		return
	}
	m.failures[kind] = err
}

// Queries returns how many times a query of kind has been executed.
func (m *MemSource) Queries(kind RecordKind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.queries[kind]
}

// Closed reports whether Close has been called.
func (m *MemSource) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Close marks the source closed. Stored records stay readable.
func (m *MemSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Query returns the records of kind matching pred in the canonical order.
func (m *MemSource) Query(ctx context.Context, kind RecordKind, pred Predicate) iter.Seq2[Record, error] {
	mustValidate(kind, pred)
	return func(yield func(Record, error) bool) {
		recs, err := m.snapshot(kind)
		if err != nil {
			yield(nil, &QueryError{Kind: kind, Err: err})
			return
		}
		for _, r := range recs {
			if err := ctx.Err(); err != nil {
				yield(nil, &QueryError{Kind: kind, Err: err})
				return
			}
			if !pred.Match(r) {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// snapshot copies and orders the records of kind under the read lock.
func (m *MemSource) snapshot(kind RecordKind) ([]Record, error) {
	m.mu.Lock()
	m.queries[kind]++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failures[kind]; err != nil {
		return nil, err
	}

	byID := make(map[int]Level, len(m.levels))
	for _, l := range m.levels {
		byID[l.ID] = l
	}
	joined := func(ini, fin int) bool {
		_, iok := byID[ini]
		_, fok := byID[fin]
		return iok && fok
	}

	var out []Record
	switch kind {
	case KindSession:
		ss := slices.Clone(m.sessions)
		slices.SortStableFunc(ss, func(a, b Session) int { return cmp.Compare(a.ID, b.ID) })
		for _, s := range ss {
			s.NeleMin, s.NeleMax = neleBounds(m.levels, s.ID)
			out = append(out, s)
		}
	case KindLevel:
		ls := slices.Clone(m.levels)
		slices.SortStableFunc(ls, compareLevels)
		for _, l := range ls {
			out = append(out, l)
		}
	case KindTransition:
		ts := slices.Clone(m.transitions)
		slices.SortStableFunc(ts, func(a, b Transition) int {
			return cmp.Or(cmp.Compare(a.InitialLevelID, b.InitialLevelID), cmp.Compare(a.FinalLevelID, b.FinalLevelID))
		})
		for _, t := range ts {
			if joined(t.InitialLevelID, t.FinalLevelID) {
				out = append(out, t)
			}
		}
	case KindChargeState:
		for _, c := range chargeStates(m.levels) {
			out = append(out, c)
		}
	case KindProcess:
		ps := slices.Clone(m.processes)
		slices.SortStableFunc(ps, compareProcesses)
		for _, p := range ps {
			if !joined(p.InitialLevelID, p.FinalLevelID) {
				continue
			}
			p.ElectronCount = byID[p.InitialLevelID].ElectronCount
			p.FinalElectronCount = byID[p.FinalLevelID].ElectronCount
			out = append(out, p)
		}
	}
	return out, nil
}

// neleBounds returns the smallest and largest electron count among the
// levels of session sid, or zeros when it has none.
func neleBounds(levels []Level, sid int) (lo, hi int) {
	found := false
	for _, l := range levels {
		if l.SessionID != sid {
			continue
		}
		if !found || l.ElectronCount < lo {
			lo = l.ElectronCount
		}
		if !found || l.ElectronCount > hi {
			hi = l.ElectronCount
		}
		found = true
	}
	return lo, hi
}

func compareProcesses(a, b Process) int {
	return cmp.Or(
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.InitialLevelID, b.InitialLevelID),
		cmp.Compare(a.FinalLevelID, b.FinalLevelID),
	)
}

// compareLevels orders by electron count descending, then energy, then id.
func compareLevels(a, b Level) int {
	return cmp.Or(
		cmp.Compare(b.ElectronCount, a.ElectronCount),
		cmp.Compare(a.Energy, b.Energy),
		cmp.Compare(a.ID, b.ID),
	)
}

// chargeStates groups levels by (session, electron count).
func chargeStates(levels []Level) []ChargeState {
	type key struct{ sid, nele int }
	idx := make(map[key]int)
	var out []ChargeState
	for _, l := range levels {
		k := key{l.SessionID, l.ElectronCount}
		i, ok := idx[k]
		if !ok {
			idx[k] = len(out)
			out = append(out, ChargeState{
				SessionID:     l.SessionID,
				ElectronCount: l.ElectronCount,
				GroundEnergy:  l.Energy,
				Levels:        1,
			})
			continue
		}
		out[i].Levels++
		if l.Energy < out[i].GroundEnergy {
			out[i].GroundEnergy = l.Energy
		}
	}
	slices.SortStableFunc(out, func(a, b ChargeState) int {
		return cmp.Or(cmp.Compare(b.ElectronCount, a.ElectronCount), cmp.Compare(a.SessionID, b.SessionID))
	})
	return out
}
