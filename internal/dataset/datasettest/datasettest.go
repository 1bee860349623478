// Package datasettest builds small cFAC datasets for tests, both in memory
// and as SQLite files laid out the way the production reader expects.
package datasettest

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/Lingen1218/cfac/internal/dataset"
)

// Fixture is a dataset description. Transitions only need SessionID,
// InitialLevelID, FinalLevelID, Multipole and RME; the derived columns are
// filled from the levels.
type Fixture struct {
	Sessions    []dataset.Session
	Levels      []dataset.Level
	Transitions []dataset.Transition
	// Processes only need SessionID, Type and the level ids.
	Processes []dataset.Process
	// Format is written to the cfacdb table; zero omits the table.
	Format string
}

// Standard returns sessions {1,2}, levels L1(s=1,ne=2), L2(s=1,ne=3),
// L3(s=2,ne=2), transitions T1(1: L1→L2), T2(1: L1→L3) and session 1
// processes AI(L2→L1), CI(L2→L1), RR(L1→L2).
func Standard() Fixture {
	return Fixture{
		Sessions: []dataset.Session{
			{ID: 1, Symbol: "Fe", AtomicNumber: 26, Mass: 55.845},
			{ID: 2, Symbol: "Fe", AtomicNumber: 26, Mass: 55.845},
		},
		Levels: []dataset.Level{
			{ID: 1, SessionID: 1, ElectronCount: 2, Name: "1s2", Energy: 0.0, StatWeight: 1},
			{ID: 2, SessionID: 1, ElectronCount: 3, Name: "1s2.2s1", Energy: 1.5, StatWeight: 2},
			{ID: 3, SessionID: 2, ElectronCount: 2, Name: "1s1.2p1", Energy: 0.2, StatWeight: 3, Parity: 1},
		},
		Transitions: []dataset.Transition{
			{SessionID: 1, InitialLevelID: 1, FinalLevelID: 2, Multipole: -1, RME: 0.8},
			{SessionID: 1, InitialLevelID: 1, FinalLevelID: 3, Multipole: -1, RME: 0.3},
		},
		Processes: []dataset.Process{
			{SessionID: 1, Type: dataset.ProcessAutoionization, InitialLevelID: 2, FinalLevelID: 1},
			{SessionID: 1, Type: dataset.ProcessIonization, InitialLevelID: 2, FinalLevelID: 1},
			{SessionID: 1, Type: dataset.ProcessRecombination, InitialLevelID: 1, FinalLevelID: 2},
		},
		Format: "2",
	}
}

// Resolved returns the fixture transitions with ElectronCount,
// ElectronCountDelta and DeltaE computed from the levels.
func (f Fixture) Resolved() []dataset.Transition {
	byID := make(map[int]dataset.Level, len(f.Levels))
	for _, l := range f.Levels {
		byID[l.ID] = l
	}
	out := make([]dataset.Transition, 0, len(f.Transitions))
	for _, t := range f.Transitions {
		ini, fin := byID[t.InitialLevelID], byID[t.FinalLevelID]
		t.ElectronCount = ini.ElectronCount
		t.ElectronCountDelta = fin.ElectronCount - ini.ElectronCount
		t.DeltaE = ini.Energy - fin.Energy
		out = append(out, t)
	}
	return out
}

// Mem loads the fixture into a MemSource.
func (f Fixture) Mem() *dataset.MemSource {
	m := dataset.NewMemSource()
	for _, s := range f.Sessions {
		m.AddSession(s)
	}
	for _, l := range f.Levels {
		m.AddLevel(l)
	}
	for _, t := range f.Resolved() {
		m.AddTransition(t)
	}
	for _, p := range f.Processes {
		m.AddProcess(p)
	}
	return m
}

// Schema is the subset of the cFAC schema the reader depends on.
var Schema = []string{
	`CREATE TABLE sessions (sid INTEGER PRIMARY KEY, version INTEGER, stamp INTEGER)`,
	`CREATE TABLE species (sid INTEGER, symbol TEXT, anum INTEGER, mass REAL)`,
	`CREATE TABLE levels (sid INTEGER, id INTEGER PRIMARY KEY, nele INTEGER, name TEXT, e REAL, g INTEGER, p INTEGER)`,
	`CREATE TABLE rtransitions (sid INTEGER, ini_id INTEGER, fin_id INTEGER, mpole INTEGER, rme REAL)`,
	`CREATE TABLE aitransitions (sid INTEGER, ini_id INTEGER, fin_id INTEGER, rate REAL)`,
	`CREATE TABLE ctransitions (sid INTEGER, cid INTEGER PRIMARY KEY, ini_id INTEGER, fin_id INTEGER, type INTEGER)`,
}

// DSN returns a read-write SQLite URI for path with the file name escaped.
func DSN(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// WriteSQLite writes the fixture to dir/name and returns the file path.
func (f Fixture) WriteSQLite(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	db, err := sql.Open("sqlite", DSN(path))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	for _, stmt := range Schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	if f.Format != "" {
		_, err := db.Exec(`CREATE TABLE cfacdb (property TEXT, value TEXT)`)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO cfacdb(property, value) VALUES('format', ?)`, f.Format)
		require.NoError(t, err)
	}
	for _, s := range f.Sessions {
		_, err := db.Exec(`INSERT INTO sessions(sid, version, stamp) VALUES(?, 1, 0)`, s.ID)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO species(sid, symbol, anum, mass) VALUES(?, ?, ?, ?)`, s.ID, s.Symbol, s.AtomicNumber, s.Mass)
		require.NoError(t, err)
	}
	for _, l := range f.Levels {
		_, err := db.Exec(`INSERT INTO levels(sid, id, nele, name, e, g, p) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			l.SessionID, l.ID, l.ElectronCount, l.Name, l.Energy, l.StatWeight, l.Parity)
		require.NoError(t, err)
	}
	for _, tr := range f.Transitions {
		_, err := db.Exec(`INSERT INTO rtransitions(sid, ini_id, fin_id, mpole, rme) VALUES(?, ?, ?, ?, ?)`,
			tr.SessionID, tr.InitialLevelID, tr.FinalLevelID, tr.Multipole, tr.RME)
		require.NoError(t, err)
	}
	for _, p := range f.Processes {
		var err error
		if p.Type == dataset.ProcessAutoionization {
			_, err = db.Exec(`INSERT INTO aitransitions(sid, ini_id, fin_id, rate) VALUES(?, ?, ?, 0)`,
				p.SessionID, p.InitialLevelID, p.FinalLevelID)
		} else {
			_, err = db.Exec(`INSERT INTO ctransitions(sid, ini_id, fin_id, type) VALUES(?, ?, ?, ?)`,
				p.SessionID, p.InitialLevelID, p.FinalLevelID, int(p.Type))
		}
		require.NoError(t, err)
	}
	return path
}
