//go:build cgo

package dataset

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuSource mirrors a dataset into an in-memory KuzuDB graph: sessions and
// levels become nodes, radiative transitions become RTRANS edges and
// autoionization or collisional processes become PROC edges between
// levels. It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuSource struct {
	mu   sync.Mutex // a kuzu connection serves one statement at a time
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuSource satisfies Source.
var _ Source = (*KuzuSource)(nil)

// NewKuzuSource creates an empty in-memory KuzuSource with its schema.
func NewKuzuSource() (*KuzuSource, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	s := &KuzuSource{db: db, conn: conn}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func mirrorKuzu(ctx context.Context, from Source) (Source, error) {
	s, err := NewKuzuSource()
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, from); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ddlStatements defines the Cypher DDL executed by initSchema.
// Node tables must precede the relationship table.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Session(
		sid INT64,
		symbol STRING,
		anum INT64,
		mass DOUBLE,
		nele_min INT64,
		nele_max INT64,
		PRIMARY KEY(sid)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Level(
		id INT64,
		sid INT64,
		nele INT64,
		name STRING,
		e DOUBLE,
		g INT64,
		p INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS RTRANS(FROM Level TO Level, sid INT64, mpole INT64, rme DOUBLE)`,
	`CREATE REL TABLE IF NOT EXISTS PROC(FROM Level TO Level, sid INT64, ptype INT64)`,
}

func (s *KuzuSource) initSchema() error {
	for _, stmt := range ddlStatements {
		if _, err := s.query(stmt, nil); err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
	}
	return nil
}

// Load copies every session, level, transition and process of from into
// the graph.
func (s *KuzuSource) Load(ctx context.Context, from Source) error {
	for rec, err := range from.Query(ctx, KindSession, All()) {
		if err != nil {
			return err
		}
		ss := rec.(Session)
		if err := s.exec(`CREATE (:Session {sid: $sid, symbol: $symbol, anum: $anum, mass: $mass,
				nele_min: $nele_min, nele_max: $nele_max})`, map[string]any{
			"sid":      int64(ss.ID),
			"symbol":   ss.Symbol,
			"anum":     int64(ss.AtomicNumber),
			"mass":     ss.Mass,
			"nele_min": int64(ss.NeleMin),
			"nele_max": int64(ss.NeleMax),
		}); err != nil {
			return err
		}
	}
	for rec, err := range from.Query(ctx, KindLevel, All()) {
		if err != nil {
			return err
		}
		l := rec.(Level)
		if err := s.exec("CREATE (:Level {id: $id, sid: $sid, nele: $nele, name: $name, e: $e, g: $g, p: $p})", map[string]any{
			"id":   int64(l.ID),
			"sid":  int64(l.SessionID),
			"nele": int64(l.ElectronCount),
			"name": l.Name,
			"e":    l.Energy,
			"g":    int64(l.StatWeight),
			"p":    int64(l.Parity),
		}); err != nil {
			return err
		}
	}
	for rec, err := range from.Query(ctx, KindTransition, All()) {
		if err != nil {
			return err
		}
		t := rec.(Transition)
		if err := s.exec(`MATCH (a:Level {id: $ini}), (b:Level {id: $fin})
				CREATE (a)-[:RTRANS {sid: $sid, mpole: $mpole, rme: $rme}]->(b)`, map[string]any{
			"ini":   int64(t.InitialLevelID),
			"fin":   int64(t.FinalLevelID),
			"sid":   int64(t.SessionID),
			"mpole": int64(t.Multipole),
			"rme":   t.RME,
		}); err != nil {
			return err
		}
	}
	for rec, err := range from.Query(ctx, KindProcess, All()) {
		if err != nil {
			return err
		}
		p := rec.(Process)
		if err := s.exec(`MATCH (a:Level {id: $ini}), (b:Level {id: $fin})
				CREATE (a)-[:PROC {sid: $sid, ptype: $ptype}]->(b)`, map[string]any{
			"ini":   int64(p.InitialLevelID),
			"fin":   int64(p.FinalLevelID),
			"sid":   int64(p.SessionID),
			"ptype": int64(p.Type),
		}); err != nil {
			return err
		}
	}
	return nil
}

// cypherShape describes how one record kind maps onto Cypher.
type cypherShape struct {
	match   string
	columns map[Field]string
	returns string
	orderBy string
	row     func([]any) Record
}

var cypherShapes = map[RecordKind]cypherShape{
	KindSession: {
		match:   "MATCH (s:Session)",
		columns: map[Field]string{FieldSessionID: "s.sid"},
		returns: "s.sid, s.symbol, s.anum, s.mass, s.nele_min, s.nele_max",
		orderBy: "s.sid",
		row: func(r []any) Record {
			return Session{
				ID: toInt(r[0]), Symbol: toString(r[1]), AtomicNumber: toInt(r[2]), Mass: toFloat64(r[3]),
				NeleMin: toInt(r[4]), NeleMax: toInt(r[5]),
			}
		},
	},
	KindLevel: {
		match: "MATCH (l:Level)",
		columns: map[Field]string{
			FieldSessionID:     "l.sid",
			FieldLevelID:       "l.id",
			FieldElectronCount: "l.nele",
		},
		returns: "l.id, l.sid, l.nele, l.name, l.e, l.g, l.p",
		orderBy: "l.nele DESC, l.e, l.id",
		row: func(r []any) Record {
			return Level{
				ID: toInt(r[0]), SessionID: toInt(r[1]), ElectronCount: toInt(r[2]),
				Name: toString(r[3]), Energy: toFloat64(r[4]), StatWeight: toInt(r[5]), Parity: toInt(r[6]),
			}
		},
	},
	KindTransition: {
		match: "MATCH (a:Level)-[t:RTRANS]->(b:Level)",
		columns: map[Field]string{
			FieldSessionID:          "t.sid",
			FieldInitialLevelID:     "a.id",
			FieldFinalLevelID:       "b.id",
			FieldElectronCount:      "a.nele",
			FieldElectronCountDelta: "(b.nele - a.nele)",
		},
		returns: "t.sid, a.id, b.id, a.nele, b.nele - a.nele, t.mpole, t.rme, a.e - b.e",
		orderBy: "a.id, b.id",
		row: func(r []any) Record {
			return Transition{
				SessionID: toInt(r[0]), InitialLevelID: toInt(r[1]), FinalLevelID: toInt(r[2]),
				ElectronCount: toInt(r[3]), ElectronCountDelta: toInt(r[4]), Multipole: toInt(r[5]),
				RME: toFloat64(r[6]), DeltaE: toFloat64(r[7]),
			}
		},
	},
	KindProcess: {
		match: "MATCH (a:Level)-[p:PROC]->(b:Level)",
		columns: map[Field]string{
			FieldSessionID:          "p.sid",
			FieldProcessType:        "p.ptype",
			FieldInitialLevelID:     "a.id",
			FieldFinalLevelID:       "b.id",
			FieldElectronCount:      "a.nele",
			FieldFinalElectronCount: "b.nele",
		},
		returns: "p.sid, p.ptype, a.id, b.id, a.nele, b.nele",
		orderBy: "p.ptype, a.id, b.id",
		row: func(r []any) Record {
			return Process{
				SessionID: toInt(r[0]), Type: ProcessType(toInt(r[1])), InitialLevelID: toInt(r[2]),
				FinalLevelID: toInt(r[3]), ElectronCount: toInt(r[4]), FinalElectronCount: toInt(r[5]),
			}
		},
	},
	KindChargeState: {
		match: "MATCH (l:Level)",
		columns: map[Field]string{
			FieldSessionID:     "l.sid",
			FieldElectronCount: "l.nele",
		},
		returns: "l.sid, l.nele, min(l.e), count(*)",
		orderBy: "l.nele DESC, l.sid",
		row: func(r []any) Record {
			return ChargeState{SessionID: toInt(r[0]), ElectronCount: toInt(r[1]), GroundEnergy: toFloat64(r[2]), Levels: toInt(r[3])}
		},
	},
}

func (sh cypherShape) build(pred Predicate) (string, map[string]any) {
	var sb strings.Builder
	sb.WriteString(sh.match)
	params := make(map[string]any)
	for i, c := range pred.Constraints() {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		col := sh.columns[c.Field]
		lo := fmt.Sprintf("p%d", len(params))
		params[lo] = int64(c.Lo)
		if c.Op == OpBetween {
			hi := fmt.Sprintf("p%d", len(params))
			params[hi] = int64(c.Hi)
			fmt.Fprintf(&sb, "%s >= $%s AND %s <= $%s", col, lo, col, hi)
			continue
		}
		fmt.Fprintf(&sb, "%s = $%s", col, lo)
	}
	fmt.Fprintf(&sb, " RETURN %s ORDER BY %s", sh.returns, sh.orderBy)
	return sb.String(), params
}

// Query runs the Cypher for kind and pred each time the sequence is ranged over.
func (s *KuzuSource) Query(ctx context.Context, kind RecordKind, pred Predicate) iter.Seq2[Record, error] {
	mustValidate(kind, pred)
	sh := cypherShapes[kind]
	cypher, params := sh.build(pred)
	return func(yield func(Record, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(nil, &QueryError{Kind: kind, Err: err})
			return
		}
		rows, err := s.query(cypher, params)
		if err != nil {
			yield(nil, &QueryError{Kind: kind, Err: err})
			return
		}
		for _, r := range rows {
			if !yield(sh.row(r), nil) {
				return
			}
		}
	}
}

func (s *KuzuSource) exec(cypher string, params map[string]any) error {
	_, err := s.query(cypher, params)
	return err
}

// query executes cypher and materializes the result rows.
func (s *KuzuSource) query(cypher string, params map[string]any) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("kuzu: source closed")
	}

	var res *kuzu.QueryResult
	var err error
	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
