package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time assertion: *SQLiteSource satisfies Source.
var _ Source = (*SQLiteSource)(nil)

// requiredTables must exist in every readable dataset.
var requiredTables = []string{"sessions", "levels", "rtransitions"}

// SQLiteSource answers queries directly against a cFAC SQLite database
// opened read-only. *sql.DB is safe for concurrent use, so is the source.
type SQLiteSource struct {
	db         *sql.DB
	path       string
	format     int
	hasSpecies bool
	hasAI      bool
	hasCT      bool
}

// Open opens the dataset at path read-only and verifies its schema.
// Every failure is a *DatasetOpenError.
func Open(path string) (*SQLiteSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		reason := ReasonUnreadable
		if errors.Is(err, fs.ErrNotExist) {
			reason = ReasonMissing
		}
		return nil, &DatasetOpenError{Path: path, Reason: reason, Err: err}
	}
	if info.IsDir() {
		return nil, &DatasetOpenError{Path: path, Reason: ReasonUnreadable, Err: errors.New("is a directory")}
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, &DatasetOpenError{Path: path, Reason: ReasonUnreadable, Err: fmt.Errorf("open sqlite: %w", err)}
	}
	db.SetMaxOpenConns(4)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &DatasetOpenError{Path: path, Reason: ReasonUnreadable, Err: fmt.Errorf("ping sqlite: %w", err)}
	}

	s := &SQLiteSource{db: db, path: path}
	if err := s.checkSchema(); err != nil {
		_ = db.Close()
		return nil, &DatasetOpenError{Path: path, Reason: ReasonSchema, Err: err}
	}
	return s, nil
}

// readOnlyDSN builds a SQLite URI for path. The path is escaped so '#' and
// '?' in file names stay part of the name, and made absolute because a
// relative path after "file://" would be read as the URI authority.
func readOnlyDSN(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}
	return u.String()
}

// checkSchema checks the required tables and the format marker.
func (s *SQLiteSource) checkSchema() error {
	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type IN ('table', 'view')`)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()
	tables := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan table name: %w", err)
		}
		tables[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, t := range requiredTables {
		if !tables[t] {
			return fmt.Errorf("missing table %q", t)
		}
	}
	s.hasSpecies = tables["species"]
	s.hasAI = tables["aitransitions"]
	s.hasCT = tables["ctransitions"]

	// Datasets without the cfacdb table predate the format marker.
	if !tables["cfacdb"] {
		s.format = 1
		return nil
	}
	var raw string
	err = s.db.QueryRow(`SELECT value FROM cfacdb WHERE property = 'format'`).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read format: %w", err)
	}
	format, _ := strconv.Atoi(strings.TrimSpace(raw))
	if format != 1 && format != 2 {
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, raw)
	}
	s.format = format
	return nil
}

// Path returns the dataset file path.
func (s *SQLiteSource) Path() string { return s.path }

// Format returns the dataset format marker (1 or 2).
func (s *SQLiteSource) Format() int { return s.format }

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// sqlShape describes how one record kind maps onto SQL.
type sqlShape struct {
	selectFrom string
	columns    map[Field]string
	groupBy    string
	orderBy    string
	scan       func(*sql.Rows) (Record, error)
}

func (s *SQLiteSource) shape(kind RecordKind) sqlShape {
	switch kind {
	case KindSession:
		bounds := `COALESCE((SELECT MIN(l.nele) FROM levels l WHERE l.sid = s.sid), 0),
			COALESCE((SELECT MAX(l.nele) FROM levels l WHERE l.sid = s.sid), 0)`
		from := `SELECT s.sid, '', 0, 0.0, ` + bounds + ` FROM sessions s`
		if s.hasSpecies {
			from = `SELECT s.sid, COALESCE(sp.symbol, ''), COALESCE(sp.anum, 0), COALESCE(sp.mass, 0.0), ` + bounds + `
				FROM sessions s LEFT JOIN species sp ON sp.sid = s.sid`
		}
		return sqlShape{
			selectFrom: from,
			columns:    map[Field]string{FieldSessionID: "s.sid"},
			orderBy:    "s.sid",
			scan: func(rows *sql.Rows) (Record, error) {
				var r Session
				err := rows.Scan(&r.ID, &r.Symbol, &r.AtomicNumber, &r.Mass, &r.NeleMin, &r.NeleMax)
				return r, err
			},
		}
	case KindLevel:
		return sqlShape{
			selectFrom: `SELECT l.id, l.sid, l.nele, COALESCE(l.name, ''), l.e, COALESCE(l.g, 0), COALESCE(l.p, 0)
				FROM levels l`,
			columns: map[Field]string{
				FieldSessionID:     "l.sid",
				FieldLevelID:       "l.id",
				FieldElectronCount: "l.nele",
			},
			orderBy: "l.nele DESC, l.e ASC, l.id ASC",
			scan: func(rows *sql.Rows) (Record, error) {
				var r Level
				err := rows.Scan(&r.ID, &r.SessionID, &r.ElectronCount, &r.Name, &r.Energy, &r.StatWeight, &r.Parity)
				return r, err
			},
		}
	case KindTransition:
		return sqlShape{
			selectFrom: `SELECT t.sid, t.ini_id, t.fin_id, li.nele, lf.nele - li.nele, t.mpole, t.rme, li.e - lf.e
				FROM rtransitions t
				JOIN levels li ON li.id = t.ini_id
				JOIN levels lf ON lf.id = t.fin_id`,
			columns: map[Field]string{
				FieldSessionID:          "t.sid",
				FieldInitialLevelID:     "t.ini_id",
				FieldFinalLevelID:       "t.fin_id",
				FieldElectronCount:      "li.nele",
				FieldElectronCountDelta: "(lf.nele - li.nele)",
			},
			orderBy: "t.ini_id, t.fin_id",
			scan: func(rows *sql.Rows) (Record, error) {
				var r Transition
				err := rows.Scan(&r.SessionID, &r.InitialLevelID, &r.FinalLevelID, &r.ElectronCount,
					&r.ElectronCountDelta, &r.Multipole, &r.RME, &r.DeltaE)
				return r, err
			},
		}
	case KindProcess:
		return sqlShape{
			selectFrom: `SELECT p.sid, p.type, p.ini_id, p.fin_id, li.nele, lf.nele
				FROM (` + s.processUnion() + `) p
				JOIN levels li ON li.id = p.ini_id
				JOIN levels lf ON lf.id = p.fin_id`,
			columns: map[Field]string{
				FieldSessionID:          "p.sid",
				FieldProcessType:        "p.type",
				FieldInitialLevelID:     "p.ini_id",
				FieldFinalLevelID:       "p.fin_id",
				FieldElectronCount:      "li.nele",
				FieldFinalElectronCount: "lf.nele",
			},
			orderBy: "p.type, p.ini_id, p.fin_id",
			scan: func(rows *sql.Rows) (Record, error) {
				var r Process
				err := rows.Scan(&r.SessionID, &r.Type, &r.InitialLevelID, &r.FinalLevelID,
					&r.ElectronCount, &r.FinalElectronCount)
				return r, err
			},
		}
	default: // KindChargeState; Validate has rejected anything else
		return sqlShape{
			selectFrom: `SELECT l.sid, l.nele, MIN(l.e), COUNT(*) FROM levels l`,
			columns: map[Field]string{
				FieldSessionID:     "l.sid",
				FieldElectronCount: "l.nele",
			},
			groupBy: "l.sid, l.nele",
			orderBy: "l.nele DESC, l.sid ASC",
			scan: func(rows *sql.Rows) (Record, error) {
				var r ChargeState
				err := rows.Scan(&r.SessionID, &r.ElectronCount, &r.GroundEnergy, &r.Levels)
				return r, err
			},
		}
	}
}

// processUnion selects (sid, type, ini_id, fin_id) from whichever of the
// autoionization and collisional tables the dataset has. Both tables are
// optional; without either the union is empty.
func (s *SQLiteSource) processUnion() string {
	var parts []string
	if s.hasAI {
		parts = append(parts, fmt.Sprintf(`SELECT sid, %d AS type, ini_id, fin_id FROM aitransitions`, ProcessAutoionization))
	}
	if s.hasCT {
		parts = append(parts, `SELECT sid, type, ini_id, fin_id FROM ctransitions`)
	}
	if len(parts) == 0 {
		return `SELECT 0 AS sid, 0 AS type, 0 AS ini_id, 0 AS fin_id WHERE 0`
	}
	return strings.Join(parts, " UNION ALL ")
}

// buildSQL renders the statement and its arguments for kind and pred.
func (sh sqlShape) buildSQL(pred Predicate) (string, []any) {
	var sb strings.Builder
	sb.WriteString(sh.selectFrom)
	var args []any
	for i, c := range pred.Constraints() {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		col := sh.columns[c.Field]
		switch c.Op {
		case OpBetween:
			sb.WriteString(col + " BETWEEN ? AND ?")
			args = append(args, c.Lo, c.Hi)
		default:
			sb.WriteString(col + " = ?")
			args = append(args, c.Lo)
		}
	}
	if sh.groupBy != "" {
		sb.WriteString(" GROUP BY " + sh.groupBy)
	}
	sb.WriteString(" ORDER BY " + sh.orderBy)
	return sb.String(), args
}

// Query runs the SQL for kind and pred each time the sequence is ranged over.
func (s *SQLiteSource) Query(ctx context.Context, kind RecordKind, pred Predicate) iter.Seq2[Record, error] {
	mustValidate(kind, pred)
	sh := s.shape(kind)
	stmt, args := sh.buildSQL(pred)
	return func(yield func(Record, error) bool) {
		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			yield(nil, &QueryError{Kind: kind, Err: err})
			return
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			rec, err := sh.scan(rows)
			if err != nil {
				yield(nil, &QueryError{Kind: kind, Err: fmt.Errorf("scan: %w", err)})
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, &QueryError{Kind: kind, Err: err})
		}
	}
}
