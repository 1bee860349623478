// Package dataset reads cFAC atomic-structure datasets. A Source answers
// predicate-constrained queries for sessions, levels, transitions and
// charge states; it never mutates the data it serves.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// Source is the query contract every dataset backend satisfies.
// Implementations: SQLiteSource (production), MemSource (in-process and
// tests), KuzuSource (graph mirror, cgo builds only).
//
// Query returns a lazy, finite sequence; each range over it re-runs the
// query. A failure is delivered as a *QueryError in the error slot, after
// which the sequence ends. Query panics on a predicate that fails Validate.
type Source interface {
	io.Closer
	Query(ctx context.Context, kind RecordKind, pred Predicate) iter.Seq2[Record, error]
}

var (
	// ErrMalformedPredicate marks a predicate that does not fit its record kind.
	ErrMalformedPredicate = errors.New("malformed predicate")

	// ErrUnsupportedFormat is returned for datasets whose format marker is
	// neither 1 nor 2.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("dataset backend unavailable in this build")
)

// OpenReason classifies why a dataset could not be opened.
type OpenReason string

const (
	ReasonMissing    OpenReason = "missing"
	ReasonUnreadable OpenReason = "unreadable"
	ReasonSchema     OpenReason = "schema"
)

// DatasetOpenError reports a failed open. The caller may retry with
// another path.
type DatasetOpenError struct {
	Path   string
	Reason OpenReason
	Err    error
}

func (e *DatasetOpenError) Error() string {
	return fmt.Sprintf("open dataset %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *DatasetOpenError) Unwrap() error { return e.Err }

// QueryError reports an I/O failure while reading an open dataset.
type QueryError struct {
	Kind RecordKind
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s records: %v", e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Collect drains seq. It returns either every record or the first error,
// never a partial result.
func Collect(seq iter.Seq2[Record, error]) ([]Record, error) {
	var out []Record
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of records of kind matching pred.
func Count(ctx context.Context, src Source, kind RecordKind, pred Predicate) (int, error) {
	n := 0
	for _, err := range src.Query(ctx, kind, pred) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
