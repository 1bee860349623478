package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/view"
)

// ViewsExport is the top-level JSON export of an open dataset's views.
type ViewsExport struct {
	Dataset    string                  `json:"dataset"`
	ExportedAt string                  `json:"exportedAt"`
	Filter     map[string]filter.Value `json:"filter"`
	Views      []ViewExport            `json:"views"`
}

// ViewExport is one view's displayed result.
type ViewExport struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Count   int    `json:"count"`
	Records []any  `json:"records"`
}

// transitionRow adds the derived oscillator strength to a transition.
type transitionRow struct {
	dataset.Transition
	GF float64 `json:"gf"`
}

// ViewSource is what the export reads from. *browser.Browser satisfies it.
type ViewSource interface {
	Path() string
	Views() ([]view.ID, map[view.ID][]dataset.Record, error)
	Filter() (filter.Snapshot, error)
}

// ExportViews snapshots the filter state and every view's records.
func ExportViews(src ViewSource) (*ViewsExport, error) {
	ids, results, err := src.Views()
	if err != nil {
		return nil, fmt.Errorf("collect views: %w", err)
	}
	snap, err := src.Filter()
	if err != nil {
		return nil, fmt.Errorf("read filter: %w", err)
	}

	out := &ViewsExport{
		Dataset:    src.Path(),
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Filter:     FilterMap(snap),
	}
	for _, id := range ids {
		out.Views = append(out.Views, ExportView(id, results[id]))
	}
	return out, nil
}

// ExportView converts one view's records.
func ExportView(id view.ID, recs []dataset.Record) ViewExport {
	ve := ViewExport{ID: string(id), Count: len(recs), Records: make([]any, 0, len(recs))}
	for _, r := range recs {
		if ve.Kind == "" {
			ve.Kind = string(r.Kind())
		}
		ve.Records = append(ve.Records, Row(r))
	}
	return ve
}

// Row returns the JSON form of a record.
func Row(r dataset.Record) any {
	if t, ok := r.(dataset.Transition); ok {
		return transitionRow{Transition: t, GF: t.GF()}
	}
	return r
}

// FilterMap keys a filter snapshot by dimension name.
func FilterMap(snap filter.Snapshot) map[string]filter.Value {
	out := make(map[string]filter.Value, len(snap))
	for _, d := range filter.Dimensions() {
		out[string(d)] = snap.Value(d)
	}
	return out
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
