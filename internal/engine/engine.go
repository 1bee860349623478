// Package engine recomputes the views affected by a filter change.
//
// The engine owns one view.Node per registered view. A filter.Change names
// the dimensions that moved; the engine asks the Graph which views read them
// and rebuilds exactly those, in registration order, on the caller's
// goroutine. A failed rebuild is logged and leaves the view's previous
// result in place.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/logging"
	"github.com/Lingen1218/cfac/internal/view"
)

// Sink receives committed view results for display.
type Sink interface {
	Render(id view.ID, recs []dataset.Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(id view.ID, recs []dataset.Record)

func (f SinkFunc) Render(id view.ID, recs []dataset.Record) { f(id, recs) }

type nopSink struct{}

func (nopSink) Render(view.ID, []dataset.Record) {}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the display sink.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the rebuild metrics.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithReporter sets a progress reporter for rebuild events.
func WithReporter(r *Reporter) Option {
	return func(e *Engine) { e.events = r }
}

// Engine fans filter changes out to view rebuilds. It is not safe for
// concurrent use.
type Engine struct {
	state   filter.Reader
	graph   *Graph
	nodes   map[view.ID]*view.Node
	sink    Sink
	log     *logging.Logger
	metrics Metrics
	events  *Reporter
}

// New creates an Engine whose views query src and read state.
func New(src dataset.Source, state filter.Reader, graph *Graph, opts ...Option) *Engine {
	e := &Engine{
		state:   state,
		graph:   graph,
		nodes:   make(map[view.ID]*view.Node),
		sink:    nopSink{},
		log:     logging.Discard(),
		metrics: NopMetrics{},
	}
	for _, v := range graph.Views() {
		e.nodes[v.ID()] = view.NewNode(v, src)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the dependency graph.
func (e *Engine) Graph() *Graph { return e.graph }

// OnChanged rebuilds the views bound to the dimensions ch touched.
// A change that altered nothing rebuilds nothing.
func (e *Engine) OnChanged(ctx context.Context, ch filter.Change) error {
	if !ch.Changed() {
		e.log.Dbg("filter unchanged", "dimension", ch.Dimension, "value", ch.Current)
		return nil
	}
	e.log.Dbg("filter changed",
		"dimension", ch.Dimension, "from", ch.Previous, "to", ch.Current, "cleared", ch.Cleared)
	return e.Rebuild(ctx, e.graph.Affected(ch.Dimensions()...)...)
}

// RebuildAll rebuilds every view.
func (e *Engine) RebuildAll(ctx context.Context) error {
	ids := make([]view.ID, 0, len(e.nodes))
	for _, v := range e.graph.Views() {
		ids = append(ids, v.ID())
	}
	return e.Rebuild(ctx, ids...)
}

// Rebuild rebuilds the given views in order. Failures do not stop the
// remaining views; they are joined into the returned error.
func (e *Engine) Rebuild(ctx context.Context, ids ...view.ID) error {
	var errs []error
	for _, id := range ids {
		if err := e.rebuild(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) rebuild(ctx context.Context, id view.ID) error {
	node, ok := e.nodes[id]
	if !ok {
		e.log.Wrn("rebuild of unknown view", "view", id)
		return nil
	}
	e.events.Emit(Event{View: id, Status: StatusPending})

	start := time.Now()
	recs, err := node.Rebuild(ctx, e.state)
	took := time.Since(start)
	if err != nil {
		e.metrics.Failed(id, took)
		e.events.Emit(Event{View: id, Status: StatusFailed, Err: err})
		e.log.Err("view query failed, keeping previous result", "view", id, "err", err)
		return err
	}

	node.Commit(recs)
	e.metrics.Rebuilt(id, took)
	e.events.Emit(Event{View: id, Status: StatusCommitted, Records: len(recs)})
	e.log.Dbg("view rebuilt", "view", id, "rows", len(recs), "took", took)
	e.sink.Render(id, recs)
	return nil
}

// Result returns the last committed records of a view.
func (e *Engine) Result(id view.ID) ([]dataset.Record, bool) {
	node, ok := e.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Last()
}
