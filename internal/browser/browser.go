// Package browser ties one open dataset to its filter state, views and
// selection controller, and serializes access to them.
package browser

import (
	"context"
	"errors"
	"sync"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/logging"
	"github.com/Lingen1218/cfac/internal/selection"
	"github.com/Lingen1218/cfac/internal/view"
)

// ErrNoDataset is returned by operations that need an open dataset.
var ErrNoDataset = errors.New("no dataset open")

// OpenFunc opens a dataset source.
type OpenFunc func(ctx context.Context, path string) (dataset.Source, error)

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.log = l
		}
	}
}

// WithBackend selects the dataset backend used by Open.
func WithBackend(backend dataset.Backend) Option {
	return func(b *Browser) {
		b.open = func(ctx context.Context, path string) (dataset.Source, error) {
			return dataset.OpenBackend(ctx, backend, path)
		}
	}
}

// WithOpener replaces the dataset opener.
func WithOpener(fn OpenFunc) Option {
	return func(b *Browser) {
		if fn != nil {
			b.open = fn
		}
	}
}

// WithSink sets the display sink handed to every engine.
func WithSink(s engine.Sink) Option {
	return func(b *Browser) { b.sink = s }
}

// WithMetrics sets the rebuild metrics handed to every engine.
func WithMetrics(m engine.Metrics) Option {
	return func(b *Browser) { b.metrics = m }
}

// WithReporter sets the rebuild event reporter handed to every engine.
func WithReporter(r *engine.Reporter) Option {
	return func(b *Browser) { b.events = r }
}

// Browser owns the open dataset handle. All methods are safe for
// concurrent use; they run one at a time.
type Browser struct {
	mu sync.Mutex

	log     *logging.Logger
	open    OpenFunc
	sink    engine.Sink
	metrics engine.Metrics
	events  *engine.Reporter

	path  string
	src   dataset.Source
	state *filter.State
	eng   *engine.Engine
	ctl   *selection.Controller
}

// New returns a Browser with no dataset open.
func New(opts ...Option) *Browser {
	b := &Browser{log: logging.Discard()}
	WithBackend(dataset.BackendSQLite)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens the dataset at path. The new dataset is opened and checked
// first; if that fails the current dataset stays open and unchanged.
// On success the previous handle is released before the new one is
// installed, every view is rebuilt and the first session is selected.
func (b *Browser) Open(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, err := b.open(ctx, path)
	if err != nil {
		b.log.Err("cannot open dataset", "path", path, "err", err)
		return err
	}
	b.release()
	b.install(ctx, path, src)
	return nil
}

// Attach installs an already opened source as the current dataset, with
// the same lifecycle as Open.
func (b *Browser) Attach(ctx context.Context, name string, src dataset.Source) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
	b.install(ctx, name, src)
}

func (b *Browser) install(ctx context.Context, path string, src dataset.Source) {
	b.path = path
	b.src = src
	b.state = filter.NewState()
	b.eng = engine.New(src, b.state, engine.MustStandardGraph(),
		engine.WithLogger(b.log),
		engine.WithSink(b.sink),
		engine.WithMetrics(b.metrics),
		engine.WithReporter(b.events),
	)
	b.ctl = selection.New(b.state, b.eng, b.log)
	b.log.Inf("dataset opened", "path", path)

	// Query failures are logged by the engine and leave empty views behind.
	_ = b.eng.RebuildAll(ctx)
	_ = b.ctl.SelectFirstSession(ctx)
}

// release closes the current handle, if any. Callers hold mu.
func (b *Browser) release() {
	if b.src == nil {
		return
	}
	if err := b.src.Close(); err != nil {
		b.log.Wrn("closing dataset", "path", b.path, "err", err)
	}
	b.log.Inf("dataset closed", "path", b.path)
	b.path, b.src, b.state, b.eng, b.ctl = "", nil, nil, nil, nil
}

// Close releases the open dataset. Closing with nothing open is a no-op.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.release()
	return nil
}

// Path returns the path of the open dataset, or "" when none is open.
func (b *Browser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Source returns the open dataset handle.
func (b *Browser) Source() (dataset.Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src == nil {
		return nil, ErrNoDataset
	}
	return b.src, nil
}

// Do runs fn with the selection controller while holding the browser lock.
func (b *Browser) Do(fn func(ctl *selection.Controller) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctl == nil {
		return ErrNoDataset
	}
	return fn(b.ctl)
}

// Pick forwards a view row selection to the controller.
func (b *Browser) Pick(ctx context.Context, id view.ID, raw string) error {
	return b.Do(func(ctl *selection.Controller) error {
		return ctl.Pick(ctx, id, raw)
	})
}

// SelectElectronCountDelta sets the final-level electron count offset.
func (b *Browser) SelectElectronCountDelta(ctx context.Context, d filter.Value) error {
	return b.Do(func(ctl *selection.Controller) error {
		return ctl.SelectElectronCountDelta(ctx, d)
	})
}

// Result returns the displayed records of a view.
func (b *Browser) Result(id view.ID) ([]dataset.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.eng == nil {
		return nil, ErrNoDataset
	}
	recs, _ := b.eng.Result(id)
	return recs, nil
}

// Views returns every view's identifier and displayed records, in
// display order.
func (b *Browser) Views() ([]view.ID, map[view.ID][]dataset.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.eng == nil {
		return nil, nil, ErrNoDataset
	}
	var ids []view.ID
	out := make(map[view.ID][]dataset.Record)
	for _, v := range b.eng.Graph().Views() {
		ids = append(ids, v.ID())
		recs, _ := b.eng.Result(v.ID())
		out[v.ID()] = recs
	}
	return ids, out, nil
}

// Filter returns a copy of the current filter state.
func (b *Browser) Filter() (filter.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == nil {
		return nil, ErrNoDataset
	}
	return b.state.Snapshot(), nil
}

// Stats counts the records of a session within the electron-count range r.
// A negative sessionID means the selected session.
func (b *Browser) Stats(ctx context.Context, sessionID int, r dataset.NeleRange) (dataset.Stats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src == nil {
		return dataset.Stats{}, ErrNoDataset
	}
	if sessionID < 0 {
		sessionID = b.state.Value(filter.DimSessionID).Or(filter.UnsetID)
	}
	return dataset.CollectStats(ctx, b.src, sessionID, r)
}
