package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/dataset/datasettest"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/logging"
	"github.com/Lingen1218/cfac/internal/view"
)

// recorder is a Sink that remembers every render in order.
type recorder struct {
	ids  []view.ID
	last map[view.ID][]dataset.Record
}

func newRecorder() *recorder { return &recorder{last: make(map[view.ID][]dataset.Record)} }

func (r *recorder) Render(id view.ID, recs []dataset.Record) {
	r.ids = append(r.ids, id)
	r.last[id] = recs
}

func (r *recorder) reset() { r.ids = nil }

func newTestEngine(t *testing.T, src dataset.Source, opts ...Option) (*Engine, *filter.State, *recorder) {
	t.Helper()
	st := filter.NewState()
	rec := newRecorder()
	e := New(src, st, MustStandardGraph(), append([]Option{WithSink(rec)}, opts...)...)
	return e, st, rec
}

func TestEngine_RebuildAll(t *testing.T) {
	e, st, rec := newTestEngine(t, datasettest.Standard().Mem())
	st.Set(filter.DimSessionID, filter.Of(1))

	require.NoError(t, e.RebuildAll(context.Background()))
	assert.Equal(t, []view.ID{view.IDSessions, view.IDInitialLevels, view.IDFinalLevels, view.IDTransitions, view.IDChargeStates}, rec.ids)

	sessions, ok := e.Result(view.IDSessions)
	require.True(t, ok)
	assert.Len(t, sessions, 2)
	assert.Len(t, rec.last[view.IDTransitions], 2)
}

func TestEngine_ElectronCountFanOut(t *testing.T) {
	e, st, rec := newTestEngine(t, datasettest.Standard().Mem())
	ctx := context.Background()
	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimSessionID, filter.Of(1))))
	rec.reset()

	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimElectronCount, filter.Of(2))))
	assert.Equal(t, []view.ID{view.IDInitialLevels, view.IDFinalLevels}, rec.ids)

	recs, _ := e.Result(view.IDInitialLevels)
	require.Len(t, recs, 1)
	assert.Equal(t, 1, recs[0].(dataset.Level).ID)
}

func TestEngine_IdempotentSetRebuildsOnce(t *testing.T) {
	src := datasettest.Standard().Mem()
	e, st, rec := newTestEngine(t, src)
	ctx := context.Background()

	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimSessionID, filter.Of(1))))
	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimSessionID, filter.Of(1))))

	assert.Equal(t, []view.ID{view.IDInitialLevels, view.IDFinalLevels, view.IDTransitions, view.IDChargeStates}, rec.ids)
	assert.Equal(t, 2, src.Queries(dataset.KindLevel))
	assert.Equal(t, 1, src.Queries(dataset.KindChargeState))
	assert.Equal(t, 1, src.Queries(dataset.KindTransition))
}

func TestEngine_ClearedDimensionsWidenFanOut(t *testing.T) {
	e, st, rec := newTestEngine(t, datasettest.Standard().Mem())
	ctx := context.Background()
	st.Set(filter.DimSessionID, filter.Of(1))
	st.Set(filter.DimInitialLevelID, filter.Of(1))
	rec.reset()

	ch := st.Set(filter.DimSessionID, filter.Of(2))
	require.NoError(t, e.OnChanged(ctx, ch))
	assert.Contains(t, rec.ids, view.IDTransitions)
	assert.Empty(t, rec.last[view.IDTransitions])
}

func TestEngine_QueryFailureKeepsPreviousResult(t *testing.T) {
	src := datasettest.Standard().Mem()
	var buf bytes.Buffer
	log := logging.New(&buf)
	e, st, rec := newTestEngine(t, src, WithLogger(log))
	ctx := context.Background()

	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimSessionID, filter.Of(1))))
	before, ok := e.Result(view.IDInitialLevels)
	require.True(t, ok)
	require.Len(t, before, 2)
	rec.reset()

	boom := errors.New("disk I/O error")
	src.FailWith(dataset.KindLevel, boom)
	err := e.OnChanged(ctx, st.Set(filter.DimElectronCount, filter.Of(2)))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	after, ok := e.Result(view.IDInitialLevels)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Empty(t, rec.ids, "failed views must not render")
	assert.Contains(t, buf.String(), "view query failed")
	assert.Contains(t, buf.String(), "levels-ini")
}

func TestEngine_FailureDoesNotStopOtherViews(t *testing.T) {
	src := datasettest.Standard().Mem()
	e, st, rec := newTestEngine(t, src)
	src.FailWith(dataset.KindLevel, errors.New("io"))

	err := e.OnChanged(context.Background(), st.Set(filter.DimSessionID, filter.Of(1)))
	require.Error(t, err)
	assert.Equal(t, []view.ID{view.IDTransitions, view.IDChargeStates}, rec.ids)
}

func TestEngine_UnchangedIsNoop(t *testing.T) {
	src := datasettest.Standard().Mem()
	e, _, rec := newTestEngine(t, src)
	require.NoError(t, e.OnChanged(context.Background(), filter.Change{Dimension: filter.DimElectronCount}))
	assert.Empty(t, rec.ids)
	assert.Zero(t, src.Queries(dataset.KindLevel))
}

func TestEngine_PromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPromMetrics(reg)
	require.NoError(t, err)

	src := datasettest.Standard().Mem()
	e, st, _ := newTestEngine(t, src, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, e.OnChanged(ctx, st.Set(filter.DimSessionID, filter.Of(1))))
	src.FailWith(dataset.KindTransition, errors.New("io"))
	require.Error(t, e.OnChanged(ctx, st.Set(filter.DimInitialLevelID, filter.Of(1))))

	assert.InDelta(t, 1, testutil.ToFloat64(m.rebuilds.WithLabelValues("levels-ini")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.rebuilds.WithLabelValues("transitions")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errors.WithLabelValues("transitions")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.errors.WithLabelValues("levels-ini")), 0)

	_, err = NewPromMetrics(reg)
	assert.Error(t, err, "second registration must collide")
}

func TestEngine_Reporter(t *testing.T) {
	r := NewReporter(16)
	src := datasettest.Standard().Mem()
	e, st, _ := newTestEngine(t, src, WithReporter(r))
	src.FailWith(dataset.KindTransition, errors.New("io"))

	_ = e.OnChanged(context.Background(), st.Set(filter.DimFinalLevelID, filter.Of(2)))
	r.Close()

	var got []Event
	for ev := range r.Subscribe() {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	assert.Equal(t, StatusPending, got[0].Status)
	assert.Equal(t, StatusFailed, got[1].Status)
	assert.Contains(t, FormatEvent(got[1]), "transitions failed")
	assert.Equal(t, "  ✓ sessions (2 rows)", FormatEvent(Event{View: view.IDSessions, Status: StatusCommitted, Records: 2}))
}

func TestReporter_DropsWhenFull(t *testing.T) {
	r := NewReporter(1)
	r.Emit(Event{View: view.IDSessions})
	r.Emit(Event{View: view.IDTransitions})
	r.Close()

	var n int
	for range r.Subscribe() {
		n++
	}
	assert.Equal(t, 1, n)

	var nilReporter *Reporter
	assert.NotPanics(t, func() { nilReporter.Emit(Event{}) })
}
