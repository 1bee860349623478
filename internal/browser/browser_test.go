package browser

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/dataset/datasettest"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/logging"
	"github.com/Lingen1218/cfac/internal/selection"
	"github.com/Lingen1218/cfac/internal/view"
)

// memOpener serves MemSources by path and fails for anything else.
func memOpener(sources map[string]*dataset.MemSource) OpenFunc {
	return func(_ context.Context, path string) (dataset.Source, error) {
		if src, ok := sources[path]; ok {
			return src, nil
		}
		return nil, &dataset.DatasetOpenError{Path: path, Reason: dataset.ReasonMissing, Err: errors.New("no such file")}
	}
}

func TestBrowser_OpenSelectsFirstSession(t *testing.T) {
	src := datasettest.Standard().Mem()
	b := New(WithOpener(memOpener(map[string]*dataset.MemSource{"fe.db": src})))

	require.NoError(t, b.Open(context.Background(), "fe.db"))
	assert.Equal(t, "fe.db", b.Path())

	snap, err := b.Filter()
	require.NoError(t, err)
	assert.Equal(t, filter.Of(1), snap.Value(filter.DimSessionID))

	levels, err := b.Result(view.IDInitialLevels)
	require.NoError(t, err)
	assert.Len(t, levels, 2)

	sessions, err := b.Result(view.IDSessions)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestBrowser_OpenFailureLeavesPriorHandle(t *testing.T) {
	src := datasettest.Standard().Mem()
	var buf bytes.Buffer
	b := New(
		WithOpener(memOpener(map[string]*dataset.MemSource{"fe.db": src})),
		WithLogger(logging.New(&buf)),
	)
	ctx := context.Background()
	require.NoError(t, b.Open(ctx, "fe.db"))
	require.NoError(t, b.Pick(ctx, view.IDInitialLevels, "2"))

	err := b.Open(ctx, "missing.db")
	var oerr *dataset.DatasetOpenError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, dataset.ReasonMissing, oerr.Reason)

	assert.False(t, src.Closed())
	assert.Equal(t, "fe.db", b.Path())
	snap, err := b.Filter()
	require.NoError(t, err)
	assert.Equal(t, filter.Of(2), snap.Value(filter.DimInitialLevelID))
	assert.Contains(t, buf.String(), "cannot open dataset")
}

func TestBrowser_OpenMissingFileOnDisk(t *testing.T) {
	path := datasettest.Standard().WriteSQLite(t, t.TempDir(), "fe.sqlite")
	b := New()
	ctx := context.Background()
	require.NoError(t, b.Open(ctx, path))
	t.Cleanup(func() { _ = b.Close() })

	err := b.Open(ctx, filepath.Join(t.TempDir(), "nope.sqlite"))
	var oerr *dataset.DatasetOpenError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, path, b.Path())

	recs, err := b.Result(view.IDTransitions)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestBrowser_ReopenReleasesPrior(t *testing.T) {
	first := datasettest.Standard().Mem()
	second := datasettest.Standard().Mem()
	b := New(WithOpener(memOpener(map[string]*dataset.MemSource{"a.db": first, "b.db": second})))
	ctx := context.Background()

	require.NoError(t, b.Open(ctx, "a.db"))
	require.NoError(t, b.Pick(ctx, view.IDChargeStates, "2"))
	require.NoError(t, b.Open(ctx, "b.db"))

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())

	snap, err := b.Filter()
	require.NoError(t, err)
	assert.False(t, snap.Value(filter.DimElectronCount).IsSet(), "state is per dataset")
}

func TestBrowser_NoDataset(t *testing.T) {
	b := New()
	ctx := context.Background()

	assert.ErrorIs(t, b.Pick(ctx, view.IDSessions, "1"), ErrNoDataset)
	_, err := b.Result(view.IDSessions)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = b.Filter()
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = b.Stats(ctx, 1, dataset.DefaultNeleRange)
	assert.ErrorIs(t, err, ErrNoDataset)
	_, _, err = b.Views()
	assert.ErrorIs(t, err, ErrNoDataset)
	assert.NoError(t, b.Close())
}

func TestBrowser_CloseReleases(t *testing.T) {
	src := datasettest.Standard().Mem()
	b := New()
	b.Attach(context.Background(), "mem", src)

	require.NoError(t, b.Close())
	assert.True(t, src.Closed())
	assert.Empty(t, b.Path())
}

func TestBrowser_Views(t *testing.T) {
	b := New()
	b.Attach(context.Background(), "mem", datasettest.Standard().Mem())

	ids, recs, err := b.Views()
	require.NoError(t, err)
	assert.Equal(t, []view.ID{view.IDSessions, view.IDInitialLevels, view.IDFinalLevels, view.IDTransitions, view.IDChargeStates}, ids)
	assert.Len(t, recs[view.IDTransitions], 2)
	assert.Len(t, recs[view.IDChargeStates], 2)
}

func TestBrowser_Stats(t *testing.T) {
	b := New()
	b.Attach(context.Background(), "mem", datasettest.Standard().Mem())

	st, err := b.Stats(context.Background(), -1, dataset.DefaultNeleRange)
	require.NoError(t, err)
	assert.Equal(t, dataset.Stats{
		SessionID: 1, NeleMax: 100,
		Levels: 2, Transitions: 2, ChargeStates: 2,
		Autoionization: 1, Ionization: 1, Recombination: 1,
	}, st)

	st, err = b.Stats(context.Background(), 2, dataset.DefaultNeleRange)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Levels)
	assert.Equal(t, 0, st.Transitions)

	st, err = b.Stats(context.Background(), 1, dataset.NeleRange{Min: 3, Max: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Levels)
	assert.Equal(t, 0, st.Transitions)

	_, err = b.Stats(context.Background(), 1, dataset.NeleRange{Min: 4, Max: 3})
	assert.Error(t, err)
}

func TestBrowser_DeltaAndDo(t *testing.T) {
	b := New()
	ctx := context.Background()
	b.Attach(ctx, "mem", datasettest.Standard().Mem())

	require.NoError(t, b.Do(func(ctl *selection.Controller) error {
		return ctl.SelectElectronCount(ctx, 3)
	}))
	require.NoError(t, b.SelectElectronCountDelta(ctx, filter.Of(-1)))

	fin, err := b.Result(view.IDFinalLevels)
	require.NoError(t, err)
	require.Len(t, fin, 1)
	assert.Equal(t, 1, fin[0].(dataset.Level).ID)
}

func TestBrowser_ConcurrentPicks(t *testing.T) {
	b := New()
	ctx := context.Background()
	b.Attach(ctx, "mem", datasettest.Standard().Mem())

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Pick(ctx, view.IDChargeStates, []string{"2", "3"}[i%2])
			_, _ = b.Result(view.IDInitialLevels)
		}()
	}
	wg.Wait()

	snap, err := b.Filter()
	require.NoError(t, err)
	assert.True(t, snap.Value(filter.DimElectronCount).IsSet())
}
