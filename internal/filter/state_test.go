package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_DefaultsUnset(t *testing.T) {
	s := NewState()
	for _, d := range Dimensions() {
		_, ok := s.Get(d)
		assert.False(t, ok, "%s should start unset", d)
	}

	var zero State
	assert.False(t, zero.Value(DimSessionID).IsSet())
	ch := zero.Set(DimSessionID, Of(1))
	assert.True(t, ch.Changed())
}

func TestState_SetIsIdempotent(t *testing.T) {
	s := NewState()

	first := s.Set(DimElectronCount, Of(2))
	assert.True(t, first.Changed())
	assert.Equal(t, Unset(), first.Previous)
	assert.Equal(t, Of(2), first.Current)

	second := s.Set(DimElectronCount, Of(2))
	assert.False(t, second.Changed())
	assert.Empty(t, second.Cleared)
}

func TestState_SessionSwitchClearsScopedDimensions(t *testing.T) {
	s := NewState()
	s.Set(DimSessionID, Of(1))
	s.Set(DimInitialLevelID, Of(10))
	s.Set(DimElectronCount, Of(2))
	s.Set(DimElectronCountDelta, Of(-1))

	ch := s.Set(DimSessionID, Of(2))
	require.True(t, ch.Changed())
	assert.Equal(t, []Dimension{DimInitialLevelID, DimElectronCount, DimElectronCountDelta}, ch.Cleared)
	assert.Equal(t, []Dimension{DimSessionID, DimInitialLevelID, DimElectronCount, DimElectronCountDelta}, ch.Dimensions())

	for _, d := range []Dimension{DimInitialLevelID, DimFinalLevelID, DimElectronCount, DimElectronCountDelta} {
		assert.False(t, s.Value(d).IsSet(), "%s should be cleared", d)
	}
	sid, ok := s.Get(DimSessionID)
	assert.True(t, ok)
	assert.Equal(t, 2, sid)
}

func TestState_SameSessionKeepsScopedDimensions(t *testing.T) {
	s := NewState()
	s.Set(DimSessionID, Of(1))
	s.Set(DimFinalLevelID, Of(4))

	ch := s.Set(DimSessionID, Of(1))
	assert.False(t, ch.Changed())
	assert.Equal(t, Of(4), s.Value(DimFinalLevelID))
}

func TestState_NoOtherImplicitResets(t *testing.T) {
	s := NewState()
	s.Set(DimSessionID, Of(1))
	s.Set(DimInitialLevelID, Of(1))
	s.Set(DimFinalLevelID, Of(2))

	ch := s.Set(DimElectronCount, Of(3))
	assert.Empty(t, ch.Cleared)
	assert.Equal(t, Of(1), s.Value(DimInitialLevelID))
	assert.Equal(t, Of(2), s.Value(DimFinalLevelID))
}

func TestState_Reset(t *testing.T) {
	s := NewState()
	s.Set(DimInitialLevelID, Of(7))

	ch := s.Reset(DimInitialLevelID)
	assert.True(t, ch.Changed())
	assert.Equal(t, Of(7), ch.Previous)
	assert.False(t, s.Value(DimInitialLevelID).IsSet())

	assert.False(t, s.Reset(DimInitialLevelID).Changed())
}

func TestState_UnknownDimensionPanics(t *testing.T) {
	assert.Panics(t, func() { NewState().Set(Dimension("charge"), Of(1)) })
}

func TestState_SnapshotIsDetached(t *testing.T) {
	s := NewState()
	s.Set(DimSessionID, Of(1))
	snap := s.Snapshot()

	s.Set(DimSessionID, Of(2))
	assert.Equal(t, Of(1), snap.Value(DimSessionID))
	assert.Len(t, snap, len(Dimensions()))
}

func TestValue(t *testing.T) {
	assert.Equal(t, 5, Of(5).Or(UnsetID))
	assert.Equal(t, UnsetID, Unset().Or(UnsetID))
	assert.Equal(t, "unset", Unset().String())
	assert.Equal(t, "-1", Of(-1).String())

	b, err := json.Marshal(map[string]Value{"a": Of(3), "b": Unset()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":3,"b":null}`, string(b))

	var got map[string]Value
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, Of(3), got["a"])
	assert.Equal(t, Unset(), got["b"])
}
