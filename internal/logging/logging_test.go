package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"err", LevelErr, false},
		{"wrn", LevelWrn, false},
		{"inf", LevelInf, false},
		{"dbg", LevelDbg, false},
		{"", LevelInf, false},
		{"verbose", LevelInf, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.hasError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLogger_DebugSuppressedUntilToggled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Dbg("hidden detail")
	assert.NotContains(t, buf.String(), "hidden detail")

	l.SetDebug(true)
	l.Dbg("visible detail")
	assert.Contains(t, buf.String(), "visible detail")
	assert.True(t, l.Debug())

	l.SetDebug(false)
	l.Dbg("hidden again")
	assert.NotContains(t, buf.String(), "hidden again")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(LevelWrn)

	l.Inf("routine")
	l.Wrn("careful")
	l.Err("broken", "view", "levels-ini")

	out := buf.String()
	assert.NotContains(t, out, "routine")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "levels-ini")
}

func TestLogger_SetLevelDbgEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(LevelDbg)

	l.Log(LevelDbg, "trace rebuild")
	assert.Contains(t, buf.String(), "trace rebuild")
}

func TestLogger_DebugKeepsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetLevel(LevelErr)
	l.SetDebug(true)

	l.Inf("routine")
	l.Wrn("careful")
	l.Err("broken")
	l.Dbg("rebuild detail")

	out := buf.String()
	assert.NotContains(t, out, "routine")
	assert.NotContains(t, out, "careful")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "rebuild detail")
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Err("nothing") })
}
