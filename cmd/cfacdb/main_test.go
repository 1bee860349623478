package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lingen1218/cfac/internal/dataset/datasettest"
	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/view"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version", "--config-dir", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestGraph(t *testing.T) {
	out, _, err := execute(t, "graph", "--config-dir", t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR"))
	assert.Contains(t, out, "charge-states")
}

func TestViews(t *testing.T) {
	dir := t.TempDir()
	db := datasettest.Standard().WriteSQLite(t, dir, "fe.sqlite")
	metrics := filepath.Join(dir, "cfac.prom")

	out, stderr, err := execute(t, "views", "--config-dir", dir, "--db", db,
		"--session", "1", "--ini", "1", "--fin", "2", "--trace", "--metrics-file", metrics)
	require.NoError(t, err)

	var got struct {
		Filter map[string]*int `json:"filter"`
		Views  []struct {
			ID    string `json:"id"`
			Count int    `json:"count"`
		} `json:"views"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Filter["finalLevelId"])
	assert.Equal(t, 2, *got.Filter["finalLevelId"])
	require.Len(t, got.Views, 5)
	assert.Equal(t, "transitions", got.Views[3].ID)
	assert.Equal(t, 1, got.Views[3].Count)

	assert.Contains(t, stderr, "transitions (1 rows)")

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `cfac_view_rebuilds_total{view="transitions"}`)
}

func TestViews_DatasetFromConfig(t *testing.T) {
	dir := t.TempDir()
	datasettest.Standard().WriteSQLite(t, dir, "fe.sqlite")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cfacdb.yml"), []byte("dataset: fe.sqlite\n"), 0o644))

	out, _, err := execute(t, "views", "--config-dir", dir, "--nele", "2")
	require.NoError(t, err)
	assert.Contains(t, out, `"electronCount": 2`)
}

func TestViews_MissingDataset(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "views", "--config-dir", dir, "--db", filepath.Join(dir, "nope.sqlite"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	_, _, err = execute(t, "views", "--config-dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dataset")
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	db := datasettest.Standard().WriteSQLite(t, dir, "fe.sqlite")

	out, _, err := execute(t, "stats", "--config-dir", dir, "--db", db, "--session", "2")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sid":2,"nele_min":0,"nele_max":100,"levels":1,"transitions":0,"chargeStates":1,
		"ai":0,"ce":0,"ci":0,"rr":0}`, out)

	out, _, err = execute(t, "stats", "--config-dir", dir, "--db", db, "--session", "1", "--nele-min", "3", "--nele-max", "3")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sid":1,"nele_min":3,"nele_max":3,"levels":1,"transitions":0,"chargeStates":1,
		"ai":1,"ce":0,"ci":0,"rr":1}`, out)
}

func TestStats_InvalidArgs(t *testing.T) {
	dir := t.TempDir()
	db := datasettest.Standard().WriteSQLite(t, dir, "fe.sqlite")

	_, _, err := execute(t, "stats", "--config-dir", dir, "--db", db, "--session", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --session "x"`)

	_, _, err = execute(t, "stats", "--config-dir", dir, "--db", db, "--nele-min", "5", "--nele-max", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electron count range")
}

func TestViews_TraceStopsOnOpenError(t *testing.T) {
	dir := t.TempDir()
	before := runtime.NumGoroutine()

	_, _, err := execute(t, "views", "--config-dir", dir, "--db", filepath.Join(dir, "nope.sqlite"), "--trace")
	require.Error(t, err)
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before },
		time.Second, 10*time.Millisecond, "trace printer still running")
}

func TestStartTrace(t *testing.T) {
	var buf bytes.Buffer
	reporter, stop := startTrace(&buf)
	reporter.Emit(engine.Event{View: view.IDTransitions, Status: engine.StatusCommitted, Records: 3})
	stop()
	stop()
	assert.Equal(t, "  ✓ transitions (3 rows)\n", buf.String())
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "graph", "--config-dir", t.TempDir(), "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
