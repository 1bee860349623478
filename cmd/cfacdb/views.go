package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Lingen1218/cfac/internal/browser"
	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/export"
	"github.com/Lingen1218/cfac/internal/selection"
)

type viewsFlags struct {
	DB          string
	Session     string
	Ini         string
	Fin         string
	Nele        string
	DNele       string
	Trace       bool
	MetricsFile string
}

func newViewsCmd(a *app) *cobra.Command {
	var f viewsFlags

	cmd := &cobra.Command{
		Use:   "views",
		Short: "Open a dataset, apply selections and print every view as JSON",
		Long: `Open a dataset, apply the given selections in order (session, initial
level, final level, electron count, delta) and print the filter state and
every view's records as JSON. Empty or non-numeric ids clear a selection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViews(cmd, a, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.DB, "db", "", "path to the cFAC SQLite dataset")
	fl.StringVar(&f.Session, "session", "", "session id")
	fl.StringVar(&f.Ini, "ini", "", "initial level id")
	fl.StringVar(&f.Fin, "fin", "", "final level id")
	fl.StringVar(&f.Nele, "nele", "", "electron count")
	fl.StringVar(&f.DNele, "dnele", "", "electron count delta of final levels")
	fl.BoolVar(&f.Trace, "trace", false, "print view rebuild progress to stderr")
	fl.StringVar(&f.MetricsFile, "metrics-file", "", "write rebuild metrics in Prometheus text format to this file")
	return cmd
}

func runViews(cmd *cobra.Command, a *app, f viewsFlags) error {
	path, err := a.datasetPath(f.DB)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var opts []browser.Option
	stopTrace := func() {}
	if f.Trace {
		var reporter *engine.Reporter
		reporter, stopTrace = startTrace(cmd.ErrOrStderr())
		opts = append(opts, browser.WithReporter(reporter))
	}
	defer stopTrace()

	reg := metricsRegistry(f.MetricsFile)
	b, err := a.newBrowser(reg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	if err := b.Open(ctx, path); err != nil {
		return err
	}

	fl := cmd.Flags()
	// Rebuild failures are logged by the engine; the views keep what they had.
	_ = b.Do(func(ctl *selection.Controller) error {
		if fl.Changed("session") {
			_ = ctl.SelectSession(ctx, selection.ParseID(f.Session))
		}
		if fl.Changed("ini") {
			_ = ctl.SelectLevel(ctx, selection.Initial, selection.ParseID(f.Ini))
		}
		if fl.Changed("fin") {
			_ = ctl.SelectLevel(ctx, selection.Final, selection.ParseID(f.Fin))
		}
		if fl.Changed("nele") {
			_ = ctl.SelectElectronCount(ctx, selection.ParseID(f.Nele))
		}
		if fl.Changed("dnele") {
			_ = ctl.SelectElectronCountDelta(ctx, selection.ParseDelta(f.DNele))
		}
		return nil
	})

	stopTrace()

	data, err := export.ExportViews(b)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := export.WriteJSON(cmd.OutOrStdout(), data); err != nil {
		return err
	}
	return writeMetrics(f.MetricsFile, reg)
}

// startTrace prints rebuild events to w until stop is called. stop closes
// the reporter and waits for the printer; it is safe to call more than once.
func startTrace(w io.Writer) (reporter *engine.Reporter, stop func()) {
	reporter = engine.NewReporter(256)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range reporter.Subscribe() {
			fmt.Fprintln(w, engine.FormatEvent(ev))
		}
	}()
	var once sync.Once
	return reporter, func() {
		once.Do(func() {
			reporter.Close()
			wg.Wait()
		})
	}
}
