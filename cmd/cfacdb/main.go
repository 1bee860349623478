package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Lingen1218/cfac/internal/browser"
	"github.com/Lingen1218/cfac/internal/config"
	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/logging"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// cliFlags are the persistent flags shared by every subcommand.
type cliFlags struct {
	ConfigDir string
	Debug     bool
	LogLevel  string
	Backend   string
}

// app is the resolved runtime configuration of one invocation.
type app struct {
	flags   cliFlags
	cfg     *config.Config
	log     *logging.Logger
	backend dataset.Backend
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "cfacdb",
		Short:         "Browse cFAC atomic data: sessions, levels and radiative transitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.ConfigDir, "config-dir", ".", "directory containing cfacdb.yml")
	pf.BoolVar(&a.flags.Debug, "debug", false, "emit dbg log entries")
	pf.StringVar(&a.flags.LogLevel, "log-level", "", "minimum log level: err, wrn, inf, dbg")
	pf.StringVar(&a.flags.Backend, "backend", "", "dataset backend: sqlite or kuzu")

	root.AddCommand(
		newViewsCmd(a),
		newGraphCmd(),
		newStatsCmd(a),
		newServeMCPCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads cfacdb.yml and lets explicitly set flags override it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.ConfigDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pf := cmd.Flags()
	if pf.Changed("debug") {
		cfg.Debug = a.flags.Debug
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = a.flags.LogLevel
	}
	if pf.Changed("backend") {
		cfg.Backend = a.flags.Backend
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.backend = cfg.DatasetBackend()

	a.log = logging.New(cmd.ErrOrStderr())
	a.log.SetLevel(cfg.Level())
	if cfg.Debug {
		a.log.SetDebug(true)
	}
	return nil
}

// datasetPath returns the --db flag, falling back to the configured dataset.
func (a *app) datasetPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if a.cfg.Dataset != "" {
		return a.cfg.Dataset, nil
	}
	return "", fmt.Errorf("no dataset: pass --db or set dataset in cfacdb.yml")
}

// newBrowser builds a Browser wired to the app's logger and backend.
// When metricsFile is set, rebuild metrics are collected into reg.
func (a *app) newBrowser(reg *prometheus.Registry, opts ...browser.Option) (*browser.Browser, error) {
	base := []browser.Option{
		browser.WithLogger(a.log),
		browser.WithBackend(a.backend),
	}
	if reg != nil {
		m, err := engine.NewPromMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		base = append(base, browser.WithMetrics(m))
	}
	return browser.New(append(base, opts...)...), nil
}

// writeMetrics dumps reg in the Prometheus text format to path.
func writeMetrics(path string, reg *prometheus.Registry) error {
	if path == "" || reg == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func metricsRegistry(path string) *prometheus.Registry {
	if path == "" {
		return nil
	}
	return prometheus.NewRegistry()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
