package main

import (
	"github.com/spf13/cobra"

	"github.com/Lingen1218/cfac/internal/mcptools"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var db, metricsFile string

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve the dataset browser as MCP tools on stdio",
		Long: `Serve the dataset browser as MCP tools on stdin/stdout. Logs go to
stderr. When --db (or dataset in cfacdb.yml) is set the dataset is opened
before serving; a failed open is logged and the server starts empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := metricsRegistry(metricsFile)
			b, err := a.newBrowser(reg)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			ctx := cmd.Context()
			if path, err := a.datasetPath(db); err == nil {
				// Open logs its own failure; clients can retry with open_dataset.
				_ = b.Open(ctx, path)
			}

			server := mcptools.NewBrowserMCPServer(mcptools.NewBrowserService(b))
			a.log.Inf("serving MCP on stdio")
			if err := mcptools.RunStdio(ctx, server); err != nil {
				return err
			}
			return writeMetrics(metricsFile, reg)
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "path to the cFAC SQLite dataset to open at startup")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write rebuild metrics in Prometheus text format to this file on exit")
	return cmd
}
