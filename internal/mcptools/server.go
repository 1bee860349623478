package mcptools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lingen1218/cfac/internal/browser"
)

// version is set by the linker at build time.
var version = "dev"

// NewBrowserMCPServer creates an MCP server with the dataset browser tools
// registered.
func NewBrowserMCPServer(svc *BrowserService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cfacdb",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "open_dataset",
		Description: "Open a cFAC SQLite dataset read-only. Rebuilds every view and selects the first session. On failure the previously open dataset stays open.",
	}, svc.OpenDataset)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pick",
		Description: "Select a row in a view by its id cell. Sessions select the session, levels-ini/levels-fin select the initial/final level, charge-states select the electron count. Returns the resulting filter state.",
	}, svc.Pick)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_electron_count_delta",
		Description: "Set the electron count difference between final and initial levels. Narrows levels-fin once an electron count is selected.",
	}, svc.SelectElectronCountDelta)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_view",
		Description: "Return the records currently displayed by a view.",
	}, svc.GetView)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_filter_state",
		Description: "Return the current filter state. Unset dimensions are null.",
	}, svc.GetFilterState)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dataset_stats",
		Description: "Count the levels, transitions and charge states of a session.",
	}, svc.DatasetStats)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func isNoDataset(err error) bool {
	return errors.Is(err, browser.ErrNoDataset)
}
