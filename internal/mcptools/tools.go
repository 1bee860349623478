package mcptools

import (
	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/export"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// Ids travel as strings so that blank or malformed picks are normalized the
// same way a UI row selection would be.

// OpenDatasetInput is the input for the open_dataset MCP tool.
type OpenDatasetInput struct {
	Path string `json:"path" jsonschema:"filesystem path of the cFAC SQLite dataset"`
}

// OpenDatasetOutput is the result of the open_dataset MCP tool.
type OpenDatasetOutput struct {
	Dataset  string          `json:"dataset"`
	Sessions int             `json:"sessions"`
	Filter   map[string]*int `json:"filter"`
}

// PickInput is the input for the pick MCP tool.
type PickInput struct {
	View string `json:"view" jsonschema:"view id: sessions, levels-ini, levels-fin, transitions or charge-states"`
	ID   string `json:"id" jsonschema:"id cell of the selected row; empty clears the selection"`
}

// SelectDeltaInput is the input for the select_electron_count_delta MCP tool.
type SelectDeltaInput struct {
	Delta string `json:"delta" jsonschema:"final minus initial electron count; may be negative; empty clears it"`
}

// FilterOutput reports the filter state after a mutation.
type FilterOutput struct {
	Filter   map[string]*int `json:"filter"`
	Warnings []string        `json:"warnings,omitempty"`
}

// GetViewInput is the input for the get_view MCP tool.
type GetViewInput struct {
	View string `json:"view" jsonschema:"view id: sessions, levels-ini, levels-fin, transitions or charge-states"`
}

// GetViewOutput is the result of the get_view MCP tool.
type GetViewOutput struct {
	View export.ViewExport `json:"view"`
}

// GetFilterStateInput is the input for the get_filter_state MCP tool.
type GetFilterStateInput struct{}

// DatasetStatsInput is the input for the dataset_stats MCP tool.
type DatasetStatsInput struct {
	SessionID string `json:"sessionId,omitempty" jsonschema:"session to count (default: the selected session)"`
	NeleMin   *int   `json:"neleMin,omitempty" jsonschema:"smallest electron count to include (default 0)"`
	NeleMax   *int   `json:"neleMax,omitempty" jsonschema:"largest electron count to include (default 100)"`
}

// DatasetStatsOutput is the result of the dataset_stats MCP tool.
type DatasetStatsOutput struct {
	Stats dataset.Stats `json:"stats"`
}
