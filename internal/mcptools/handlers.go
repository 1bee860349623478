package mcptools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Lingen1218/cfac/internal/browser"
	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/export"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/selection"
	"github.com/Lingen1218/cfac/internal/view"
)

// BrowserService exposes a Browser through MCP tool handlers.
type BrowserService struct {
	b *browser.Browser
}

// NewBrowserService creates a BrowserService over b.
func NewBrowserService(b *browser.Browser) *BrowserService {
	return &BrowserService{b: b}
}

// knownView rejects view ids the browser does not serve.
func knownView(id string) (view.ID, error) {
	for _, v := range view.Standard() {
		if string(v.ID()) == id {
			return v.ID(), nil
		}
	}
	return "", fmt.Errorf("unknown view %q", id)
}

func (s *BrowserService) filterState() (map[string]*int, error) {
	snap, err := s.b.Filter()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*int, len(snap))
	for name, v := range export.FilterMap(snap) {
		if n, ok := v.Get(); ok {
			out[name] = &n
		} else {
			out[name] = nil
		}
	}
	return out, nil
}

// filterOutput reports the state after a mutation. Rebuild failures were
// already logged; they come back as warnings, not tool errors.
func (s *BrowserService) filterOutput(rebuildErr error) (FilterOutput, error) {
	fs, err := s.filterState()
	if err != nil {
		return FilterOutput{}, err
	}
	out := FilterOutput{Filter: fs}
	if rebuildErr != nil {
		out.Warnings = []string{rebuildErr.Error()}
	}
	return out, nil
}

// OpenDataset opens a dataset, replacing the current one on success.
func (s *BrowserService) OpenDataset(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OpenDatasetInput,
) (*mcp.CallToolResult, OpenDatasetOutput, error) {
	if input.Path == "" {
		return nil, OpenDatasetOutput{}, fmt.Errorf("path is required")
	}
	if err := s.b.Open(ctx, input.Path); err != nil {
		return nil, OpenDatasetOutput{}, err
	}
	sessions, err := s.b.Result(view.IDSessions)
	if err != nil {
		return nil, OpenDatasetOutput{}, err
	}
	fs, err := s.filterState()
	if err != nil {
		return nil, OpenDatasetOutput{}, err
	}
	return nil, OpenDatasetOutput{Dataset: s.b.Path(), Sessions: len(sessions), Filter: fs}, nil
}

// Pick applies a row selection in one of the views.
func (s *BrowserService) Pick(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PickInput,
) (*mcp.CallToolResult, FilterOutput, error) {
	id, err := knownView(input.View)
	if err != nil {
		return nil, FilterOutput{}, err
	}
	rebuildErr := s.b.Pick(ctx, id, input.ID)
	if rebuildErr != nil && isNoDataset(rebuildErr) {
		return nil, FilterOutput{}, rebuildErr
	}
	out, err := s.filterOutput(rebuildErr)
	return nil, out, err
}

// SelectElectronCountDelta sets the final-level electron count offset.
func (s *BrowserService) SelectElectronCountDelta(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SelectDeltaInput,
) (*mcp.CallToolResult, FilterOutput, error) {
	rebuildErr := s.b.SelectElectronCountDelta(ctx, selection.ParseDelta(input.Delta))
	if rebuildErr != nil && isNoDataset(rebuildErr) {
		return nil, FilterOutput{}, rebuildErr
	}
	out, err := s.filterOutput(rebuildErr)
	return nil, out, err
}

// GetView returns the displayed records of one view.
func (s *BrowserService) GetView(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetViewInput,
) (*mcp.CallToolResult, GetViewOutput, error) {
	id, err := knownView(input.View)
	if err != nil {
		return nil, GetViewOutput{}, err
	}
	recs, err := s.b.Result(id)
	if err != nil {
		return nil, GetViewOutput{}, err
	}
	return nil, GetViewOutput{View: export.ExportView(id, recs)}, nil
}

// GetFilterState returns the current filter state.
func (s *BrowserService) GetFilterState(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetFilterStateInput,
) (*mcp.CallToolResult, FilterOutput, error) {
	fs, err := s.filterState()
	if err != nil {
		return nil, FilterOutput{}, err
	}
	return nil, FilterOutput{Filter: fs}, nil
}

// DatasetStats counts the records of a session within an electron-count
// range.
func (s *BrowserService) DatasetStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DatasetStatsInput,
) (*mcp.CallToolResult, DatasetStatsOutput, error) {
	sid := filter.UnsetID
	if input.SessionID != "" {
		sid = selection.ParseID(input.SessionID)
		if sid == filter.UnsetID {
			return nil, DatasetStatsOutput{}, fmt.Errorf("invalid sessionId %q", input.SessionID)
		}
	}
	r := dataset.DefaultNeleRange
	if input.NeleMin != nil {
		r.Min = *input.NeleMin
	}
	if input.NeleMax != nil {
		r.Max = *input.NeleMax
	}
	st, err := s.b.Stats(ctx, sid, r)
	if err != nil {
		return nil, DatasetStatsOutput{}, err
	}
	return nil, DatasetStatsOutput{Stats: st}, nil
}
