// Package selection turns user picks into filter mutations and triggers the
// resulting view rebuilds.
package selection

import (
	"context"
	"strconv"
	"strings"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/logging"
	"github.com/Lingen1218/cfac/internal/view"
)

// Which selects the initial or final level dimension.
type Which int

const (
	Initial Which = iota
	Final
)

func (w Which) String() string {
	if w == Final {
		return "final"
	}
	return "initial"
}

// Dimension returns the filter dimension w addresses.
func (w Which) Dimension() filter.Dimension {
	if w == Final {
		return filter.DimFinalLevelID
	}
	return filter.DimInitialLevelID
}

// Engine is what the controller needs from the invalidation engine.
type Engine interface {
	OnChanged(ctx context.Context, ch filter.Change) error
	Result(id view.ID) ([]dataset.Record, bool)
}

// Controller is the only writer of a filter.State.
type Controller struct {
	state  *filter.State
	engine Engine
	log    *logging.Logger
}

// New returns a Controller mutating state and notifying eng.
func New(state *filter.State, eng Engine, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{state: state, engine: eng, log: log}
}

// State returns read access to the filter state.
func (c *Controller) State() filter.Reader { return c.state }

// ParseID converts raw UI input to an id. Empty, non-numeric and negative
// input yields filter.UnsetID.
func ParseID(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return filter.UnsetID
	}
	return n
}

// ParseDelta converts raw UI input to an electron count delta. Negative
// deltas are valid; empty or non-numeric input is unset.
func ParseDelta(raw string) filter.Value {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return filter.Unset()
	}
	return filter.Of(n)
}

// normalize maps negative ids and counts to unset.
func normalize(v int) filter.Value {
	if v < 0 {
		return filter.Unset()
	}
	return filter.Of(v)
}

func (c *Controller) apply(ctx context.Context, d filter.Dimension, v filter.Value) error {
	ch := c.state.Set(d, v)
	if !ch.Changed() {
		return nil
	}
	return c.engine.OnChanged(ctx, ch)
}

// SelectSession selects a session; a negative id clears the selection.
// Changing the session clears every level-scoped filter.
func (c *Controller) SelectSession(ctx context.Context, id int) error {
	return c.apply(ctx, filter.DimSessionID, normalize(id))
}

// SelectLevel selects the initial or final level.
func (c *Controller) SelectLevel(ctx context.Context, which Which, id int) error {
	return c.apply(ctx, which.Dimension(), normalize(id))
}

// SelectElectronCount selects the base electron count.
func (c *Controller) SelectElectronCount(ctx context.Context, n int) error {
	return c.apply(ctx, filter.DimElectronCount, normalize(n))
}

// SelectElectronCountDelta sets the final-level electron count offset.
func (c *Controller) SelectElectronCountDelta(ctx context.Context, d filter.Value) error {
	return c.apply(ctx, filter.DimElectronCountDelta, d)
}

// Pick handles a row selection in a view. raw is the text of the row's
// id cell.
func (c *Controller) Pick(ctx context.Context, id view.ID, raw string) error {
	c.log.Dbg("pick", "view", id, "raw", raw)
	switch id {
	case view.IDSessions:
		return c.SelectSession(ctx, ParseID(raw))
	case view.IDInitialLevels:
		return c.SelectLevel(ctx, Initial, ParseID(raw))
	case view.IDFinalLevels:
		return c.SelectLevel(ctx, Final, ParseID(raw))
	case view.IDChargeStates:
		return c.SelectElectronCount(ctx, ParseID(raw))
	case view.IDTransitions:
		// Transitions are leaves; nothing depends on them.
		return nil
	default:
		c.log.Wrn("pick in unknown view", "view", id)
		return nil
	}
}

// SelectFirstSession selects the first row of the sessions view, the same
// way a user pick would.
func (c *Controller) SelectFirstSession(ctx context.Context) error {
	recs, _ := c.engine.Result(view.IDSessions)
	if len(recs) == 0 {
		c.log.Wrn("dataset has no sessions")
		return nil
	}
	s, ok := recs[0].(dataset.Session)
	if !ok {
		c.log.Wrn("unexpected record in sessions view", "kind", recs[0].Kind())
		return nil
	}
	c.log.Inf("selecting first session", "sid", s.ID)
	return c.SelectSession(ctx, s.ID)
}
