// Package view declares the dataset views and how each one turns the
// current filter state into a query predicate.
package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lingen1218/cfac/internal/dataset"
	"github.com/Lingen1218/cfac/internal/filter"
)

// ID identifies a view to the display sink.
type ID string

const (
	IDSessions      ID = "sessions"
	IDInitialLevels ID = "levels-ini"
	IDFinalLevels   ID = "levels-fin"
	IDTransitions   ID = "transitions"
	IDChargeStates  ID = "charge-states"
)

// View is a declarative query bound to a subset of filter dimensions.
// Predicate must read only the dimensions Bound returns.
type View interface {
	ID() ID
	Kind() dataset.RecordKind
	Bound() []filter.Dimension
	Predicate(r filter.Reader) dataset.Predicate
}

// Standard returns the views in display order.
func Standard() []View {
	return []View{Sessions{}, InitialLevels{}, FinalLevels{}, Transitions{}, ChargeStates{}}
}

// inSession scopes a predicate to the selected session. With no session
// selected it matches nothing, since no session has id -1.
func inSession(r filter.Reader) dataset.Predicate {
	sid := r.Value(filter.DimSessionID).Or(filter.UnsetID)
	return dataset.All().Eq(dataset.FieldSessionID, sid)
}

// Sessions lists every calculation session.
type Sessions struct{}

func (Sessions) ID() ID                                    { return IDSessions }
func (Sessions) Kind() dataset.RecordKind                  { return dataset.KindSession }
func (Sessions) Bound() []filter.Dimension                 { return nil }
func (Sessions) Predicate(filter.Reader) dataset.Predicate { return dataset.All() }

// InitialLevels lists candidate initial levels of the selected session,
// narrowed to the selected electron count.
type InitialLevels struct{}

func (InitialLevels) ID() ID                   { return IDInitialLevels }
func (InitialLevels) Kind() dataset.RecordKind { return dataset.KindLevel }
func (InitialLevels) Bound() []filter.Dimension {
	return []filter.Dimension{filter.DimSessionID, filter.DimElectronCount}
}

func (InitialLevels) Predicate(r filter.Reader) dataset.Predicate {
	p := inSession(r)
	if n, ok := r.Value(filter.DimElectronCount).Get(); ok {
		p = p.Eq(dataset.FieldElectronCount, n)
	}
	return p
}

// FinalLevels lists candidate final levels. The delta narrows it only once
// a base electron count is chosen.
type FinalLevels struct{}

func (FinalLevels) ID() ID                   { return IDFinalLevels }
func (FinalLevels) Kind() dataset.RecordKind { return dataset.KindLevel }
func (FinalLevels) Bound() []filter.Dimension {
	return []filter.Dimension{filter.DimSessionID, filter.DimElectronCount, filter.DimElectronCountDelta}
}

func (FinalLevels) Predicate(r filter.Reader) dataset.Predicate {
	p := inSession(r)
	n, nok := r.Value(filter.DimElectronCount).Get()
	d, dok := r.Value(filter.DimElectronCountDelta).Get()
	if nok && dok {
		p = p.Eq(dataset.FieldElectronCount, n+d)
	}
	return p
}

// Transitions lists radiative transitions of the selected session, narrowed
// independently by initial and final level.
type Transitions struct{}

func (Transitions) ID() ID                   { return IDTransitions }
func (Transitions) Kind() dataset.RecordKind { return dataset.KindTransition }
func (Transitions) Bound() []filter.Dimension {
	return []filter.Dimension{filter.DimSessionID, filter.DimInitialLevelID, filter.DimFinalLevelID}
}

func (Transitions) Predicate(r filter.Reader) dataset.Predicate {
	p := inSession(r)
	if id, ok := r.Value(filter.DimInitialLevelID).Get(); ok {
		p = p.Eq(dataset.FieldInitialLevelID, id)
	}
	if id, ok := r.Value(filter.DimFinalLevelID).Get(); ok {
		p = p.Eq(dataset.FieldFinalLevelID, id)
	}
	return p
}

// ChargeStates summarizes the electron counts present in the selected
// session. Picking a row selects that electron count.
type ChargeStates struct{}

func (ChargeStates) ID() ID                   { return IDChargeStates }
func (ChargeStates) Kind() dataset.RecordKind { return dataset.KindChargeState }
func (ChargeStates) Bound() []filter.Dimension {
	return []filter.Dimension{filter.DimSessionID}
}

func (ChargeStates) Predicate(r filter.Reader) dataset.Predicate { return inSession(r) }

// Node pairs a view with the source it queries and remembers the last
// result that was committed for display.
type Node struct {
	View   View
	Source dataset.Source

	mu   sync.RWMutex
	last []dataset.Record
	ok   bool
}

// NewNode returns a node for v over src.
func NewNode(v View, src dataset.Source) *Node {
	return &Node{View: v, Source: src}
}

// Rebuild runs the view's query against r and drains it. It returns either
// the complete result or an error; it never touches the committed result.
func (n *Node) Rebuild(ctx context.Context, r filter.Reader) ([]dataset.Record, error) {
	pred := n.View.Predicate(r)
	recs, err := dataset.Collect(n.Source.Query(ctx, n.View.Kind(), pred))
	if err != nil {
		return nil, fmt.Errorf("rebuild %s [%s]: %w", n.View.ID(), pred, err)
	}
	if recs == nil {
		recs = []dataset.Record{}
	}
	return recs, nil
}

// Commit records recs as the displayed result.
func (n *Node) Commit(recs []dataset.Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = recs
	n.ok = true
}

// Last returns the last committed result and whether there is one.
func (n *Node) Last() ([]dataset.Record, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.last, n.ok
}
