package engine

import (
	"fmt"

	"github.com/Lingen1218/cfac/internal/filter"
	"github.com/Lingen1218/cfac/internal/view"
)

// Graph maps each filter dimension to the views that read it.
//
// Every view's predicate bottoms out in the flat filter state, so a change
// only ever reaches views one hop away. A view bound to another view's
// selection would need a topological order here; none exists today.
type Graph struct {
	views     []view.View
	index     map[view.ID]int
	consumers map[filter.Dimension][]view.ID
}

// NewGraph builds the dimension → view edges from each view's bound
// dimensions. Views keep their registration order.
func NewGraph(views ...view.View) (*Graph, error) {
	g := &Graph{
		index:     make(map[view.ID]int, len(views)),
		consumers: make(map[filter.Dimension][]view.ID),
	}
	for _, v := range views {
		if _, dup := g.index[v.ID()]; dup {
			return nil, fmt.Errorf("duplicate view id %q", v.ID())
		}
		for _, d := range v.Bound() {
			if !d.Valid() {
				return nil, fmt.Errorf("view %q: unknown dimension %q", v.ID(), d)
			}
			g.consumers[d] = append(g.consumers[d], v.ID())
		}
		g.index[v.ID()] = len(g.views)
		g.views = append(g.views, v)
	}
	return g, nil
}

// MustStandardGraph returns the graph over view.Standard.
func MustStandardGraph() *Graph {
	g, err := NewGraph(view.Standard()...)
	if err != nil {
		panic(err)
	}
	return g
}

// Views returns the registered views in order.
func (g *Graph) Views() []view.View {
	out := make([]view.View, len(g.views))
	copy(out, g.views)
	return out
}

// View returns the view registered under id.
func (g *Graph) View(id view.ID) (view.View, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.views[i], true
}

// Consumers returns the views bound to d, in registration order.
func (g *Graph) Consumers(d filter.Dimension) []view.ID {
	return append([]view.ID(nil), g.consumers[d]...)
}

// Affected returns the union of views bound to any of dims, in
// registration order, each at most once.
func (g *Graph) Affected(dims ...filter.Dimension) []view.ID {
	hit := make(map[view.ID]bool)
	for _, d := range dims {
		for _, id := range g.consumers[d] {
			hit[id] = true
		}
	}
	out := make([]view.ID, 0, len(hit))
	for _, v := range g.views {
		if hit[v.ID()] {
			out = append(out, v.ID())
		}
	}
	return out
}
