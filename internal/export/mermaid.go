package export

import (
	"fmt"
	"strings"

	"github.com/Lingen1218/cfac/internal/engine"
	"github.com/Lingen1218/cfac/internal/filter"
)

// GenerateMermaid produces a Mermaid graph LR diagram of the view
// dependency graph. Filter dimensions and views are grouped in two
// subgraphs; each edge points from a dimension to a view that reads it.
func GenerateMermaid(g *engine.Graph) string {
	nodeIDs := make(map[string]string)
	nextID := 0
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	sb.WriteString("  subgraph filter[\"filter state\"]\n")
	for _, d := range filter.Dimensions() {
		fmt.Fprintf(&sb, "    %s([\"%s\"])\n", getID("dim:"+string(d)), d)
	}
	sb.WriteString("  end\n")

	sb.WriteString("  subgraph views[\"views\"]\n")
	for _, v := range g.Views() {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID("view:"+string(v.ID())), v.ID())
	}
	sb.WriteString("  end\n")

	for _, d := range filter.Dimensions() {
		for _, id := range g.Consumers(d) {
			fmt.Fprintf(&sb, "  %s --> %s\n", getID("dim:"+string(d)), getID("view:"+string(id)))
		}
	}
	return sb.String()
}
