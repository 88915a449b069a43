package bootstrap

import (
	"fmt"
	"strings"
)

// GraphEdge means "From must initialize after To".
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a snapshot of the registered dependency graph together with the
// computed initialization order.
type Graph struct {
	Nodes []string    `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
	Order []string    `json:"order"`
}

// DOT exports Graphviz DOT text for the dependency graph.
func (g Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph preflight {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n] = alias
		b.WriteString(fmt.Sprintf("  %s [label=%q];\n", alias, n))
	}
	for _, e := range g.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -> %s;\n", from, to))
	}
	b.WriteString("}\n")
	return b.String()
}
