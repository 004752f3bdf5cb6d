package hypergraph

import (
	"fmt"
	"sort"
	"strings"
)

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string

	// MaxEntities caps the number of entities rendered per community
	MaxEntities int
}

// DrawMermaid generates a Mermaid diagram of a community partition over the
// graph, one subgraph per community with relations drawn between members
func (g *Hypergraph) DrawMermaid(communities []Community) string {
	return g.DrawMermaidWithOptions(communities, MermaidOptions{Direction: "TD", MaxEntities: 20})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (g *Hypergraph) DrawMermaidWithOptions(communities []Community, opts MermaidOptions) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	maxEntities := opts.MaxEntities
	if maxEntities <= 0 {
		maxEntities = 20
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	rendered := make(map[string]bool)
	for _, c := range communities {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", mermaidID(c.ID), c.Label))

		members := make([]string, len(c.Members))
		copy(members, c.Members)
		sort.Strings(members)
		if len(members) > maxEntities {
			members = members[:maxEntities]
		}

		for _, id := range members {
			idx, ok := g.byID[id]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("        %s[\"%s\"]\n", mermaidID(id), g.entities[idx].Name))
			rendered[id] = true
		}
		sb.WriteString("    end\n")
	}

	for _, r := range g.relations {
		if !rendered[r.Source] || !rendered[r.Target] {
			continue
		}
		arrow := "-->"
		if r.Bidirectional {
			arrow = "<-->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s|%s| %s\n", mermaidID(r.Source), arrow, r.Type, mermaidID(r.Target)))
	}

	return sb.String()
}

// mermaidID sanitizes an id for use as a Mermaid node identifier
func mermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
