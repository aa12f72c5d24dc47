package cte

import (
	"fmt"
	"strings"

	"github.com/fhir4ds/fhirsql/internal/dag"
)

// Assemble orders the CTEs by their dependencies and emits a single
// WITH query ending in finalSelect. CTEs nothing depends on are still
// emitted; cycles are rejected. Output is deterministic: dependency order
// with ties broken by registration order.
func Assemble(ctes []*CTE, finalSelect string) (string, error) {
	if len(ctes) == 0 {
		return finalSelect, nil
	}

	g := dag.NewGraph()
	for _, c := range ctes {
		g.AddNode(c.Name, c)
	}
	for _, c := range ctes {
		for _, dep := range c.Deps {
			if err := g.AddEdge(dep, c.Name); err != nil {
				return "", fmt.Errorf("assemble %s: %w", c.Name, err)
			}
		}
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		return "", fmt.Errorf("assemble: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("WITH ")
	for i, node := range sorted {
		c := node.Data.(*CTE)
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString(c.Name)
		sb.WriteString(" AS (")
		sb.WriteString(c.Render())
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	sb.WriteString(finalSelect)
	return sb.String(), nil
}
