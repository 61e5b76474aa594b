package api

import (
	"fmt"
	"strings"
)

type (
	// ValidationError lists every structural problem found in a graph
	ValidationError struct {
		Problems []string
	}

	// ConditionRef locates a condition expression declared by a graph
	ConditionRef struct {
		Source     string
		Expression string
		Language   string
	}
)

// Validate checks the graph for structural well-formedness: unique node IDs,
// an existing entry node, edge endpoints that reference known nodes, and
// edge kinds that agree with their conditions
func (g *Graph) Validate() error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if g.Name == "" {
		addf("graph name is required")
	}
	if len(g.Nodes) == 0 {
		addf("graph has no nodes")
	}

	known := make(map[NodeID]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if n == nil {
			addf("node %d is empty", i)
			continue
		}
		if n.ID == "" {
			addf("node %d has no id", i)
			continue
		}
		if known[n.ID] {
			addf("duplicate node id: %s", n.ID)
		}
		known[n.ID] = true
	}

	if g.Entry == "" {
		addf("entry node is required")
	} else if !known[g.Entry] {
		addf("entry node not found: %s", g.Entry)
	}

	for i, e := range g.Edges {
		if e == nil {
			addf("edge %d is empty", i)
			continue
		}
		if !known[e.From] {
			addf("edge %d references unknown node: %s", i, e.From)
		}
		if !known[e.To] {
			addf("edge %d references unknown node: %s", i, e.To)
		}
		switch e.Kind {
		case "", EdgeNormal, EdgeDirect:
			if e.Condition != "" {
				addf("edge %d is unconditional but declares a condition", i)
			}
		case EdgeConditional:
			if strings.TrimSpace(e.Condition) == "" {
				addf("edge %d is conditional but has no condition", i)
			}
		default:
			addf("edge %d has unknown kind: %s", i, e.Kind)
		}
	}

	for i, l := range g.Loops {
		if l == nil {
			addf("loop %d is empty", i)
			continue
		}
		if !known[l.Node] {
			addf("loop %d references unknown node: %s", i, l.Node)
		}
		if strings.TrimSpace(l.Condition) == "" {
			addf("loop %d has no condition", i)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidGraph, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidGraph
}
