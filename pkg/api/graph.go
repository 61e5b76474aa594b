package api

import (
	"fmt"
	"time"
)

type (
	// NodeKind tags a node with its role in the graph
	NodeKind string

	// EdgeKind distinguishes unconditional from predicate-guarded edges
	EdgeKind string

	// Graph is an immutable workflow definition executed by the engine
	Graph struct {
		CreatedAt   time.Time `json:"created_at" yaml:"-"`
		ID          GraphID   `json:"id" yaml:"id"`
		Name        string    `json:"name" yaml:"name"`
		Description string    `json:"description,omitempty" yaml:"description,omitempty"`
		Entry       NodeID    `json:"entry_node" yaml:"entry_node"`
		Nodes       []*Node   `json:"nodes" yaml:"nodes"`
		Edges       []*Edge   `json:"edges" yaml:"edges"`
		Loops       []*Loop   `json:"loops,omitempty" yaml:"loops,omitempty"`
	}

	// Node is a named step in a graph, optionally bound to a tool
	Node struct {
		Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
		ID     NodeID         `json:"id" yaml:"id"`
		Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
		Kind   NodeKind       `json:"kind,omitempty" yaml:"kind,omitempty"`
		Tool   ToolName       `json:"tool,omitempty" yaml:"tool,omitempty"`
	}

	// Edge is a directed transition between two nodes of the same graph
	Edge struct {
		From      NodeID   `json:"from" yaml:"from"`
		To        NodeID   `json:"to" yaml:"to"`
		Kind      EdgeKind `json:"kind,omitempty" yaml:"kind,omitempty"`
		Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
		Language  string   `json:"language,omitempty" yaml:"language,omitempty"`
	}

	// Loop bounds the number of times a node may be entered and guards each
	// entry with a condition that must hold for the run to continue
	Loop struct {
		Node          NodeID `json:"node" yaml:"node"`
		Condition     string `json:"condition" yaml:"condition"`
		Language      string `json:"language,omitempty" yaml:"language,omitempty"`
		MaxIterations int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	}

	// GraphDigest provides summary information about a stored graph
	GraphDigest struct {
		CreatedAt time.Time `json:"created_at"`
		ID        GraphID   `json:"id"`
		Name      string    `json:"name"`
		NodeCount int       `json:"node_count"`
		EdgeCount int       `json:"edge_count"`
	}
)

const (
	NodeProcess NodeKind = "process"
	NodeEnd     NodeKind = "end"
)

const (
	EdgeNormal      EdgeKind = "normal"
	EdgeConditional EdgeKind = "conditional"

	// EdgeDirect is accepted as an alias of EdgeNormal
	EdgeDirect EdgeKind = "direct"
)

// DefaultLoopIterations bounds a Loop that declares no MaxIterations
const DefaultLoopIterations = 10

// GetNode returns the node with the given ID
func (g *Graph) GetNode(id NodeID) (*Node, bool) {
	for _, n := range g.Nodes {
		if n != nil && n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Outgoing returns the edges leaving the given node in declaration order
func (g *Graph) Outgoing(id NodeID) []*Edge {
	var res []*Edge
	for _, e := range g.Edges {
		if e != nil && e.From == id {
			res = append(res, e)
		}
	}
	return res
}

// GetLoop returns the loop configuration attached to the given node
func (g *Graph) GetLoop(id NodeID) (*Loop, bool) {
	for _, l := range g.Loops {
		if l != nil && l.Node == id {
			return l, true
		}
	}
	return nil, false
}

// Digest summarizes the graph for listings
func (g *Graph) Digest() *GraphDigest {
	return &GraphDigest{
		CreatedAt: g.CreatedAt,
		ID:        g.ID,
		Name:      g.Name,
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
	}
}

// Conditions returns every edge and loop condition declared by the graph
func (g *Graph) Conditions() []*ConditionRef {
	var res []*ConditionRef
	for _, e := range g.Edges {
		if e != nil && e.IsConditional() {
			res = append(res, &ConditionRef{
				Source:     fmt.Sprintf("edge %s -> %s", e.From, e.To),
				Expression: e.Condition,
				Language:   e.Language,
			})
		}
	}
	for _, l := range g.Loops {
		if l != nil {
			res = append(res, &ConditionRef{
				Source:     fmt.Sprintf("loop %s", l.Node),
				Expression: l.Condition,
				Language:   l.Language,
			})
		}
	}
	return res
}

// EffectiveKind returns the node's kind, defaulting to NodeProcess
func (n *Node) EffectiveKind() NodeKind {
	if n.Kind == "" {
		return NodeProcess
	}
	return n.Kind
}

// HasTool reports whether the node is bound to a tool
func (n *Node) HasTool() bool {
	return n.Tool != ""
}

// IsConditional reports whether the edge is guarded by a predicate
func (e *Edge) IsConditional() bool {
	return e.Kind == EdgeConditional
}

// Limit returns the effective iteration bound of the loop
func (l *Loop) Limit() int {
	if l.MaxIterations <= 0 {
		return DefaultLoopIterations
	}
	return l.MaxIterations
}

// Clone returns a deep copy of the graph
func (g *Graph) Clone() *Graph {
	res := *g
	res.Nodes = make([]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n == nil {
			continue
		}
		cn := *n
		if n.Config != nil {
			cn.Config = State(n.Config).Snapshot()
		}
		res.Nodes[i] = &cn
	}
	res.Edges = make([]*Edge, len(g.Edges))
	for i, e := range g.Edges {
		if e != nil {
			ce := *e
			res.Edges[i] = &ce
		}
	}
	if g.Loops != nil {
		res.Loops = make([]*Loop, len(g.Loops))
		for i, l := range g.Loops {
			if l != nil {
				cl := *l
				res.Loops[i] = &cl
			}
		}
	}
	return &res
}
