package builder

import (
	"maps"
	"regexp"
	"slices"

	"github.com/kode4food/waypoint/pkg/api"
)

// Graph is an immutable builder for graph definitions. Every With method
// returns a modified copy
type Graph struct {
	id          api.GraphID
	name        string
	description string
	entry       api.NodeID
	nodes       []*api.Node
	edges       []*api.Edge
	loops       []*api.Loop
}

var (
	camelCaseRegex = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	delimiterRegex = regexp.MustCompile(`[\s_]+`)
)

// NewGraph creates a graph builder whose ID is derived from name
func NewGraph(name string) *Graph {
	return &Graph{
		id:   api.GraphID(toKebabCase(name)),
		name: name,
	}
}

func (g *Graph) WithID(id api.GraphID) *Graph {
	res := *g
	res.id = id
	return &res
}

func (g *Graph) WithDescription(desc string) *Graph {
	res := *g
	res.description = desc
	return &res
}

// WithEntry sets the entry node. Without it the first node added is used
func (g *Graph) WithEntry(id api.NodeID) *Graph {
	res := *g
	res.entry = id
	return &res
}

// Tool adds a process node that invokes the named tool
func (g *Graph) Tool(id api.NodeID, name api.ToolName) *Graph {
	return g.WithNode(&api.Node{ID: id, Tool: name})
}

// ToolWithConfig adds a process node with static tool configuration
func (g *Graph) ToolWithConfig(
	id api.NodeID, name api.ToolName, cfg map[string]any,
) *Graph {
	return g.WithNode(&api.Node{ID: id, Tool: name, Config: maps.Clone(cfg)})
}

// End adds a terminal node
func (g *Graph) End(id api.NodeID) *Graph {
	return g.WithNode(&api.Node{ID: id, Kind: api.NodeEnd})
}

func (g *Graph) WithNode(n *api.Node) *Graph {
	res := *g
	node := *n
	res.nodes = append(slices.Clone(g.nodes), &node)
	return &res
}

// Edge adds an unconditional edge
func (g *Graph) Edge(from, to api.NodeID) *Graph {
	return g.withEdge(&api.Edge{From: from, To: to, Kind: api.EdgeNormal})
}

// When adds a conditional edge evaluated in the default language
func (g *Graph) When(from, to api.NodeID, cond string) *Graph {
	return g.WhenLang(from, to, "", cond)
}

// WhenLang adds a conditional edge evaluated in the named language
func (g *Graph) WhenLang(from, to api.NodeID, lang, cond string) *Graph {
	return g.withEdge(&api.Edge{
		From:      from,
		To:        to,
		Kind:      api.EdgeConditional,
		Condition: cond,
		Language:  lang,
	})
}

// Loop re-enters node while cond holds, up to maxIter visits
func (g *Graph) Loop(node api.NodeID, cond string, maxIter int) *Graph {
	res := *g
	res.loops = append(slices.Clone(g.loops), &api.Loop{
		Node:          node,
		Condition:     cond,
		MaxIterations: maxIter,
	})
	return &res
}

// Build assembles and validates the graph definition
func (g *Graph) Build() (*api.Graph, error) {
	res := &api.Graph{
		ID:          g.id,
		Name:        g.name,
		Description: g.description,
		Entry:       g.entry,
		Nodes:       cloneAll(g.nodes),
		Edges:       cloneAll(g.edges),
		Loops:       cloneAll(g.loops),
	}
	if res.Entry == "" && len(res.Nodes) > 0 {
		res.Entry = res.Nodes[0].ID
	}
	if res.Edges == nil {
		res.Edges = []*api.Edge{}
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

func (g *Graph) withEdge(e *api.Edge) *Graph {
	res := *g
	res.edges = append(slices.Clone(g.edges), e)
	return &res
}

func cloneAll[T any](items []*T) []*T {
	if items == nil {
		return nil
	}
	res := make([]*T, len(items))
	for i, item := range items {
		c := *item
		res[i] = &c
	}
	return res
}

func toKebabCase(s string) string {
	s = camelCaseRegex.ReplaceAllString(s, "$1-$2")
	s = delimiterRegex.ReplaceAllString(s, "-")
	return api.SanitizeID(s)
}
