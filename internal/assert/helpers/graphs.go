package helpers

import (
	"github.com/google/uuid"

	"github.com/kode4food/waypoint/pkg/api"
)

// NewTestGraph creates a graph with a unique ID and the given nodes. The
// first node is the entry node
func NewTestGraph(nodes ...*api.Node) *api.Graph {
	g := &api.Graph{
		ID:    api.GraphID("test-graph-" + uuid.New().String()[:8]),
		Name:  "Test Graph",
		Nodes: nodes,
	}
	if len(nodes) > 0 {
		g.Entry = nodes[0].ID
	}
	return g
}

// NewChainGraph creates a graph whose nodes run one after another. Each node
// uses the tool of the same name
func NewChainGraph(ids ...api.NodeID) *api.Graph {
	nodes := make([]*api.Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, NewToolNode(id, api.ToolName(id)))
	}
	g := NewTestGraph(nodes...)
	for i := 1; i < len(ids); i++ {
		g.Edges = append(g.Edges, Edge(ids[i-1], ids[i]))
	}
	return g
}

// NewToolNode creates a process node bound to a tool
func NewToolNode(id api.NodeID, name api.ToolName) *api.Node {
	return &api.Node{
		ID:   id,
		Name: string(id),
		Tool: name,
	}
}

// NewNode creates a process node with no tool
func NewNode(id api.NodeID) *api.Node {
	return &api.Node{
		ID:   id,
		Name: string(id),
	}
}

// Edge creates an unconditional edge
func Edge(from, to api.NodeID) *api.Edge {
	return &api.Edge{
		From: from,
		To:   to,
		Kind: api.EdgeNormal,
	}
}

// When creates a conditional edge in the default condition language
func When(from, to api.NodeID, cond string) *api.Edge {
	return &api.Edge{
		From:      from,
		To:        to,
		Kind:      api.EdgeConditional,
		Condition: cond,
	}
}

// WhenLang creates a conditional edge in a specific condition language
func WhenLang(from, to api.NodeID, lang, cond string) *api.Edge {
	e := When(from, to, cond)
	e.Language = lang
	return e
}
