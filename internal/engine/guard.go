package engine

import "github.com/kode4food/waypoint/pkg/api"

type (
	// CycleGuard counts how often each edge is followed within one run
	CycleGuard struct {
		counts map[edgeKey]int
		limit  int
	}

	edgeKey struct {
		from api.NodeID
		to   api.NodeID
	}
)

// DefaultEdgeTraversals bounds how often a single edge may be followed
const DefaultEdgeTraversals = 100

// NewCycleGuard creates a guard allowing each edge to be followed at most
// limit times. A non-positive limit selects DefaultEdgeTraversals
func NewCycleGuard(limit int) *CycleGuard {
	if limit <= 0 {
		limit = DefaultEdgeTraversals
	}
	return &CycleGuard{
		counts: map[edgeKey]int{},
		limit:  limit,
	}
}

// Traverse records one transition and fails with *api.LoopDetectedError
// when it would exceed the limit
func (g *CycleGuard) Traverse(from, to api.NodeID) error {
	k := edgeKey{from: from, to: to}
	g.counts[k]++
	if g.counts[k] > g.limit {
		return &api.LoopDetectedError{
			From:  from,
			To:    to,
			Limit: g.limit,
		}
	}
	return nil
}

// Count returns how often the edge has been followed
func (g *CycleGuard) Count(from, to api.NodeID) int {
	return g.counts[edgeKey{from: from, to: to}]
}
