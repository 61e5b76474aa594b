package engine

import (
	"log/slog"

	"github.com/kode4food/waypoint/internal/condition"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

// Selector picks the edge a traversal follows out of a node
type Selector struct {
	conds  *condition.Registry
	policy condition.Policy
}

// NewSelector creates a Selector evaluating conditions with the given
// registry under the given policy
func NewSelector(conds *condition.Registry, policy condition.Policy) *Selector {
	return &Selector{
		conds:  conds,
		policy: policy,
	}
}

// Next returns the first qualifying edge in declaration order. Normal edges
// qualify immediately and conditional edges qualify when their condition
// holds. Edges after the first qualifying one are never evaluated. A nil
// edge with a nil error means no edge qualified
func (s *Selector) Next(edges []*api.Edge, st api.State) (*api.Edge, error) {
	for _, e := range edges {
		if e == nil {
			continue
		}
		if !e.IsConditional() {
			return e, nil
		}
		ok, err := s.Holds(e.Language, e.Condition, st)
		if err != nil {
			return nil, err
		}
		if ok {
			return e, nil
		}
	}
	return nil, nil
}

// Holds evaluates a condition and applies the policy to any evaluation
// error. Under the lenient policy such errors are logged and count as false
func (s *Selector) Holds(lang, expr string, st api.State) (bool, error) {
	res, err := s.conds.Evaluate(lang, expr, st)
	ok, ignored, fatal := s.policy.Resolve(res, err)
	if ignored != nil {
		slog.Warn("Condition evaluation failed",
			slog.String("condition", expr),
			log.Error(ignored))
	}
	return ok, fatal
}
