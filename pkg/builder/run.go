package builder

import (
	"context"
	"maps"

	"github.com/kode4food/waypoint/pkg/api"
)

// Run is a builder for starting runs of a stored graph
type Run struct {
	client  *Client
	graphID api.GraphID
	id      api.RunID
	init    api.State
}

// NewRun creates a run builder for the specified graph
func (c *Client) NewRun(graphID api.GraphID) *Run {
	return &Run{
		client:  c,
		graphID: graphID,
		init:    api.State{},
	}
}

// WithID requests a specific run ID. The server sanitizes it
func (r *Run) WithID(id api.RunID) *Run {
	res := *r
	res.id = id
	return &res
}

// WithInitialState sets the state the run starts from
func (r *Run) WithInitialState(init api.State) *Run {
	res := *r
	res.init = maps.Clone(init)
	return &res
}

// WithValue adds a single initial state entry
func (r *Run) WithValue(key string, value any) *Run {
	res := *r
	res.init = maps.Clone(r.init)
	if res.init == nil {
		res.init = api.State{}
	}
	res.init[key] = value
	return &res
}

// Start schedules the run and returns its ID
func (r *Run) Start(ctx context.Context) (api.RunID, error) {
	return r.client.StartRun(ctx, &api.RunRequest{
		GraphID:      r.graphID,
		RunID:        r.id,
		InitialState: r.init,
	})
}

// Execute starts the run and waits for its result
func (r *Run) Execute(ctx context.Context) (*api.Run, error) {
	id, err := r.Start(ctx)
	if err != nil {
		return nil, err
	}
	return r.client.WaitForResult(ctx, id, DefaultPollInterval)
}
