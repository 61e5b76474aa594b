package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kode4food/waypoint/internal/archive"
	"github.com/kode4food/waypoint/internal/events"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

type (
	// RunOption customizes how a run is started
	RunOption func(*runOptions)

	runOptions struct {
		id api.RunID
	}
)

// WithRunID starts the run under a caller-supplied ID
func WithRunID(id api.RunID) RunOption {
	return func(o *runOptions) {
		o.id = id
	}
}

// StartRun schedules a run of a stored graph and returns its ID without
// waiting for the traversal
func (e *Engine) StartRun(
	ctx context.Context, graphID api.GraphID, init api.State,
	opts ...RunOption,
) (api.RunID, error) {
	g, err := e.graphs.GetGraph(ctx, graphID)
	if err != nil {
		return "", err
	}
	return e.startRun(ctx, g, init, opts)
}

// RunGraph schedules a run of a graph that has not been stored. The graph
// is validated exactly as CreateGraph would validate it
func (e *Engine) RunGraph(
	ctx context.Context, g *api.Graph, init api.State, opts ...RunOption,
) (api.RunID, error) {
	if g == nil {
		return "", fmt.Errorf("%w: graph is nil", api.ErrInvalidGraph)
	}
	if err := g.Validate(); err != nil {
		return "", err
	}
	if err := e.conds.Validate(g); err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrInvalidGraph, err)
	}
	return e.startRun(ctx, g.Clone(), init, opts)
}

// GetRun returns a point-in-time snapshot of a run, whether or not it has
// finished
func (e *Engine) GetRun(ctx context.Context, id api.RunID) (*api.Run, error) {
	r, err := e.runs.GetRun(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, api.ErrRunNotFound) || e.archiver == nil {
		return nil, err
	}
	r, aerr := e.archiver.archive.Get(ctx, id)
	if errors.Is(aerr, archive.ErrNotArchived) {
		return nil, err
	}
	return r, aerr
}

// GetResult returns a finished run. A run still in progress is returned
// along with ErrRunInProgress
func (e *Engine) GetResult(
	ctx context.Context, id api.RunID,
) (*api.Run, error) {
	r, err := e.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsTerminal() {
		return r, fmt.Errorf("%w: %s", api.ErrRunInProgress, id)
	}
	return r, nil
}

// ListRuns returns every stored run
func (e *Engine) ListRuns(ctx context.Context) ([]*api.Run, error) {
	return e.runs.ListRuns(ctx)
}

// CancelRun stops an active run before its next step. The tool call in
// flight, if any, sees its context cancelled
func (e *Engine) CancelRun(ctx context.Context, id api.RunID) error {
	if a, ok := e.active.Load(id); ok {
		a.(*runActor).cancel()
		slog.Info("Run cancellation requested",
			log.RunID(id))
		return nil
	}
	if _, err := e.GetRun(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrRunNotActive, id)
}

// Subscribe delivers a run's events from now on, ending after its
// execution_complete event. Earlier events are not replayed. Subscribing to
// a finished run fails with ErrRunFinished
func (e *Engine) Subscribe(
	ctx context.Context, id api.RunID,
) (*events.Subscription, error) {
	sub := e.hub.SubscribeRun(id)
	r, err := e.GetRun(ctx, id)
	if err != nil {
		sub.Close()
		return nil, err
	}
	if r.IsTerminal() {
		sub.Close()
		return nil, fmt.Errorf("%w: %s", ErrRunFinished, id)
	}
	return sub, nil
}

// StartAndSubscribe starts a run of a stored graph with a subscription
// already in place, so that none of the run's events are missed
func (e *Engine) StartAndSubscribe(
	ctx context.Context, graphID api.GraphID, init api.State,
	opts ...RunOption,
) (api.RunID, *events.Subscription, error) {
	o := makeRunOptions(opts)
	if o.id == "" {
		o.id = api.RunID(uuid.NewString())
	}
	sub := e.hub.SubscribeRun(o.id)
	id, err := e.StartRun(ctx, graphID, init, WithRunID(o.id))
	if err != nil {
		sub.Close()
		return "", nil, err
	}
	return id, sub, nil
}

func (e *Engine) startRun(
	ctx context.Context, g *api.Graph, init api.State, opts []RunOption,
) (api.RunID, error) {
	if e.stopped() {
		return "", ErrEngineStopped
	}

	o := makeRunOptions(opts)
	id := o.id
	if id == "" {
		id = api.RunID(uuid.NewString())
	}

	if _, err := e.runs.GetRun(ctx, id); err == nil {
		return "", fmt.Errorf("%w: %s", api.ErrRunExists, id)
	} else if !errors.Is(err, api.ErrRunNotFound) {
		return "", err
	}

	run := &api.Run{
		StartedAt:    e.clock(),
		InitialState: init.Snapshot(),
		State:        init.Snapshot(),
		ID:           id,
		GraphID:      g.ID,
		Status:       api.RunPending,
		Log:          []*api.LogEntry{},
	}

	runCtx, cancel := context.WithCancel(e.ctx)
	a := &runActor{
		Engine: e,
		ctx:    runCtx,
		cancel: cancel,
		graph:  g,
		run:    run,
	}
	if _, loaded := e.active.LoadOrStore(id, a); loaded {
		cancel()
		return "", fmt.Errorf("%w: %s", api.ErrRunExists, id)
	}

	if err := e.runs.PutRun(ctx, run); err != nil {
		e.active.Delete(id)
		cancel()
		return "", err
	}

	slog.Info("Run started",
		log.RunID(id),
		log.GraphID(g.ID))

	e.wg.Go(a.start)
	return id, nil
}

func makeRunOptions(opts []RunOption) *runOptions {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
