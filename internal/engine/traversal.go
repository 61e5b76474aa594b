package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
)

type (
	// Executor walks graphs from their entry node, one node at a time
	Executor struct {
		invoker  *Invoker
		selector *Selector
		clock    Clock
		maxEdges int
	}

	// Observer is notified as a traversal progresses. Calls for a single
	// traversal are made sequentially, in traversal order
	Observer interface {
		NodeStarted(*api.LogEntry)
		NodeCompleted(*api.LogEntry, api.State)
		NodeFailed(api.NodeID, error)
	}

	// Outcome is the result of a finished traversal
	Outcome struct {
		State  api.State
		Err    error
		Status api.RunStatus
		Note   string
		Log    []*api.LogEntry
	}

	// ExecOption customizes a single traversal
	ExecOption func(*traversal)

	traversal struct {
		*Executor
		graph    *api.Graph
		observer Observer
		guard    *CycleGuard
		state    api.State
		visits   map[api.NodeID]int
		runID    api.RunID
		log      []*api.LogEntry
	}

	nopObserver struct{}
)

const (
	noteDeadEnd   = "dead end at %s"
	noteLoopExit  = "loop exit at %s"
	noteLoopLimit = "loop limit reached at %s"
)

// NewExecutor creates an Executor. maxEdges bounds how often any single edge
// may be followed within one traversal
func NewExecutor(
	inv *Invoker, sel *Selector, maxEdges int, clock Clock,
) *Executor {
	if clock == nil {
		clock = SystemClock
	}
	return &Executor{
		invoker:  inv,
		selector: sel,
		clock:    clock,
		maxEdges: maxEdges,
	}
}

// Observe registers an Observer for the traversal
func Observe(o Observer) ExecOption {
	return func(t *traversal) {
		t.observer = o
	}
}

// ForRun tags the traversal's tool calls with a run ID
func ForRun(id api.RunID) ExecOption {
	return func(t *traversal) {
		t.runID = id
	}
}

// Execute runs the graph against a copy of the initial state until it
// halts. The returned Outcome is never nil; its error is also returned when
// the traversal did not complete
func (x *Executor) Execute(
	ctx context.Context, g *api.Graph, init api.State, opts ...ExecOption,
) (*Outcome, error) {
	t := &traversal{
		Executor: x,
		graph:    g,
		observer: nopObserver{},
		guard:    NewCycleGuard(x.maxEdges),
		state:    init.Snapshot(),
		visits:   map[api.NodeID]int{},
	}
	for _, opt := range opts {
		opt(t)
	}
	res := t.run(ctx)
	return res, res.Err
}

func (t *traversal) run(ctx context.Context) *Outcome {
	if t.graph == nil {
		return t.fail("", fmt.Errorf("%w: graph is nil", api.ErrInvalidGraph))
	}
	if _, ok := t.graph.GetNode(t.graph.Entry); !ok {
		return t.fail("", fmt.Errorf("%w: entry node %q not found",
			api.ErrInvalidGraph, t.graph.Entry))
	}

	current := t.graph.Entry
	for {
		if ctx.Err() != nil {
			return t.cancelled()
		}

		node, ok := t.graph.GetNode(current)
		if !ok {
			return t.fail(current,
				fmt.Errorf("%w: %s", api.ErrUnknownNode, current),
			)
		}

		if res := t.enterLoop(current); res != nil {
			return res
		}

		if err := t.visit(ctx, node); err != nil {
			if ctx.Err() != nil {
				return t.cancelled()
			}
			return t.fail(current, err)
		}

		edges := t.graph.Outgoing(current)
		if len(edges) == 0 {
			return t.complete("")
		}

		next, err := t.selector.Next(edges, t.state)
		if err != nil {
			return t.fail(current, err)
		}
		if next == nil {
			return t.complete(fmt.Sprintf(noteDeadEnd, current))
		}

		if err := t.guard.Traverse(current, next.To); err != nil {
			return t.fail(current, err)
		}
		current = next.To
	}
}

// enterLoop applies a node's loop configuration on arrival. A non-nil
// Outcome means the traversal halts before visiting the node
func (t *traversal) enterLoop(id api.NodeID) *Outcome {
	l, ok := t.graph.GetLoop(id)
	if !ok {
		return nil
	}
	t.visits[id]++

	holds, err := t.selector.Holds(l.Language, l.Condition, t.state)
	if err != nil {
		return t.fail(id, err)
	}
	if !holds {
		return t.complete(fmt.Sprintf(noteLoopExit, id))
	}
	if t.visits[id] > l.Limit() {
		return t.complete(fmt.Sprintf(noteLoopLimit, id))
	}
	return nil
}

func (t *traversal) visit(ctx context.Context, node *api.Node) error {
	start := t.clock()
	entry := &api.LogEntry{
		Timestamp: start,
		Input:     t.state.Snapshot(),
		NodeID:    node.ID,
		Tool:      node.Tool,
		Status:    api.LogStarted,
	}
	t.log = append(t.log, entry)
	t.observer.NodeStarted(entry.Clone())

	out := api.State{}
	if node.HasTool() {
		res, err := t.invoker.Invoke(ctx, &tool.Call{
			State:  t.state,
			Config: node.Config,
			RunID:  t.runID,
			NodeID: node.ID,
			Tool:   node.Tool,
		})
		entry.Duration = t.clock().Sub(start).Milliseconds()
		if err != nil {
			entry.Status = api.LogFailed
			entry.Error = err.Error()
			return err
		}
		if res != nil {
			out = res.Snapshot()
		}
	}

	t.state = t.state.Merge(out)
	entry.Output = out
	entry.Status = api.LogCompleted
	entry.Duration = t.clock().Sub(start).Milliseconds()
	t.observer.NodeCompleted(entry.Clone(), t.state.Snapshot())
	return nil
}

func (t *traversal) complete(note string) *Outcome {
	if note != "" {
		slog.Info("Traversal halted",
			log.RunID(t.runID),
			slog.String("note", note))
	}
	return t.outcome(api.RunCompleted, nil, note)
}

func (t *traversal) fail(node api.NodeID, err error) *Outcome {
	t.observer.NodeFailed(node, err)
	return t.outcome(api.RunFailed, err, "")
}

func (t *traversal) cancelled() *Outcome {
	return t.outcome(api.RunCancelled, api.ErrRunCancelled, "")
}

func (t *traversal) outcome(
	status api.RunStatus, err error, note string,
) *Outcome {
	return &Outcome{
		State:  t.state,
		Err:    err,
		Status: status,
		Note:   note,
		Log:    t.log,
	}
}

// IsCancelled reports whether the Outcome was cut short by cancellation
func (o *Outcome) IsCancelled() bool {
	return errors.Is(o.Err, api.ErrRunCancelled)
}

func (nopObserver) NodeStarted(*api.LogEntry)              {}
func (nopObserver) NodeCompleted(*api.LogEntry, api.State) {}
func (nopObserver) NodeFailed(api.NodeID, error)           {}
