package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
)

// runActor owns a single run. Only its goroutine touches the run record;
// everyone else reads snapshots from the run store
type runActor struct {
	*Engine
	ctx    context.Context
	cancel context.CancelFunc
	graph  *api.Graph
	run    *api.Run
	seq    int64
}

const persistTimeout = 5 * time.Second

func (a *runActor) start() {
	defer a.active.Delete(a.run.ID)
	defer a.cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Run panicked",
				log.RunID(a.run.ID),
				slog.Any("panic", r))
			a.finish(&Outcome{
				State:  a.run.State,
				Err:    fmt.Errorf("run panicked: %v", r),
				Status: api.RunFailed,
				Log:    a.run.Log,
			})
		}
	}()

	a.run.Status = api.RunRunning
	a.persist()

	res, _ := a.exec.Execute(a.ctx, a.graph, a.run.InitialState,
		ForRun(a.run.ID), Observe(a),
	)
	a.finish(res)
}

// NodeStarted records the new log entry and announces the visit
func (a *runActor) NodeStarted(entry *api.LogEntry) {
	a.run.Log = append(a.run.Log, entry)
	a.persist()
	a.raise(api.EventTypeNodeStart, api.NodeStartEvent{
		NodeID: entry.NodeID,
		Tool:   entry.Tool,
	})
}

// NodeCompleted replaces the visit's log entry and publishes the new state
func (a *runActor) NodeCompleted(entry *api.LogEntry, st api.State) {
	if n := len(a.run.Log); n > 0 {
		a.run.Log[n-1] = entry
	}
	a.run.State = st
	a.persist()
	a.raise(api.EventTypeNodeComplete, api.NodeCompleteEvent{
		Output:   entry.Output,
		NodeID:   entry.NodeID,
		Duration: entry.Duration,
	})
}

// NodeFailed announces the error that halts the run
func (a *runActor) NodeFailed(node api.NodeID, err error) {
	slog.Warn("Node failed",
		log.RunID(a.run.ID),
		log.NodeID(node),
		log.Error(err))
	a.raise(api.EventTypeNodeError, api.NodeErrorEvent{
		NodeID: node,
		Error:  err.Error(),
	})
}

func (a *runActor) finish(res *Outcome) {
	a.active.Delete(a.run.ID)

	r := a.run
	r.State = res.State.Snapshot()
	r.Log = cloneLog(res.Log)
	r.Status = res.Status
	r.Note = res.Note
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	r.CompletedAt = a.clock()
	a.persist()

	a.raise(api.EventTypeExecutionComplete, api.ExecutionCompleteEvent{
		FinalState: r.State.Snapshot(),
		Status:     r.Status,
		Error:      r.Error,
		Note:       r.Note,
		Duration:   r.Duration().Milliseconds(),
	})

	if a.archiver != nil {
		a.archiver.Enqueue(r.Clone())
	}

	slog.Info("Run finished",
		log.RunID(r.ID),
		log.GraphID(r.GraphID),
		log.Status(r.Status),
		slog.Int("steps", len(r.Log)))
}

func (a *runActor) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := a.runs.PutRun(ctx, a.run.Clone()); err != nil {
		slog.Error("Failed to persist run",
			log.RunID(a.run.ID),
			log.Error(err))
	}
}

func (a *runActor) raise(typ api.EventType, data any) {
	a.seq++
	a.publish(api.NewEvent(a.run.ID, a.seq, typ, data))
}

func cloneLog(entries []*api.LogEntry) []*api.LogEntry {
	res := make([]*api.LogEntry, len(entries))
	for i, e := range entries {
		res[i] = e.Clone()
	}
	return res
}
