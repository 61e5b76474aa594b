package api

import "time"

type (
	// RunStatus represents the lifecycle state of a run
	RunStatus string

	// LogStatus represents the state of a single node visit
	LogStatus string

	// Run is one execution instance of a graph against an initial state
	Run struct {
		StartedAt    time.Time   `json:"started_at"`
		CompletedAt  time.Time   `json:"completed_at,omitempty"`
		InitialState State       `json:"initial_state"`
		State        State       `json:"state"`
		ID           RunID       `json:"run_id"`
		GraphID      GraphID     `json:"graph_id"`
		Status       RunStatus   `json:"status"`
		Error        string      `json:"error,omitempty"`
		Note         string      `json:"note,omitempty"`
		Log          []*LogEntry `json:"logs"`
	}

	// LogEntry records one node visit. Its status moves from started to
	// completed or failed as the visit progresses
	LogEntry struct {
		Timestamp time.Time `json:"timestamp"`
		Input     State     `json:"input_state,omitempty"`
		Output    State     `json:"output,omitempty"`
		NodeID    NodeID    `json:"node_id"`
		Tool      ToolName  `json:"tool,omitempty"`
		Status    LogStatus `json:"status"`
		Error     string    `json:"error,omitempty"`
		Duration  int64     `json:"duration_ms"`
	}

	// RunDigest provides summary information about a run
	RunDigest struct {
		StartedAt   time.Time `json:"started_at"`
		CompletedAt time.Time `json:"completed_at,omitempty"`
		ID          RunID     `json:"run_id"`
		GraphID     GraphID   `json:"graph_id"`
		Status      RunStatus `json:"status"`
		Error       string    `json:"error,omitempty"`
		Steps       int       `json:"steps"`
	}
)

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

const (
	LogStarted   LogStatus = "started"
	LogCompleted LogStatus = "completed"
	LogFailed    LogStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// IsTerminal reports whether the run has finished
func (r *Run) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// Digest summarizes the run for listings
func (r *Run) Digest() *RunDigest {
	return &RunDigest{
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		ID:          r.ID,
		GraphID:     r.GraphID,
		Status:      r.Status,
		Error:       r.Error,
		Steps:       len(r.Log),
	}
}

// Clone returns a deep copy of the run
func (r *Run) Clone() *Run {
	res := *r
	res.InitialState = r.InitialState.Snapshot()
	res.State = r.State.Snapshot()
	res.Log = make([]*LogEntry, len(r.Log))
	for i, e := range r.Log {
		res.Log[i] = e.Clone()
	}
	return &res
}

// Clone returns a deep copy of the log entry
func (e *LogEntry) Clone() *LogEntry {
	res := *e
	if e.Input != nil {
		res.Input = e.Input.Snapshot()
	}
	if e.Output != nil {
		res.Output = e.Output.Snapshot()
	}
	return &res
}

// Duration returns how long a terminal run took. Runs still in progress
// report zero
func (r *Run) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
