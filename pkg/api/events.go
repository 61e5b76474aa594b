package api

import "time"

type (
	// EventType identifies the kind of a run event
	EventType string

	// Event is the envelope delivered to run subscribers. Sequence numbers
	// start at one and increase by one within a run
	Event struct {
		Data      any       `json:"data"`
		Type      EventType `json:"type"`
		RunID     RunID     `json:"run_id"`
		Timestamp int64     `json:"timestamp"`
		Sequence  int64     `json:"sequence"`
	}

	// NodeStartEvent is emitted when a node visit begins
	NodeStartEvent struct {
		NodeID NodeID   `json:"node_id"`
		Tool   ToolName `json:"tool,omitempty"`
	}

	// NodeCompleteEvent is emitted when a node visit completes successfully
	NodeCompleteEvent struct {
		Output   State  `json:"output"`
		NodeID   NodeID `json:"node_id"`
		Duration int64  `json:"duration_ms"`
	}

	// NodeErrorEvent is emitted when a node visit or transition fails
	NodeErrorEvent struct {
		NodeID NodeID `json:"node_id"`
		Error  string `json:"error"`
	}

	// ExecutionCompleteEvent is the last event of every run
	ExecutionCompleteEvent struct {
		FinalState State     `json:"final_state"`
		Status     RunStatus `json:"status"`
		Error      string    `json:"error,omitempty"`
		Note       string    `json:"note,omitempty"`
		Duration   int64     `json:"duration_ms"`
	}
)

const (
	EventTypeNodeStart         EventType = "node_start"
	EventTypeNodeComplete      EventType = "node_complete"
	EventTypeNodeError         EventType = "node_error"
	EventTypeExecutionComplete EventType = "execution_complete"
)

// NewEvent creates an event envelope stamped with the current time
func NewEvent(runID RunID, seq int64, typ EventType, data any) *Event {
	return &Event{
		Data:      data,
		Type:      typ,
		RunID:     runID,
		Timestamp: time.Now().UnixMilli(),
		Sequence:  seq,
	}
}

// IsTerminal reports whether the event closes its run's event stream
func (e *Event) IsTerminal() bool {
	return e.Type == EventTypeExecutionComplete
}
