package api

type (
	// GraphCreatedResponse is returned when a graph is stored
	GraphCreatedResponse struct {
		GraphID GraphID `json:"graph_id"`
		Message string  `json:"message"`
	}

	// GraphsListResponse contains summaries of stored graphs
	GraphsListResponse struct {
		Graphs []*GraphDigest `json:"graphs"`
		Count  int            `json:"count"`
	}

	// RunRequest starts a run of a stored graph
	RunRequest struct {
		InitialState State   `json:"initial_state"`
		GraphID      GraphID `json:"graph_id"`
		RunID        RunID   `json:"run_id,omitempty"`
	}

	// RunStartedResponse is returned when a run has been scheduled
	RunStartedResponse struct {
		RunID   RunID     `json:"run_id"`
		Status  RunStatus `json:"status"`
		Message string    `json:"message"`
	}

	// RunStateResponse reports a point-in-time view of a run
	RunStateResponse struct {
		CurrentState State       `json:"current_state"`
		RunID        RunID       `json:"run_id"`
		Status       RunStatus   `json:"status"`
		Log          []*LogEntry `json:"logs"`
	}

	// RunsListResponse contains summaries of known runs
	RunsListResponse struct {
		Runs  []*RunDigest `json:"runs"`
		Count int          `json:"count"`
	}

	// ToolsListResponse contains the names of registered tools
	ToolsListResponse struct {
		Tools []ToolName `json:"tools"`
		Count int        `json:"count"`
	}

	// ExecuteRequest is the first message a streaming execution client
	// sends over its WebSocket
	ExecuteRequest struct {
		InitialState State `json:"initial_state"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
		Runs    int    `json:"active_runs"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
