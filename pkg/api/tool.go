package api

type (
	// ToolRequest is the body POSTed to a remote HTTP tool
	ToolRequest struct {
		State  State          `json:"state"`
		Config map[string]any `json:"config,omitempty"`
		RunID  RunID          `json:"run_id"`
		NodeID NodeID         `json:"node_id"`
	}

	// ToolResult is the body a remote HTTP tool responds with
	ToolResult struct {
		Outputs State  `json:"outputs,omitempty"`
		Error   string `json:"error,omitempty"`
		Success bool   `json:"success"`
	}
)

const (
	Second int64 = 1000
	Minute       = Second * 60
	Hour         = Minute * 60
)
