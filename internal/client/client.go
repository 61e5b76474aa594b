package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/kode4food/waypoint"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/log"
	"github.com/kode4food/waypoint/pkg/tool"
)

type (
	// Client invokes tools that live behind a remote endpoint
	Client interface {
		Invoke(context.Context, *Endpoint, *tool.Call) (api.State, error)
	}

	// Endpoint describes a remote tool reachable over HTTP
	Endpoint struct {
		Name    api.ToolName
		URL     string
		Timeout time.Duration
	}

	// HTTPClient POSTs tool requests as JSON and decodes tool results
	HTTPClient struct {
		httpClient *http.Client
		timeout    time.Duration
	}
)

var (
	ErrToolUnsuccessful = errors.New("tool returned success=false")
	ErrHTTPError        = errors.New("tool returned HTTP error")
	ErrNoEndpoint       = errors.New("tool has no endpoint")
)

var (
	_ Client = (*HTTPClient)(nil)

	userAgent = waypoint.Name + "/" + waypoint.Version
)

// NewHTTPClient creates a client whose requests time out after timeout
// unless an Endpoint declares its own
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Invoke sends a tool call to its endpoint and returns the tool's outputs
func (c *HTTPClient) Invoke(
	ctx context.Context, ep *Endpoint, call *tool.Call,
) (api.State, error) {
	if ep == nil || ep.URL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, call.Tool)
	}

	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	request := api.ToolRequest{
		State:  call.State,
		Config: call.Config,
		RunID:  call.RunID,
		NodeID: call.NodeID,
	}

	body, err := json.Marshal(request)
	if err != nil {
		slog.Error("Failed to marshal tool request",
			log.Tool(ep.Name),
			log.Error(err))
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, ep.URL, bytes.NewBuffer(body),
	)
	if err != nil {
		slog.Error("Failed to create HTTP request",
			log.Tool(ep.Name),
			log.Error(err))
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)

	if err != nil {
		slog.Error("HTTP request failed",
			log.Tool(ep.Name),
			log.RunID(call.RunID),
			slog.Duration("duration", dur),
			log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read response body",
			log.Tool(ep.Name),
			log.Error(err))
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("HTTP error",
			log.Tool(ep.Name),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(respBody)))
		return nil, fmt.Errorf("%s: HTTP %d", ErrHTTPError, resp.StatusCode)
	}

	var response api.ToolResult
	if err := json.Unmarshal(respBody, &response); err != nil {
		slog.Error("Failed to unmarshal response",
			log.Tool(ep.Name),
			log.Error(err))
		return nil, err
	}

	if !response.Success {
		if response.Error == "" {
			slog.Error("Tool unsuccessful",
				log.Tool(ep.Name))
			return nil, ErrToolUnsuccessful
		}
		slog.Error("Tool failed",
			log.Tool(ep.Name),
			log.ErrorString(response.Error))
		return nil, fmt.Errorf("%w: %s", ErrToolUnsuccessful, response.Error)
	}

	if response.Outputs == nil {
		return api.State{}, nil
	}
	return response.Outputs, nil
}

// Func adapts a remote endpoint to the tool calling contract
func (c *HTTPClient) Func(ep *Endpoint) tool.Func {
	return func(ctx context.Context, call *tool.Call) (api.State, error) {
		return c.Invoke(ctx, ep, call)
	}
}
