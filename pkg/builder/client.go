package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// Client talks to a waypoint server's HTTP API
	Client struct {
		httpClient *http.Client
		baseURL    string
	}

	// statusErrors maps HTTP status codes to the sentinel a call reports
	statusErrors map[int]error
)

var (
	ErrRequestFailed   = errors.New("request failed")
	ErrUnexpectedReply = errors.New("unexpected response")
)

const (
	DefaultServerURL    = "http://localhost:8080"
	DefaultPollInterval = 250 * time.Millisecond

	routeHealth = "/health"
	routeTools  = "/tools"
	routeGraphs = "/graphs"
	routeRuns   = "/runs"
)

var (
	graphErrors = statusErrors{
		http.StatusNotFound:   api.ErrGraphNotFound,
		http.StatusConflict:   api.ErrGraphExists,
		http.StatusBadRequest: api.ErrInvalidGraph,
	}
	runErrors = statusErrors{
		http.StatusNotFound: api.ErrRunNotFound,
		http.StatusConflict: api.ErrRunExists,
	}
)

// NewClient creates a Client for the server at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var res api.HealthResponse
	err := c.do(ctx, http.MethodGet, routeHealth, nil, &res, nil,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListTools returns the names of the tools the server can invoke
func (c *Client) ListTools(ctx context.Context) ([]api.ToolName, error) {
	var res api.ToolsListResponse
	err := c.do(ctx, http.MethodGet, routeTools, nil, &res, nil,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// CreateGraph stores g and returns the ID the server assigned it
func (c *Client) CreateGraph(
	ctx context.Context, g *api.Graph,
) (api.GraphID, error) {
	var res api.GraphCreatedResponse
	err := c.do(ctx, http.MethodPost, routeGraphs, g, &res, graphErrors,
		http.StatusCreated,
	)
	if err != nil {
		return "", err
	}
	return res.GraphID, nil
}

func (c *Client) GetGraph(
	ctx context.Context, id api.GraphID,
) (*api.Graph, error) {
	var res api.Graph
	err := c.do(ctx, http.MethodGet, graphPath(id), nil, &res, graphErrors,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListGraphs(ctx context.Context) ([]*api.GraphDigest, error) {
	var res api.GraphsListResponse
	err := c.do(ctx, http.MethodGet, routeGraphs, nil, &res, nil,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return res.Graphs, nil
}

func (c *Client) DeleteGraph(ctx context.Context, id api.GraphID) error {
	return c.do(ctx, http.MethodDelete, graphPath(id), nil, nil, graphErrors,
		http.StatusOK, http.StatusNoContent,
	)
}

// StartRun schedules a run and returns its ID without waiting for it
func (c *Client) StartRun(
	ctx context.Context, req *api.RunRequest,
) (api.RunID, error) {
	var res api.RunStartedResponse
	errs := statusErrors{
		http.StatusNotFound: api.ErrGraphNotFound,
		http.StatusConflict: api.ErrRunExists,
	}
	err := c.do(ctx, http.MethodPost, routeRuns, req, &res, errs,
		http.StatusAccepted,
	)
	if err != nil {
		return "", err
	}
	return res.RunID, nil
}

// GetRun returns a point-in-time view of a run
func (c *Client) GetRun(
	ctx context.Context, id api.RunID,
) (*api.RunStateResponse, error) {
	var res api.RunStateResponse
	err := c.do(ctx, http.MethodGet, runPath(id), nil, &res, runErrors,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]*api.RunDigest, error) {
	var res api.RunsListResponse
	err := c.do(ctx, http.MethodGet, routeRuns, nil, &res, nil,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return res.Runs, nil
}

// GetResult returns the finished run. A run that has not yet finished
// reports api.ErrRunInProgress
func (c *Client) GetResult(ctx context.Context, id api.RunID) (*api.Run, error) {
	errs := statusErrors{
		http.StatusNotFound: api.ErrRunNotFound,
		http.StatusAccepted: api.ErrRunInProgress,
	}
	var res api.Run
	err := c.do(ctx, http.MethodGet, runPath(id)+"/result", nil, &res, errs,
		http.StatusOK,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// WaitForResult polls until the run finishes or ctx is done
func (c *Client) WaitForResult(
	ctx context.Context, id api.RunID, interval time.Duration,
) (*api.Run, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := c.GetResult(ctx, id)
		if !errors.Is(err, api.ErrRunInProgress) {
			return r, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CancelRun requests cancellation of an active run
func (c *Client) CancelRun(ctx context.Context, id api.RunID) error {
	errs := statusErrors{http.StatusNotFound: api.ErrRunNotFound}
	return c.do(ctx, http.MethodPost, runPath(id)+"/cancel", nil, nil,
		errs, http.StatusAccepted,
	)
}

func (c *Client) do(
	ctx context.Context, method, path string, body, result any,
	errs statusErrors, expected ...int,
) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !slices.Contains(expected, resp.StatusCode) {
		return responseError(resp, errs)
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

func responseError(resp *http.Response, errs statusErrors) error {
	data, _ := io.ReadAll(resp.Body)
	msg := string(data)
	var er api.ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	sentinel, ok := errs[resp.StatusCode]
	if !ok {
		sentinel = ErrRequestFailed
	}
	return fmt.Errorf("%w: status %d: %s", sentinel, resp.StatusCode, msg)
}

func graphPath(id api.GraphID) string {
	return routeGraphs + "/" + url.PathEscape(string(id))
}

func runPath(id api.RunID) string {
	return routeRuns + "/" + url.PathEscape(string(id))
}
