package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/internal/client"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

func respond(result api.ToolResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func endpoint(url string) *client.Endpoint {
	return &client.Endpoint{
		Name: "remote",
		URL:  url,
	}
}

func TestSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "waypoint/0.1.0", r.Header.Get("User-Agent"))

			var req api.ToolRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "test-input", req.State["input"])
			assert.EqualValues(t, 3, req.Config["limit"])
			assert.Equal(t, api.RunID("run-1"), req.RunID)
			assert.Equal(t, api.NodeID("node-1"), req.NodeID)

			respond(api.ToolResult{
				Success: true,
				Outputs: api.State{"result": "test-output"},
			})(w, r)
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	out, err := cl.Invoke(context.Background(), endpoint(server.URL),
		&tool.Call{
			State:  api.State{"input": "test-input"},
			Config: map[string]any{"limit": 3},
			RunID:  "run-1",
			NodeID: "node-1",
			Tool:   "remote",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "test-output", out["result"])
}

func TestNoEndpoint(t *testing.T) {
	cl := client.NewHTTPClient(5 * time.Second)

	_, err := cl.Invoke(context.Background(), &client.Endpoint{},
		&tool.Call{Tool: "remote"},
	)
	assert.ErrorIs(t, err, client.ErrNoEndpoint)

	_, err = cl.Invoke(context.Background(), nil, &tool.Call{Tool: "remote"})
	assert.ErrorIs(t, err, client.ErrNoEndpoint)
}

func TestHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("internal error"))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	_, err := cl.Invoke(
		context.Background(), endpoint(server.URL), &tool.Call{},
	)
	require.Error(t, err)
	assert.Equal(t, "tool returned HTTP error: HTTP 500", err.Error())
}

func TestSuccessFalse(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{name: "without_message"},
		{name: "with_message", message: "custom error message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(respond(api.ToolResult{
				Error: tt.message,
			}))
			defer server.Close()

			cl := client.NewHTTPClient(5 * time.Second)
			_, err := cl.Invoke(
				context.Background(), endpoint(server.URL), &tool.Call{},
			)
			require.Error(t, err)
			assert.ErrorIs(t, err, client.ErrToolUnsuccessful)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("invalid json"))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	_, err := cl.Invoke(
		context.Background(), endpoint(server.URL), &tool.Call{},
	)
	assert.Error(t, err)
}

func TestTimeout(t *testing.T) {
	slow := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		respond(api.ToolResult{Success: true})(w, r)
	}

	t.Run("client", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(slow))
		defer server.Close()

		cl := client.NewHTTPClient(50 * time.Millisecond)
		_, err := cl.Invoke(
			context.Background(), endpoint(server.URL), &tool.Call{},
		)
		assert.Error(t, err)
	})

	t.Run("endpoint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(slow))
		defer server.Close()

		ep := endpoint(server.URL)
		ep.Timeout = 50 * time.Millisecond
		cl := client.NewHTTPClient(5 * time.Second)
		_, err := cl.Invoke(context.Background(), ep, &tool.Call{})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestContextCanceled(t *testing.T) {
	server := httptest.NewServer(respond(api.ToolResult{Success: true}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cl := client.NewHTTPClient(5 * time.Second)
	_, err := cl.Invoke(ctx, endpoint(server.URL), &tool.Call{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmptyOutputs(t *testing.T) {
	server := httptest.NewServer(respond(api.ToolResult{Success: true}))
	defer server.Close()

	cl := client.NewHTTPClient(5 * time.Second)
	out, err := cl.Invoke(
		context.Background(), endpoint(server.URL), &tool.Call{},
	)
	require.NoError(t, err)
	assert.Equal(t, api.State{}, out)
}

func TestFuncAdapter(t *testing.T) {
	server := httptest.NewServer(respond(api.ToolResult{
		Success: true,
		Outputs: api.State{
			"result1": "value1",
			"result2": 42,
			"result3": true,
		},
	}))
	defer server.Close()

	reg := tool.NewRegistry()
	cl := client.NewHTTPClient(5 * time.Second)
	reg.MustRegister("remote", cl.Func(endpoint(server.URL)))

	fn, ok := reg.Get("remote")
	require.True(t, ok)
	out, err := fn(context.Background(), &tool.Call{Tool: "remote"})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, "value1", out["result1"])
	assert.EqualValues(t, 42, out["result2"])
}
