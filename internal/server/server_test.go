package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/internal/assert/helpers"
	"github.com/kode4food/waypoint/internal/server"
	"github.com/kode4food/waypoint/pkg/api"
)

type testServerEnv struct {
	*helpers.TestEngineEnv
	Server *server.Server
	Router http.Handler
}

const waitTimeout = 5 * time.Second

func testServer(t *testing.T) *testServerEnv {
	t.Helper()
	env := helpers.NewTestEngine(t)
	srv := server.NewServer(env.Engine)
	return &testServerEnv{
		TestEngineEnv: env,
		Server:        srv,
		Router:        srv.SetupRoutes(),
	}
}

func (env *testServerEnv) do(
	t *testing.T, method, path string, body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Reader
	switch b := body.(type) {
	case nil:
		buf = bytes.NewReader(nil)
	case []byte:
		buf = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) *T {
	t.Helper()
	var res T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return &res
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[api.HealthResponse](t, w)
	assert.Equal(t, "waypoint", res.Service)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, 0, res.Runs)
}

func TestListTools(t *testing.T) {
	env := testServer(t)
	env.MockTools.Register("b-tool", "a-tool")

	w := env.do(t, http.MethodGet, "/tools", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[api.ToolsListResponse](t, w)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, []api.ToolName{"a-tool", "b-tool"}, res.Tools)
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodOptions, "/graphs", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateGraph(t *testing.T) {
	env := testServer(t)
	g := helpers.NewChainGraph("a", "b")

	w := env.do(t, http.MethodPost, "/graphs", g)
	assert.Equal(t, http.StatusCreated, w.Code)

	res := decode[api.GraphCreatedResponse](t, w)
	assert.Equal(t, g.ID, res.GraphID)

	stored, err := env.Engine.GetGraph(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 2)
}

func TestCreateGraphConflict(t *testing.T) {
	env := testServer(t)
	g := helpers.NewChainGraph("a")
	env.CreateGraph(t, g)

	w := env.do(t, http.MethodPost, "/graphs", g)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateGraphInvalidJSON(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodPost, "/graphs", []byte("not-json"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	res := decode[api.ErrorResponse](t, w)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Error, "invalid JSON")
}

func TestCreateGraphValidationError(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name  string
		graph *api.Graph
	}{
		{
			name:  "no_nodes",
			graph: &api.Graph{ID: "empty", Name: "Empty"},
		},
		{
			name: "unknown_edge_target",
			graph: func() *api.Graph {
				g := helpers.NewChainGraph("a")
				g.Edges = append(g.Edges, helpers.Edge("a", "ghost"))
				return g
			}(),
		},
		{
			name: "bad_condition",
			graph: func() *api.Graph {
				g := helpers.NewChainGraph("a", "b")
				g.Edges = []*api.Edge{helpers.When("a", "b", "x >")}
				return g
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/graphs", tt.graph)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetGraph(t *testing.T) {
	env := testServer(t)
	g := helpers.NewChainGraph("a", "b")
	env.CreateGraph(t, g)

	w := env.do(t, http.MethodGet, "/graphs/"+string(g.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[api.Graph](t, w)
	assert.Equal(t, g.ID, res.ID)
	assert.Equal(t, api.NodeID("a"), res.Entry)
}

func TestGetGraphNotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/graphs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListGraphs(t *testing.T) {
	env := testServer(t)
	env.CreateGraph(t, helpers.NewChainGraph("a"))
	env.CreateGraph(t, helpers.NewChainGraph("a", "b"))

	w := env.do(t, http.MethodGet, "/graphs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[api.GraphsListResponse](t, w)
	assert.Equal(t, 2, res.Count)
	assert.Len(t, res.Graphs, 2)
}

func TestDeleteGraph(t *testing.T) {
	env := testServer(t)
	g := helpers.NewChainGraph("a")
	env.CreateGraph(t, g)

	w := env.do(t, http.MethodDelete, "/graphs/"+string(g.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/graphs/"+string(g.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/graphs/"+string(g.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartRun(t *testing.T) {
	env := testServer(t)
	env.MockTools.SetResponse("a", api.State{"greeting": "hello"})
	env.MockTools.SetResponse("b", api.State{"done": true})
	g := helpers.NewChainGraph("a", "b")
	env.CreateGraph(t, g)

	w := env.do(t, http.MethodPost, "/runs", api.RunRequest{
		GraphID:      g.ID,
		InitialState: api.State{"name": "world"},
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	res := decode[api.RunStartedResponse](t, w)
	require.NotEmpty(t, res.RunID)

	r := env.WaitForRun(t, context.Background(), res.RunID, waitTimeout)
	assert.Equal(t, api.RunCompleted, r.Status)
	assert.Equal(t, "world", r.State["name"])
	assert.Equal(t, "hello", r.State["greeting"])
	assert.Equal(t, true, r.State["done"])

	w = env.do(t, http.MethodGet, "/runs/"+string(res.RunID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	st := decode[api.RunStateResponse](t, w)
	assert.Equal(t, api.RunCompleted, st.Status)
	assert.Len(t, st.Log, 2)
	assert.Equal(t, "hello", st.CurrentState["greeting"])

	w = env.do(t, http.MethodGet, "/runs/"+string(res.RunID)+"/result", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	full := decode[api.Run](t, w)
	assert.Equal(t, res.RunID, full.ID)
	assert.Equal(t, g.ID, full.GraphID)
	assert.Equal(t, api.RunCompleted, full.Status)
}

func TestStartRunWithID(t *testing.T) {
	env := testServer(t)
	env.MockTools.Register("a")
	g := helpers.NewChainGraph("a")
	env.CreateGraph(t, g)

	w := env.do(t, http.MethodPost, "/runs", api.RunRequest{
		GraphID: g.ID,
		RunID:   "My Run",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	res := decode[api.RunStartedResponse](t, w)
	assert.Equal(t, api.RunID("my-run"), res.RunID)
	env.WaitForRun(t, context.Background(), res.RunID, waitTimeout)

	w = env.do(t, http.MethodPost, "/runs", api.RunRequest{
		GraphID: g.ID,
		RunID:   "my-run",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartRunErrors(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{
			name:   "invalid_json",
			body:   []byte("{"),
			status: http.StatusBadRequest,
		},
		{
			name:   "missing_graph_id",
			body:   api.RunRequest{},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown_graph",
			body:   api.RunRequest{GraphID: "nope"},
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/runs", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/runs/missing/result", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetResultInProgress(t *testing.T) {
	env := testServer(t)
	env.MockTools.Block("slow")
	g := helpers.NewChainGraph("slow")
	env.CreateGraph(t, g)

	id, err := env.Engine.StartRun(context.Background(), g.ID, nil)
	require.NoError(t, err)
	require.True(t, env.MockTools.WaitForInvocation("slow", waitTimeout))

	w := env.do(t, http.MethodGet, "/runs/"+string(id)+"/result", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	res := decode[api.RunStartedResponse](t, w)
	assert.Equal(t, api.RunRunning, res.Status)

	env.MockTools.Release("slow")
	r := env.WaitForRun(t, context.Background(), id, waitTimeout)
	assert.Equal(t, api.RunCompleted, r.Status)
}

func TestCancelRun(t *testing.T) {
	env := testServer(t)
	env.MockTools.Block("slow")
	g := helpers.NewChainGraph("slow")
	env.CreateGraph(t, g)

	id, err := env.Engine.StartRun(context.Background(), g.ID, nil)
	require.NoError(t, err)
	require.True(t, env.MockTools.WaitForInvocation("slow", waitTimeout))

	w := env.do(t, http.MethodPost, "/runs/"+string(id)+"/cancel", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	r := env.WaitForRun(t, context.Background(), id, waitTimeout)
	assert.Equal(t, api.RunCancelled, r.Status)

	w = env.do(t, http.MethodPost, "/runs/"+string(id)+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/runs/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRuns(t *testing.T) {
	env := testServer(t)
	env.MockTools.Register("a")
	g := helpers.NewChainGraph("a")
	env.CreateGraph(t, g)

	for range 3 {
		env.RunToCompletion(t, g.ID, nil)
	}

	w := env.do(t, http.MethodGet, "/runs", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	res := decode[api.RunsListResponse](t, w)
	assert.Equal(t, 3, res.Count)
	for _, d := range res.Runs {
		assert.Equal(t, g.ID, d.GraphID)
		assert.Equal(t, api.RunCompleted, d.Status)
		assert.Equal(t, 1, d.Steps)
	}
}
