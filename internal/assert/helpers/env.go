package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/waypoint/internal/config"
	"github.com/kode4food/waypoint/internal/engine"
	"github.com/kode4food/waypoint/internal/events"
	"github.com/kode4food/waypoint/internal/store"
	"github.com/kode4food/waypoint/pkg/api"
	"github.com/kode4food/waypoint/pkg/tool"
)

type (
	// TestEngineEnv holds all the components needed for engine testing
	TestEngineEnv struct {
		Engine    *engine.Engine
		Store     store.Store
		Tools     *tool.Registry
		MockTools *MockTools
		Config    *config.Config
		Hub       *events.Hub
		Cleanup   func()
	}

	// EnvOption adjusts a test environment's configuration before the
	// engine is built
	EnvOption func(*config.Config)
)

const defaultStoreTimeout = 5 * time.Second

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	cfg.StepTimeout = 5 * api.Second
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

// NewTestEngine creates a started test engine backed by in-memory stores and
// a mock tool set
func NewTestEngine(t *testing.T, opts ...EnvOption) *TestEngineEnv {
	t.Helper()
	return newTestEngine(t, store.NewMemory(), opts)
}

// NewTestEngineWithRedis creates a started test engine whose graphs and runs
// live in an in-process Redis server
func NewTestEngineWithRedis(t *testing.T, opts ...EnvOption) *TestEngineEnv {
	t.Helper()

	server := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(
		context.Background(), defaultStoreTimeout,
	)
	defer cancel()

	st, err := store.OpenRedis(ctx, server.Addr(), "", 0, "test")
	require.NoError(t, err)
	return newTestEngine(t, st, opts)
}

// WithConfig applies fn to the environment's configuration
func WithConfig(fn func(*config.Config)) EnvOption {
	return fn
}

func newTestEngine(
	t *testing.T, st store.Store, opts []EnvOption,
) *TestEngineEnv {
	t.Helper()

	cfg := NewTestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	tools := tool.NewRegistry()
	hub := events.NewHub()
	eng, err := engine.New(cfg, engine.Dependencies{
		Graphs: st,
		Runs:   st,
		Tools:  tools,
		Hub:    hub,
	})
	require.NoError(t, err)
	eng.Start()

	env := &TestEngineEnv{
		Engine:    eng,
		Store:     st,
		Tools:     tools,
		MockTools: NewMockTools(tools),
		Config:    cfg,
		Hub:       hub,
	}
	env.Cleanup = func() {
		_ = eng.Stop()
		hub.Close()
		_ = st.Close()
	}
	t.Cleanup(env.Cleanup)
	return env
}

// CreateGraph stores a graph and fails the test on error
func (env *TestEngineEnv) CreateGraph(
	t *testing.T, g *api.Graph,
) api.GraphID {
	t.Helper()
	id, err := env.Engine.CreateGraph(context.Background(), g)
	require.NoError(t, err)
	return id
}

// RunToCompletion starts a run of a stored graph and waits for it to finish
func (env *TestEngineEnv) RunToCompletion(
	t *testing.T, graphID api.GraphID, init api.State,
) *api.Run {
	t.Helper()
	ctx := context.Background()
	id, err := env.Engine.StartRun(ctx, graphID, init)
	require.NoError(t, err)
	return env.WaitForRun(t, ctx, id, defaultWaitTimeout)
}
